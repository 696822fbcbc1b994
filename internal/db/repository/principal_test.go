package repository

import (
	"path/filepath"
	"testing"

	"github.com/andrew-kemp/EasySwanVPN/internal/db"
	"github.com/andrew-kemp/EasySwanVPN/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))
	return database
}

func TestPrincipalUpsertAndGet(t *testing.T) {
	repo := NewPrincipalRepository(newTestDB(t).DB)

	p, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	require.Nil(t, p)

	require.NoError(t, repo.Upsert(&models.Principal{
		Username:   "alice",
		TOTPSecret: "JBSWY3DPEHPK3PXP",
	}))

	p, err = repo.GetByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "JBSWY3DPEHPK3PXP", p.TOTPSecret)
	require.False(t, p.MFAEnabled)

	// Flipping the flag updates the row, not a second one.
	require.NoError(t, repo.Upsert(&models.Principal{
		Username:   "alice",
		TOTPSecret: "JBSWY3DPEHPK3PXP",
		MFAEnabled: true,
	}))

	p, err = repo.GetByUsername("alice")
	require.NoError(t, err)
	require.True(t, p.MFAEnabled)

	all, err := repo.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestPrincipalListOrdered(t *testing.T) {
	repo := NewPrincipalRepository(newTestDB(t).DB)

	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, repo.Upsert(&models.Principal{Username: name, TOTPSecret: "S"}))
	}

	all, err := repo.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "alice", all[0].Username)
	require.Equal(t, "bob", all[1].Username)
	require.Equal(t, "carol", all[2].Username)
}

func TestPrincipalReplaceAll(t *testing.T) {
	repo := NewPrincipalRepository(newTestDB(t).DB)

	require.NoError(t, repo.Upsert(&models.Principal{Username: "alice", TOTPSecret: "A"}))
	require.NoError(t, repo.Upsert(&models.Principal{Username: "bob", TOTPSecret: "B"}))

	require.NoError(t, repo.ReplaceAll([]*models.Principal{
		{Username: "carol", TOTPSecret: "C", MFAEnabled: true},
	}))

	all, err := repo.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "carol", all[0].Username)
	require.True(t, all[0].MFAEnabled)
}

func TestAuditCreateAndList(t *testing.T) {
	repo := NewAuditRepository(newTestDB(t).DB)

	require.NoError(t, repo.Create(&models.AuditLog{
		Action:   models.ActionLogin,
		Username: "alice",
		ClientIP: "10.0.0.1",
		Success:  true,
	}))
	require.NoError(t, repo.Create(&models.AuditLog{
		Action:   models.ActionAuthFailed,
		Username: "mallory",
		ClientIP: "10.0.0.2",
		Success:  false,
		ErrorMsg: "Invalid password",
	}))
	require.NoError(t, repo.Create(&models.AuditLog{
		Action:   models.ActionCertIssue,
		Username: "alice",
		ClientIP: "10.0.0.1",
		Success:  true,
		Details:  `{"ca":"vpn"}`,
	}))

	all, err := repo.List("", "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)

	byUser, err := repo.List("alice", "", 10)
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	byAction, err := repo.List("", models.ActionAuthFailed, 10)
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	require.Equal(t, "mallory", byAction[0].Username)
	require.Equal(t, "Invalid password", byAction[0].ErrorMsg)

	limited, err := repo.List("", "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
