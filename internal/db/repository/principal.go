package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/andrew-kemp/EasySwanVPN/internal/models"
)

// PrincipalRepository handles principal data access
type PrincipalRepository struct {
	db *sql.DB
}

// NewPrincipalRepository creates a new principal repository
func NewPrincipalRepository(db *sql.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// GetByUsername retrieves a principal by username. Returns nil, nil when
// no record exists.
func (r *PrincipalRepository) GetByUsername(username string) (*models.Principal, error) {
	query := `
		SELECT username, totp_secret, mfa_enabled, created_at, updated_at
		FROM principals
		WHERE username = ?
	`

	p := &models.Principal{}
	var mfaEnabled int

	err := r.db.QueryRow(query, username).Scan(
		&p.Username,
		&p.TOTPSecret,
		&mfaEnabled,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}

	p.MFAEnabled = mfaEnabled == 1

	return p, nil
}

// Upsert inserts a principal or replaces its mutable fields
func (r *PrincipalRepository) Upsert(p *models.Principal) error {
	query := `
		INSERT INTO principals (username, totp_secret, mfa_enabled)
		VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			totp_secret = excluded.totp_secret,
			mfa_enabled = excluded.mfa_enabled,
			updated_at  = CURRENT_TIMESTAMP
	`

	mfaEnabled := 0
	if p.MFAEnabled {
		mfaEnabled = 1
	}

	if _, err := r.db.Exec(query, p.Username, p.TOTPSecret, mfaEnabled); err != nil {
		return fmt.Errorf("failed to upsert principal: %w", err)
	}

	p.UpdatedAt = time.Now()

	return nil
}

// List lists all principals
func (r *PrincipalRepository) List() ([]*models.Principal, error) {
	query := `
		SELECT username, totp_secret, mfa_enabled, created_at, updated_at
		FROM principals
		ORDER BY username ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	defer rows.Close()

	var principals []*models.Principal

	for rows.Next() {
		p := &models.Principal{}
		var mfaEnabled int

		err := rows.Scan(
			&p.Username,
			&p.TOTPSecret,
			&mfaEnabled,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}

		p.MFAEnabled = mfaEnabled == 1
		principals = append(principals, p)
	}

	return principals, nil
}

// ReplaceAll replaces the full principal mapping in one transaction
func (r *PrincipalRepository) ReplaceAll(principals []*models.Principal) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM principals`); err != nil {
		return fmt.Errorf("failed to clear principals: %w", err)
	}

	insert := `INSERT INTO principals (username, totp_secret, mfa_enabled) VALUES (?, ?, ?)`
	for _, p := range principals {
		mfaEnabled := 0
		if p.MFAEnabled {
			mfaEnabled = 1
		}
		if _, err := tx.Exec(insert, p.Username, p.TOTPSecret, mfaEnabled); err != nil {
			return fmt.Errorf("failed to insert principal %s: %w", p.Username, err)
		}
	}

	return tx.Commit()
}
