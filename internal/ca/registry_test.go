package ca

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrew-kemp/EasySwanVPN/internal/session"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	for _, name := range []string{"vpn", "vpn-root", "VPN.2025", "a", "0ca", "office_ca"} {
		require.NoError(t, ValidateName(name), name)
	}
	for _, name := range []string{
		"", ".", "..", "../etc", "a/../b", "a/b", "-leading", ".hidden",
		"_leading", "with space", "ca\x00", "слон",
	} {
		require.ErrorIs(t, ValidateName(name), ErrInvalidName, name)
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(filepath.Join(t.TempDir(), "cas"))
	require.NoError(t, err)
	return r
}

func TestGenerateCreatesLayout(t *testing.T) {
	r := newTestRegistry(t)

	authority, err := r.Generate(context.Background(), "vpn-root", "EasySwan Root", 3650)
	require.NoError(t, err)
	require.Equal(t, "vpn-root", authority.Name)

	cert := authority.Certificate
	require.True(t, cert.IsCA)
	require.Equal(t, "EasySwan Root", cert.Subject.CommonName)
	require.Equal(t, cert.Subject.String(), cert.Issuer.String())
	require.NotEmpty(t, cert.SubjectKeyId)

	dir := filepath.Join(r.baseDir, "vpn-root")
	for _, f := range []string{caKeyFile, caCertFile, caSerialFile} {
		_, err := os.Stat(filepath.Join(dir, f))
		require.NoError(t, err, f)
	}

	serial, err := os.ReadFile(filepath.Join(dir, caSerialFile))
	require.NoError(t, err)
	require.Equal(t, "0001", string(serial))

	keyInfo, err := os.Stat(filepath.Join(dir, caKeyFile))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), keyInfo.Mode().Perm())
}

func TestGenerateDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Generate(context.Background(), "vpn", "vpn", 365)
	require.NoError(t, err)

	_, err = r.Generate(context.Background(), "vpn", "vpn", 365)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGenerateInvalidName(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Generate(context.Background(), "../escape", "x", 365)
	require.ErrorIs(t, err, ErrInvalidName)

	// Nothing may appear on disk for a rejected name.
	entries, err := os.ReadDir(r.baseDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListSortedAndSkipsStaging(t *testing.T) {
	r := newTestRegistry(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := r.Generate(context.Background(), name, name, 365)
		require.NoError(t, err)
	}

	// Leftovers from an interrupted creation are invisible.
	require.NoError(t, os.MkdirAll(filepath.Join(r.baseDir, ".gamma-stage"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(r.baseDir, "stray-file"), nil, 0644))

	names, err := r.List()
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestGetRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	generated, err := r.Generate(context.Background(), "vpn", "vpn", 365)
	require.NoError(t, err)

	loaded, err := r.Get("vpn")
	require.NoError(t, err)
	require.Equal(t, generated.Certificate.SerialNumber, loaded.Certificate.SerialNumber)
	require.Equal(t, generated.CertPEM, loaded.CertPEM)
	require.NotNil(t, loaded.Key)

	_, err = r.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSelectAndResolveActive(t *testing.T) {
	r := newTestRegistry(t)
	sess := &session.Session{ID: "s"}

	// Empty registry has nothing to resolve.
	_, err := r.ResolveActive(sess)
	require.ErrorIs(t, err, ErrNoActiveCA)

	for _, name := range []string{"beta", "alpha"} {
		_, err := r.Generate(context.Background(), name, name, 365)
		require.NoError(t, err)
	}

	// No explicit choice falls back to the first entry in name order.
	active, err := r.ResolveActive(sess)
	require.NoError(t, err)
	require.Equal(t, "alpha", active)

	require.NoError(t, r.Select(sess, "beta"))
	active, err = r.ResolveActive(sess)
	require.NoError(t, err)
	require.Equal(t, "beta", active)

	require.ErrorIs(t, r.Select(sess, "missing"), ErrNotFound)
	require.ErrorIs(t, r.Select(sess, "../escape"), ErrInvalidName)

	// A stale choice falls back instead of failing.
	sess.ActiveCA = "deleted"
	active, err = r.ResolveActive(sess)
	require.NoError(t, err)
	require.Equal(t, "alpha", active)
}

func TestImport(t *testing.T) {
	r := newTestRegistry(t)

	src, err := r.Generate(context.Background(), "origin", "origin", 365)
	require.NoError(t, err)
	keyPEM, err := os.ReadFile(filepath.Join(r.baseDir, "origin", caKeyFile))
	require.NoError(t, err)

	other := newTestRegistry(t)
	imported, err := other.Import("copied", src.CertPEM, keyPEM)
	require.NoError(t, err)
	require.Equal(t, src.Certificate.SerialNumber, imported.Certificate.SerialNumber)

	names, err := other.List()
	require.NoError(t, err)
	require.Equal(t, []string{"copied"}, names)

	_, err = other.Import("copied", src.CertPEM, keyPEM)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestImportRejectsGarbage(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Import("bad", []byte("not a cert"), []byte("not a key"))
	require.ErrorIs(t, err, ErrInvalidMaterial)

	src, err := r.Generate(context.Background(), "origin", "origin", 365)
	require.NoError(t, err)

	_, err = r.Import("bad", src.CertPEM, []byte("not a key"))
	require.ErrorIs(t, err, ErrInvalidMaterial)

	// A failed import leaves no directory behind.
	require.False(t, r.Exists("bad"))
}
