package bundle

import (
	"archive/zip"
	"bytes"
	"math/big"
	"testing"

	"github.com/andrew-kemp/EasySwanVPN/internal/models"
	"github.com/stretchr/testify/require"
)

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = buf.Bytes()
	}
	return files
}

func TestBuildClientBundle(t *testing.T) {
	issued := &models.IssuedCertificate{
		CommonName:     "alice",
		Type:           models.CertTypeClient,
		PrivateKeyPEM:  []byte("KEY PEM"),
		CertificatePEM: []byte("CERT PEM"),
		CAPEM:          []byte("CA PEM"),
		Serial:         big.NewInt(7),
		IssuingCA:      "vpn",
	}

	data, err := BuildClientBundle(issued)
	require.NoError(t, err)

	files := readArchive(t, data)
	require.Len(t, files, 4)
	require.Equal(t, []byte("KEY PEM"), files["client.key"])
	require.Equal(t, []byte("CERT PEM"), files["client.crt"])
	require.Equal(t, []byte("CA PEM"), files["ca.crt"])
	require.Equal(t, ClientConfig(), files["client.conf"])
}

func TestBuildEntryOrderDeterministic(t *testing.T) {
	input := map[string][]byte{
		"zz.txt": []byte("z"),
		"aa.txt": []byte("a"),
		"mm.txt": []byte("m"),
	}

	data, err := Build(input)
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"aa.txt", "mm.txt", "zz.txt"}, names)

	again, err := Build(input)
	require.NoError(t, err)
	require.Equal(t, len(data), len(again))
}

func TestClientConfigReferencesBundledFiles(t *testing.T) {
	conf := string(ClientConfig())
	require.Contains(t, conf, "cert = client.crt")
	require.Contains(t, conf, "key = client.key")
}
