// Package bundle packages issuance artifacts into a single downloadable
// zip archive for hand-off to the operator.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"

	"github.com/andrew-kemp/EasySwanVPN/internal/models"
)

// BuildClientBundle packages the leaf key, leaf certificate, issuing CA
// certificate and a minimal client config into a zip archive, entirely
// in memory.
func BuildClientBundle(issued *models.IssuedCertificate) ([]byte, error) {
	files := map[string][]byte{
		"client.key":  issued.PrivateKeyPEM,
		"client.crt":  issued.CertificatePEM,
		"ca.crt":      issued.CAPEM,
		"client.conf": ClientConfig(),
	}

	return Build(files)
}

// Build packages named byte blobs into a zip archive.
func Build(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, name := range names {
		data := files[name]
		f, err := w.Create(name)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}

// ClientConfig renders the minimal client configuration shipped inside
// the bundle, referencing the bundled key and certificate by name.
func ClientConfig() []byte {
	return []byte("client\ncert = client.crt\nkey = client.key\n")
}
