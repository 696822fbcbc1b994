package auth

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderQRCode(t *testing.T) {
	uri := ProvisioningURI("JBSWY3DPEHPK3PXP", "alice", "EasySwanVPN")

	data, err := RenderQRCode(uri)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, qrSizePx, img.Bounds().Dx())
	require.Equal(t, qrSizePx, img.Bounds().Dy())
}
