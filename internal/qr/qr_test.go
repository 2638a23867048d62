package qr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	assetID := id.NewAssetID()
	code := Encode(assetID)
	assert.Equal(t, "CT-"+assetID.String(), code)

	decoded, err := Decode(code)
	require.NoError(t, err)
	assert.Equal(t, assetID, decoded)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"foreign prefix": "XY-" + id.NewAssetID().String(),
		"missing prefix": id.NewAssetID().String(),
		"bad uuid":       "CT-not-a-uuid",
		"empty":          "",
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(code)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}
