package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"not-a-uuid",
		"'; DROP TABLE assets;--",
		"550e8400\x00-e29b-41d4-a716-446655440000",
		strings.Repeat("a", 1000),
	}
	for _, input := range inputs {
		_, err := ParseAssetID(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseAcceptsValidUUID(t *testing.T) {
	raw := uuid.New()
	assetID, err := ParseAssetID(raw.String())
	require.NoError(t, err)
	assert.Equal(t, AssetID(raw), assetID)
	assert.False(t, assetID.IsNil())

	t.Run("nil uuid parses but reports nil", func(t *testing.T) {
		parsed, err := ParseTenantID(uuid.Nil.String())
		require.NoError(t, err)
		assert.True(t, parsed.IsNil())
	})
}

func TestZeroValueIsNil(t *testing.T) {
	assert.True(t, TenantID{}.IsNil())
	assert.True(t, AssetID{}.IsNil())
	assert.True(t, TestID{}.IsNil())
	assert.True(t, CertificateID{}.IsNil())
	assert.True(t, UserID{}.IsNil())
	assert.False(t, NewAssetID().IsNil())
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		AssetID       AssetID       `json:"asset_id"`
		CertificateID CertificateID `json:"certificate_id"`
	}
	in := payload{AssetID: NewAssetID(), CertificateID: NewCertificateID()}

	encoded, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), in.AssetID.String(), "IDs marshal as UUID strings")

	var out payload
	require.NoError(t, json.Unmarshal(encoded, &out))
	assert.Equal(t, in, out)

	t.Run("malformed id fails to unmarshal", func(t *testing.T) {
		var out payload
		err := json.Unmarshal([]byte(`{"asset_id":"nope"}`), &out)
		require.Error(t, err)
	})
}
