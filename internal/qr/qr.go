// Package qr implements the deterministic asset identifier codec embedded in
// scannable codes. Image drawing is an external concern; the engine only
// guarantees the encode/decode round trip.
package qr

import (
	"strings"

	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
)

// Prefix tags CertiTrack asset codes so foreign QR payloads are rejected
// before the UUID parse.
const Prefix = "CT-"

// Encode turns an asset ID into the short string embedded in its QR code.
func Encode(assetID id.AssetID) string {
	return Prefix + assetID.String()
}

// Decode parses a scanned code back into an asset ID. Returns
// CodeInvalidInput for foreign prefixes or malformed identifiers.
func Decode(code string) (id.AssetID, error) {
	raw, ok := strings.CutPrefix(code, Prefix)
	if !ok {
		return id.AssetID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid QR format")
	}
	assetID, err := id.ParseAssetID(raw)
	if err != nil {
		return id.AssetID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid asset identifier in QR code")
	}
	return assetID, nil
}
