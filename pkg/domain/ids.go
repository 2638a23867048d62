// Package domain holds typed identifiers shared across services.
//
// Every entity ID is a distinct type over uuid.UUID so that an AssetID can
// never be passed where a CertificateID is expected. The zero value is the
// nil UUID; use IsNil to detect unset IDs.
package domain

import "github.com/google/uuid"

type (
	// TenantID identifies the owning organization. All asset, test and
	// certificate data is scoped to exactly one tenant.
	TenantID uuid.UUID

	// AssetID identifies a registered piece of equipment.
	AssetID uuid.UUID

	// TestID identifies a single examination event on an asset.
	TestID uuid.UUID

	// CertificateID identifies an issued certificate record.
	CertificateID uuid.UUID

	// UserID identifies an authenticated actor (inspector, admin).
	UserID uuid.UUID
)

func (id TenantID) String() string      { return uuid.UUID(id).String() }
func (id AssetID) String() string       { return uuid.UUID(id).String() }
func (id TestID) String() string        { return uuid.UUID(id).String() }
func (id CertificateID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AssetID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id TestID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// MarshalText implementations keep the UUID wire format when IDs are embedded
// in JSON payloads; defined types do not inherit uuid.UUID's marshaling.

func (id TenantID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id AssetID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id TestID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id CertificateID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AssetID) UnmarshalText(b []byte) error {
	parsed, err := ParseAssetID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TestID) UnmarshalText(b []byte) error {
	parsed, err := ParseTestID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CertificateID) UnmarshalText(b []byte) error {
	parsed, err := ParseCertificateID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewTenantID mints a random tenant ID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewAssetID mints a random asset ID.
func NewAssetID() AssetID { return AssetID(uuid.New()) }

// NewTestID mints a random test ID.
func NewTestID() TestID { return TestID(uuid.New()) }

// NewCertificateID mints a random certificate ID.
func NewCertificateID() CertificateID { return CertificateID(uuid.New()) }

// NewUserID mints a random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// ParseTenantID parses a UUID string into a TenantID.
func ParseTenantID(s string) (TenantID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TenantID{}, err
	}
	return TenantID(u), nil
}

// ParseAssetID parses a UUID string into an AssetID.
func ParseAssetID(s string) (AssetID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AssetID{}, err
	}
	return AssetID(u), nil
}

// ParseTestID parses a UUID string into a TestID.
func ParseTestID(s string) (TestID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TestID{}, err
	}
	return TestID(u), nil
}

// ParseCertificateID parses a UUID string into a CertificateID.
func ParseCertificateID(s string) (CertificateID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CertificateID{}, err
	}
	return CertificateID(u), nil
}

// ParseUserID parses a UUID string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}
