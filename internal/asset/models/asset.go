package models

import (
	"strings"
	"time"

	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
)

// AssetCategory groups equipment by regulatory family.
type AssetCategory string

const (
	CategoryLifting   AssetCategory = "lifting"
	CategoryRigging   AssetCategory = "rigging"
	CategoryMeasuring AssetCategory = "measuring"
	CategoryTransport AssetCategory = "transport"
	CategoryOther     AssetCategory = "other"
)

// AssetType is the concrete equipment kind.
type AssetType string

const (
	TypeCrane         AssetType = "crane"
	TypeOverheadCrane AssetType = "overhead_crane"
	TypeMobileCrane   AssetType = "mobile_crane"
	TypeTowerCrane    AssetType = "tower_crane"
	TypeGantryCrane   AssetType = "gantry_crane"
	TypeHoist         AssetType = "hoist"
	TypeShackle       AssetType = "shackle"
	TypeWireRope      AssetType = "wire_rope"
	TypeChainSling    AssetType = "chain_sling"
	TypeWebSling      AssetType = "web_sling"
	TypeSpreaderBar   AssetType = "spreader_bar"
	TypeLiftingBeam   AssetType = "lifting_beam"
	TypeLoadCell      AssetType = "load_cell"
	TypeWeighingScale AssetType = "weighing_scale"
	TypeDynamometer   AssetType = "dynamometer"
	TypeForklift      AssetType = "forklift"
	TypeReachStacker  AssetType = "reach_stacker"
	TypeOther         AssetType = "other"
)

// AssetStatus is the operational state of a piece of equipment.
type AssetStatus string

const (
	StatusActive               AssetStatus = "active"
	StatusInactive             AssetStatus = "inactive"
	StatusUnderMaintenance     AssetStatus = "under_maintenance"
	StatusRetired              AssetStatus = "retired"
	StatusPendingCertification AssetStatus = "pending_certification"
)

// expiringSoonWindowDays is the asset-level "expiring soon" horizon.
const expiringSoonWindowDays = 30

// Asset is an inspectable unit of equipment, scoped to one tenant.
//
// Invariants:
//   - AssetCode is unique within the tenant
//   - CertificateExpiryDate, when set, equals the expiry date of the most
//     recently issued, non-superseded certificate (maintained by the
//     certificate issuance workflow, the only writer of these date fields)
//   - Assets are never physically deleted, only soft-deleted
type Asset struct {
	ID       id.AssetID  `json:"id"`
	TenantID id.TenantID `json:"tenant_id"`

	AssetCode   string        `json:"asset_code"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Category    AssetCategory `json:"category"`
	Type        AssetType     `json:"asset_type"`

	Manufacturer     string `json:"manufacturer,omitempty"`
	Model            string `json:"model,omitempty"`
	SerialNumber     string `json:"serial_number,omitempty"`
	YearManufactured int    `json:"year_manufactured,omitempty"`

	SafeWorkingLoad float64 `json:"safe_working_load"`
	SWLUnit         string  `json:"swl_unit"`

	Location string `json:"location,omitempty"`
	Site     string `json:"site,omitempty"`

	// QRData is the deterministic scannable payload (CT-<asset id>).
	QRData string `json:"qr_data"`

	Status AssetStatus `json:"status"`

	LastInspectionDate    *time.Time `json:"last_inspection_date,omitempty"`
	NextInspectionDate    *time.Time `json:"next_inspection_date,omitempty"`
	CertificateExpiryDate *time.Time `json:"certificate_expiry_date,omitempty"`

	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAsset validates and constructs an Asset in active status.
func NewAsset(assetID id.AssetID, tenantID id.TenantID, code, name string, category AssetCategory, assetType AssetType, swl float64, swlUnit string, now time.Time) (*Asset, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "asset requires a tenant")
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "asset code is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "asset name is required")
	}
	if swl < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "safe working load cannot be negative")
	}
	if category == "" {
		category = CategoryLifting
	}
	if assetType == "" {
		assetType = TypeOther
	}
	if swlUnit == "" {
		swlUnit = "ton"
	}
	return &Asset{
		ID:              assetID,
		TenantID:        tenantID,
		AssetCode:       code,
		Name:            name,
		Category:        category,
		Type:            assetType,
		SafeWorkingLoad: swl,
		SWLUnit:         swlUnit,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsCertificateExpiringSoon reports whether the current certificate lapses
// within the next 30 days (exclusive of already-expired).
func (a *Asset) IsCertificateExpiringSoon(asOf time.Time) bool {
	if a.CertificateExpiryDate == nil {
		return false
	}
	days := id.DaysBetween(asOf, *a.CertificateExpiryDate)
	return days > 0 && days <= expiringSoonWindowDays
}

// IsCertificateExpired reports whether the current certificate has lapsed.
func (a *Asset) IsCertificateExpired(asOf time.Time) bool {
	if a.CertificateExpiryDate == nil {
		return false
	}
	return id.DaysBetween(asOf, *a.CertificateExpiryDate) < 0
}

// ApplyCertification records the date effects of a fresh certificate: the
// expiry mirror, the last inspection, and the next inspection 30 days before
// expiry. Only the issuance workflow calls this.
func (a *Asset) ApplyCertification(issueDate, expiryDate time.Time, now time.Time) {
	issue := id.Date(issueDate)
	expiry := id.Date(expiryDate)
	next := expiry.AddDate(0, 0, -30)
	a.CertificateExpiryDate = &expiry
	a.LastInspectionDate = &issue
	a.NextInspectionDate = &next
	a.UpdatedAt = now
}

// SoftDelete marks the asset deleted without removing the record.
func (a *Asset) SoftDelete(now time.Time) error {
	if a.IsDeleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "asset is already deleted")
	}
	a.IsDeleted = true
	a.DeletedAt = &now
	a.UpdatedAt = now
	return nil
}
