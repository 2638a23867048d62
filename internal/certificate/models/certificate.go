package models

import (
	"strings"
	"time"

	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
)

// CertificateStatus is the lifecycle state of a certificate. Revoked and
// superseded are terminal; expiry is derived from the expiry date rather
// than stored as a transition.
type CertificateStatus string

const (
	StatusDraft      CertificateStatus = "draft"
	StatusIssued     CertificateStatus = "issued"
	StatusExpired    CertificateStatus = "expired"
	StatusRevoked    CertificateStatus = "revoked"
	StatusSuperseded CertificateStatus = "superseded"
)

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s CertificateStatus) CanTransitionTo(next CertificateStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusIssued || next == StatusRevoked
	case StatusIssued:
		return next == StatusExpired || next == StatusRevoked || next == StatusSuperseded
	case StatusExpired:
		return next == StatusRevoked
	default:
		// revoked and superseded are terminal
		return false
	}
}

// CertificateType is the kind of certification granted.
type CertificateType string

const (
	TypeLoadTest            CertificateType = "load_test"
	TypeThoroughExamination CertificateType = "thorough_examination"
	TypeCalibration         CertificateType = "calibration"
	TypeInspection          CertificateType = "inspection"
	TypeAnnual              CertificateType = "annual"
)

// DisplayName is the human-readable title used on rendered documents.
func (t CertificateType) DisplayName() string {
	switch t {
	case TypeLoadTest:
		return "Load Test Certificate"
	case TypeThoroughExamination:
		return "Thorough Examination Certificate"
	case TypeCalibration:
		return "Calibration Certificate"
	case TypeInspection:
		return "Inspection Certificate"
	case TypeAnnual:
		return "Annual Certification"
	default:
		return "Certificate"
	}
}

// Validity bounds for new certificates, in days.
const (
	MinValidityDays     = 30
	MaxValidityDays     = 730
	DefaultValidityDays = 365
)

// Certificate is a digital certification document for an asset.
type Certificate struct {
	ID       id.CertificateID `json:"id"`
	AssetID  id.AssetID       `json:"asset_id"`
	TenantID id.TenantID      `json:"tenant_id"`
	TestID   id.TestID        `json:"test_id,omitempty"`

	CertificateNumber string          `json:"certificate_number"`
	Type              CertificateType `json:"certificate_type"`

	IssueDate  time.Time `json:"issue_date"`
	ExpiryDate time.Time `json:"expiry_date"`

	Status CertificateStatus `json:"status"`

	DocumentHash string `json:"document_hash,omitempty"`

	SignedBy string     `json:"signed_by,omitempty"`
	SignedAt *time.Time `json:"signed_at,omitempty"`

	InspectorName          string `json:"inspector_name,omitempty"`
	InspectorCertification string `json:"inspector_certification,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCertificate constructs an issued certificate. Issue and expiry are
// truncated to dates; validity is bounded.
func NewCertificate(certID id.CertificateID, assetID id.AssetID, tenantID id.TenantID,
	number string, certType CertificateType, validityDays int, now time.Time) (*Certificate, error) {

	if assetID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate requires an asset")
	}
	if number == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate requires a number")
	}
	if validityDays == 0 {
		validityDays = DefaultValidityDays
	}
	if validityDays < MinValidityDays || validityDays > MaxValidityDays {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"validity must be between %d and %d days", MinValidityDays, MaxValidityDays)
	}
	if certType == "" {
		certType = TypeLoadTest
	}

	issue := id.Date(now)
	return &Certificate{
		ID:                certID,
		AssetID:           assetID,
		TenantID:          tenantID,
		CertificateNumber: number,
		Type:              certType,
		IssueDate:         issue,
		ExpiryDate:        issue.AddDate(0, 0, validityDays),
		Status:            StatusIssued,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// IsValid reports whether the certificate is issued and unexpired as of the
// given instant.
func (c *Certificate) IsValid(asOf time.Time) bool {
	return c.Status == StatusIssued && !id.Date(c.ExpiryDate).Before(id.Date(asOf))
}

// DaysUntilExpiry is calendar days from asOf to the expiry date. Zero on the
// expiry day itself, negative once past.
func (c *Certificate) DaysUntilExpiry(asOf time.Time) int {
	return id.DaysBetween(asOf, c.ExpiryDate)
}

// Revoke invalidates the certificate. The reason is appended to the notes
// trail. Revocation is permanent.
func (c *Certificate) Revoke(reason string, now time.Time) error {
	if !c.Status.CanTransitionTo(StatusRevoked) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot revoke a %s certificate", c.Status)
	}
	c.Status = StatusRevoked
	if reason != "" {
		c.Notes = strings.TrimSpace(c.Notes + "\nRevoked: " + reason)
	}
	c.UpdatedAt = now
	return nil
}

// Supersede marks the certificate as replaced by a newer issue.
func (c *Certificate) Supersede(now time.Time) error {
	if !c.Status.CanTransitionTo(StatusSuperseded) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot supersede a %s certificate", c.Status)
	}
	c.Status = StatusSuperseded
	c.UpdatedAt = now
	return nil
}

// Sign records who authorized the issue and when.
func (c *Certificate) Sign(signedBy string, now time.Time) {
	c.SignedBy = signedBy
	c.SignedAt = &now
	c.UpdatedAt = now
}
