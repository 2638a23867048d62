package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
)

var anchor = time.Date(2025, time.June, 10, 15, 30, 0, 0, time.UTC)

func newIssued(t *testing.T, validityDays int) *Certificate {
	t.Helper()
	cert, err := NewCertificate(id.NewCertificateID(), id.NewAssetID(), id.NewTenantID(),
		"CERT-202506-00001", TypeLoadTest, validityDays, anchor)
	require.NoError(t, err)
	return cert
}

func TestNewCertificate(t *testing.T) {
	cert := newIssued(t, 365)

	assert.Equal(t, StatusIssued, cert.Status)
	assert.Equal(t, time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC), cert.IssueDate)
	assert.Equal(t, time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC), cert.ExpiryDate)
}

func TestNewCertificateValidityBounds(t *testing.T) {
	_, err := NewCertificate(id.NewCertificateID(), id.NewAssetID(), id.NewTenantID(),
		"CERT-202506-00002", TypeLoadTest, 29, anchor)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewCertificate(id.NewCertificateID(), id.NewAssetID(), id.NewTenantID(),
		"CERT-202506-00003", TypeLoadTest, 731, anchor)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	// zero falls back to the default year
	cert, err := NewCertificate(id.NewCertificateID(), id.NewAssetID(), id.NewTenantID(),
		"CERT-202506-00004", TypeLoadTest, 0, anchor)
	require.NoError(t, err)
	assert.Equal(t, DefaultValidityDays, id.DaysBetween(cert.IssueDate, cert.ExpiryDate))
}

func TestIsValid(t *testing.T) {
	cert := newIssued(t, 365)

	assert.True(t, cert.IsValid(anchor))
	assert.True(t, cert.IsValid(cert.ExpiryDate), "valid through the expiry day itself")
	assert.True(t, cert.IsValid(cert.ExpiryDate.Add(23*time.Hour)), "clock time on the expiry day does not matter")
	assert.False(t, cert.IsValid(cert.ExpiryDate.AddDate(0, 0, 1)))

	require.NoError(t, cert.Revoke("", anchor))
	assert.False(t, cert.IsValid(anchor))
}

func TestDaysUntilExpiry(t *testing.T) {
	cert := newIssued(t, 365)

	assert.Equal(t, 365, cert.DaysUntilExpiry(anchor))
	assert.Equal(t, 0, cert.DaysUntilExpiry(cert.ExpiryDate))
	assert.Equal(t, -5, cert.DaysUntilExpiry(cert.ExpiryDate.AddDate(0, 0, 5)))
}

func TestRevoke(t *testing.T) {
	cert := newIssued(t, 365)
	cert.Notes = "initial note"

	require.NoError(t, cert.Revoke("damaged in transit", anchor.Add(time.Hour)))
	assert.Equal(t, StatusRevoked, cert.Status)
	assert.Contains(t, cert.Notes, "initial note")
	assert.Contains(t, cert.Notes, "Revoked: damaged in transit")

	// revocation is terminal
	err := cert.Revoke("again", anchor.Add(2*time.Hour))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestSupersede(t *testing.T) {
	cert := newIssued(t, 365)

	require.NoError(t, cert.Supersede(anchor.Add(time.Hour)))
	assert.Equal(t, StatusSuperseded, cert.Status)

	err := cert.Supersede(anchor.Add(2 * time.Hour))
	require.Error(t, err)

	err = cert.Revoke("no going back", anchor.Add(2*time.Hour))
	require.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusDraft.CanTransitionTo(StatusIssued))
	assert.True(t, StatusIssued.CanTransitionTo(StatusRevoked))
	assert.True(t, StatusIssued.CanTransitionTo(StatusSuperseded))
	assert.True(t, StatusIssued.CanTransitionTo(StatusExpired))
	assert.True(t, StatusExpired.CanTransitionTo(StatusRevoked))

	assert.False(t, StatusRevoked.CanTransitionTo(StatusIssued))
	assert.False(t, StatusSuperseded.CanTransitionTo(StatusIssued))
	assert.False(t, StatusDraft.CanTransitionTo(StatusExpired))
}

func TestTypeDisplayName(t *testing.T) {
	assert.Equal(t, "Load Test Certificate", TypeLoadTest.DisplayName())
	assert.Equal(t, "Annual Certification", TypeAnnual.DisplayName())
	assert.Equal(t, "Certificate", CertificateType("mystery").DisplayName())
}
