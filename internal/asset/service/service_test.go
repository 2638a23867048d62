package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certitrack/internal/asset/store"
	"certitrack/internal/audit"
	"certitrack/internal/qr"
	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
	"certitrack/pkg/testutil"
)

type AssetServiceSuite struct {
	suite.Suite
	ctx      context.Context
	tenantID id.TenantID
	auditLog *audit.InMemoryStore
	svc      *Service
}

func (s *AssetServiceSuite) SetupTest() {
	s.tenantID = id.NewTenantID()
	s.ctx = testutil.FrozenContext(
		testutil.ActorContext(s.tenantID, id.NewUserID(), "Dana Inspector"),
		time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC))
	s.auditLog = audit.NewInMemoryStore()
	s.svc = New(store.NewInMemory(), WithAuditor(audit.NewPublisher(s.auditLog)))
}

func TestAssetServiceSuite(t *testing.T) {
	suite.Run(t, new(AssetServiceSuite))
}

func (s *AssetServiceSuite) TestCreateStampsQRData() {
	asset, err := s.svc.Create(s.ctx, CreateParams{
		AssetCode:       "CRN-001",
		Name:            "Tower Crane",
		SafeWorkingLoad: 10,
	})
	s.Require().NoError(err)

	s.Equal(s.tenantID, asset.TenantID)
	s.Equal(qr.Encode(asset.ID), asset.QRData)

	s.Run("duplicate code conflicts", func() {
		_, err := s.svc.Create(s.ctx, CreateParams{AssetCode: "CRN-001", Name: "Other"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *AssetServiceSuite) TestResolveByQR() {
	asset, err := s.svc.Create(s.ctx, CreateParams{AssetCode: "CRN-001", Name: "Tower Crane"})
	s.Require().NoError(err)

	found, err := s.svc.ResolveByQR(s.ctx, asset.QRData)
	s.Require().NoError(err)
	s.Equal(asset.ID, found.ID)

	s.Run("foreign payload rejected", func() {
		_, err := s.svc.ResolveByQR(s.ctx, "XY-"+asset.ID.String())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("other tenants cannot resolve", func() {
		otherCtx := testutil.TenantContext(id.NewTenantID())
		_, err := s.svc.ResolveByQR(otherCtx, asset.QRData)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *AssetServiceSuite) TestDeleteHidesAssetAndAudits() {
	asset, err := s.svc.Create(s.ctx, CreateParams{AssetCode: "CRN-001", Name: "Tower Crane"})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, asset.ID))

	_, err = s.svc.Get(s.ctx, asset.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	events, err := s.auditLog.ListByTenant(s.ctx, s.tenantID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionAssetDeleted, events[0].Action)
	s.Equal("CRN-001", events[0].EntityID)
	s.Equal("Dana Inspector", events[0].ActorName)
}
