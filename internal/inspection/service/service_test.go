package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	assetservice "certitrack/internal/asset/service"
	assetstore "certitrack/internal/asset/store"
	"certitrack/internal/audit"
	"certitrack/internal/inspection/models"
	"certitrack/internal/inspection/store"
	"certitrack/internal/numbering"
	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
	"certitrack/pkg/testutil"
)

type TestServiceSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	tenantID id.TenantID
	assetSvc *assetservice.Service
	auditLog *audit.InMemoryStore
	svc      *Service
	assetID  id.AssetID
}

func (s *TestServiceSuite) SetupTest() {
	s.now = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	s.tenantID = id.NewTenantID()
	s.ctx = testutil.FrozenContext(
		testutil.ActorContext(s.tenantID, id.NewUserID(), "Dana Inspector"), s.now)

	numbers, err := numbering.NewGenerator(numbering.NewInMemoryCounterStore())
	s.Require().NoError(err)

	s.assetSvc = assetservice.New(assetstore.NewInMemory())
	s.auditLog = audit.NewInMemoryStore()
	s.svc = New(store.NewInMemory(), s.assetSvc, numbers,
		WithAuditor(audit.NewPublisher(s.auditLog)))

	asset, err := s.assetSvc.Create(s.ctx, assetservice.CreateParams{
		AssetCode:       "CRN-001",
		Name:            "Tower Crane",
		SafeWorkingLoad: 10,
	})
	s.Require().NoError(err)
	s.assetID = asset.ID
}

func TestTestServiceSuite(t *testing.T) {
	suite.Run(t, new(TestServiceSuite))
}

func (s *TestServiceSuite) TestCreateMintsDailyNumber() {
	test, err := s.svc.Create(s.ctx, CreateParams{AssetID: s.assetID, Type: models.TypeLoadTest})
	s.Require().NoError(err)

	s.Equal("TST-20250610-0001", test.TestNumber)
	s.Equal(models.StatusScheduled, test.Status)
	s.Equal(models.ResultPending, test.Result)
	s.Equal(s.tenantID, test.TenantID)

	second, err := s.svc.Create(s.ctx, CreateParams{AssetID: s.assetID})
	s.Require().NoError(err)
	s.Equal("TST-20250610-0002", second.TestNumber)
}

func (s *TestServiceSuite) TestCreateUnknownAsset() {
	_, err := s.svc.Create(s.ctx, CreateParams{AssetID: id.NewAssetID()})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *TestServiceSuite) TestSubmitCreatesCompletedTest() {
	test, err := s.svc.Submit(s.ctx, SubmitParams{
		AssetID: s.assetID,
		Type:    models.TypeLoadTest,
		Completion: models.CompletionParams{
			SafeWorkingLoad: 10,
			TestLoad:        12.6,
			MeasuredValues:  map[string]any{"brake_test": true},
			TestLocation:    "north yard",
		},
	})
	s.Require().NoError(err)

	s.Equal(models.StatusCompleted, test.Status)
	s.Equal(models.ResultPending, test.Result)
	s.Equal("north yard", test.TestLocation)
	s.False(test.IsValidated)
}

func (s *TestServiceSuite) TestValidateStampsVerdict() {
	test, err := s.svc.Submit(s.ctx, SubmitParams{
		AssetID: s.assetID,
		Completion: models.CompletionParams{
			SafeWorkingLoad: 10,
			TestLoad:        12.6,
			MeasuredValues:  map[string]any{"brake_test": true},
		},
	})
	s.Require().NoError(err)

	validated, outcome, err := s.svc.Validate(s.ctx, test.ID)
	s.Require().NoError(err)

	s.Equal(models.ResultPass, validated.Result)
	s.True(validated.IsValidated)
	s.Equal("Dana Inspector", validated.ValidatedBy)
	s.NotNil(validated.ValidatedAt)
	s.Equal(3, outcome.Summary.TotalChecks)

	s.Run("validation runs exactly once", func() {
		_, _, err := s.svc.Validate(s.ctx, test.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("validation is audited", func() {
		events, err := s.auditLog.ListByTenant(s.ctx, s.tenantID)
		s.Require().NoError(err)
		var found bool
		for _, e := range events {
			if e.Action == audit.ActionTestValidated && e.EntityID == test.TestNumber {
				found = true
				s.Equal("pass", e.Detail)
			}
		}
		s.True(found)
	})
}

func (s *TestServiceSuite) TestValidateRequiresCompletion() {
	test, err := s.svc.Create(s.ctx, CreateParams{AssetID: s.assetID})
	s.Require().NoError(err)

	_, _, err = s.svc.Validate(s.ctx, test.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *TestServiceSuite) TestStartAndCancel() {
	test, err := s.svc.Create(s.ctx, CreateParams{AssetID: s.assetID})
	s.Require().NoError(err)

	started, err := s.svc.Start(s.ctx, test.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, started.Status)

	cancelled, err := s.svc.Cancel(s.ctx, test.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, cancelled.Status)

	s.Run("cancelled test cannot complete", func() {
		_, err := s.svc.Complete(s.ctx, test.ID, models.CompletionParams{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *TestServiceSuite) TestListScopesToTenant() {
	_, err := s.svc.Create(s.ctx, CreateParams{AssetID: s.assetID})
	s.Require().NoError(err)

	tests, err := s.svc.List(s.ctx, store.Filter{})
	s.Require().NoError(err)
	s.Len(tests, 1)

	otherCtx := testutil.FrozenContext(testutil.TenantContext(id.NewTenantID()), s.now)
	tests, err = s.svc.List(otherCtx, store.Filter{})
	s.Require().NoError(err)
	s.Empty(tests)
}

func (s *TestServiceSuite) TestTenantIsolation() {
	test, err := s.svc.Create(s.ctx, CreateParams{AssetID: s.assetID})
	s.Require().NoError(err)

	otherCtx := testutil.FrozenContext(testutil.TenantContext(id.NewTenantID()), s.now)
	_, err = s.svc.Get(otherCtx, test.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
