package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	assetmodels "certitrack/internal/asset/models"
	"certitrack/internal/audit"
	"certitrack/internal/inspection/models"
	"certitrack/internal/inspection/store"
	"certitrack/internal/inspection/validation"
	"certitrack/internal/numbering"
	"certitrack/internal/platform/metrics"
	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
	"certitrack/pkg/platform/sentinel"
	"certitrack/pkg/requestcontext"
)

// Store is the persistence port for tests.
type Store interface {
	Create(ctx context.Context, t *models.Test) error
	FindByID(ctx context.Context, testID id.TestID) (*models.Test, error)
	Update(ctx context.Context, t *models.Test) error
	List(ctx context.Context, filter store.Filter) ([]*models.Test, error)
}

// AssetDirectory resolves assets within the caller's tenant scope. Satisfied
// by the asset service.
type AssetDirectory interface {
	Get(ctx context.Context, assetID id.AssetID) (*assetmodels.Asset, error)
}

// Auditor records domain events. Satisfied by audit.Publisher.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the examination lifecycle and runs the validation
// engine over completed results.
type Service struct {
	tests   Store
	assets  AssetDirectory
	numbers *numbering.Generator
	engine  *validation.Engine
	auditor Auditor
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets a metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditor sets an audit publisher.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// New constructs a Service.
func New(tests Store, assets AssetDirectory, numbers *numbering.Generator, opts ...Option) *Service {
	s := &Service{
		tests:   tests,
		assets:  assets,
		numbers: numbers,
		engine:  validation.NewEngine(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams schedules an examination on an asset.
type CreateParams struct {
	AssetID       id.AssetID
	Type          models.TestType
	ScheduledDate *time.Time
	TestLocation  string
}

// Create schedules a test and mints its daily-bucketed number. The asset
// lookup enforces tenant scope.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Test, error) {
	asset, err := s.assets.Get(ctx, params.AssetID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var test *models.Test
	_, err = s.numbers.MintWithRetry(ctx, numbering.KindTest, now, func(number string) error {
		t, err := models.NewTest(id.NewTestID(), asset.ID, asset.TenantID, number, params.Type, now)
		if err != nil {
			return err
		}
		t.ScheduledDate = params.ScheduledDate
		t.TestLocation = params.TestLocation
		if userID := requestcontext.UserID(ctx); !userID.IsNil() {
			t.InspectorID = userID
		}
		if err := s.tests.Create(ctx, t); err != nil {
			return err
		}
		test = t
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "could not allocate a unique test number")
		}
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create test")
	}

	s.emit(ctx, audit.Event{
		TenantID: test.TenantID,
		Action:   audit.ActionTestCreated,
		EntityID: test.TestNumber,
		Detail:   fmt.Sprintf("asset %s", asset.AssetCode),
	})
	return test, nil
}

// SubmitParams records a field examination in one call: the test is created
// already completed, with measurements attached, ready for validation.
type SubmitParams struct {
	AssetID    id.AssetID
	Type       models.TestType
	Completion models.CompletionParams
}

// Submit creates a completed test from a field submission.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (*models.Test, error) {
	test, err := s.Create(ctx, CreateParams{
		AssetID:      params.AssetID,
		Type:         params.Type,
		TestLocation: params.Completion.TestLocation,
	})
	if err != nil {
		return nil, err
	}
	return s.Complete(ctx, test.ID, params.Completion)
}

// Start moves a scheduled test into progress.
func (s *Service) Start(ctx context.Context, testID id.TestID) (*models.Test, error) {
	test, err := s.getScoped(ctx, testID)
	if err != nil {
		return nil, err
	}
	if err := test.Start(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.tests.Update(ctx, test); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start test")
	}
	return test, nil
}

// Complete records measurements and closes the examination. The verdict
// stays pending until Validate runs.
func (s *Service) Complete(ctx context.Context, testID id.TestID, params models.CompletionParams) (*models.Test, error) {
	test, err := s.getScoped(ctx, testID)
	if err != nil {
		return nil, err
	}
	if err := test.Complete(params, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.tests.Update(ctx, test); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete test")
	}
	s.emit(ctx, audit.Event{
		TenantID: test.TenantID,
		Action:   audit.ActionTestCompleted,
		EntityID: test.TestNumber,
	})
	return test, nil
}

// Validate runs the rule pipeline over a completed test and stamps the
// verdict. Each test validates exactly once.
func (s *Service) Validate(ctx context.Context, testID id.TestID) (*models.Test, *validation.Outcome, error) {
	test, err := s.getScoped(ctx, testID)
	if err != nil {
		return nil, nil, err
	}
	if err := test.CanValidate(); err != nil {
		return nil, nil, err
	}

	outcome := s.engine.Validate(validation.Input{
		SafeWorkingLoad:    test.SafeWorkingLoad,
		TestLoad:           test.TestLoad,
		TestLoadPercentage: test.TestLoadPercentage,
		Measured:           test.MeasuredValues,
		DefectsFound:       test.DefectsFound,
	})

	validatedBy := requestcontext.ActorName(ctx)
	if validatedBy == "" {
		validatedBy = "system"
	}
	test.ApplyValidation(outcome.Result, outcome.Recommendations, validatedBy, requestcontext.Now(ctx))

	if err := s.tests.Update(ctx, test); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record validation")
	}

	s.metrics.IncTestValidated(string(outcome.Result))
	s.emit(ctx, audit.Event{
		TenantID: test.TenantID,
		Action:   audit.ActionTestValidated,
		EntityID: test.TestNumber,
		Detail:   string(outcome.Result),
	})
	return test, &outcome, nil
}

// Cancel terminates a test that will not be conducted.
func (s *Service) Cancel(ctx context.Context, testID id.TestID) (*models.Test, error) {
	test, err := s.getScoped(ctx, testID)
	if err != nil {
		return nil, err
	}
	if err := test.Cancel(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.tests.Update(ctx, test); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel test")
	}
	s.emit(ctx, audit.Event{
		TenantID: test.TenantID,
		Action:   audit.ActionTestCancelled,
		EntityID: test.TestNumber,
	})
	return test, nil
}

// Get fetches a test within the caller's tenant scope.
func (s *Service) Get(ctx context.Context, testID id.TestID) (*models.Test, error) {
	return s.getScoped(ctx, testID)
}

// List returns the caller's tests matching the filter.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]*models.Test, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "missing tenant scope")
	}
	filter.TenantID = tenantID
	tests, err := s.tests.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tests")
	}
	return tests, nil
}

func (s *Service) getScoped(ctx context.Context, testID id.TestID) (*models.Test, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "missing tenant scope")
	}
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "test not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load test")
	}
	if test.TenantID != tenantID {
		return nil, dErrors.New(dErrors.CodeForbidden, "access denied")
	}
	return test, nil
}

// emit records an audit event. Audit failures never fail the operation.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", string(event.Action),
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
