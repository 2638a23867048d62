package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"certitrack/internal/asset/models"
	"certitrack/internal/asset/store"
	"certitrack/internal/audit"
	"certitrack/internal/qr"
	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
	"certitrack/pkg/platform/sentinel"
	"certitrack/pkg/requestcontext"
)

// Store is the persistence port for assets.
type Store interface {
	Create(ctx context.Context, asset *models.Asset) error
	FindByID(ctx context.Context, assetID id.AssetID) (*models.Asset, error)
	Update(ctx context.Context, asset *models.Asset) error
	List(ctx context.Context, filter store.Filter) ([]*models.Asset, error)
	ListExpiringWithin(ctx context.Context, from, to time.Time) ([]*models.Asset, error)
}

// Auditor records domain events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the asset registry.
type Service struct {
	assets  Store
	auditor Auditor
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditor sets an audit sink.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// New constructs a Service.
func New(assets Store, opts ...Option) *Service {
	s := &Service{assets: assets, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries caller-supplied asset attributes.
type CreateParams struct {
	AssetCode        string
	Name             string
	Description      string
	Category         models.AssetCategory
	Type             models.AssetType
	Manufacturer     string
	Model            string
	SerialNumber     string
	YearManufactured int
	SafeWorkingLoad  float64
	SWLUnit          string
	Location         string
	Site             string
}

// Create registers an asset under the caller's tenant and stamps its QR
// payload.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Asset, error) {
	tenantID, err := callerTenant(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	asset, err := models.NewAsset(id.NewAssetID(), tenantID, params.AssetCode, params.Name,
		params.Category, params.Type, params.SafeWorkingLoad, params.SWLUnit, now)
	if err != nil {
		return nil, err
	}
	asset.Description = params.Description
	asset.Manufacturer = params.Manufacturer
	asset.Model = params.Model
	asset.SerialNumber = params.SerialNumber
	asset.YearManufactured = params.YearManufactured
	asset.Location = params.Location
	asset.Site = params.Site
	asset.QRData = qr.Encode(asset.ID)

	if err := s.assets.Create(ctx, asset); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "asset code already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create asset")
	}
	return asset, nil
}

// Get fetches an asset within the caller's tenant scope.
func (s *Service) Get(ctx context.Context, assetID id.AssetID) (*models.Asset, error) {
	tenantID, err := callerTenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.getScoped(ctx, assetID, tenantID)
}

// ResolveByQR decodes a scanned code and fetches the asset it points at.
func (s *Service) ResolveByQR(ctx context.Context, code string) (*models.Asset, error) {
	assetID, err := qr.Decode(code)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, assetID)
}

// List returns the caller's assets matching the filter.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]*models.Asset, error) {
	tenantID, err := callerTenant(ctx)
	if err != nil {
		return nil, err
	}
	filter.TenantID = tenantID
	filter.IncludeDeleted = false
	assets, err := s.assets.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assets")
	}
	return assets, nil
}

// Delete soft-deletes an asset. Its tests and certificates stay readable for
// audit but the asset disappears from listings and expiry scans.
func (s *Service) Delete(ctx context.Context, assetID id.AssetID) error {
	tenantID, err := callerTenant(ctx)
	if err != nil {
		return err
	}
	asset, err := s.getScoped(ctx, assetID, tenantID)
	if err != nil {
		return err
	}
	if err := asset.SoftDelete(requestcontext.Now(ctx)); err != nil {
		return err
	}
	if err := s.assets.Update(ctx, asset); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete asset")
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionAssetDeleted,
		EntityID: asset.AssetCode,
	})
	return nil
}

// RecordCertification stamps certification dates on an asset after a
// certificate issue: expiry, last inspection, and the next inspection due 30
// days ahead of expiry.
func (s *Service) RecordCertification(ctx context.Context, assetID id.AssetID, issue, expiry time.Time) error {
	tenantID, err := callerTenant(ctx)
	if err != nil {
		return err
	}
	asset, err := s.getScoped(ctx, assetID, tenantID)
	if err != nil {
		return err
	}
	asset.ApplyCertification(issue, expiry, requestcontext.Now(ctx))
	if err := s.assets.Update(ctx, asset); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record certification")
	}
	return nil
}

func (s *Service) getScoped(ctx context.Context, assetID id.AssetID, tenantID id.TenantID) (*models.Asset, error) {
	asset, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	if asset.TenantID != tenantID {
		return nil, dErrors.New(dErrors.CodeForbidden, "access denied")
	}
	if asset.IsDeleted {
		return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
	}
	return asset, nil
}

// emit records an audit event; audit failures never fail the operation.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", string(event.Action),
			"error", err.Error(),
		)
	}
}

func callerTenant(ctx context.Context) (id.TenantID, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return id.TenantID{}, dErrors.New(dErrors.CodeForbidden, "missing tenant scope")
	}
	return tenantID, nil
}
