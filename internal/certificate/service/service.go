package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	assetmodels "certitrack/internal/asset/models"
	"certitrack/internal/audit"
	"certitrack/internal/certificate/models"
	"certitrack/internal/certificate/store"
	inspmodels "certitrack/internal/inspection/models"
	"certitrack/internal/numbering"
	"certitrack/internal/platform/metrics"
	"certitrack/internal/render"
	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
	"certitrack/pkg/platform/sentinel"
	"certitrack/pkg/platform/tx"
	"certitrack/pkg/requestcontext"
)

// Store is the persistence port for certificates.
type Store interface {
	Create(ctx context.Context, c *models.Certificate) error
	FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	FindByNumber(ctx context.Context, number string) (*models.Certificate, error)
	Update(ctx context.Context, c *models.Certificate) error
	List(ctx context.Context, filter store.Filter) ([]*models.Certificate, error)
	ListIssuedByAsset(ctx context.Context, assetID id.AssetID) ([]*models.Certificate, error)
}

// AssetDirectory is the tenant-scoped asset port. Satisfied by the asset
// service.
type AssetDirectory interface {
	Get(ctx context.Context, assetID id.AssetID) (*assetmodels.Asset, error)
	RecordCertification(ctx context.Context, assetID id.AssetID, issue, expiry time.Time) error
}

// AssetFinder is the unscoped asset read used by public verification.
// Satisfied by the asset stores.
type AssetFinder interface {
	FindByID(ctx context.Context, assetID id.AssetID) (*assetmodels.Asset, error)
}

// TestDirectory is the tenant-scoped test port. Satisfied by the inspection
// service.
type TestDirectory interface {
	Get(ctx context.Context, testID id.TestID) (*inspmodels.Test, error)
}

// Auditor records domain events. Satisfied by audit.Publisher.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the certificate lifecycle.
type Service struct {
	certs         Store
	assets        AssetDirectory
	assetFinder   AssetFinder
	tests         TestDirectory
	numbers       *numbering.Generator
	renderer      render.Renderer
	renderTimeout time.Duration
	verifyBaseURL string
	auditor       Auditor
	txRunner      tx.Runner
	logger        *slog.Logger
	metrics       *metrics.Metrics
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

// WithRenderer swaps the document renderer.
func WithRenderer(r render.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithRenderTimeout bounds how long issuance waits for the renderer.
func WithRenderTimeout(d time.Duration) Option {
	return func(s *Service) { s.renderTimeout = d }
}

// WithVerifyBaseURL sets the public verification URL printed on documents.
func WithVerifyBaseURL(base string) Option {
	return func(s *Service) { s.verifyBaseURL = base }
}

// WithTxRunner sets the transaction boundary for issuance writes. Pass
// tx.NewSQL when the stores share a database so the certificate insert,
// supersedes, and asset date update commit together.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) { s.txRunner = r }
}

// New constructs a Service.
func New(certs Store, assets AssetDirectory, assetFinder AssetFinder, tests TestDirectory,
	numbers *numbering.Generator, opts ...Option) *Service {

	s := &Service{
		certs:         certs,
		assets:        assets,
		assetFinder:   assetFinder,
		tests:         tests,
		numbers:       numbers,
		renderer:      render.NewTextRenderer(),
		renderTimeout: 10 * time.Second,
		txRunner:      tx.Nop{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueParams carries caller-supplied issuance attributes.
type IssueParams struct {
	AssetID                id.AssetID
	TestID                 id.TestID
	Type                   models.CertificateType
	ValidityDays           int
	InspectorName          string
	InspectorCertification string
	Notes                  string
}

// Issue creates a certificate for an asset. The document renders before
// anything persists, so a renderer failure leaves no state behind. The
// certificate insert, the superseding of prior issued certificates, and the
// asset's certification-date advance then commit as one transactional unit:
// if any write fails the whole attempt rolls back.
func (s *Service) Issue(ctx context.Context, params IssueParams) (*models.Certificate, error) {
	asset, err := s.assets.Get(ctx, params.AssetID)
	if err != nil {
		return nil, err
	}

	var test *inspmodels.Test
	if !params.TestID.IsNil() {
		test, err = s.tests.Get(ctx, params.TestID)
		if err != nil {
			return nil, err
		}
		if test.AssetID != asset.ID {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "test does not belong to this asset")
		}
		if !test.IsValidated {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "test must be validated before certification")
		}
		if test.Result == inspmodels.ResultFail {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "cannot certify a failed test")
		}
	}

	now := requestcontext.Now(ctx)
	cert, err := models.NewCertificate(id.NewCertificateID(), asset.ID, asset.TenantID,
		"pending", params.Type, params.ValidityDays, now)
	if err != nil {
		return nil, err
	}
	if test != nil {
		cert.TestID = test.ID
	}
	cert.InspectorName = params.InspectorName
	cert.InspectorCertification = params.InspectorCertification
	cert.Notes = params.Notes
	cert.Sign(s.signer(ctx), now)

	number, err := s.numbers.MintWithRetry(ctx, numbering.KindCertificate, now, func(number string) error {
		cert.CertificateNumber = number
		hash, err := s.renderHash(ctx, cert, asset, test)
		if err != nil {
			return err
		}
		cert.DocumentHash = hash
		return s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
			return s.persistIssue(txCtx, cert, asset.ID, now)
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "could not allocate a unique certificate number")
		}
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue certificate")
	}
	cert.CertificateNumber = number

	s.metrics.IncCertificateIssued()
	s.emit(ctx, audit.Event{
		TenantID: cert.TenantID,
		Action:   audit.ActionCertificateIssued,
		EntityID: cert.CertificateNumber,
		Detail:   fmt.Sprintf("asset %s", asset.AssetCode),
	})
	return cert, nil
}

// persistIssue stages the writes of one issuance attempt: insert the new
// certificate, supersede prior issued certificates for the asset, and advance
// the asset's certification dates. A number collision surfaces as
// sentinel.ErrConflict so the caller can re-mint; any other error aborts the
// attempt.
func (s *Service) persistIssue(ctx context.Context, cert *models.Certificate, assetID id.AssetID, now time.Time) error {
	if err := s.certs.Create(ctx, cert); err != nil {
		return err
	}

	priors, err := s.certs.ListIssuedByAsset(ctx, assetID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load prior certificates")
	}
	for _, prior := range priors {
		if prior.ID == cert.ID {
			continue
		}
		if err := prior.Supersede(now); err != nil {
			continue
		}
		if err := s.certs.Update(ctx, prior); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to supersede prior certificate")
		}
	}

	if err := s.assets.RecordCertification(ctx, assetID, cert.IssueDate, cert.ExpiryDate); err != nil {
		return err
	}
	return nil
}

// renderHash renders the certificate document under the render timeout and
// returns its integrity hash.
func (s *Service) renderHash(ctx context.Context, cert *models.Certificate,
	asset *assetmodels.Asset, test *inspmodels.Test) (string, error) {

	renderCtx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	rendered, err := s.renderer.Render(renderCtx, s.document(cert, asset, test))
	if err != nil {
		s.metrics.IncRenderFailure()
		if errors.Is(err, context.DeadlineExceeded) {
			return "", dErrors.Wrap(err, dErrors.CodeTimeout, "certificate rendering timed out")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "certificate rendering failed")
	}
	return render.Hash(rendered), nil
}

func (s *Service) document(cert *models.Certificate, asset *assetmodels.Asset, test *inspmodels.Test) render.Document {
	doc := render.Document{
		CertificateNumber: cert.CertificateNumber,
		CertificateType:   string(cert.Type),
		TypeDisplayName:   cert.Type.DisplayName(),

		AssetCode:       asset.AssetCode,
		AssetName:       asset.Name,
		AssetType:       string(asset.Type),
		Manufacturer:    asset.Manufacturer,
		Model:           asset.Model,
		SerialNumber:    asset.SerialNumber,
		Location:        asset.Location,
		SafeWorkingLoad: asset.SafeWorkingLoad,
		SWLUnit:         asset.SWLUnit,

		IssueDate:  cert.IssueDate,
		ExpiryDate: cert.ExpiryDate,

		InspectorName:          cert.InspectorName,
		InspectorCertification: cert.InspectorCertification,
		Notes:                  cert.Notes,

		SignedBy: cert.SignedBy,
	}
	if cert.SignedAt != nil {
		doc.SignedAt = *cert.SignedAt
	}
	if test != nil {
		doc.TestNumber = test.TestNumber
		doc.TestType = string(test.Type)
		doc.TestDate = test.CompletedAt
		doc.TestLoad = test.TestLoad
		doc.LoadUnit = test.LoadUnit
		doc.TestResult = string(test.Result)
	}
	if s.verifyBaseURL != "" {
		doc.VerifyURL = fmt.Sprintf("%s/%s", s.verifyBaseURL, cert.CertificateNumber)
	}
	return doc
}

// Render re-renders the stored certificate document for download.
func (s *Service) Render(ctx context.Context, certID id.CertificateID) ([]byte, *models.Certificate, error) {
	cert, err := s.getScoped(ctx, certID)
	if err != nil {
		return nil, nil, err
	}
	asset, err := s.assets.Get(ctx, cert.AssetID)
	if err != nil {
		return nil, nil, err
	}
	var test *inspmodels.Test
	if !cert.TestID.IsNil() {
		if t, err := s.tests.Get(ctx, cert.TestID); err == nil {
			test = t
		}
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()
	rendered, err := s.renderer.Render(renderCtx, s.document(cert, asset, test))
	if err != nil {
		s.metrics.IncRenderFailure()
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "certificate rendering failed")
	}
	return rendered, cert, nil
}

// Revoke permanently invalidates a certificate.
func (s *Service) Revoke(ctx context.Context, certID id.CertificateID, reason string) (*models.Certificate, error) {
	cert, err := s.getScoped(ctx, certID)
	if err != nil {
		return nil, err
	}
	if err := cert.Revoke(reason, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.certs.Update(ctx, cert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke certificate")
	}

	s.metrics.IncCertificateRevoked()
	s.emit(ctx, audit.Event{
		TenantID: cert.TenantID,
		Action:   audit.ActionCertificateRevoked,
		EntityID: cert.CertificateNumber,
		Detail:   reason,
	})
	return cert, nil
}

// Get fetches a certificate within the caller's tenant scope.
func (s *Service) Get(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	return s.getScoped(ctx, certID)
}

// List returns the caller's certificates matching the filter.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]*models.Certificate, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "missing tenant scope")
	}
	filter.TenantID = tenantID
	certs, err := s.certs.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return certs, nil
}

// Verification is the public authenticity answer for a certificate number.
type Verification struct {
	Valid             bool       `json:"valid"`
	CertificateNumber string     `json:"certificate_number,omitempty"`
	AssetName         string     `json:"asset_name,omitempty"`
	AssetCode         string     `json:"asset_code,omitempty"`
	IssueDate         *time.Time `json:"issue_date,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Status            string     `json:"status,omitempty"`
	DaysUntilExpiry   int        `json:"days_until_expiry"`
	Message           string     `json:"message"`
}

// Verify answers certificate authenticity for anyone holding the number. It
// runs without authentication and never discloses more than the public
// certificate facts.
func (s *Service) Verify(ctx context.Context, certificateNumber string) (*Verification, error) {
	cert, err := s.certs.FindByNumber(ctx, certificateNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &Verification{Valid: false, Message: "Certificate not found"}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify certificate")
	}

	now := requestcontext.Now(ctx)
	valid := cert.IsValid(now)

	v := &Verification{
		Valid:             valid,
		CertificateNumber: cert.CertificateNumber,
		IssueDate:         &cert.IssueDate,
		ExpiryDate:        &cert.ExpiryDate,
		Status:            string(cert.Status),
	}
	if valid {
		v.DaysUntilExpiry = cert.DaysUntilExpiry(now)
		v.Message = "Certificate is valid"
	} else {
		v.Message = fmt.Sprintf("Certificate status: %s", cert.Status)
	}
	if asset, err := s.assetFinder.FindByID(ctx, cert.AssetID); err == nil {
		v.AssetName = asset.Name
		v.AssetCode = asset.AssetCode
	}
	return v, nil
}

func (s *Service) getScoped(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "missing tenant scope")
	}
	cert, err := s.certs.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	if cert.TenantID != tenantID {
		return nil, dErrors.New(dErrors.CodeForbidden, "access denied")
	}
	return cert, nil
}

func (s *Service) signer(ctx context.Context) string {
	if name := requestcontext.ActorName(ctx); name != "" {
		return name
	}
	return "CertiTrack System"
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
