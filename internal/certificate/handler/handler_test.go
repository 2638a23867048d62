package handler

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	assetservice "certitrack/internal/asset/service"
	assetstore "certitrack/internal/asset/store"
	"certitrack/internal/certificate/models"
	"certitrack/internal/certificate/service"
	"certitrack/internal/certificate/store"
	inspectionmodels "certitrack/internal/inspection/models"
	inspectionservice "certitrack/internal/inspection/service"
	inspectionstore "certitrack/internal/inspection/store"
	"certitrack/internal/numbering"
	id "certitrack/pkg/domain"
	"certitrack/pkg/testutil"
)

type CertificateHandlerSuite struct {
	suite.Suite
	router   chi.Router
	now      time.Time
	tenantID id.TenantID
	userID   id.UserID
	assetID  id.AssetID
	certSvc  *service.Service
	testSvc  *inspectionservice.Service
}

func (s *CertificateHandlerSuite) SetupTest() {
	s.now = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	s.tenantID = id.NewTenantID()
	s.userID = id.NewUserID()

	numbers, err := numbering.NewGenerator(numbering.NewInMemoryCounterStore())
	s.Require().NoError(err)

	assetStore := assetstore.NewInMemory()
	assetSvc := assetservice.New(assetStore)
	s.testSvc = inspectionservice.New(inspectionstore.NewInMemory(), assetSvc, numbers)
	s.certSvc = service.New(store.NewInMemory(), assetSvc, assetStore, s.testSvc, numbers)

	h := New(s.certSvc, slog.Default())
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterPublic(s.router)

	ctx := testutil.FrozenContext(
		testutil.ActorContext(s.tenantID, s.userID, "Dana Inspector"), s.now)
	asset, err := assetSvc.Create(ctx, assetservice.CreateParams{
		AssetCode:       "CRN-001",
		Name:            "Tower Crane",
		SafeWorkingLoad: 10,
	})
	s.Require().NoError(err)
	s.assetID = asset.ID
}

func TestCertificateHandlerSuite(t *testing.T) {
	suite.Run(t, new(CertificateHandlerSuite))
}

func (s *CertificateHandlerSuite) authed(req *http.Request) *http.Request {
	req = testutil.WithActor(req, s.tenantID, s.userID, "Dana Inspector")
	return testutil.WithFrozenTime(req, s.now)
}

func (s *CertificateHandlerSuite) issue() *models.Certificate {
	ctx := testutil.FrozenContext(
		testutil.ActorContext(s.tenantID, s.userID, "Dana Inspector"), s.now)
	cert, err := s.certSvc.Issue(ctx, service.IssueParams{AssetID: s.assetID})
	s.Require().NoError(err)
	return cert
}

func (s *CertificateHandlerSuite) TestIssueEndpoint() {
	test, err := s.testSvc.Submit(
		testutil.FrozenContext(testutil.ActorContext(s.tenantID, s.userID, "Dana Inspector"), s.now),
		inspectionservice.SubmitParams{
			AssetID: s.assetID,
			Type:    inspectionmodels.TypeLoadTest,
			Completion: inspectionmodels.CompletionParams{
				SafeWorkingLoad: 10,
				TestLoad:        12.6,
				MeasuredValues:  map[string]any{"brake_test": true},
			},
		})
	s.Require().NoError(err)
	_, _, err = s.testSvc.Validate(
		testutil.FrozenContext(testutil.ActorContext(s.tenantID, s.userID, "Dana Inspector"), s.now), test.ID)
	s.Require().NoError(err)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates/generate", map[string]any{
		"asset_id": s.assetID.String(),
		"test_id":  test.ID.String(),
	})
	rr := testutil.DoRequest(s.router, s.authed(req))

	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	var cert models.Certificate
	testutil.DecodeJSON(s.T(), rr, &cert)
	s.Equal("CERT-202506-00001", cert.CertificateNumber)
	s.Equal(models.StatusIssued, cert.Status)
	s.NotEmpty(cert.DocumentHash)
}

func (s *CertificateHandlerSuite) TestIssueRejectsBadPayload() {
	s.Run("malformed asset id", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates/generate",
			map[string]any{"asset_id": "not-a-uuid"})
		rr := testutil.DoRequest(s.router, s.authed(req))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("validity below minimum", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates/generate",
			map[string]any{"asset_id": s.assetID.String(), "validity_days": 7})
		rr := testutil.DoRequest(s.router, s.authed(req))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("unknown asset", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates/generate",
			map[string]any{"asset_id": id.NewAssetID().String()})
		rr := testutil.DoRequest(s.router, s.authed(req))
		s.Equal(http.StatusNotFound, rr.Code)
	})
}

func (s *CertificateHandlerSuite) TestGetAndList() {
	cert := s.issue()

	rr := testutil.DoRequest(s.router, s.authed(
		testutil.NewRequest(s.T(), http.MethodGet, "/certificates/"+cert.ID.String())))
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = testutil.DoRequest(s.router, s.authed(
		testutil.NewRequest(s.T(), http.MethodGet, "/certificates/?status=issued")))
	s.Require().Equal(http.StatusOK, rr.Code)

	var listed []*models.Certificate
	testutil.DecodeJSON(s.T(), rr, &listed)
	s.Len(listed, 1)

	s.Run("expiring-soon window", func() {
		rr := testutil.DoRequest(s.router, s.authed(
			testutil.NewRequest(s.T(), http.MethodGet, "/certificates/?expiring_within_days=30")))
		s.Require().Equal(http.StatusOK, rr.Code)
		var soon []*models.Certificate
		testutil.DecodeJSON(s.T(), rr, &soon)
		s.Empty(soon, "a fresh certificate is a year from expiry")

		rr = testutil.DoRequest(s.router, s.authed(
			testutil.NewRequest(s.T(), http.MethodGet, "/certificates/?expiring_within_days=365")))
		s.Require().Equal(http.StatusOK, rr.Code)
		testutil.DecodeJSON(s.T(), rr, &soon)
		s.Len(soon, 1)
	})

	s.Run("foreign tenant gets 403", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/certificates/"+cert.ID.String())
		req = testutil.WithActor(req, id.NewTenantID(), id.NewUserID(), "Stranger")
		rr := testutil.DoRequest(s.router, testutil.WithFrozenTime(req, s.now))
		s.Equal(http.StatusForbidden, rr.Code)
	})
}

func (s *CertificateHandlerSuite) TestDocumentDownload() {
	cert := s.issue()

	rr := testutil.DoRequest(s.router, s.authed(
		testutil.NewRequest(s.T(), http.MethodGet, "/certificates/"+cert.ID.String()+"/document")))

	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal("text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	s.Contains(rr.Header().Get("Content-Disposition"), cert.CertificateNumber+".txt")
	s.Contains(rr.Body.String(), "Certificate No.: "+cert.CertificateNumber)
}

func (s *CertificateHandlerSuite) TestRevokeEndpoint() {
	cert := s.issue()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/certificates/"+cert.ID.String()+"/revoke", map[string]any{"reason": "failed audit"})
	rr := testutil.DoRequest(s.router, s.authed(req))

	s.Require().Equal(http.StatusOK, rr.Code)
	var revoked models.Certificate
	testutil.DecodeJSON(s.T(), rr, &revoked)
	s.Equal(models.StatusRevoked, revoked.Status)
	s.Contains(revoked.Notes, "Revoked: failed audit")

	s.Run("second revoke conflicts", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/certificates/"+cert.ID.String()+"/revoke")
		rr := testutil.DoRequest(s.router, s.authed(req))
		s.Equal(http.StatusConflict, rr.Code)
	})
}

func (s *CertificateHandlerSuite) TestVerifyIsPublic() {
	cert := s.issue()

	rr := testutil.DoRequest(s.router, testutil.WithFrozenTime(
		testutil.NewRequest(s.T(), http.MethodGet, "/verify/"+cert.CertificateNumber), s.now))
	s.Require().Equal(http.StatusOK, rr.Code)

	var verification service.Verification
	testutil.DecodeJSON(s.T(), rr, &verification)
	s.True(verification.Valid)
	s.Equal("Tower Crane", verification.AssetName)
	s.Equal("Certificate is valid", verification.Message)

	s.Run("unknown number is a negative answer, not an error", func() {
		rr := testutil.DoRequest(s.router,
			testutil.NewRequest(s.T(), http.MethodGet, "/verify/CERT-000000-00000"))
		s.Require().Equal(http.StatusOK, rr.Code)

		var v service.Verification
		testutil.DecodeJSON(s.T(), rr, &v)
		s.False(v.Valid)
		s.Equal("Certificate not found", v.Message)
	})
}
