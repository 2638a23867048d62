package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"certitrack/internal/certificate/models"
	"certitrack/internal/certificate/service"
	"certitrack/internal/certificate/store"
	"certitrack/internal/transport/http/shared"
	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
	"certitrack/pkg/requestcontext"
)

// Handler exposes the certificate lifecycle over HTTP.
type Handler struct {
	certs    *service.Service
	logger   *slog.Logger
	validate *validator.Validate
}

// New creates a certificate Handler.
func New(certs *service.Service, logger *slog.Logger) *Handler {
	return &Handler{
		certs:    certs,
		logger:   logger,
		validate: validator.New(),
	}
}

// Register mounts certificate routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/certificates", func(r chi.Router) {
		r.Post("/generate", h.handleIssue)
		r.Get("/", h.handleList)
		r.Get("/{certificateID}", h.handleGet)
		r.Get("/{certificateID}/document", h.handleDocument)
		r.Post("/{certificateID}/revoke", h.handleRevoke)
	})
}

// RegisterPublic mounts the unauthenticated verification route.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/verify/{certificateNumber}", h.handleVerify)
}

type issueRequest struct {
	AssetID                string `json:"asset_id" validate:"required,uuid"`
	TestID                 string `json:"test_id" validate:"omitempty,uuid"`
	CertificateType        string `json:"certificate_type"`
	ValidityDays           int    `json:"validity_days" validate:"omitempty,gte=30,lte=730"`
	InspectorName          string `json:"inspector_name" validate:"max=255"`
	InspectorCertification string `json:"inspector_certification" validate:"max=255"`
	Notes                  string `json:"notes"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid certificate payload"))
		return
	}
	assetID, err := id.ParseAssetID(req.AssetID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return
	}
	params := service.IssueParams{
		AssetID:                assetID,
		Type:                   models.CertificateType(req.CertificateType),
		ValidityDays:           req.ValidityDays,
		InspectorName:          req.InspectorName,
		InspectorCertification: req.InspectorCertification,
		Notes:                  req.Notes,
	}
	if req.TestID != "" {
		testID, err := id.ParseTestID(req.TestID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid test id"))
			return
		}
		params.TestID = testID
	}

	cert, err := h.certs.Issue(r.Context(), params)
	if err != nil {
		h.logWarn(r, "issue certificate failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, cert)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Status:   models.CertificateStatus(q.Get("status")),
		Type:     models.CertificateType(q.Get("certificate_type")),
		Page:     shared.QueryInt(q, "page", 1),
		PageSize: shared.QueryInt(q, "page_size", 20),
	}
	if raw := q.Get("asset_id"); raw != "" {
		assetID, err := id.ParseAssetID(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
			return
		}
		filter.AssetID = assetID
	}
	if days := shared.QueryInt(q, "expiring_within_days", 0); days > 0 {
		filter.ExpiresBefore = requestcontext.Today(r.Context()).AddDate(0, 0, days)
	}

	certs, err := h.certs.List(r.Context(), filter)
	if err != nil {
		h.logWarn(r, "list certificates failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, certs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificateID(w, r)
	if !ok {
		return
	}
	cert, err := h.certs.Get(r.Context(), certID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cert)
}

// handleDocument streams the rendered certificate document.
func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificateID(w, r)
	if !ok {
		return
	}
	rendered, cert, err := h.certs.Render(r.Context(), certID)
	if err != nil {
		h.logWarn(r, "render certificate failed", err)
		shared.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", cert.CertificateNumber+".txt"))
	w.WriteHeader(http.StatusOK)
	w.Write(rendered)
}

type revokeRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	certID, ok := h.certificateID(w, r)
	if !ok {
		return
	}
	var req revokeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
		if err := h.validate.Struct(req); err != nil {
			shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid revoke payload"))
			return
		}
	}

	cert, err := h.certs.Revoke(r.Context(), certID, req.Reason)
	if err != nil {
		h.logWarn(r, "revoke certificate failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cert)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	verification, err := h.certs.Verify(r.Context(), chi.URLParam(r, "certificateNumber"))
	if err != nil {
		h.logWarn(r, "verify certificate failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, verification)
}

func (h *Handler) certificateID(w http.ResponseWriter, r *http.Request) (id.CertificateID, bool) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certificate id"))
		return id.CertificateID{}, false
	}
	return certID, true
}

func (h *Handler) logWarn(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
