package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"certitrack/internal/inspection/models"
	"certitrack/internal/inspection/service"
	"certitrack/internal/inspection/store"
	"certitrack/internal/inspection/validation"
	"certitrack/internal/transport/http/shared"
	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
	"certitrack/pkg/requestcontext"
)

// Handler exposes the examination lifecycle over HTTP.
type Handler struct {
	tests    *service.Service
	logger   *slog.Logger
	validate *validator.Validate
}

// New creates a test Handler.
func New(tests *service.Service, logger *slog.Logger) *Handler {
	return &Handler{
		tests:    tests,
		logger:   logger,
		validate: validator.New(),
	}
}

// Register mounts test routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/tests", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Post("/submit", h.handleSubmit)
		r.Get("/", h.handleList)
		r.Get("/{testID}", h.handleGet)
		r.Post("/{testID}/start", h.handleStart)
		r.Post("/{testID}/complete", h.handleComplete)
		r.Post("/{testID}/validate", h.handleValidate)
		r.Post("/{testID}/cancel", h.handleCancel)
	})
}

type createTestRequest struct {
	AssetID       string     `json:"asset_id" validate:"required,uuid"`
	TestType      string     `json:"test_type"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	TestLocation  string     `json:"test_location"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid test payload"))
		return
	}
	assetID, err := id.ParseAssetID(req.AssetID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return
	}

	test, err := h.tests.Create(r.Context(), service.CreateParams{
		AssetID:       assetID,
		Type:          models.TestType(req.TestType),
		ScheduledDate: req.ScheduledDate,
		TestLocation:  req.TestLocation,
	})
	if err != nil {
		h.logWarn(r, "create test failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, test)
}

type completionRequest struct {
	SafeWorkingLoad    float64        `json:"safe_working_load" validate:"gte=0"`
	TestLoad           float64        `json:"test_load" validate:"gte=0"`
	LoadUnit           string         `json:"load_unit"`
	TestLoadPercentage float64        `json:"test_load_percentage" validate:"gte=0,lte=500"`
	MeasuredValues     map[string]any `json:"measured_values"`
	TestLocation       string         `json:"test_location"`
	Observations       string         `json:"observations"`
	DefectsFound       string         `json:"defects_found"`
}

func (r completionRequest) params() models.CompletionParams {
	return models.CompletionParams{
		SafeWorkingLoad:    r.SafeWorkingLoad,
		TestLoad:           r.TestLoad,
		LoadUnit:           r.LoadUnit,
		TestLoadPercentage: r.TestLoadPercentage,
		MeasuredValues:     r.MeasuredValues,
		TestLocation:       r.TestLocation,
		Observations:       r.Observations,
		DefectsFound:       r.DefectsFound,
	}
}

type submitTestRequest struct {
	AssetID  string `json:"asset_id" validate:"required,uuid"`
	TestType string `json:"test_type"`
	completionRequest
}

// handleSubmit accepts a field submission: one call creates a completed test
// carrying its measurements, ready for validation.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid test payload"))
		return
	}
	assetID, err := id.ParseAssetID(req.AssetID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return
	}

	test, err := h.tests.Submit(r.Context(), service.SubmitParams{
		AssetID:    assetID,
		Type:       models.TestType(req.TestType),
		Completion: req.params(),
	})
	if err != nil {
		h.logWarn(r, "submit test failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, test)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Status:   models.TestStatus(q.Get("status")),
		Result:   models.TestResult(q.Get("result")),
		Type:     models.TestType(q.Get("test_type")),
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

	tests, err := h.tests.List(r.Context(), filter)
	if err != nil {
		h.logWarn(r, "list tests failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tests)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	testID, ok := h.testID(w, r)
	if !ok {
		return
	}
	test, err := h.tests.Get(r.Context(), testID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, test)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	testID, ok := h.testID(w, r)
	if !ok {
		return
	}
	test, err := h.tests.Start(r.Context(), testID)
	if err != nil {
		h.logWarn(r, "start test failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, test)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	testID, ok := h.testID(w, r)
	if !ok {
		return
	}
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid completion payload"))
		return
	}

	test, err := h.tests.Complete(r.Context(), testID, req.params())
	if err != nil {
		h.logWarn(r, "complete test failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, test)
}

type validateResponse struct {
	Test    *models.Test        `json:"test"`
	Outcome *validation.Outcome `json:"outcome"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	testID, ok := h.testID(w, r)
	if !ok {
		return
	}
	test, outcome, err := h.tests.Validate(r.Context(), testID)
	if err != nil {
		h.logWarn(r, "validate test failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, validateResponse{Test: test, Outcome: outcome})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	testID, ok := h.testID(w, r)
	if !ok {
		return
	}
	test, err := h.tests.Cancel(r.Context(), testID)
	if err != nil {
		h.logWarn(r, "cancel test failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, test)
}

func (h *Handler) testID(w http.ResponseWriter, r *http.Request) (id.TestID, bool) {
	testID, err := id.ParseTestID(chi.URLParam(r, "testID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid test id"))
		return id.TestID{}, false
	}
	return testID, true
}

func (h *Handler) logWarn(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
