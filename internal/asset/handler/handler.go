package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"certitrack/internal/asset/models"
	"certitrack/internal/asset/service"
	"certitrack/internal/asset/store"
	"certitrack/internal/transport/http/shared"
	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
	"certitrack/pkg/requestcontext"
)

// Handler exposes the asset registry over HTTP.
type Handler struct {
	assets   *service.Service
	logger   *slog.Logger
	validate *validator.Validate
}

// New creates an asset Handler.
func New(assets *service.Service, logger *slog.Logger) *Handler {
	return &Handler{
		assets:   assets,
		logger:   logger,
		validate: validator.New(),
	}
}

// Register mounts asset routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/scan/{code}", h.handleScan)
		r.Get("/{assetID}", h.handleGet)
		r.Delete("/{assetID}", h.handleDelete)
	})
}

type createAssetRequest struct {
	AssetCode        string  `json:"asset_code" validate:"required,max=100"`
	Name             string  `json:"name" validate:"required,max=255"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	AssetType        string  `json:"asset_type"`
	Manufacturer     string  `json:"manufacturer"`
	Model            string  `json:"model"`
	SerialNumber     string  `json:"serial_number"`
	YearManufactured int     `json:"year_manufactured" validate:"omitempty,gte=1900,lte=2100"`
	SafeWorkingLoad  float64 `json:"safe_working_load" validate:"gte=0"`
	SWLUnit          string  `json:"swl_unit"`
	Location         string  `json:"location"`
	Site             string  `json:"site"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid asset payload"))
		return
	}

	asset, err := h.assets.Create(ctx, service.CreateParams{
		AssetCode:        req.AssetCode,
		Name:             req.Name,
		Description:      req.Description,
		Category:         models.AssetCategory(req.Category),
		Type:             models.AssetType(req.AssetType),
		Manufacturer:     req.Manufacturer,
		Model:            req.Model,
		SerialNumber:     req.SerialNumber,
		YearManufactured: req.YearManufactured,
		SafeWorkingLoad:  req.SafeWorkingLoad,
		SWLUnit:          req.SWLUnit,
		Location:         req.Location,
		Site:             req.Site,
	})
	if err != nil {
		h.logWarn(r, "create asset failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, asset)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Status:   models.AssetStatus(q.Get("status")),
		Category: models.AssetCategory(q.Get("category")),
		Type:     models.AssetType(q.Get("asset_type")),
		Search:   q.Get("search"),
		Page:     shared.QueryInt(q, "page", 1),
		PageSize: shared.QueryInt(q, "page_size", 20),
	}

	assets, err := h.assets.List(r.Context(), filter)
	if err != nil {
		h.logWarn(r, "list assets failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, assets)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return
	}
	asset, err := h.assets.Get(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	asset, err := h.assets.ResolveByQR(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return
	}
	if err := h.assets.Delete(r.Context(), assetID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logWarn(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
