package vendorrates

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/waypoint-tms/waypoint-tms/internal/platform/httpx"
	"github.com/waypoint-tms/waypoint-tms/internal/rating"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MatchingCosts handles GET /rating/vendor-costs.
func (h *Handler) MatchingCosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	originID, err1 := strconv.ParseInt(q.Get("origin_id"), 10, 64)
	destinationID, err2 := strconv.ParseInt(q.Get("destination_id"), 10, 64)
	chargeableKG, err3 := strconv.ParseFloat(q.Get("chargeable_kg"), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed",
			"origin_id, destination_id and chargeable_kg are required")
		return
	}

	query := CostQuery{
		OriginID:      originID,
		DestinationID: destinationID,
		Profile: rating.Profile{
			Mode:     rating.TransportMode(q.Get("mode")),
			Movement: rating.MovementType(q.Get("movement")),
			Terms:    rating.Terms(q.Get("terms")),
		},
		ChargeableKG: chargeableKG,
	}
	if raw := q.Get("as_of"); raw != "" {
		asOf, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		query.AsOf = asOf
	}

	costs, err := h.service.MatchingCosts(r.Context(), query)
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) {
			h.logger.Error("vendor cost lookup failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"costs": costs})
}

type rateLineRequest struct {
	ChargeID  int64   `json:"charge_id" validate:"required,gt=0"`
	SlabMinKG float64 `json:"slab_min_kg" validate:"gte=0"`
	SlabMaxKG float64 `json:"slab_max_kg" validate:"gte=0"`
	Rate      float64 `json:"rate" validate:"gte=0"`
	Currency  string  `json:"currency" validate:"required,len=3"`
	IsFixed   bool    `json:"is_fixed"`
}

type createHeaderRequest struct {
	VendorID      int64             `json:"vendor_id" validate:"required,gt=0"`
	OriginID      int64             `json:"origin_id" validate:"required,gt=0"`
	DestinationID int64             `json:"destination_id" validate:"required,gt=0"`
	Mode          string            `json:"mode" validate:"required"`
	Movement      string            `json:"movement" validate:"required"`
	Terms         string            `json:"terms" validate:"required"`
	ValidFrom     string            `json:"valid_from" validate:"required"`
	ValidUpto     string            `json:"valid_upto" validate:"required"`
	Lines         []rateLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// CreateHeader handles POST /rating/vendor-rates.
func (h *Handler) CreateHeader(w http.ResponseWriter, r *http.Request) {
	var req createHeaderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	validFrom, err := time.Parse("2006-01-02", req.ValidFrom)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "valid_from must be YYYY-MM-DD")
		return
	}
	validUpto, err := time.Parse("2006-01-02", req.ValidUpto)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "valid_upto must be YYYY-MM-DD")
		return
	}

	header := RateHeader{
		VendorID:      req.VendorID,
		OriginID:      req.OriginID,
		DestinationID: req.DestinationID,
		Mode:          rating.TransportMode(req.Mode),
		Movement:      rating.MovementType(req.Movement),
		Terms:         rating.Terms(req.Terms),
		ValidFrom:     validFrom,
		ValidUpto:     validUpto,
	}
	for _, line := range req.Lines {
		header.Lines = append(header.Lines, RateLine{
			ChargeID:  line.ChargeID,
			SlabMinKG: line.SlabMinKG,
			SlabMaxKG: line.SlabMaxKG,
			Rate:      line.Rate,
			Currency:  line.Currency,
			IsFixed:   line.IsFixed,
		})
	}

	created, issues, err := h.service.CreateHeader(r.Context(), header)
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) {
			h.logger.Error("create vendor rate card failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"header": created, "issues": issues})
}

// GetHeader handles GET /rating/vendor-rates/{id}.
func (h *Handler) GetHeader(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	header, err := h.service.GetHeader(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("load vendor rate card failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, header)
}

// ValidateHeader handles GET /rating/vendor-rates/{id}/validate.
func (h *Handler) ValidateHeader(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	issues, err := h.service.ValidateHeaderByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("validate vendor rate card failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"issues": issues})
}
