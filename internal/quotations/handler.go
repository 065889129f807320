package quotations

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/waypoint-tms/waypoint-tms/internal/platform/httpx"
	"github.com/waypoint-tms/waypoint-tms/internal/rating"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/dimensions"
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

type pieceRequest struct {
	LengthCM       float64 `json:"length_cm" validate:"gt=0"`
	WidthCM        float64 `json:"width_cm" validate:"gt=0"`
	HeightCM       float64 `json:"height_cm" validate:"gt=0"`
	Count          int     `json:"count" validate:"gt=0"`
	WeightPerPiece float64 `json:"weight_per_piece" validate:"gt=0"`
}

type createRequest struct {
	CustomerID    int64          `json:"customer_id" validate:"required,gt=0"`
	OriginID      int64          `json:"origin_id" validate:"required,gt=0"`
	DestinationID int64          `json:"destination_id" validate:"required,gt=0"`
	Mode          string         `json:"mode" validate:"required"`
	Movement      string         `json:"movement" validate:"required"`
	Terms         string         `json:"terms" validate:"required"`
	QuoteDate     string         `json:"quote_date,omitempty"`
	Pieces        []pieceRequest `json:"pieces" validate:"required,min=1,dive"`
}

// Create handles POST /quotations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateInput{
		CustomerID:    req.CustomerID,
		OriginID:      req.OriginID,
		DestinationID: req.DestinationID,
		Mode:          rating.TransportMode(req.Mode),
		Movement:      rating.MovementType(req.Movement),
		Terms:         rating.Terms(req.Terms),
	}
	if req.QuoteDate != "" {
		quoteDate, err := time.Parse("2006-01-02", req.QuoteDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "quote_date must be YYYY-MM-DD")
			return
		}
		input.QuoteDate = quoteDate
	}
	for _, p := range req.Pieces {
		input.Pieces = append(input.Pieces, dimensions.Piece{
			LengthCM:       p.LengthCM,
			WidthCM:        p.WidthCM,
			HeightCM:       p.HeightCM,
			Count:          p.Count,
			WeightPerPiece: p.WeightPerPiece,
		})
	}

	q, err := h.service.Create(r.Context(), input)
	if err != nil {
		if !h.expected(err) {
			h.logger.Error("create quotation failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

// Get handles GET /quotations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	q, costLines, saleLines, err := h.service.Get(r.Context(), id)
	if err != nil {
		if !h.expected(err) {
			h.logger.Error("load quotation failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotation":  q,
		"cost_lines": costLines,
		"sale_lines": saleLines,
	})
}

// RunCosting handles POST /quotations/{id}/cost.
func (h *Handler) RunCosting(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	lines, err := h.service.RunCosting(r.Context(), id)
	if err != nil {
		if !h.expected(err) {
			h.logger.Error("costing run failed", slog.Int64("quotation_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"created_lines": lines})
}

// RunPricing handles POST /quotations/{id}/price.
func (h *Handler) RunPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	lines, err := h.service.RunPricing(r.Context(), id)
	if err != nil {
		if !h.expected(err) {
			h.logger.Error("pricing run failed", slog.Int64("quotation_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"created_lines": lines})
}

type selectVendorRequest struct {
	VendorID     *int64   `json:"vendor_id,omitempty" validate:"omitempty,gt=0"`
	OverrideRate *float64 `json:"override_rate,omitempty" validate:"omitempty,gte=0"`
}

// SelectVendor handles PUT /quotations/{id}/cost-lines/{lineID}/vendor.
func (h *Handler) SelectVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "lineID must be an integer")
		return
	}

	var req selectVendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	line, err := h.service.SelectVendor(r.Context(), id, lineID, req.VendorID, req.OverrideRate)
	if err != nil {
		if !h.expected(err) {
			h.logger.Error("vendor selection failed", slog.Int64("quotation_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

type overridePriceRequest struct {
	SalePrice float64 `json:"sale_price" validate:"gte=0"`
}

// OverrideSalePrice handles PUT /quotations/{id}/sale-lines/{lineID}/price.
func (h *Handler) OverrideSalePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "lineID must be an integer")
		return
	}

	var req overridePriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	line, err := h.service.OverrideSalePrice(r.Context(), id, lineID, req.SalePrice)
	if err != nil {
		if !h.expected(err) {
			h.logger.Error("sale price override failed", slog.Int64("quotation_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

// Finalize handles POST /quotations/{id}/finalize.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.Finalize)
}

// Approve handles POST /quotations/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.Approve)
}

// Reject handles POST /quotations/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.Reject)
}

// MarkWon handles POST /quotations/{id}/won.
func (h *Handler) MarkWon(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.MarkWon)
}

// MarkLost handles POST /quotations/{id}/lost.
func (h *Handler) MarkLost(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.MarkLost)
}

// Cancel handles POST /quotations/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.Cancel)
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*Quotation, error)) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	q, err := op(r.Context(), id)
	if err != nil {
		if !h.expected(err) {
			h.logger.Error("quotation transition failed", slog.Int64("quotation_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) expected(err error) bool {
	return errors.Is(err, shared.ErrValidation) ||
		errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrInvalidStatus) ||
		errors.Is(err, shared.ErrNoApplicableCharges) ||
		errors.Is(err, shared.ErrIncompletePricing) ||
		errors.Is(err, shared.ErrBusinessRule)
}
