package chargerules

import (
	"errors"
	"log/slog"
	"net/http"

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

func profileFromQuery(r *http.Request) rating.Profile {
	return rating.Profile{
		Mode:     rating.TransportMode(r.URL.Query().Get("mode")),
		Movement: rating.MovementType(r.URL.Query().Get("movement")),
		Terms:    rating.Terms(r.URL.Query().Get("terms")),
	}
}

// ApplicableCharges handles GET /rating/applicable-charges.
func (h *Handler) ApplicableCharges(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ApplicableCharges(r.Context(), profileFromQuery(r))
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrNoApplicableCharges) {
			h.logger.Error("resolve applicable charges failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"charges": out})
}

type ruleRequest struct {
	Mode     string  `json:"mode" validate:"required"`
	Movement string  `json:"movement" validate:"required"`
	Terms    string  `json:"terms" validate:"required"`
	ChargeID int64   `json:"charge_id" validate:"required,gt=0"`
	Notes    *string `json:"notes,omitempty"`
}

func (req ruleRequest) profile() rating.Profile {
	return rating.Profile{
		Mode:     rating.TransportMode(req.Mode),
		Movement: rating.MovementType(req.Movement),
		Terms:    rating.Terms(req.Terms),
	}
}

// AddRule handles POST /rating/charge-rules.
func (h *Handler) AddRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	rule, err := h.service.AddRule(r.Context(), req.profile(), req.ChargeID, req.Notes)
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("add charge rule failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rule)
}

// RemoveRule handles DELETE /rating/charge-rules.
func (h *Handler) RemoveRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	removed, err := h.service.RemoveRule(r.Context(), req.profile(), req.ChargeID)
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) {
			h.logger.Error("remove charge rule failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"removed": removed})
}
