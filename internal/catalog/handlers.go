package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-printquote/internal/common"
)

// Handler exposes rate card catalog endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service  *Service
	Validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validate
	if v == nil {
		v = validator.New()
	}
	return &Handler{service: cfg.Service, validate: v}
}

// List handles GET /api/v1/rate-cards.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.service.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if cards == nil {
		cards = []RateCard{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cards})
}

// Get handles GET /api/v1/rate-cards/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("id must be a valid UUID", nil))
		return
	}
	card, err := h.service.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": card})
}

// Create handles POST /api/v1/rate-cards.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	card, err := h.service.Create(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": card})
}

// Update handles PUT /api/v1/rate-cards/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("id must be a valid UUID", nil))
		return
	}
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	card, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": card})
}

// Delete handles DELETE /api/v1/rate-cards/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("id must be a valid UUID", nil))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (RateCardInput, bool) {
	var input RateCardInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, common.Validation("request body is not valid JSON", nil))
		return RateCardInput{}, false
	}
	if err := h.validate.Struct(input); err != nil {
		details := map[string]any{}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		common.WriteError(w, common.Validation("invalid rate card payload", details))
		return RateCardInput{}, false
	}
	return input, true
}
