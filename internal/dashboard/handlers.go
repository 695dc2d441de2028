package dashboard

import (
	"net/http"
	"strconv"

	"github.com/noah-isme/backend-printquote/internal/common"
)

// Handler exposes dashboard read endpoints.
type Handler struct {
	Svc *Service
}

// Stats handles GET /api/v1/dashboard.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "DASHBOARD_NOT_CONFIGURED", "dashboard service not configured", nil)
		return
	}
	ov, err := h.Svc.Stats(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ov})
}

// Recent handles GET /api/v1/dashboard/recent.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "DASHBOARD_NOT_CONFIGURED", "dashboard service not configured", nil)
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	activity, err := h.Svc.Recent(r.Context(), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if activity == nil {
		activity = []Activity{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": activity})
}
