package rollout

import (
	"net/http"

	"github.com/noah-isme/backend-printquote/internal/common"
)

// Handler exposes the read-only operator view of configured flags.
type Handler struct {
	Env EnvSource
}

// Flags handles GET /api/v1/admin/flags.
func (h *Handler) Flags(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Env.All()})
}
