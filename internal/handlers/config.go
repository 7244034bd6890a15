package handlers

import (
	"net/http"

	"github.com/jamoveo/backend/internal/config"
	"github.com/jamoveo/backend/internal/models"
)

type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// PublicConfig returns non-sensitive configuration for clients
func (h *ConfigHandler) PublicConfig(w http.ResponseWriter, r *http.Request) {
	// Only expose public, non-sensitive configuration
	response := map[string]interface{}{
		"requireAdminToSelect":  h.cfg.RequireAdminToSelect,
		"allowAnonymousViewers": h.cfg.AllowAnonymousViewers,
		"adminRegistration":     h.cfg.AdminSecret != "",
		"instruments":           models.Instruments,
		"defaultScrollSpeed":    models.DefaultScrollSpeedMs,
	}

	writeJSON(w, http.StatusOK, response)
}

// Health reports liveness along with the number of connected viewers.
func Health(h Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"connections": h.ConnectionCount(),
		})
	}
}
