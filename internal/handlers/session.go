package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jamoveo/backend/internal/logging"
	"github.com/jamoveo/backend/internal/middleware"
	"github.com/jamoveo/backend/internal/models"
)

// SessionHandler exposes the shared session over plain HTTP.
type SessionHandler struct {
	hub    Hub
	songs  SongQueries
	policy SelectPolicy
}

func NewSessionHandler(h Hub, songs SongQueries, policy SelectPolicy) *SessionHandler {
	return &SessionHandler{hub: h, songs: songs, policy: policy}
}

// Current returns the song currently playing, or 204 when none is.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.hub.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, models.SessionResponse{
		CurrentSong: &sel,
		Connections: h.hub.ConnectionCount(),
	})
}

// Select changes the current song. A body carrying only an id is completed
// from the catalog; the STOP sentinel passes through unchanged. The response
// is sent after the hub has processed and broadcast the selection.
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if !h.policy.Allows(claims) {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventNonAdminSelect, "selection over http rejected")
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}

	var sel models.SongSelection
	if err := decodeJSON(w, r, &sel); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if sel.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if !sel.IsStop() && sel.Title == "" {
		song, err := h.songs.GetSong(r.Context(), sel.ID)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "song not found")
			return
		}
		if err != nil {
			writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to look up song", err)
			return
		}
		sel = toSelection(song)
	}

	by := "anonymous"
	if claims != nil {
		by = claims.Username
	}
	if err := h.hub.Select(r.Context(), by, sel); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusServiceUnavailable, "session unavailable", err)
		return
	}
	if err := h.hub.Sync(r.Context()); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusServiceUnavailable, "session unavailable", err)
		return
	}

	resp := models.SessionResponse{Connections: h.hub.ConnectionCount()}
	if cur, ok := h.hub.Current(); ok {
		resp.CurrentSong = &cur
	}
	writeJSON(w, http.StatusAccepted, resp)
}
