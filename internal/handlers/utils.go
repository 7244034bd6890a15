package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jamoveo/backend/internal/logging"
	"github.com/jamoveo/backend/internal/models"
	"github.com/jamoveo/backend/internal/services"
	"github.com/jamoveo/backend/internal/session"
)

// Hub is the realtime core as seen by the transports.
type Hub interface {
	Connect(ctx context.Context, conn session.Conn) error
	Disconnect(ctx context.Context, id string) error
	Select(ctx context.Context, by string, sel models.SongSelection) error
	Sync(ctx context.Context) error
	Current() (models.SongSelection, bool)
	ConnectionCount() int
}

// SelectPolicy decides whether an identity may change the current song.
type SelectPolicy struct {
	RequireAdmin bool
}

// Allows reports whether claims (nil for anonymous) may select.
func (p SelectPolicy) Allows(claims *services.Claims) bool {
	if !p.RequireAdmin {
		return true
	}
	return claims != nil && claims.Role == models.RoleAdmin
}

// writeJSON serializes data as JSON and writes it to the response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response. If no context/error provided, just writes the response.
// For simple client errors (400-level), use: writeError(w, status, msg)
// For server errors with cause, use: writeErrorWithCause(ctx, w, status, msg, err)
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

// writeErrorWithCause writes an error response and logs the error with stack trace.
// Use this for server errors (500-level) where you have an underlying error to log.
func writeErrorWithCause(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	writeError(w, status, message)

	// Don't log 401/403 - handled by security event logging
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return
	}

	if status >= 400 && err != nil {
		wrappedErr := logging.WrapError(err, message)
		logging.LogErrorWithStatus(ctx, status, "error response", wrappedErr)
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
