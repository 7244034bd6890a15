package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jamoveo/backend/internal/logging"
	"github.com/jamoveo/backend/internal/metrics"
	"github.com/jamoveo/backend/internal/middleware"
	"github.com/jamoveo/backend/internal/models"
)

var errStreamFull = errors.New("sse buffer full")

// sseConn adapts an event stream to session.Conn. The hub pushes encoded
// envelopes into a buffer that the Stream loop drains.
type sseConn struct {
	id   string
	role models.Role
	ch   chan []byte
}

func (c *sseConn) ID() string        { return c.id }
func (c *sseConn) Role() models.Role { return c.role }

func (c *sseConn) Send(payload []byte) error {
	select {
	case c.ch <- payload:
		return nil
	default:
		return errStreamFull
	}
}

// SSEHandler serves a read-only Server-Sent Events stream of song selections.
type SSEHandler struct {
	hub            Hub
	allowAnonymous bool
	heartbeat      time.Duration
	buffer         int
}

// NewSSEHandler creates an SSEHandler backed by the given hub.
func NewSSEHandler(h Hub, allowAnonymous bool, heartbeat time.Duration, buffer int) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &SSEHandler{hub: h, allowAnonymous: allowAnonymous, heartbeat: heartbeat, buffer: buffer}
}

// Stream registers the request as a viewer. It sends an initial "connected"
// event, replays the current song if one is playing, then pushes a
// "songSelected" event for every broadcast. A heartbeat comment keeps the
// connection alive through proxies.
func (h *SSEHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil && !h.allowAnonymous {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventAnonymousDenied, "anonymous viewer rejected")
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	role := models.RoleViewer
	if claims != nil {
		role = claims.Role
	}
	conn := &sseConn{id: uuid.NewString(), role: role, ch: make(chan []byte, h.buffer)}

	ctx := r.Context()
	hubCtx := context.WithoutCancel(ctx)
	log := logging.ConnLogger(ctx, "sse", conn.id)
	if err := h.hub.Connect(hubCtx, conn); err != nil {
		writeErrorWithCause(ctx, w, http.StatusServiceUnavailable, "session unavailable", err)
		return
	}
	defer func() {
		if err := h.hub.Disconnect(hubCtx, conn.id); err != nil {
			log.Debug("disconnect after hub stop", slog.Any("error", err))
		}
	}()
	metrics.ConnectionsTotal.WithLabelValues("sse").Inc()

	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", conn.id)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-conn.ch:
			if err := writeSSEEvent(w, payload); err != nil {
				log.Debug("dropping undecodable payload", slog.Any("error", err))
				continue
			}
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent unwraps an envelope into an SSE frame named after its event.
func writeSSEEvent(w http.ResponseWriter, payload []byte) error {
	var env models.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Event, env.Data)
	return err
}
