package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/jamoveo/backend/internal/logging"
	"github.com/jamoveo/backend/internal/metrics"
	"github.com/jamoveo/backend/internal/middleware"
	"github.com/jamoveo/backend/internal/models"
	"github.com/jamoveo/backend/internal/services"
	"github.com/jamoveo/backend/internal/socket"
)

// WSHandler upgrades viewer connections and relays selectSong events to the hub.
type WSHandler struct {
	hub            Hub
	policy         SelectPolicy
	allowAnonymous bool
	socketCfg      socket.Config
	clock          clockwork.Clock
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a WSHandler. allowedOrigins follows the CORS list; "*" accepts any origin.
func NewWSHandler(h Hub, policy SelectPolicy, allowAnonymous bool, cfg socket.Config, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:            h,
		policy:         policy,
		allowAnonymous: allowAnonymous,
		socketCfg:      cfg,
		clock:          clockwork.NewRealClock(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     newCheckOrigin(allowedOrigins),
		},
	}
}

// Serve handles GET /ws. Identity comes from OptionalAuthMiddleware.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil && !h.allowAnonymous {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventAnonymousDenied, "anonymous viewer rejected")
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}

	role := models.RoleViewer
	if claims != nil {
		role = claims.Role
	}
	conn := socket.NewConn(ws, uuid.NewString(), role, h.socketCfg, h.clock)
	metrics.ConnectionsTotal.WithLabelValues("ws").Inc()
	log := logging.ConnLogger(r.Context(), "ws", conn.ID())

	// The request context ends with this handler; hub calls only need its values.
	ctx := context.WithoutCancel(r.Context())

	go conn.WritePump()
	if err := h.hub.Connect(ctx, conn); err != nil {
		log.Warn("hub rejected connection", slog.Any("error", err))
		conn.Close()
		return
	}
	defer func() {
		if err := h.hub.Disconnect(ctx, conn.ID()); err != nil {
			log.Debug("disconnect after hub stop", slog.Any("error", err))
		}
	}()

	conn.ReadPump(func(message []byte) {
		h.handleMessage(ctx, log, conn.ID(), claims, message)
	})
}

func (h *WSHandler) handleMessage(ctx context.Context, log *slog.Logger, connID string, claims *services.Claims, message []byte) {
	env, err := models.DecodeEnvelope(message)
	if err != nil {
		log.Debug("dropping malformed frame", slog.Any("error", err))
		return
	}

	switch env.Event {
	case models.EventSelectSong:
		if !h.policy.Allows(claims) {
			logging.LogSecurityEvent(ctx, logging.SecurityEventNonAdminSelect, "selection from non-admin connection dropped")
			return
		}
		var sel models.SongSelection
		if err := json.Unmarshal(env.Data, &sel); err != nil {
			log.Debug("dropping malformed selection", slog.Any("error", err))
			return
		}
		by := connID
		if claims != nil {
			by = claims.Username
		}
		if err := h.hub.Select(ctx, by, sel); err != nil {
			log.Warn("failed to queue selection", slog.Any("error", err))
		}
	default:
		log.Debug("ignoring unknown event", slog.String("event", env.Event))
	}
}

// newCheckOrigin allows non-browser clients (no Origin), same-host pages and the configured origins.
func newCheckOrigin(allowed []string) func(r *http.Request) bool {
	allowAny := false
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAny = true
		}
		set[o] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAny || set[origin] {
			return true
		}
		if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
			return true
		}
		slog.Warn("websocket origin rejected", slog.String("origin", origin), slog.String("remote_addr", r.RemoteAddr))
		return false
	}
}
