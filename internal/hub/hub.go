// Package hub serializes connection events and song selections onto a single
// goroutine and fans every accepted selection out to all registered viewers.
//
// The hub trusts its callers: role checks happen in the transport before
// Select is called.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/jamoveo/backend/internal/content"
	"github.com/jamoveo/backend/internal/logging"
	"github.com/jamoveo/backend/internal/metrics"
	"github.com/jamoveo/backend/internal/models"
	"github.com/jamoveo/backend/internal/session"
)

const (
	defaultResolveTimeout = 3 * time.Second
	commandBuffer         = 256
)

// ErrStopped is returned when a command is submitted after Run has returned.
var ErrStopped = errors.New("hub stopped")

type hubCmd interface{ isHubCmd() }

type baseCmd struct{}

func (baseCmd) isHubCmd() {}

type connectCmd struct {
	baseCmd
	conn session.Conn
}

type disconnectCmd struct {
	baseCmd
	id string
}

type selectCmd struct {
	baseCmd
	by        string
	selection models.SongSelection
}

type syncCmd struct {
	baseCmd
	reply chan struct{}
}

// Hub owns a session.State. Only the Run goroutine mutates it.
type Hub struct {
	state          *session.State
	content        content.Resolver
	resolveTimeout time.Duration

	cmdCh chan hubCmd
	done  chan struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithResolveTimeout bounds each content lookup.
func WithResolveTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.resolveTimeout = d
		}
	}
}

// New creates a hub over state. Call Run to start processing.
func New(state *session.State, resolver content.Resolver, opts ...Option) *Hub {
	h := &Hub{
		state:          state,
		content:        resolver,
		resolveTimeout: defaultResolveTimeout,
		cmdCh:          make(chan hubCmd, commandBuffer),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes commands until ctx is cancelled. It must be called exactly once.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	slog.Info("hub started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("hub stopped", slog.Int("connections", h.state.Len()))
			return nil
		case cmd := <-h.cmdCh:
			metrics.HubCommandQueueDepth.Set(float64(len(h.cmdCh)))
			h.handle(ctx, cmd)
		}
	}
}

// Connect registers conn. If a song is playing, conn receives it before any later broadcast.
func (h *Hub) Connect(ctx context.Context, conn session.Conn) error {
	return h.enqueue(ctx, connectCmd{conn: conn})
}

// Disconnect unregisters the connection with the given id.
func (h *Hub) Disconnect(ctx context.Context, id string) error {
	return h.enqueue(ctx, disconnectCmd{id: id})
}

// Select queues sel for processing. by identifies the sender in logs.
// Invalid selections are dropped by the hub; Select itself only fails when
// the command cannot be queued.
func (h *Hub) Select(ctx context.Context, by string, sel models.SongSelection) error {
	return h.enqueue(ctx, selectCmd{by: by, selection: sel})
}

// Sync blocks until every command queued before it has been handled.
func (h *Hub) Sync(ctx context.Context) error {
	reply := make(chan struct{})
	if err := h.enqueue(ctx, syncCmd{reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the song currently playing.
func (h *Hub) Current() (models.SongSelection, bool) {
	return h.state.Current()
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	return h.state.Len()
}

func (h *Hub) enqueue(ctx context.Context, cmd hubCmd) error {
	select {
	case <-h.done:
		return ErrStopped
	default:
	}
	select {
	case h.cmdCh <- cmd:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handle runs one command to completion. A panic is logged and reported, and
// the loop moves on to the next command.
func (h *Hub) handle(ctx context.Context, cmd hubCmd) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HubPanics.Inc()
			slog.Error("hub panic recovered",
				slog.String("command", fmt.Sprintf("%T", cmd)),
				slog.Any("panic", r),
			)
			sentry.CurrentHub().Recover(r)
		}
	}()

	switch c := cmd.(type) {
	case connectCmd:
		h.handleConnect(c.conn)
	case disconnectCmd:
		if h.state.Remove(c.id) {
			metrics.HubConnections.Set(float64(h.state.Len()))
			slog.Debug("viewer disconnected", slog.String("conn_id", c.id))
		}
	case selectCmd:
		h.handleSelect(ctx, c.by, c.selection)
	case syncCmd:
		close(c.reply)
	}
}

func (h *Hub) handleConnect(conn session.Conn) {
	h.state.Add(conn)
	metrics.HubConnections.Set(float64(h.state.Len()))
	slog.Debug("viewer connected",
		slog.String("conn_id", conn.ID()),
		slog.String("role", string(conn.Role())),
	)

	cur, ok := h.state.Current()
	if !ok {
		return
	}
	payload, err := models.EncodeEvent(models.EventSongSelected, cur)
	if err != nil {
		slog.Error("failed to encode replay", slog.Any("error", logging.WrapError(err, "encode replay")))
		return
	}
	deliver(conn, payload)
}

func (h *Hub) handleSelect(ctx context.Context, by string, sel models.SongSelection) {
	cmd, err := session.ParseCommand(sel)
	if err != nil {
		metrics.SelectionsTotal.WithLabelValues("rejected").Inc()
		slog.Warn("dropping song selection",
			slog.String("by", by),
			slog.String("song_id", sel.ID),
			slog.Any("error", err),
		)
		return
	}

	var out models.SongSelection
	switch c := cmd.(type) {
	case session.Stop:
		h.state.ClearCurrent()
		out = c.Selection
		metrics.SelectionsTotal.WithLabelValues("stop").Inc()
	case session.Play:
		out = h.attachContent(ctx, c.Selection)
		h.state.SetCurrent(out)
		metrics.SelectionsTotal.WithLabelValues("play").Inc()
	}

	slog.Info("song selected",
		slog.String("by", by),
		slog.String("song_id", out.ID),
		slog.String("title", out.Title),
		slog.Bool("has_content", out.Content != nil),
	)
	h.broadcast(out)
}

// attachContent resolves content for sel. On any failure sel is returned unchanged.
func (h *Hub) attachContent(ctx context.Context, sel models.SongSelection) models.SongSelection {
	if h.content == nil {
		return sel
	}
	rctx, cancel := context.WithTimeout(ctx, h.resolveTimeout)
	defer cancel()

	c, err := h.content.Resolve(rctx, sel.ID)
	switch {
	case err == nil:
		metrics.ContentResolutions.WithLabelValues("ok").Inc()
		return sel.WithContent(c)
	case errors.Is(err, content.ErrNotFound):
		metrics.ContentResolutions.WithLabelValues("not_found").Inc()
		slog.Debug("no content for song", slog.String("song_id", sel.ID))
	default:
		metrics.ContentResolutions.WithLabelValues("error").Inc()
		slog.Warn("content resolution failed, broadcasting without content",
			slog.String("song_id", sel.ID),
			slog.Any("error", logging.WrapError(err, "resolve content")),
		)
	}
	return sel
}

func (h *Hub) broadcast(sel models.SongSelection) {
	payload, err := models.EncodeEvent(models.EventSongSelected, sel)
	if err != nil {
		slog.Error("failed to encode broadcast", slog.Any("error", logging.WrapError(err, "encode broadcast")))
		return
	}
	for _, conn := range h.state.Snapshot() {
		deliver(conn, payload)
	}
}

// deliver hands payload to one connection. Errors and panics stay with that connection.
func deliver(conn session.Conn, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DeliveryFailures.Inc()
			slog.Error("send panicked", slog.String("conn_id", conn.ID()), slog.Any("panic", r))
		}
	}()
	if err := conn.Send(payload); err != nil {
		metrics.DeliveryFailures.Inc()
		slog.Debug("send failed", slog.String("conn_id", conn.ID()), slog.Any("error", err))
	}
}
