// Package viewer is a terminal client for the live session: it follows the
// current song over the websocket and paces its lines locally.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/jamoveo/backend/internal/models"
	"github.com/jamoveo/backend/internal/scroll"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrUnknownCommand = errors.New("unknown command")
)

// Option configures a Client.
type Option func(*Client)

// WithClock replaces the real clock for reconnect delays and line pacing.
func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// WithHTTPClient replaces the client used for catalog lookups.
func WithHTTPClient(hc *http.Client) Option {
	return func(cl *Client) { cl.http = hc }
}

// Client follows the session and renders it to out.
type Client struct {
	cfg    Config
	singer bool
	clock  clockwork.Clock
	http   *http.Client
	dialer *websocket.Dialer

	scheduler *scroll.Scheduler

	outMu sync.Mutex
	out   io.Writer

	mu      sync.Mutex
	current *models.SongSelection
	conn    *websocket.Conn

	writeMu sync.Mutex
}

func NewClient(cfg Config, out io.Writer, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		singer: models.IsSinger(cfg.Instrument),
		clock:  clockwork.NewRealClock(),
		http:   &http.Client{Timeout: 10 * time.Second},
		dialer: websocket.DefaultDialer,
		out:    out,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.scheduler = scroll.New(
		scroll.WithClock(c.clock),
		scroll.WithGrace(cfg.Grace),
		scroll.WithOnAdvance(c.showLine),
	)
	return c
}

// Run keeps a connection to the server until ctx is cancelled, reconnecting
// after ReconnectDelay whenever the connection drops.
func (c *Client) Run(ctx context.Context) error {
	defer c.scheduler.Close()

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("connection lost, reconnecting", slog.Any("error", err), slog.Duration("delay", c.cfg.ReconnectDelay))

		select {
		case <-ctx.Done():
			return nil
		case <-c.clock.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.ServerURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.ServerURL, err)
	}
	slog.Info("connected", slog.String("server", c.cfg.ServerURL))
	c.printf("Connected. Waiting for next song...\n")

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		c.mu.Lock()
		c.conn = nil
		c.current = nil
		c.mu.Unlock()
		conn.Close()
		// The server replays the current song after reconnecting.
		c.scheduler.Reset()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.HandleFrame(msg)
	}
}

// HandleFrame applies one server frame. Unknown events and malformed frames are ignored.
func (c *Client) HandleFrame(msg []byte) {
	env, err := models.DecodeEnvelope(msg)
	if err != nil {
		slog.Debug("ignoring malformed frame", slog.Any("error", err))
		return
	}
	if env.Event != models.EventSongSelected {
		return
	}
	var sel models.SongSelection
	if err := json.Unmarshal(env.Data, &sel); err != nil {
		slog.Debug("ignoring malformed selection", slog.Any("error", err))
		return
	}
	c.apply(sel)
}

func (c *Client) apply(sel models.SongSelection) {
	// Reset returns once no line of the previous song is being drawn.
	c.scheduler.Reset()

	c.mu.Lock()
	if sel.IsStop() {
		c.current = nil
	} else {
		c.current = &sel
	}
	c.mu.Unlock()

	c.printf("\n%s\n", Header(sel))
	if sel.IsStop() || len(sel.Content) == 0 {
		return
	}
	c.scheduler.Start(sel.Content, sel.ScrollInterval())
}

func (c *Client) showLine(index int) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil || index >= len(cur.Content) {
		return
	}
	c.printf("%s\n%s\n", position(index, len(cur.Content)), RenderLine(cur.Content[index], c.singer))
}

// Current returns the song being followed, if any.
func (c *Client) Current() (models.SongSelection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return models.SongSelection{}, false
	}
	return *c.current, true
}

// Scheduler exposes the local pacing state.
func (c *Client) Scheduler() *scroll.Scheduler {
	return c.scheduler
}

// HandleInput runs one keyboard command:
//
//	p        pause or resume scrolling
//	j / k    scroll down / up
//	s <id>   select a song for everyone (admin)
//	x        stop the song for everyone (admin)
func (c *Client) HandleInput(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "p":
		c.scheduler.Toggle()
		c.printf("(%s)\n", c.scheduler.State())
	case "j":
		c.scheduler.ScrollBy(1)
	case "k":
		c.scheduler.ScrollBy(-1)
	case "s":
		if len(fields) != 2 {
			return fmt.Errorf("usage: s <song id>")
		}
		return c.SelectSong(ctx, fields[1])
	case "x":
		return c.send(models.StopSelection())
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, fields[0])
	}
	return nil
}

// SelectSong looks id up in the catalog and asks the server to play it.
func (c *Client) SelectSong(ctx context.Context, id string) error {
	base, err := apiBase(c.cfg.ServerURL)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/songs/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("look up song %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("look up song %s: %s", id, resp.Status)
	}

	var song models.SongResponse
	if err := json.NewDecoder(resp.Body).Decode(&song); err != nil {
		return fmt.Errorf("decode song %s: %w", id, err)
	}
	return c.send(models.SongSelection{
		ID:          song.ID,
		Title:       song.Title,
		Artist:      song.Artist,
		ImageURL:    song.ImageURL,
		ScrollSpeed: song.ScrollSpeed,
		HasText:     song.HasText,
		HasVideo:    song.HasVideo,
		HasAudio:    song.HasAudio,
	})
}

func (c *Client) send(sel models.SongSelection) error {
	payload, err := models.EncodeEvent(models.EventSelectSong, sel)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.cfg.WriteWait > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// apiBase turns ws://host/ws into http://host.
func apiBase(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = ""
	u.RawQuery = ""
	return strings.TrimRight(u.String(), "/"), nil
}
