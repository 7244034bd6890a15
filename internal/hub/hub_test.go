package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamoveo/backend/internal/content"
	"github.com/jamoveo/backend/internal/metrics"
	"github.com/jamoveo/backend/internal/models"
	"github.com/jamoveo/backend/internal/session"
)

type fakeConn struct {
	id      string
	role    models.Role
	sendErr error
	panics  bool

	mu       sync.Mutex
	received []models.SongSelection
}

func newConn(id string) *fakeConn {
	return &fakeConn{id: id, role: models.RolePlayer}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Role() models.Role { return c.role }

func (c *fakeConn) Send(payload []byte) error {
	if c.panics {
		panic("connection exploded")
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	env, err := models.DecodeEnvelope(payload)
	if err != nil {
		return err
	}
	if env.Event != models.EventSongSelected {
		return errors.New("unexpected event " + env.Event)
	}
	var sel models.SongSelection
	if err := json.Unmarshal(env.Data, &sel); err != nil {
		return err
	}
	c.mu.Lock()
	c.received = append(c.received, sel)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) messages() []models.SongSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.SongSelection(nil), c.received...)
}

type fakeResolver struct {
	content map[string]models.Content
	err     error
	panicOn string
}

func (r *fakeResolver) Resolve(_ context.Context, id string) (models.Content, error) {
	if id == r.panicOn {
		panic("resolver exploded")
	}
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.content[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	return c.Clone(), nil
}

var graceContent = models.Content{
	{{Lyrics: "Amazing", Chords: "G"}, {Lyrics: "grace,"}, {Lyrics: "how", Chords: "C"}},
	{{Lyrics: "That", Chords: "D"}, {Lyrics: "saved"}},
}

func startHub(t *testing.T, resolver content.Resolver) (*Hub, *session.State) {
	t.Helper()
	state := session.NewState()
	h := New(state, resolver, WithResolveTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return h, state
}

func flush(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.Sync(ctx))
}

func connect(t *testing.T, h *Hub, conns ...*fakeConn) {
	t.Helper()
	for _, c := range conns {
		require.NoError(t, h.Connect(context.Background(), c))
	}
}

func selectSong(t *testing.T, h *Hub, sel models.SongSelection) {
	t.Helper()
	require.NoError(t, h.Select(context.Background(), "admin", sel))
}

func TestHub_BroadcastsWithContent(t *testing.T) {
	h, _ := startHub(t, &fakeResolver{content: map[string]models.Content{"1": graceContent}})
	a, b := newConn("a"), newConn("b")
	connect(t, h, a, b)

	selectSong(t, h, models.SongSelection{ID: "1", Title: "Amazing Grace", Artist: "John Newton"})
	flush(t, h)

	for _, c := range []*fakeConn{a, b} {
		msgs := c.messages()
		require.Len(t, msgs, 1, "conn %s", c.id)
		assert.Equal(t, "1", msgs[0].ID)
		assert.Equal(t, graceContent, msgs[0].Content)
	}
	assert.Equal(t, a.messages()[0].Content, b.messages()[0].Content)
}

func TestHub_ReplayOnJoin(t *testing.T) {
	h, _ := startHub(t, &fakeResolver{content: map[string]models.Content{"1": graceContent}})
	a, b := newConn("a"), newConn("b")
	connect(t, h, a, b)
	selectSong(t, h, models.SongSelection{ID: "1", Title: "Amazing Grace", Artist: "John Newton"})
	flush(t, h)

	late := newConn("late")
	connect(t, h, late)
	flush(t, h)

	msgs := late.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, a.messages()[0], msgs[0])
	assert.Len(t, a.messages(), 1, "replay must be unicast")
	assert.Len(t, b.messages(), 1, "replay must be unicast")
}

func TestHub_NoReplayWhenIdle(t *testing.T) {
	h, _ := startHub(t, nil)
	a := newConn("a")
	connect(t, h, a)
	flush(t, h)

	assert.Empty(t, a.messages())
}

func TestHub_NoReplayAfterStop(t *testing.T) {
	h, _ := startHub(t, nil)
	selectSong(t, h, models.SongSelection{ID: "3", Title: "Bohemian Rhapsody"})
	selectSong(t, h, models.StopSelection())

	late := newConn("late")
	connect(t, h, late)
	flush(t, h)

	assert.Empty(t, late.messages())
}

func TestHub_StopIsIdempotent(t *testing.T) {
	h, state := startHub(t, nil)
	a := newConn("a")
	connect(t, h, a)

	selectSong(t, h, models.StopSelection())
	selectSong(t, h, models.StopSelection())
	flush(t, h)

	msgs := a.messages()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.True(t, m.IsStop())
		assert.Nil(t, m.Content)
	}
	_, playing := state.Current()
	assert.False(t, playing)
}

func TestHub_StopEchoesSender(t *testing.T) {
	h, _ := startHub(t, nil)
	admin := newConn("admin")
	admin.role = models.RoleAdmin
	connect(t, h, admin)

	require.NoError(t, h.Select(context.Background(), admin.ID(), models.StopSelection()))
	flush(t, h)

	require.Len(t, admin.messages(), 1)
	assert.True(t, admin.messages()[0].IsStop())
}

func TestHub_ContentFailureDegrades(t *testing.T) {
	tests := []struct {
		name     string
		resolver content.Resolver
	}{
		{"not found", &fakeResolver{}},
		{"store error", &fakeResolver{err: content.ErrMalformed}},
		{"timeout", &fakeResolver{err: context.DeadlineExceeded}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, state := startHub(t, tt.resolver)
			a := newConn("a")
			connect(t, h, a)

			selectSong(t, h, models.SongSelection{ID: "1", Title: "Amazing Grace", Artist: "John Newton"})
			flush(t, h)

			msgs := a.messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, "Amazing Grace", msgs[0].Title)
			assert.Equal(t, "John Newton", msgs[0].Artist)
			assert.Nil(t, msgs[0].Content)

			cur, ok := state.Current()
			require.True(t, ok)
			assert.Equal(t, "1", cur.ID)
		})
	}
}

func TestHub_SurvivesHandlerPanic(t *testing.T) {
	h, _ := startHub(t, &fakeResolver{panicOn: "1"})
	a := newConn("a")
	connect(t, h, a)

	selectSong(t, h, models.SongSelection{ID: "1", Title: "Amazing Grace"})
	selectSong(t, h, models.SongSelection{ID: "2", Title: "Hava Nagila"})
	flush(t, h)

	msgs := a.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "2", msgs[0].ID)
}

func TestHub_IsolatesFailingConnections(t *testing.T) {
	h, _ := startHub(t, &fakeResolver{content: map[string]models.Content{"1": graceContent}})
	good1, good2 := newConn("good1"), newConn("good2")
	failing := newConn("failing")
	failing.sendErr = errors.New("broken pipe")
	panicking := newConn("panicking")
	panicking.panics = true
	connect(t, h, good1, failing, panicking, good2)

	selectSong(t, h, models.SongSelection{ID: "1", Title: "Amazing Grace"})
	selectSong(t, h, models.SongSelection{ID: "2", Title: "Hava Nagila"})
	flush(t, h)

	for _, c := range []*fakeConn{good1, good2} {
		msgs := c.messages()
		require.Len(t, msgs, 2, "conn %s", c.id)
		assert.Equal(t, "1", msgs[0].ID)
		assert.Equal(t, "2", msgs[1].ID)
	}
}

func TestHub_InvalidSelectionDropped(t *testing.T) {
	h, state := startHub(t, nil)
	a := newConn("a")
	connect(t, h, a)
	rejected := testutil.ToFloat64(metrics.SelectionsTotal.WithLabelValues("rejected"))

	selectSong(t, h, models.SongSelection{ID: "1"})
	selectSong(t, h, models.SongSelection{Title: "No id"})
	flush(t, h)

	assert.Empty(t, a.messages())
	_, playing := state.Current()
	assert.False(t, playing)
	assert.Equal(t, rejected+2, testutil.ToFloat64(metrics.SelectionsTotal.WithLabelValues("rejected")))
}

func TestHub_BroadcastsUnusualButValidSelections(t *testing.T) {
	h, state := startHub(t, nil)
	a := newConn("a")
	connect(t, h, a)

	selectSong(t, h, models.SongSelection{ID: "3", Title: "Bohemian Rhapsody", ScrollSpeed: new(int)})
	selectSong(t, h, models.SongSelection{ID: "4", Title: "   "})
	flush(t, h)

	msgs := a.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "3", msgs[0].ID)
	assert.Equal(t, 2*time.Second, msgs[0].ScrollInterval())
	assert.Equal(t, "4", msgs[1].ID)

	cur, playing := state.Current()
	require.True(t, playing)
	assert.Equal(t, "4", cur.ID)
}

func TestHub_PreservesArrivalOrder(t *testing.T) {
	h, _ := startHub(t, nil)
	a := newConn("a")
	connect(t, h, a)

	ids := []string{"1", "2", "3", "0", "4", "5"}
	for _, id := range ids {
		sel := models.SongSelection{ID: id, Title: "song " + id}
		if id == models.StopID {
			sel = models.StopSelection()
		}
		selectSong(t, h, sel)
	}
	flush(t, h)

	msgs := a.messages()
	require.Len(t, msgs, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, msgs[i].ID)
	}
}

func TestHub_DisconnectStopsDelivery(t *testing.T) {
	h, _ := startHub(t, nil)
	a, b := newConn("a"), newConn("b")
	connect(t, h, a, b)
	require.NoError(t, h.Disconnect(context.Background(), "a"))
	require.NoError(t, h.Disconnect(context.Background(), "missing"))

	selectSong(t, h, models.SongSelection{ID: "3", Title: "Bohemian Rhapsody"})
	flush(t, h)

	assert.Empty(t, a.messages())
	assert.Len(t, b.messages(), 1)
	assert.Equal(t, 1, h.ConnectionCount())
}

func TestHub_DoesNotMutateCallerSelection(t *testing.T) {
	h, _ := startHub(t, &fakeResolver{content: map[string]models.Content{"1": graceContent}})
	speed := 1500
	sel := models.SongSelection{ID: "1", Title: "Amazing Grace", ScrollSpeed: &speed}

	selectSong(t, h, sel)
	flush(t, h)

	assert.Nil(t, sel.Content)
	cur, ok := h.Current()
	require.True(t, ok)
	require.NotNil(t, cur.ScrollSpeed)
	assert.Equal(t, 1500, *cur.ScrollSpeed)
	assert.NotSame(t, sel.ScrollSpeed, cur.ScrollSpeed)
}

func TestHub_ConcurrentSelectors(t *testing.T) {
	h, _ := startHub(t, nil)
	a := newConn("a")
	connect(t, h, a)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Select(context.Background(), "admin", models.SongSelection{ID: "3", Title: "Bohemian Rhapsody"})
		}()
	}
	wg.Wait()
	flush(t, h)

	assert.Len(t, a.messages(), 20)
}

func TestHub_RejectsAfterStop(t *testing.T) {
	state := session.NewState()
	h := New(state, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	assert.ErrorIs(t, h.Connect(context.Background(), newConn("a")), ErrStopped)
	assert.ErrorIs(t, h.Sync(context.Background()), ErrStopped)
}
