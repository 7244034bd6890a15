package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/jamoveo/backend/internal/models"
)

type stubConn struct{ id string }

func (c stubConn) ID() string { return c.id }

func (c stubConn) Role() models.Role { return models.RolePlayer }

func (c stubConn) Send(payload []byte) error { return nil }

func intPtr(v int) *int { return &v }

func TestState_CurrentLifecycle(t *testing.T) {
	s := NewState()

	if _, ok := s.Current(); ok {
		t.Fatal("new state should have no current song")
	}

	s.SetCurrent(models.SongSelection{ID: "1", Title: "Amazing Grace"})
	cur, ok := s.Current()
	if !ok || cur.ID != "1" {
		t.Fatalf("Current() = %+v, %v; want id 1", cur, ok)
	}

	s.ClearCurrent()
	if _, ok := s.Current(); ok {
		t.Fatal("expected no current song after ClearCurrent")
	}
}

func TestState_AddRemove(t *testing.T) {
	s := NewState()
	s.Add(stubConn{id: "a"})
	s.Add(stubConn{id: "b"})
	s.Add(stubConn{id: "a"})

	if got := s.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if !s.Remove("a") {
		t.Error("Remove(a) should report true")
	}
	if s.Remove("a") {
		t.Error("second Remove(a) should report false")
	}
	if got := len(s.Snapshot()); got != 1 {
		t.Errorf("len(Snapshot()) = %d, want 1", got)
	}
}

func TestState_SnapshotIsDetached(t *testing.T) {
	s := NewState()
	s.Add(stubConn{id: "a"})
	snap := s.Snapshot()
	s.Remove("a")

	if len(snap) != 1 {
		t.Fatalf("snapshot changed after Remove: len = %d", len(snap))
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			s.Add(stubConn{id: id})
			s.SetCurrent(models.SongSelection{ID: id, Title: id})
			_, _ = s.Current()
			_ = s.Snapshot()
			s.Remove(id)
		}(i)
	}
	wg.Wait()
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		sel  models.SongSelection
		want string // "stop", "play" or "invalid"
	}{
		{"stop sentinel", models.StopSelection(), "stop"},
		{"regular song", models.SongSelection{ID: "1", Title: "Amazing Grace"}, "play"},
		{"id zero without STOP title", models.SongSelection{ID: "0", Title: "Intro"}, "play"},
		{"STOP title with other id", models.SongSelection{ID: "7", Title: "STOP"}, "play"},
		{"missing id", models.SongSelection{Title: "Amazing Grace"}, "invalid"},
		{"missing title", models.SongSelection{ID: "1"}, "invalid"},
		{"blank id", models.SongSelection{ID: "  ", Title: "x"}, "play"},
		{"blank title", models.SongSelection{ID: "4", Title: "   "}, "play"},
		{"zero scroll speed", models.SongSelection{ID: "3", Title: "Bohemian Rhapsody", ScrollSpeed: intPtr(0)}, "play"},
		{"negative scroll speed", models.SongSelection{ID: "1", Title: "x", ScrollSpeed: intPtr(-5)}, "play"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand(tt.sel)
			var got string
			switch cmd.(type) {
			case Stop:
				got = "stop"
			case Play:
				got = "play"
			default:
				got = "invalid"
				if !errors.Is(err, ErrInvalidSelection) {
					t.Errorf("error = %v, want ErrInvalidSelection", err)
				}
			}
			if got != tt.want {
				t.Errorf("ParseCommand() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseCommand_StripsClientContent(t *testing.T) {
	sel := models.SongSelection{
		ID:      "3",
		Title:   "Bohemian Rhapsody",
		Content: models.Content{{{Lyrics: "injected"}}},
	}

	cmd, err := ParseCommand(sel)
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	play, ok := cmd.(Play)
	if !ok {
		t.Fatalf("ParseCommand() = %T, want Play", cmd)
	}
	if play.Selection.Content != nil {
		t.Error("Play selection should not carry client content")
	}
	if sel.Content == nil {
		t.Error("caller's selection must not be mutated")
	}
}

func TestParseCommand_StopDropsContent(t *testing.T) {
	sel := models.StopSelection()
	sel.Content = models.Content{{{Lyrics: "injected"}}}

	cmd, err := ParseCommand(sel)
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	stop, ok := cmd.(Stop)
	if !ok {
		t.Fatalf("ParseCommand() = %T, want Stop", cmd)
	}
	if !stop.Selection.IsStop() || stop.Selection.Content != nil {
		t.Errorf("Stop selection = %+v, want bare sentinel", stop.Selection)
	}
}
