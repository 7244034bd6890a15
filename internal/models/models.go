package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Role is the identity role attached to a user or connection.
type Role string

const (
	RoleAdmin  Role = "admin"  // May select and stop songs
	RolePlayer Role = "player" // Musicians and singers; view only
	RoleViewer Role = "viewer" // Anonymous connection
)

// Stop sentinel and scroll defaults.
const (
	StopID                 = "0"
	StopTitle              = "STOP"
	DefaultScrollSpeedMs   = 2000
	defaultScrollSpeedTime = DefaultScrollSpeedMs * time.Millisecond
)

// Instruments offered at registration.
var Instruments = []string{
	"guitar", "piano", "violin", "drums", "bass", "vocals",
	"saxophone", "trumpet", "flute", "cello", "clarinet", "other",
}

// ValidInstrument reports whether s is one of Instruments.
func ValidInstrument(s string) bool {
	for _, i := range Instruments {
		if i == s {
			return true
		}
	}
	return false
}

// IsSinger reports whether instrument denotes a vocalist. Singers see lyrics without chords.
func IsSinger(instrument string) bool {
	switch strings.ToLower(strings.TrimSpace(instrument)) {
	case "vocals", "singer":
		return true
	}
	return false
}

// Wire event names.
const (
	EventSelectSong   = "selectSong"
	EventSongSelected = "songSelected"
)

// LyricToken is one word or syllable group with optional chords above it.
type LyricToken struct {
	Lyrics string `json:"lyrics"`
	Chords string `json:"chords,omitempty"`
}

// LyricLine is an ordered sequence of tokens.
type LyricLine []LyricToken

// Content is an ordered sequence of lines. Order is display order.
type Content []LyricLine

// Clone returns a deep copy so callers never share backing arrays.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	out := make(Content, len(c))
	for i, line := range c {
		out[i] = append(LyricLine(nil), line...)
	}
	return out
}

// SongSelection is the payload of selectSong and songSelected events.
type SongSelection struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Content     Content `json:"content,omitempty"`
	ScrollSpeed *int    `json:"scrollSpeed,omitempty"`
	HasText     bool    `json:"hasText,omitempty"`
	HasVideo    bool    `json:"hasVideo,omitempty"`
	HasAudio    bool    `json:"hasAudio,omitempty"`
}

// StopSelection returns the "no song playing" sentinel.
func StopSelection() SongSelection {
	return SongSelection{ID: StopID, Title: StopTitle}
}

// IsStop reports whether s is the STOP sentinel.
func (s SongSelection) IsStop() bool {
	return s.ID == StopID && s.Title == StopTitle
}

// ScrollInterval returns the per-line pacing interval, falling back to the default.
func (s SongSelection) ScrollInterval() time.Duration {
	if s.ScrollSpeed == nil || *s.ScrollSpeed <= 0 {
		return defaultScrollSpeedTime
	}
	return time.Duration(*s.ScrollSpeed) * time.Millisecond
}

// UnmarshalJSON accepts any JSON number for scrollSpeed and rounds it to
// whole milliseconds.
func (s *SongSelection) UnmarshalJSON(data []byte) error {
	type plain SongSelection
	aux := struct {
		*plain
		ScrollSpeed *float64 `json:"scrollSpeed"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ScrollSpeed = nil
	if aux.ScrollSpeed != nil {
		ms := int(math.Round(math.Max(math.Min(*aux.ScrollSpeed, math.MaxInt32), math.MinInt32)))
		s.ScrollSpeed = &ms
	}
	return nil
}

// WithContent returns a copy of s carrying its own copy of c.
func (s SongSelection) WithContent(c Content) SongSelection {
	out := s.copyScalars()
	out.Content = c.Clone()
	return out
}

// WithoutContent returns a copy of s with no content attached.
func (s SongSelection) WithoutContent() SongSelection {
	return s.copyScalars()
}

func (s SongSelection) copyScalars() SongSelection {
	out := s
	out.Content = nil
	if s.ScrollSpeed != nil {
		speed := *s.ScrollSpeed
		out.ScrollSpeed = &speed
	}
	return out
}

// Envelope frames every message on the realtime transports.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent marshals v as the data of an envelope named event.
func EncodeEvent(event string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// DecodeEnvelope parses a raw frame. An envelope without an event name is an error.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event name")
	}
	return env, nil
}

// Catalog

type SongResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	ImageURL    string `json:"imageUrl,omitempty"`
	HasText     bool   `json:"hasText"`
	HasVideo    bool   `json:"hasVideo"`
	HasAudio    bool   `json:"hasAudio"`
	ScrollSpeed *int   `json:"scrollSpeed,omitempty"`
}

// Session

type SessionResponse struct {
	CurrentSong *SongSelection `json:"currentSong"`
	Connections int            `json:"connections"`
}

// Users

type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Instrument string `json:"instrument,omitempty"`
}

type RegisterAdminRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	AdminSecret string `json:"adminSecret"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Role       Role   `json:"role"`
	Instrument string `json:"instrument,omitempty"`
	Token      string `json:"token,omitempty"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
