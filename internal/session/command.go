package session

import (
	"errors"
	"fmt"

	"github.com/jamoveo/backend/internal/models"
)

// ErrInvalidSelection is returned for selections the hub must drop.
var ErrInvalidSelection = errors.New("invalid song selection")

// Command is a validated selection: either Stop or Play.
type Command interface{ command() }

// Stop clears the current song. Selection is the sentinel without content.
type Stop struct {
	Selection models.SongSelection
}

// Play makes Selection the current song. Selection never carries content;
// the hub attaches it from the content store.
type Play struct {
	Selection models.SongSelection
}

func (Stop) command() {}
func (Play) command() {}

// ParseCommand validates sel at the boundary and classifies it. Only a
// missing id or title is rejected; a bad scrollSpeed falls back to the
// default interval.
func ParseCommand(sel models.SongSelection) (Command, error) {
	if sel.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidSelection)
	}
	if sel.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidSelection)
	}
	if sel.IsStop() {
		return Stop{Selection: sel.WithoutContent()}, nil
	}
	return Play{Selection: sel.WithoutContent()}, nil
}
