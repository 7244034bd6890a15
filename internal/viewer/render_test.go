package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jamoveo/backend/internal/models"
)

func TestRenderLine(t *testing.T) {
	line := models.LyricLine{
		{Lyrics: "Amazing", Chords: "G"},
		{Lyrics: "grace,"},
		{Lyrics: "how", Chords: "G7"},
		{Lyrics: "sweet"},
	}

	tests := []struct {
		name   string
		line   models.LyricLine
		singer bool
		want   string
	}{
		{
			name: "chords above lyrics",
			line: line,
			want: "G              G7\nAmazing grace, how sweet",
		},
		{
			name:   "singer sees lyrics only",
			line:   line,
			singer: true,
			want:   "Amazing grace, how sweet",
		},
		{
			name: "no chords",
			line: models.LyricLine{{Lyrics: "the"}, {Lyrics: "sound"}},
			want: "the sound",
		},
		{
			name: "chord wider than syllable",
			line: models.LyricLine{{Lyrics: "a", Chords: "Cmaj7"}, {Lyrics: "wretch"}},
			want: "Cmaj7\na     wretch",
		},
		{
			name: "hebrew counts runes",
			line: models.LyricLine{{Lyrics: "הבה", Chords: "Am"}, {Lyrics: "נגילה", Chords: "E"}},
			want: "Am  E\nהבה נגילה",
		},
		{
			name: "empty line",
			line: nil,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderLine(tt.line, tt.singer))
		})
	}
}

func TestHeader(t *testing.T) {
	content := models.Content{{{Lyrics: "x"}}}

	assert.Equal(t, "Waiting for next song...", Header(models.StopSelection()))
	assert.Equal(t, "Amazing Grace - John Newton",
		Header(models.SongSelection{ID: "1", Title: "Amazing Grace", Artist: "John Newton", Content: content}))
	assert.Equal(t, "Imagine - John Lennon (no lyrics available)",
		Header(models.SongSelection{ID: "4", Title: "Imagine", Artist: "John Lennon"}))
}
