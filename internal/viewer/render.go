package viewer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jamoveo/backend/internal/models"
)

// RenderLine lays out one line as a chord row above a lyric row, each chord
// starting at the column of its token. Singers get the lyric row only.
func RenderLine(line models.LyricLine, singer bool) string {
	var chords, lyrics strings.Builder
	hasChords := false

	for i, tok := range line {
		if i > 0 {
			chords.WriteByte(' ')
			lyrics.WriteByte(' ')
		}
		width := utf8.RuneCountInString(tok.Lyrics)
		if n := utf8.RuneCountInString(tok.Chords); n > width {
			width = n
		}
		if tok.Chords != "" {
			hasChords = true
		}
		chords.WriteString(pad(tok.Chords, width))
		lyrics.WriteString(pad(tok.Lyrics, width))
	}

	lyricRow := strings.TrimRight(lyrics.String(), " ")
	if singer || !hasChords {
		return lyricRow
	}
	return strings.TrimRight(chords.String(), " ") + "\n" + lyricRow
}

// Header introduces a selection: title and artist, or a waiting notice.
func Header(sel models.SongSelection) string {
	if sel.IsStop() {
		return "Waiting for next song..."
	}
	header := sel.Title
	if sel.Artist != "" {
		header += " - " + sel.Artist
	}
	if len(sel.Content) == 0 {
		header += " (no lyrics available)"
	}
	return header
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func position(index, total int) string {
	return fmt.Sprintf("[%d/%d]", index+1, total)
}
