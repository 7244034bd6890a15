package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jamoveo/backend/internal/content"
	"github.com/jamoveo/backend/internal/db"
	"github.com/jamoveo/backend/internal/models"
)

// SongQueries is the subset of db.Queries used by the catalog handlers.
type SongQueries interface {
	ListSongs(ctx context.Context) ([]db.Song, error)
	GetSong(ctx context.Context, id string) (db.Song, error)
}

// SongsHandler serves the song catalog and its lyric/chord content.
type SongsHandler struct {
	queries SongQueries
	content content.Resolver
}

func NewSongsHandler(queries SongQueries, resolver content.Resolver) *SongsHandler {
	return &SongsHandler{queries: queries, content: resolver}
}

// List returns every song in catalog order.
func (h *SongsHandler) List(w http.ResponseWriter, r *http.Request) {
	songs, err := h.queries.ListSongs(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list songs", err)
		return
	}

	response := make([]models.SongResponse, 0, len(songs))
	for _, s := range songs {
		response = append(response, toSongResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// Get returns a single song's metadata.
func (h *SongsHandler) Get(w http.ResponseWriter, r *http.Request) {
	song, err := h.queries.GetSong(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to get song", err)
		return
	}
	writeJSON(w, http.StatusOK, toSongResponse(song))
}

// Content returns the lyric/chord lines of a song.
func (h *SongsHandler) Content(w http.ResponseWriter, r *http.Request) {
	c, err := h.content.Resolve(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, content.ErrNotFound) {
		writeError(w, http.StatusNotFound, "song has no content")
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load content", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func toSongResponse(s db.Song) models.SongResponse {
	resp := models.SongResponse{
		ID:       s.ID,
		Title:    s.Title,
		Artist:   s.Artist,
		ImageURL: s.ImageUrl.String,
		HasText:  s.HasText,
		HasVideo: s.HasVideo,
		HasAudio: s.HasAudio,
	}
	if s.ScrollSpeedMs.Valid {
		speed := int(s.ScrollSpeedMs.Int64)
		resp.ScrollSpeed = &speed
	}
	return resp
}

// toSelection builds the broadcast selection for a catalog song.
func toSelection(s db.Song) models.SongSelection {
	r := toSongResponse(s)
	return models.SongSelection{
		ID:          r.ID,
		Title:       r.Title,
		Artist:      r.Artist,
		ImageURL:    r.ImageURL,
		ScrollSpeed: r.ScrollSpeed,
		HasText:     r.HasText,
		HasVideo:    r.HasVideo,
		HasAudio:    r.HasAudio,
	}
}
