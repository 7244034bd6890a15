package db

import (
	"context"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, password_hash, role, instrument)
VALUES (?, ?, ?, ?)
RETURNING id, username, password_hash, role, instrument
`

type CreateUserParams struct {
	Username     string
	PasswordHash string
	Role         string
	Instrument   string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Username,
		arg.PasswordHash,
		arg.Role,
		arg.Instrument,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.Role,
		&i.Instrument,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, username, password_hash, role, instrument FROM users
WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.Role,
		&i.Instrument,
	)
	return i, err
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT id, username, password_hash, role, instrument FROM users
WHERE username = ?
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.Role,
		&i.Instrument,
	)
	return i, err
}

const getSong = `-- name: GetSong :one
SELECT id, title, artist, image_url, has_text, has_video, has_audio, scroll_speed_ms, content_file FROM songs
WHERE id = ?
`

func (q *Queries) GetSong(ctx context.Context, id string) (Song, error) {
	row := q.db.QueryRowContext(ctx, getSong, id)
	var i Song
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Artist,
		&i.ImageUrl,
		&i.HasText,
		&i.HasVideo,
		&i.HasAudio,
		&i.ScrollSpeedMs,
		&i.ContentFile,
	)
	return i, err
}

const listSongs = `-- name: ListSongs :many
SELECT id, title, artist, image_url, has_text, has_video, has_audio, scroll_speed_ms, content_file FROM songs
ORDER BY CAST(id AS INTEGER), id
`

func (q *Queries) ListSongs(ctx context.Context) ([]Song, error) {
	rows, err := q.db.QueryContext(ctx, listSongs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Song
	for rows.Next() {
		var i Song
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Artist,
			&i.ImageUrl,
			&i.HasText,
			&i.HasVideo,
			&i.HasAudio,
			&i.ScrollSpeedMs,
			&i.ContentFile,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listContentFiles = `-- name: ListContentFiles :many
SELECT id, content_file FROM songs
WHERE content_file IS NOT NULL AND content_file != ''
`

type ListContentFilesRow struct {
	ID          string
	ContentFile string
}

func (q *Queries) ListContentFiles(ctx context.Context) ([]ListContentFilesRow, error) {
	rows, err := q.db.QueryContext(ctx, listContentFiles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListContentFilesRow
	for rows.Next() {
		var i ListContentFilesRow
		if err := rows.Scan(&i.ID, &i.ContentFile); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
