package db

import (
	"database/sql"
)

type Song struct {
	ID            string
	Title         string
	Artist        string
	ImageUrl      sql.NullString
	HasText       bool
	HasVideo      bool
	HasAudio      bool
	ScrollSpeedMs sql.NullInt64
	ContentFile   sql.NullString
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	Instrument   string
}
