package model

import (
	"database/sql"
	"time"
)

// Generation is a media generation job row as stored in the database
type Generation struct {
	GenerationID   string         `db:"generation_id"`
	IdempotencyKey string         `db:"idempotency_key"`
	UserID         string         `db:"user_id"`
	JobType        string         `db:"job_type"`
	ModelName      string         `db:"model_name"`
	Payload        string         `db:"payload"` // JSON: prompt, image_url, duration, save_at
	Status         string         `db:"status"`
	Result         sql.NullString `db:"result"` // JSON, set on completion
	ErrorMessage   sql.NullString `db:"error_message"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}
