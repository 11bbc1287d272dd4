package models

import "time"

// Render is one row of render history.
type Render struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id,omitempty"`
	Status     string    `json:"status"`
	ErrorCode  string    `json:"error_code,omitempty"`
	Theme      string    `json:"theme"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Scale      float64   `json:"scale"`
	SourceHash string    `json:"source_hash"`
	DurationMS int64     `json:"duration_ms"`
	SizeBytes  int64     `json:"size_bytes"`
	Cached     bool      `json:"cached"`
	ObjectKey  string    `json:"object_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
