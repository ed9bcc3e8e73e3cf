package model

import "time"

// Response is the standard envelope for all opgate API responses.
type Response struct {
	Status    string    `json:"status"` // "ok" or "error"
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
}
