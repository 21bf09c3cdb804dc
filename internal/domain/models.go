package domain

import "time"

// Exchange is the record of one dispatched request and its outcome.
type Exchange struct {
	ID          string            `json:"id"`
	Profile     string            `json:"profile,omitempty"`
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	StatusCode  int               `json:"status_code,omitempty"`
	Status      string            `json:"status,omitempty"`
	HTTPVersion string            `json:"http_version,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	BodyBytes   int               `json:"body_bytes"`
	ErrorCode   int               `json:"error_code,omitempty"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	ElapsedMs   int64             `json:"elapsed_ms"`
}

// Failed reports whether the exchange ended in an error.
func (e Exchange) Failed() bool { return e.Error != "" }
