package models

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for malformed query parameters (limit < 1,
// missing query text and vector, bad filter enums).
var ErrInvalidArgument = errors.New("invalid argument")

// QueryDefaults holds the configured fallbacks applied during validation.
type QueryDefaults struct {
	Limit     int
	MaxLimit  int
	Threshold float64
}

// SearchQuery represents a similarity search request. Either Query (to be
// embedded) or Vector (a pre-computed embedding) must be set; Vector wins when
// both are present.
type SearchQuery struct {
	Query     string    `json:"query,omitempty"`
	Vector    []float32 `json:"vector,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
	Filters   Filters   `json:"filters,omitempty"`
}

// Validate normalizes the query against defaults. A zero Limit takes the
// default; an explicit Limit < 1 is rejected. Threshold left nil takes the
// default lower bound.
func (q *SearchQuery) Validate(d QueryDefaults) error {
	if q.Query == "" && len(q.Vector) == 0 {
		return fmt.Errorf("%w: query text or vector is required", ErrInvalidArgument)
	}
	if q.Limit == 0 {
		q.Limit = d.Limit
	}
	if q.Limit < 1 {
		return fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidArgument, q.Limit)
	}
	if d.MaxLimit > 0 && q.Limit > d.MaxLimit {
		q.Limit = d.MaxLimit
	}
	if q.Threshold == nil {
		t := d.Threshold
		q.Threshold = &t
	}
	if !q.Filters.ContentType.Valid() {
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidArgument, q.Filters.ContentType)
	}
	if !q.Filters.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidArgument, q.Filters.Difficulty)
	}
	return nil
}
