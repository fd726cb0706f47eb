package models

import (
	"errors"
	"testing"
)

func defaults() QueryDefaults {
	return QueryDefaults{Limit: 10, MaxLimit: 100, Threshold: 0.75}
}

func TestSearchQueryValidate_appliesDefaults(t *testing.T) {
	q := &SearchQuery{Query: "mitosis"}
	if err := q.Validate(defaults()); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 10 {
		t.Errorf("limit = %d, want default 10", q.Limit)
	}
	if q.Threshold == nil || *q.Threshold != 0.75 {
		t.Errorf("threshold = %v, want default 0.75", q.Threshold)
	}
}

func TestSearchQueryValidate_explicitValuesKept(t *testing.T) {
	threshold := 0.2
	q := &SearchQuery{Query: "mitosis", Limit: 5, Threshold: &threshold}
	if err := q.Validate(defaults()); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 5 || *q.Threshold != 0.2 {
		t.Errorf("explicit values overridden: limit=%d threshold=%v", q.Limit, *q.Threshold)
	}
}

func TestSearchQueryValidate_limitCappedAtMax(t *testing.T) {
	q := &SearchQuery{Query: "mitosis", Limit: 5000}
	if err := q.Validate(defaults()); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 100 {
		t.Errorf("limit = %d, want capped at 100", q.Limit)
	}
}

func TestSearchQueryValidate_rejections(t *testing.T) {
	tests := []struct {
		name  string
		query *SearchQuery
	}{
		{"no query or vector", &SearchQuery{}},
		{"negative limit", &SearchQuery{Query: "x", Limit: -5}},
		{"bad content type filter", &SearchQuery{Query: "x", Filters: Filters{ContentType: "poem"}}},
		{"bad difficulty filter", &SearchQuery{Query: "x", Filters: Filters{Difficulty: "extreme"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.query.Validate(defaults()); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestSearchQueryValidate_vectorOnlyIsAllowed(t *testing.T) {
	q := &SearchQuery{Vector: []float32{1, 0}}
	if err := q.Validate(defaults()); err != nil {
		t.Errorf("vector-only query rejected: %v", err)
	}
}
