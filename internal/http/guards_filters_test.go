package httpserver

import (
	"net/url"
	"testing"

	"github.com/cattlegrid/cattlegrid/internal/config"
	"github.com/cattlegrid/cattlegrid/internal/repository"
)

func TestBuildGuardFilters(t *testing.T) {
	values, _ := url.ParseQuery("q= pasvik &minRating=6.5&sort=rating&limit=50")

	filters, err := buildGuardFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Query == nil || *filters.Query != "pasvik" {
		t.Fatalf("query not trimmed: %+v", filters.Query)
	}
	if filters.MinRating == nil || *filters.MinRating != 6.5 {
		t.Fatalf("minRating parse failed: %+v", filters.MinRating)
	}
	if filters.Sort != repository.SortRating {
		t.Fatalf("sort parse failed: %q", filters.Sort)
	}
	if filters.Limit != 50 {
		t.Fatalf("limit not parsed: %d", filters.Limit)
	}
}

func TestBuildGuardFilters_Invalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"minRating not a number", "minRating=abc"},
		{"minRating below zero", "minRating=-1"},
		{"minRating above scale", "minRating=10.5"},
		{"unknown sort", "sort=oldest"},
		{"limit not a number", "limit=abc"},
		{"garbage cursor", "cursor=%21%21"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tc.raw)
			if _, err := buildGuardFilters(values); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

func TestVerifyBearer(t *testing.T) {
	srv := &Server{cfg: config.Config{AuthToken: "secret"}}
	cases := []struct {
		header  string
		allowed bool
	}{
		{"Bearer secret", true},
		{"Bearer secret ", true},
		{"Bearer other", false},
		{"secret", false},
		{"", false},
	}
	for _, c := range cases {
		if srv.verifyBearer(c.header) != c.allowed {
			t.Fatalf("verifyBearer(%q) = %v, want %v", c.header, !c.allowed, c.allowed)
		}
	}
}
