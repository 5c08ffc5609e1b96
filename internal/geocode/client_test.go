package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "apikey" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("lat") {
		case "69.1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"locality":" Ovre Pasvik ","region":"Finnmark"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "apikey", 2*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	result, err := client.Reverse(context.Background(), 69.1, 29.2)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if result.Locality != "Ovre Pasvik" {
		t.Fatalf("locality = %q, want trimmed value", result.Locality)
	}
	if got := result.DisplayName(); got != "Ovre Pasvik, Finnmark" {
		t.Fatalf("display name = %q", got)
	}

	if _, err := client.Reverse(context.Background(), 0, 0); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown position, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		result Result
		want   string
	}{
		{Result{}, ""},
		{Result{Locality: "Ovre Pasvik"}, "Ovre Pasvik"},
		{Result{Region: "Finnmark"}, "Finnmark"},
		{Result{Locality: "Ovre Pasvik", Region: "Finnmark"}, "Ovre Pasvik, Finnmark"},
	}
	for _, c := range cases {
		if got := c.result.DisplayName(); got != c.want {
			t.Fatalf("DisplayName(%+v) = %q, want %q", c.result, got, c.want)
		}
	}
}
