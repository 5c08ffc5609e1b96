package geocode

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// TestHTTPClientSmoke exercises the client against a live geocoder, typically
// the geocode-mock command, when GEOCODER_URL points at one.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("GEOCODER_URL")
	if baseURL == "" {
		t.Skip("GEOCODER_URL not provided")
	}
	apiKey := os.Getenv("GEOCODER_API_KEY")
	client, err := NewHTTPClient(baseURL, apiKey, 3*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.Reverse(ctx, 69.1, 29.2)
	if err != nil {
		t.Fatalf("reverse lookup: %v", err)
	}
	if result.DisplayName() == "" {
		t.Fatalf("unexpected empty place name: %+v", result)
	}
}
