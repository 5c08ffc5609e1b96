package httpserver

import (
	"fmt"
	"net/http"
	"testing"
)

func BenchmarkHandleSubmitRating(b *testing.B) {
	srv := buildTestServer(b)
	guardID := createTestGuard(b, srv, "Benchmark Grid", 60.0, 10.0)
	body := ratingBody(b, 6)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := submitRating(b, srv, guardID, fmt.Sprintf("bench-%d", i), body)
		if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
