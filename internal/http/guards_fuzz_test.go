package httpserver

import (
	"net/url"
	"testing"
)

func FuzzBuildGuardFilters(f *testing.F) {
	seeds := []string{
		"q=pasvik&minRating=6.5&sort=rating",
		"minRating=abc",
		"limit=200",
		"sort=name&cursor=eyJzb3J0IjoibmFtZSJ9",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		_, _ = buildGuardFilters(values)
	})
}
