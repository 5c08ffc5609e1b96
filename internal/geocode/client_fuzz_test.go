package geocode

import (
	"strings"
	"testing"
)

func FuzzConvertToResult(f *testing.F) {
	f.Add("Ovre Pasvik", "Finnmark")
	f.Add("  ", "")
	f.Add("", "Troms")

	f.Fuzz(func(t *testing.T, locality, region string) {
		payload := apiResponse{}
		if locality != "" {
			payload.Locality = &locality
		}
		if region != "" {
			payload.Region = &region
		}

		result := convertToResult(payload)
		if result == nil {
			t.Fatalf("convertToResult returned nil")
		}
		if strings.TrimSpace(result.Locality) != result.Locality {
			t.Fatalf("locality not trimmed: %q", result.Locality)
		}
		if strings.TrimSpace(result.Region) != result.Region {
			t.Fatalf("region not trimmed: %q", result.Region)
		}

		name := result.DisplayName()
		if result.Locality != "" && !strings.Contains(name, result.Locality) {
			t.Fatalf("display name %q lost locality %q", name, result.Locality)
		}
	})
}
