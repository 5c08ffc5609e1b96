package domain

import "time"

// Guard represents a catalogued cattle guard: a road grid at a fixed position.
// AverageRating and TotalRatings are denormalized from the ratings table and
// are only ever written by the rating aggregator, inside the same transaction
// that stores the triggering rating.
type Guard struct {
	ID            string
	Name          string
	Description   *string
	Latitude      float64
	Longitude     float64
	Locality      *string
	AverageRating float64
	TotalRatings  int64
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GuardSummary is the aggregate view read by listing and detail pages.
type GuardSummary struct {
	AverageRating float64
	TotalRatings  int64
}

// ProximityToleranceDegrees is the half-width of the duplicate-location box
// applied on guard creation, in decimal degrees on both axes (roughly 100m at
// mid-latitudes). The box is not geodesically uniform; longitude degrees
// shrink toward the poles.
const ProximityToleranceDegrees = 0.001
