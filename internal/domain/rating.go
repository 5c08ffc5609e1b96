package domain

import "time"

// RatingCriteria holds the six sub-scores of one rating submission. Every
// criterion is required and must fall in [1,10]; zero means "not provided"
// and fails validation.
type RatingCriteria struct {
	Overall        int `json:"overall" validate:"required,min=1,max=10"`
	Smoothness     int `json:"smoothness" validate:"required,min=1,max=10"`
	ScenicView     int `json:"scenicView" validate:"required,min=1,max=10"`
	Upkeep         int `json:"upkeep" validate:"required,min=1,max=10"`
	Accessibility  int `json:"accessibility" validate:"required,min=1,max=10"`
	CoolnessFactor int `json:"coolnessFactor" validate:"required,min=1,max=10"`
}

// Rating is one user's rating of one guard. At most one exists per
// (UserID, GuardID) pair; resubmission replaces it in place.
type Rating struct {
	GuardID   string
	UserID    string
	Criteria  RatingCriteria
	Comment   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
