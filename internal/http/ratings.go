package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cattlegrid/cattlegrid/internal/domain"
	"github.com/cattlegrid/cattlegrid/internal/rating"
	"github.com/cattlegrid/cattlegrid/internal/repository"
)

type ratingRequest struct {
	domain.RatingCriteria
	Comment *string `json:"comment"`
}

type ratingResponse struct {
	GuardID        string  `json:"guardId"`
	UserID         string  `json:"userId"`
	Overall        int     `json:"overall"`
	Smoothness     int     `json:"smoothness"`
	ScenicView     int     `json:"scenicView"`
	Upkeep         int     `json:"upkeep"`
	Accessibility  int     `json:"accessibility"`
	CoolnessFactor int     `json:"coolnessFactor"`
	Comment        *string `json:"comment,omitempty"`
	UpdatedAt      string  `json:"updatedAt"`
}

type aggregateResponse struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	guardID, ok := s.guardIDParam(w, r)
	if !ok {
		return
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	stored, created, err := s.aggregator.Submit(r.Context(), rating.SubmitInput{
		GuardID:  guardID,
		UserID:   userID,
		Criteria: req.RatingCriteria,
		Comment:  normalizeStringPtr(req.Comment),
	})
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, toRatingResponse(stored))
}

func (s *Server) handleGetAggregate(w http.ResponseWriter, r *http.Request) {
	guardID, ok := s.guardIDParam(w, r)
	if !ok {
		return
	}

	guard, err := s.repo.Guards.GetByID(r.Context(), guardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error().Err(err).Msg("fetch guard for aggregate")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch rating")
		return
	}

	s.respondJSON(w, http.StatusOK, aggregateResponse{
		Average: roundToOneDecimal(guard.AverageRating),
		Count:   guard.TotalRatings,
	})
}

func toRatingResponse(stored domain.Rating) ratingResponse {
	return ratingResponse{
		GuardID:        stored.GuardID,
		UserID:         stored.UserID,
		Overall:        stored.Criteria.Overall,
		Smoothness:     stored.Criteria.Smoothness,
		ScenicView:     stored.Criteria.ScenicView,
		Upkeep:         stored.Criteria.Upkeep,
		Accessibility:  stored.Criteria.Accessibility,
		CoolnessFactor: stored.Criteria.CoolnessFactor,
		Comment:        stored.Comment,
		UpdatedAt:      stored.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
