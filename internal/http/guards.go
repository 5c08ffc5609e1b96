package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cattlegrid/cattlegrid/internal/apperr"
	"github.com/cattlegrid/cattlegrid/internal/domain"
	"github.com/cattlegrid/cattlegrid/internal/geocode"
	"github.com/cattlegrid/cattlegrid/internal/repository"
	"github.com/cattlegrid/cattlegrid/internal/validate"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type guardCreateRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Latitude    *float64 `json:"latitude" validate:"required"`
	Longitude   *float64 `json:"longitude" validate:"required"`
}

type guardResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Locality      *string `json:"locality,omitempty"`
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int64   `json:"totalRatings"`
	CreatedBy     string  `json:"createdBy"`
	CreatedAt     string  `json:"createdAt"`
}

type guardListResponse struct {
	Items      []guardResponse `json:"items"`
	NextCursor *string         `json:"nextCursor,omitempty"`
}

type guardDetailResponse struct {
	guardResponse
	Ratings []ratingResponse `json:"ratings"`
}

func (s *Server) handleListGuards(w http.ResponseWriter, r *http.Request) {
	filters, err := buildGuardFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Guards.List(r.Context(), filters)
	if err != nil {
		s.logger.Error().Err(err).Msg("list guards")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list guards")
		return
	}

	items := make([]guardResponse, 0, len(result.Items))
	for _, guard := range result.Items {
		items = append(items, toGuardResponse(guard))
	}
	s.respondJSON(w, http.StatusOK, guardListResponse{Items: items, NextCursor: result.NextCursor})
}

func buildGuardFilters(query url.Values) (repository.GuardListFilters, error) {
	var filters repository.GuardListFilters

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("minRating")); val != "" {
		minRating, err := strconv.ParseFloat(val, 64)
		if err != nil || minRating < 0 || minRating > 10 {
			return filters, fmt.Errorf("invalid minRating value")
		}
		filters.MinRating = &minRating
	}
	if val := strings.TrimSpace(query.Get("sort")); val != "" {
		switch val {
		case repository.SortNewest, repository.SortRating, repository.SortName:
			filters.Sort = val
		default:
			return filters, fmt.Errorf("sort must be one of newest, rating, name")
		}
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleCreateGuard(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	var req guardCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}
	if math.Abs(*req.Latitude) > 90 || math.Abs(*req.Longitude) > 180 {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "latitude/longitude out of range")
		return
	}

	guard, err := s.repo.Guards.Create(r.Context(), repository.GuardCreateParams{
		Name:        strings.TrimSpace(req.Name),
		Description: normalizeStringPtr(req.Description),
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		CreatedBy:   userID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateLocation) {
			s.respondAppError(w, apperr.Conflict("A guard already exists very close to this location"))
			return
		}
		s.logger.Error().Err(err).Msg("create guard")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create guard")
		return
	}

	guard = s.enrichGuardLocality(r.Context(), guard)

	w.Header().Set("Location", fmt.Sprintf("/guards/%s", url.PathEscape(guard.ID)))
	s.respondJSON(w, http.StatusCreated, toGuardResponse(guard))
}

// enrichGuardLocality attaches a reverse-geocoded place name. Best effort;
// the guard is already stored and any failure only means a missing label.
func (s *Server) enrichGuardLocality(ctx context.Context, guard domain.Guard) domain.Guard {
	if s.geocoder == nil {
		return guard
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.GeocoderTimeoutSecs)*time.Second)
	defer cancel()

	result, err := s.geocoder.Reverse(ctx, guard.Latitude, guard.Longitude)
	if err != nil {
		if !errors.Is(err, geocode.ErrNotFound) {
			s.logger.Warn().Err(err).Str("guard_id", guard.ID).Msg("geocode lookup failed")
		}
		return guard
	}

	updated, err := s.repo.Guards.UpdateLocality(ctx, guard.ID, result.DisplayName())
	if err != nil {
		s.logger.Warn().Err(err).Str("guard_id", guard.ID).Msg("update guard locality failed")
		return guard
	}
	return updated
}

func (s *Server) handleGetGuard(w http.ResponseWriter, r *http.Request) {
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
		s.logger.Error().Err(err).Msg("fetch guard")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch guard")
		return
	}

	ratings, err := s.repo.Ratings.ListForGuard(r.Context(), guardID)
	if err != nil {
		s.logger.Error().Err(err).Msg("list guard ratings")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch guard")
		return
	}

	resp := guardDetailResponse{
		guardResponse: toGuardResponse(guard),
		Ratings:       make([]ratingResponse, 0, len(ratings)),
	}
	for _, rr := range ratings {
		resp.Ratings = append(resp.Ratings, toRatingResponse(rr))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// guardIDParam extracts and validates the guard id path parameter. An
// identifier that cannot be a guard id is reported the same way as a missing
// guard.
func (s *Server) guardIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "guardID")
	if _, err := uuid.Parse(raw); err != nil {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return "", false
	}
	return raw, true
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Code: code, Message: message})
}

// respondAppError renders the apperr taxonomy with its HTTP mapping.
func (s *Server) respondAppError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		s.respondJSON(w, appErr.Status, errorResponse{Code: appErr.Code, Message: appErr.Message})
		return
	}
	s.logger.Error().Err(err).Msg("unclassified error")
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
}

func (s *Server) respondValidationError(w http.ResponseWriter, err error) {
	var fieldErrs *validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: fieldErrs.Error(),
			Details: fieldErrs.Fields(),
		})
		return
	}
	s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func toGuardResponse(guard domain.Guard) guardResponse {
	return guardResponse{
		ID:            guard.ID,
		Name:          guard.Name,
		Description:   guard.Description,
		Latitude:      guard.Latitude,
		Longitude:     guard.Longitude,
		Locality:      guard.Locality,
		AverageRating: roundToOneDecimal(guard.AverageRating),
		TotalRatings:  guard.TotalRatings,
		CreatedBy:     guard.CreatedBy,
		CreatedAt:     guard.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}

func (s *Server) verifyBearer(header string) bool {
	if header == "" {
		return false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token == s.cfg.AuthToken
}

func roundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10.0
}
