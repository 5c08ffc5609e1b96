// Package rating implements the rating aggregation core: accepting one
// user's submission for one guard and atomically updating both the stored
// rating and the guard's denormalized average/count.
package rating

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/cattlegrid/cattlegrid/internal/apperr"
	"github.com/cattlegrid/cattlegrid/internal/domain"
	"github.com/cattlegrid/cattlegrid/internal/repository"
	"github.com/cattlegrid/cattlegrid/internal/validate"
)

// MaxCommentLength bounds the optional free-text comment.
const MaxCommentLength = 2000

// GuardStore is the outbound contract for target-entity lookups.
type GuardStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	LockTx(ctx context.Context, tx pgx.Tx, id string) (bool, error)
	WriteSummaryTx(ctx context.Context, tx pgx.Tx, id string, averageRating float64, totalRatings int64) error
}

// RatingStore is the outbound contract for rating rows. Both methods operate
// inside the caller-supplied transaction so the whole sequence commits or
// rolls back as one unit.
type RatingStore interface {
	UpsertTx(ctx context.Context, tx pgx.Tx, params repository.RatingUpsertParams) (domain.Rating, bool, error)
	ListForGuardTx(ctx context.Context, tx pgx.Tx, guardID string) ([]domain.Rating, error)
}

// TxBeginner opens the storage transaction the atomic sequence runs in.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Aggregator accepts rating submissions and keeps each guard's summary equal
// to the mean/count over its current rating set.
type Aggregator struct {
	db      TxBeginner
	guards  GuardStore
	ratings RatingStore
	logger  zerolog.Logger
}

// New constructs an Aggregator.
func New(db TxBeginner, guards GuardStore, ratings RatingStore, logger zerolog.Logger) *Aggregator {
	return &Aggregator{db: db, guards: guards, ratings: ratings, logger: logger}
}

// SubmitInput is one user's full rating of one guard. Criteria must be
// complete; partial updates are not supported.
type SubmitInput struct {
	GuardID  string
	UserID   string
	Criteria domain.RatingCriteria
	Comment  *string
}

// Submit validates the submission, then upserts the rating and recomputes the
// guard's aggregate as a single transaction. The returned bool reports
// whether the rating was newly created (as opposed to replaced).
//
// Outcomes map onto the apperr taxonomy: NotFound when the guard does not
// exist, InvalidInput for malformed criteria or identity, Transient for any
// storage failure mid-sequence (fully rolled back, safe to retry since
// resubmission is idempotent).
func (a *Aggregator) Submit(ctx context.Context, in SubmitInput) (domain.Rating, bool, error) {
	exists, err := a.guards.Exists(ctx, in.GuardID)
	if err != nil {
		return domain.Rating{}, false, apperr.Transient(err)
	}
	if !exists {
		return domain.Rating{}, false, apperr.NotFound("guard")
	}

	if err := validate.Struct(in.Criteria); err != nil {
		var fieldErrs *validate.FieldErrors
		if errors.As(err, &fieldErrs) {
			return domain.Rating{}, false, apperr.InvalidInput(fieldErrs.Error())
		}
		return domain.Rating{}, false, apperr.InvalidInput(err.Error())
	}
	if in.Comment != nil && len(*in.Comment) > MaxCommentLength {
		return domain.Rating{}, false, apperr.InvalidInput(
			fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
	}
	if strings.TrimSpace(in.UserID) == "" {
		return domain.Rating{}, false, apperr.InvalidInput("user id is required")
	}

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return domain.Rating{}, false, apperr.Transient(fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Row lock on the guard serializes submissions per guard; submissions for
	// different guards proceed independently. Also re-checks existence now
	// that we hold the lock.
	locked, err := a.guards.LockTx(ctx, tx, in.GuardID)
	if err != nil {
		return domain.Rating{}, false, apperr.Transient(err)
	}
	if !locked {
		return domain.Rating{}, false, apperr.NotFound("guard")
	}

	stored, created, err := a.ratings.UpsertTx(ctx, tx, repository.RatingUpsertParams{
		GuardID:  in.GuardID,
		UserID:   in.UserID,
		Criteria: in.Criteria,
		Comment:  in.Comment,
	})
	if err != nil {
		return domain.Rating{}, false, apperr.Transient(fmt.Errorf("upsert rating: %w", err))
	}

	all, err := a.ratings.ListForGuardTx(ctx, tx, in.GuardID)
	if err != nil {
		return domain.Rating{}, false, apperr.Transient(fmt.Errorf("list ratings: %w", err))
	}

	summary := Summarize(all)
	if err := a.guards.WriteSummaryTx(ctx, tx, in.GuardID, summary.AverageRating, summary.TotalRatings); err != nil {
		return domain.Rating{}, false, apperr.Transient(fmt.Errorf("write summary: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Rating{}, false, apperr.Transient(fmt.Errorf("commit: %w", err))
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	submissionsTotal.WithLabelValues(outcome).Inc()
	a.logger.Debug().
		Str("guard_id", in.GuardID).
		Str("user_id", in.UserID).
		Bool("created", created).
		Float64("average", summary.AverageRating).
		Int64("count", summary.TotalRatings).
		Msg("rating stored")

	return stored, created, nil
}

// Summarize computes the aggregate from the full current rating set. Always
// a full recomputation, never an incremental patch, so float drift and
// miscounts cannot accumulate. An empty set yields a zero summary.
func Summarize(ratings []domain.Rating) domain.GuardSummary {
	count := int64(len(ratings))
	if count == 0 {
		return domain.GuardSummary{}
	}
	var sum int64
	for _, r := range ratings {
		sum += int64(r.Criteria.Overall)
	}
	return domain.GuardSummary{
		AverageRating: float64(sum) / float64(count),
		TotalRatings:  count,
	}
}
