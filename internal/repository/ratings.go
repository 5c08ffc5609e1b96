package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cattlegrid/cattlegrid/internal/domain"
)

// RatingsRepository provides helpers for guard ratings.
type RatingsRepository struct {
	db DB
}

const ratingColumns = `
    guard_id,
    user_id,
    overall,
    smoothness,
    scenic_view,
    upkeep,
    accessibility,
    coolness_factor,
    comment,
    created_at,
    updated_at
`

// RatingUpsertParams captures the payload required to upsert a rating.
type RatingUpsertParams struct {
	GuardID  string
	UserID   string
	Criteria domain.RatingCriteria
	Comment  *string
}

// queryer is satisfied by both DB and pgx.Tx.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const upsertRatingQuery = `
    INSERT INTO ratings (guard_id, user_id, overall, smoothness, scenic_view, upkeep, accessibility, coolness_factor, comment)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (guard_id, user_id)
    DO UPDATE SET overall = EXCLUDED.overall,
                  smoothness = EXCLUDED.smoothness,
                  scenic_view = EXCLUDED.scenic_view,
                  upkeep = EXCLUDED.upkeep,
                  accessibility = EXCLUDED.accessibility,
                  coolness_factor = EXCLUDED.coolness_factor,
                  comment = EXCLUDED.comment,
                  updated_at = now()
    RETURNING ` + ratingColumns + `, (xmax = 0) AS inserted
`

// UpsertTx inserts or fully replaces a rating within the given transaction
// and indicates whether it was newly created. Resubmission overwrites every
// criterion and the comment; nothing is merged.
func (r *RatingsRepository) UpsertTx(ctx context.Context, tx pgx.Tx, params RatingUpsertParams) (domain.Rating, bool, error) {
	return upsertRating(ctx, tx, params)
}

func upsertRating(ctx context.Context, q queryer, params RatingUpsertParams) (domain.Rating, bool, error) {
	row := q.QueryRow(ctx, upsertRatingQuery,
		params.GuardID,
		params.UserID,
		params.Criteria.Overall,
		params.Criteria.Smoothness,
		params.Criteria.ScenicView,
		params.Criteria.Upkeep,
		params.Criteria.Accessibility,
		params.Criteria.CoolnessFactor,
		params.Comment,
	)

	var rating domain.Rating
	var inserted bool
	err := row.Scan(
		&rating.GuardID,
		&rating.UserID,
		&rating.Criteria.Overall,
		&rating.Criteria.Smoothness,
		&rating.Criteria.ScenicView,
		&rating.Criteria.Upkeep,
		&rating.Criteria.Accessibility,
		&rating.Criteria.CoolnessFactor,
		&rating.Comment,
		&rating.CreatedAt,
		&rating.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.Rating{}, false, err
	}
	return rating, inserted, nil
}

// ListForGuardTx reads every rating for a guard within the given transaction,
// newest first. The aggregator recomputes the summary from this full set.
func (r *RatingsRepository) ListForGuardTx(ctx context.Context, tx pgx.Tx, guardID string) ([]domain.Rating, error) {
	return listForGuard(ctx, tx, guardID)
}

// ListForGuard reads every rating for a guard outside a transaction, for the
// detail view.
func (r *RatingsRepository) ListForGuard(ctx context.Context, guardID string) ([]domain.Rating, error) {
	return listForGuard(ctx, r.db, guardID)
}

func listForGuard(ctx context.Context, q queryer, guardID string) ([]domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE guard_id = $1 ORDER BY created_at DESC, user_id`, ratingColumns)
	rows, err := q.Query(ctx, query, guardID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var results []domain.Rating
	for rows.Next() {
		var rating domain.Rating
		err := rows.Scan(
			&rating.GuardID,
			&rating.UserID,
			&rating.Criteria.Overall,
			&rating.Criteria.Smoothness,
			&rating.Criteria.ScenicView,
			&rating.Criteria.Upkeep,
			&rating.Criteria.Accessibility,
			&rating.Criteria.CoolnessFactor,
			&rating.Comment,
			&rating.CreatedAt,
			&rating.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Get retrieves a rating for a specific user/guard combination.
func (r *RatingsRepository) Get(ctx context.Context, guardID, userID string) (domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE guard_id = $1 AND user_id = $2`, ratingColumns)
	row := r.db.QueryRow(ctx, query, guardID, userID)

	var rating domain.Rating
	err := row.Scan(
		&rating.GuardID,
		&rating.UserID,
		&rating.Criteria.Overall,
		&rating.Criteria.Smoothness,
		&rating.Criteria.ScenicView,
		&rating.Criteria.Upkeep,
		&rating.Criteria.Accessibility,
		&rating.Criteria.CoolnessFactor,
		&rating.Comment,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}
