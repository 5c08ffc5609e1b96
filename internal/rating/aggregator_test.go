package rating

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cattlegrid/cattlegrid/internal/apperr"
	"github.com/cattlegrid/cattlegrid/internal/domain"
	"github.com/cattlegrid/cattlegrid/internal/repository"
)

const (
	testGuardID = "5e78c4f0-9d2a-4a5f-8a35-6b1f3c9e2d41"
	testUserID  = "user-1"
)

func newTestAggregator(t *testing.T) (*Aggregator, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := repository.NewWithPool(mock)
	agg := New(mock, repo.Guards, repo.Ratings, zerolog.Nop())
	return agg, mock
}

func fullCriteria(overall int) domain.RatingCriteria {
	return domain.RatingCriteria{
		Overall:        overall,
		Smoothness:     7,
		ScenicView:     6,
		Upkeep:         5,
		Accessibility:  9,
		CoolnessFactor: 10,
	}
}

func ratingColumns() []string {
	return []string{
		"guard_id", "user_id", "overall", "smoothness", "scenic_view",
		"upkeep", "accessibility", "coolness_factor", "comment",
		"created_at", "updated_at",
	}
}

func expectExists(mock pgxmock.PgxPoolIface, exists bool) {
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(testGuardID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestSubmit_Success(t *testing.T) {
	agg, mock := newTestAggregator(t)

	criteria := fullCriteria(8)
	now := time.Now().UTC()

	expectExists(mock, true)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM guards`).
		WithArgs(testGuardID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testGuardID))
	mock.ExpectQuery(`INSERT INTO ratings`).
		WithArgs(testGuardID, testUserID, 8, 7, 6, 5, 9, 10, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(append(ratingColumns(), "inserted")).
			AddRow(testGuardID, testUserID, 8, 7, 6, 5, 9, 10, nil, now, now, true))
	mock.ExpectQuery(`SELECT (.+) FROM ratings WHERE guard_id`).
		WithArgs(testGuardID).
		WillReturnRows(pgxmock.NewRows(ratingColumns()).
			AddRow(testGuardID, testUserID, 8, 7, 6, 5, 9, 10, nil, now, now))
	mock.ExpectExec(`UPDATE guards`).
		WithArgs(testGuardID, 8.0, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	stored, created, err := agg.Submit(context.Background(), SubmitInput{
		GuardID:  testGuardID,
		UserID:   testUserID,
		Criteria: criteria,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, criteria, stored.Criteria)
	assert.Equal(t, testUserID, stored.UserID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_GuardNotFound(t *testing.T) {
	agg, mock := newTestAggregator(t)

	expectExists(mock, false)

	_, _, err := agg.Submit(context.Background(), SubmitInput{
		GuardID:  testGuardID,
		UserID:   testUserID,
		Criteria: fullCriteria(8),
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_InvalidCriteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria domain.RatingCriteria
	}{
		{"zero smoothness", func() domain.RatingCriteria {
			c := fullCriteria(8)
			c.Smoothness = 0
			return c
		}()},
		{"overall above range", fullCriteria(11)},
		{"negative upkeep", func() domain.RatingCriteria {
			c := fullCriteria(8)
			c.Upkeep = -3
			return c
		}()},
		{"all missing", domain.RatingCriteria{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, mock := newTestAggregator(t)
			expectExists(mock, true)

			_, _, err := agg.Submit(context.Background(), SubmitInput{
				GuardID:  testGuardID,
				UserID:   testUserID,
				Criteria: tt.criteria,
			})
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
			// No transaction may have been opened.
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubmit_EmptyUserID(t *testing.T) {
	agg, mock := newTestAggregator(t)
	expectExists(mock, true)

	_, _, err := agg.Submit(context.Background(), SubmitInput{
		GuardID:  testGuardID,
		UserID:   "   ",
		Criteria: fullCriteria(8),
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_CommentTooLong(t *testing.T) {
	agg, mock := newTestAggregator(t)
	expectExists(mock, true)

	long := make([]byte, MaxCommentLength+1)
	for i := range long {
		long[i] = 'x'
	}
	comment := string(long)

	_, _, err := agg.Submit(context.Background(), SubmitInput{
		GuardID:  testGuardID,
		UserID:   testUserID,
		Criteria: fullCriteria(8),
		Comment:  &comment,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_UpsertFailureRollsBack(t *testing.T) {
	agg, mock := newTestAggregator(t)

	expectExists(mock, true)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM guards`).
		WithArgs(testGuardID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testGuardID))
	mock.ExpectQuery(`INSERT INTO ratings`).
		WithArgs(testGuardID, testUserID, 8, 7, 6, 5, 9, 10, pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := agg.Submit(context.Background(), SubmitInput{
		GuardID:  testGuardID,
		UserID:   testUserID,
		Criteria: fullCriteria(8),
	})
	assert.ErrorIs(t, err, apperr.ErrTransient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_GuardDeletedUnderLock(t *testing.T) {
	agg, mock := newTestAggregator(t)

	expectExists(mock, true)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM guards`).
		WithArgs(testGuardID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, _, err := agg.Submit(context.Background(), SubmitInput{
		GuardID:  testGuardID,
		UserID:   testUserID,
		Criteria: fullCriteria(8),
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarize(t *testing.T) {
	mk := func(overall int) domain.Rating {
		return domain.Rating{Criteria: fullCriteria(overall)}
	}

	tests := []struct {
		name      string
		ratings   []domain.Rating
		wantAvg   float64
		wantCount int64
	}{
		{"empty", nil, 0, 0},
		{"single", []domain.Rating{mk(8)}, 8.0, 1},
		{"two users", []domain.Rating{mk(8), mk(4)}, 6.0, 2},
		{"after update", []domain.Rating{mk(10), mk(4)}, 7.0, 2},
		{"non-integer mean", []domain.Rating{mk(10), mk(9), mk(9)}, 28.0 / 3.0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.ratings)
			assert.InDelta(t, tt.wantAvg, got.AverageRating, 1e-9)
			assert.Equal(t, tt.wantCount, got.TotalRatings)
		})
	}
}
