package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cattlegrid/cattlegrid/internal/domain"
)

// GuardsRepository provides persistence helpers for cattle-guard entities.
type GuardsRepository struct {
	db DB
}

const guardColumns = `
    id,
    name,
    description,
    latitude,
    longitude,
    locality,
    average_rating,
    total_ratings,
    created_by,
    created_at,
    updated_at
`

// GuardCreateParams bundles the fields required to create a guard.
type GuardCreateParams struct {
	Name        string
	Description *string
	Latitude    float64
	Longitude   float64
	CreatedBy   string
}

// Guard list sort orders. Cursors are only valid for the sort they were
// issued under.
const (
	SortNewest = "newest"
	SortRating = "rating"
	SortName   = "name"
)

// GuardListFilters encapsulates search and pagination options.
type GuardListFilters struct {
	Query     *string
	MinRating *float64
	Sort      string
	Limit     int
	Cursor    *GuardCursor
}

// GuardCursor allows stable keyset pagination. Which fields are set depends
// on the sort order the cursor was issued under.
type GuardCursor struct {
	Sort      string    `json:"sort"`
	Name      string    `json:"name,omitempty"`
	Rating    float64   `json:"rating,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// GuardListResult returns the paginated payload.
type GuardListResult struct {
	Items      []domain.Guard
	NextCursor *string
}

// Create inserts a new guard unless another guard already sits within the
// proximity tolerance box. The containment check and the insert run as one
// statement so two concurrent reports of the same crossing cannot both land.
func (r *GuardsRepository) Create(ctx context.Context, params GuardCreateParams) (domain.Guard, error) {
	query := fmt.Sprintf(`
        INSERT INTO guards (name, description, latitude, longitude, created_by)
        SELECT $1, $2, $3, $4, $5
        WHERE NOT EXISTS (
            SELECT 1 FROM guards
            WHERE latitude BETWEEN $3::double precision - $6::double precision AND $3::double precision + $6::double precision
              AND longitude BETWEEN $4::double precision - $6::double precision AND $4::double precision + $6::double precision
        )
        RETURNING %s
    `, guardColumns)

	row := r.db.QueryRow(ctx, query,
		params.Name,
		params.Description,
		params.Latitude,
		params.Longitude,
		params.CreatedBy,
		domain.ProximityToleranceDegrees,
	)
	guard, err := scanGuard(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Guard{}, ErrDuplicateLocation
		}
		return domain.Guard{}, err
	}
	return guard, nil
}

// GetByID fetches a guard by its identifier.
func (r *GuardsRepository) GetByID(ctx context.Context, id string) (domain.Guard, error) {
	query := fmt.Sprintf(`SELECT %s FROM guards WHERE id = $1`, guardColumns)
	guard, err := scanGuard(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Guard{}, ErrNotFound
		}
		return domain.Guard{}, err
	}
	return guard, nil
}

// Exists reports whether a guard with the given identifier exists.
func (r *GuardsRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM guards WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("guard exists: %w", err)
	}
	return exists, nil
}

// LockTx takes a row lock on the guard within the given transaction,
// serializing concurrent rating submissions against the same guard. Returns
// false when the guard no longer exists.
func (r *GuardsRepository) LockTx(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	const query = `SELECT id FROM guards WHERE id = $1 FOR UPDATE`
	var got string
	if err := tx.QueryRow(ctx, query, id).Scan(&got); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("lock guard: %w", err)
	}
	return true, nil
}

// WriteSummaryTx writes the recomputed aggregate onto the guard row within
// the given transaction.
func (r *GuardsRepository) WriteSummaryTx(ctx context.Context, tx pgx.Tx, id string, averageRating float64, totalRatings int64) error {
	const query = `
        UPDATE guards
        SET average_rating = $2, total_ratings = $3, updated_at = now()
        WHERE id = $1
    `
	tag, err := tx.Exec(ctx, query, id, averageRating, totalRatings)
	if err != nil {
		return fmt.Errorf("write guard summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLocality records the reverse-geocoded place name for a guard.
func (r *GuardsRepository) UpdateLocality(ctx context.Context, id string, locality string) (domain.Guard, error) {
	query := fmt.Sprintf(`
        UPDATE guards
        SET locality = $2, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, guardColumns)

	guard, err := scanGuard(r.db.QueryRow(ctx, query, id, locality))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Guard{}, ErrNotFound
		}
		return domain.Guard{}, err
	}
	return guard, nil
}

// List returns guards that match the provided filters.
func (r *GuardsRepository) List(ctx context.Context, filters GuardListFilters) (GuardListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}
	if filters.Sort == "" {
		filters.Sort = SortNewest
	}
	if filters.Cursor != nil && filters.Cursor.Sort != filters.Sort {
		return GuardListResult{}, fmt.Errorf("cursor was issued for sort %q", filters.Cursor.Sort)
	}

	where := make([]string, 0)
	args := make([]any, 0)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		q := "%" + strings.TrimSpace(*filters.Query) + "%"
		p1 := arg(q)
		p2 := arg(q)
		where = append(where, fmt.Sprintf("(name ILIKE %s OR locality ILIKE %s)", p1, p2))
	}
	if filters.MinRating != nil {
		where = append(where, fmt.Sprintf("average_rating >= %s", arg(*filters.MinRating)))
	}

	var orderBy string
	switch filters.Sort {
	case SortNewest:
		orderBy = "created_at DESC, id DESC"
		if c := filters.Cursor; c != nil {
			where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s::uuid)", arg(c.CreatedAt), arg(c.ID)))
		}
	case SortRating:
		orderBy = "average_rating DESC, created_at DESC, id DESC"
		if c := filters.Cursor; c != nil {
			where = append(where, fmt.Sprintf("(average_rating, created_at, id) < (%s, %s, %s::uuid)",
				arg(c.Rating), arg(c.CreatedAt), arg(c.ID)))
		}
	case SortName:
		orderBy = "name ASC, id ASC"
		if c := filters.Cursor; c != nil {
			where = append(where, fmt.Sprintf("(name, id) > (%s, %s::uuid)", arg(c.Name), arg(c.ID)))
		}
	default:
		return GuardListResult{}, fmt.Errorf("unknown sort %q", filters.Sort)
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(guardColumns)
	queryBuilder.WriteString(" FROM guards")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY ")
	queryBuilder.WriteString(orderBy)
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return GuardListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Guard, 0)
	for rows.Next() {
		guard, err := scanGuard(rows)
		if err != nil {
			return GuardListResult{}, err
		}
		items = append(items, guard)
	}
	if err := rows.Err(); err != nil {
		return GuardListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		cursor := GuardCursor{
			Sort:      filters.Sort,
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		}
		switch filters.Sort {
		case SortRating:
			cursor.Rating = last.AverageRating
		case SortName:
			cursor.Name = last.Name
		}
		token, err := encodeCursor(cursor)
		if err != nil {
			return GuardListResult{}, err
		}
		nextCursor = &token
	}

	return GuardListResult{Items: items, NextCursor: nextCursor}, nil
}

func scanGuard(row pgx.Row) (domain.Guard, error) {
	var guard domain.Guard
	err := row.Scan(
		&guard.ID,
		&guard.Name,
		&guard.Description,
		&guard.Latitude,
		&guard.Longitude,
		&guard.Locality,
		&guard.AverageRating,
		&guard.TotalRatings,
		&guard.CreatedBy,
		&guard.CreatedAt,
		&guard.UpdatedAt,
	)
	if err != nil {
		return domain.Guard{}, err
	}
	return guard, nil
}

func encodeCursor(c GuardCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into a GuardCursor.
func DecodeCursor(token string) (*GuardCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor GuardCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
