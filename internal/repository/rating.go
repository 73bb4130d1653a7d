package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dario/internal/model"

	"github.com/jmoiron/sqlx"
)

// UpsertRating creates or overwrites the rater's score and returns the
// recomputed listing average. The listing row is locked for the duration of
// the transaction so concurrent raters serialize on the average update.
func (r *PostgresRepository) UpsertRating(ctx context.Context, listingID, raterID string, score int) (float64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockListing(ctx, tx, listingID); err != nil {
		return 0, err
	}

	const upsert = `
		INSERT INTO evaluations (listing_id, rater_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, rater_id)
		DO UPDATE SET score = EXCLUDED.score, updated_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, upsert, listingID, raterID, score); err != nil {
		// the listing is locked above, so only the rater reference can be missing
		if isForeignKeyViolation(err) {
			return 0, ErrRaterNotFound
		}
		return 0, fmt.Errorf("failed to upsert rating: %w", err)
	}

	avg, err := recalcAverage(ctx, tx, listingID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rating: %w", err)
	}
	return avg, nil
}

// DeleteRating removes the rater's score and returns the recomputed average.
// ErrRatingNotFound leaves the stored average untouched.
func (r *PostgresRepository) DeleteRating(ctx context.Context, listingID, raterID string) (float64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockListing(ctx, tx, listingID); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM evaluations WHERE listing_id = $1 AND rater_id = $2`, listingID, raterID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rating: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete rating: %w", err)
	}
	if n == 0 {
		return 0, ErrRatingNotFound
	}

	avg, err := recalcAverage(ctx, tx, listingID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rating removal: %w", err)
	}
	return avg, nil
}

// ListRatings returns every rating of a listing with the rater's public profile
func (r *PostgresRepository) ListRatings(ctx context.Context, listingID string) ([]model.Rating, error) {
	const query = `
		SELECT e.listing_id, e.rater_id, e.score, e.created_at, e.updated_at,
			u.id AS "rater.id", u.name AS "rater.name", u.avatar_url AS "rater.avatar_url"
		FROM evaluations e
		JOIN users u ON u.id = e.rater_id
		WHERE e.listing_id = $1
		ORDER BY e.updated_at DESC
	`
	ratings := []model.Rating{}
	if err := r.db.SelectContext(ctx, &ratings, query, listingID); err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return ratings, nil
}

// GetRating returns one rater's rating for a listing, or nil
func (r *PostgresRepository) GetRating(ctx context.Context, listingID, raterID string) (*model.Rating, error) {
	const query = `
		SELECT e.listing_id, e.rater_id, e.score, e.created_at, e.updated_at,
			u.id AS "rater.id", u.name AS "rater.name", u.avatar_url AS "rater.avatar_url"
		FROM evaluations e
		JOIN users u ON u.id = e.rater_id
		WHERE e.listing_id = $1 AND e.rater_id = $2
	`
	var rating model.Rating
	if err := r.db.GetContext(ctx, &rating, query, listingID, raterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return &rating, nil
}

func lockListing(ctx context.Context, tx *sqlx.Tx, listingID string) error {
	var id string
	err := tx.GetContext(ctx, &id, `SELECT id FROM listings WHERE id = $1 FOR UPDATE`, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrListingNotFound
		}
		return fmt.Errorf("failed to lock listing: %w", err)
	}
	return nil
}

// recalcAverage stores AVG(score) on the listing, 0 when no rating is left
func recalcAverage(ctx context.Context, tx *sqlx.Tx, listingID string) (float64, error) {
	const query = `
		UPDATE listings
		SET average_rating = COALESCE(
			(SELECT AVG(score) FROM evaluations WHERE listing_id = $1), 0)
		WHERE id = $1
		RETURNING average_rating
	`
	var avg float64
	if err := tx.GetContext(ctx, &avg, query, listingID); err != nil {
		return 0, fmt.Errorf("failed to recalculate average: %w", err)
	}
	return avg, nil
}
