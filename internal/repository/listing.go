package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dario/internal/model"

	"github.com/pgvector/pgvector-go"
)

// listingColumns selects a listing joined with its owner's public profile
const listingColumns = `
	l.id, l.owner_id, l.title, l.description, l.price, l.address, l.capacity,
	l.elevator, l.images, l.average_rating, l.created_at, l.updated_at,
	u.id AS "owner.id", u.name AS "owner.name", u.avatar_url AS "owner.avatar_url"`

// SearchListings returns listings matching criteria, newest first
func (r *PostgresRepository) SearchListings(
	ctx context.Context,
	criteria model.SearchCriteria,
	limit, offset int,
) ([]model.Listing, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if criteria.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.price >= $%d", argIndex))
		args = append(args, *criteria.MinPrice)
		argIndex++
	}
	if criteria.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.price <= $%d", argIndex))
		args = append(args, *criteria.MaxPrice)
		argIndex++
	}
	if criteria.Address != nil && strings.TrimSpace(*criteria.Address) != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("l.address ILIKE $%d", argIndex))
		args = append(args, containsPattern(strings.TrimSpace(*criteria.Address)))
		argIndex++
	}
	if criteria.MinCapacity != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.capacity >= $%d", argIndex))
		args = append(args, *criteria.MinCapacity)
		argIndex++
	}
	if criteria.HasElevator != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.elevator = $%d", argIndex))
		args = append(args, *criteria.HasElevator)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		WHERE %s
		ORDER BY l.created_at DESC
		LIMIT $%d OFFSET $%d
	`, listingColumns, strings.Join(whereClauses, " AND "), argIndex, argIndex+1)
	args = append(args, limit, offset)

	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	return listings, nil
}

// GetListingByID retrieves a single listing, or nil when it does not exist
func (r *PostgresRepository) GetListingByID(ctx context.Context, id string) (*model.Listing, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		WHERE l.id = $1
	`, listingColumns)

	var listing model.Listing
	if err := r.db.GetContext(ctx, &listing, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// PriceStats is the price aggregate of the listings around a location
type PriceStats struct {
	Average float64 `db:"average"`
	Count   int     `db:"count"`
}

// AveragePriceByAddress averages the price of listings whose address contains location
func (r *PostgresRepository) AveragePriceByAddress(ctx context.Context, location string) (*PriceStats, error) {
	const query = `
		SELECT COALESCE(AVG(price), 0) AS average, COUNT(*) AS count
		FROM listings
		WHERE address ILIKE $1
	`
	var stats PriceStats
	if err := r.db.GetContext(ctx, &stats, query, containsPattern(strings.TrimSpace(location))); err != nil {
		return nil, fmt.Errorf("failed to average prices: %w", err)
	}
	return &stats, nil
}

// BatchUpdateEmbeddings stores embeddings for several listings in one transaction
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to start transaction: %v", err)}
	}
	defer tx.Rollback()

	for _, item := range items {
		res, err := tx.ExecContext(ctx,
			`UPDATE listings SET embedding = $1 WHERE id = $2`,
			pgvector.NewVector(item.Embedding), item.ListingID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("listing %s: %v", item.ListingID, err))
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			errs = append(errs, fmt.Sprintf("listing %s: not found", item.ListingID))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		return 0, append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
	}
	return success, errs
}

// SimilarListings returns the listings closest to id by cosine distance.
// A listing without an embedding has no neighbours.
func (r *PostgresRepository) SimilarListings(ctx context.Context, id string, limit int) ([]model.Listing, error) {
	var embedding pgvector.Vector
	err := r.db.GetContext(ctx, &embedding,
		`SELECT embedding FROM listings WHERE id = $1 AND embedding IS NOT NULL`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []model.Listing{}, nil
		}
		return nil, fmt.Errorf("failed to load embedding: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		WHERE l.id <> $1 AND l.embedding IS NOT NULL
		ORDER BY l.embedding <=> $2
		LIMIT $3
	`, listingColumns)

	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, query, id, embedding, limit); err != nil {
		return nil, fmt.Errorf("failed to find similar listings: %w", err)
	}
	return listings, nil
}
