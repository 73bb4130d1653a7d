package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// pgForeignKeyViolation is the SQLSTATE of a failed foreign key check
const pgForeignKeyViolation = "23503"

var (
	// ErrListingNotFound is returned when a write targets a missing listing
	ErrListingNotFound = errors.New("listing not found")
	// ErrRatingNotFound is returned when deleting a rating that does not exist
	ErrRatingNotFound = errors.New("rating not found")
	// ErrRaterNotFound is returned when the rater has no users row
	ErrRaterNotFound = errors.New("rater not found")
)

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository connects to PostgreSQL and returns a repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewRepository wraps an existing connection
func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// escapeLike escapes LIKE wildcards so user text is matched literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// containsPattern builds an unanchored ILIKE pattern for s
func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation
}
