package imports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when an import record id does not exist.
var ErrNotFound = errors.New("import record not found")

// Storage handles all database operations on import records.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Create persists a new import record in the pending state.
func (s *Storage) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Status = StatusPending
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := `
		INSERT INTO imports (
			id, filename, brand_id, status, total_rows, processed_rows,
			successful_rows, failed_rows, error_message, metadata,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, 0, 0,
			0, 0, '', $5,
			$6, $7
		)
	`

	metadata := rec.Metadata
	if metadata == nil {
		metadata = json.RawMessage(`{}`)
	}

	_, err := s.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.Filename,
		rec.BrandID,
		rec.Status,
		[]byte(metadata),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create import record: %w", err)
	}

	return nil
}

// Get returns a single import record by id.
func (s *Storage) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, filename, brand_id, status, total_rows, processed_rows,
		       successful_rows, failed_rows, error_message, metadata,
		       created_at, updated_at
		FROM imports
		WHERE id = $1
	`

	var rec Record
	if err := s.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get import record: %w", err)
	}

	return &rec, nil
}

// SetStatus transitions the record and optionally records an error message.
func (s *Storage) SetStatus(ctx context.Context, id string, status Status, errorMessage string) error {
	query := `
		UPDATE imports
		SET status = $1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetTotalRows records the row count of the source file once known.
func (s *Storage) SetTotalRows(ctx context.Context, id string, total int) error {
	query := `UPDATE imports SET total_rows = $1, updated_at = NOW() WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, total, id); err != nil {
		return fmt.Errorf("failed to update import total rows: %w", err)
	}

	return nil
}

// AddProgress increments the row counters. Counters are additive so they
// stay monotonic even across a retried attempt picking up after a partial
// run.
func (s *Storage) AddProgress(ctx context.Context, id string, processed, successful, failed int) error {
	query := `
		UPDATE imports
		SET processed_rows = processed_rows + $1,
		    successful_rows = successful_rows + $2,
		    failed_rows = failed_rows + $3,
		    updated_at = NOW()
		WHERE id = $4
	`

	if _, err := s.db.ExecContext(ctx, query, processed, successful, failed, id); err != nil {
		return fmt.Errorf("failed to update import progress: %w", err)
	}

	return nil
}

// SetMetadata replaces the free-form metadata document on the record.
func (s *Storage) SetMetadata(ctx context.Context, id string, metadata interface{}) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal import metadata: %w", err)
	}

	query := `UPDATE imports SET metadata = $1, updated_at = NOW() WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, data, id); err != nil {
		return fmt.Errorf("failed to update import metadata: %w", err)
	}

	return nil
}
