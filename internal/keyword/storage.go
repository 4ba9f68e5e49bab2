package keyword

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a keyword id does not exist.
var ErrNotFound = errors.New("keyword not found")

const keywordColumns = `
	id, text, normalized_text, brand_id, match_type, keyword_type,
	intent, suggested_bid, status, tags, notes, owner, source, created_at
`

// Storage handles all database operations on keywords.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Cursor identifies a position in the created_at DESC, id DESC ordering
// used by paginated listings.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Find returns all keywords matching the filter, newest first.
func (s *Storage) Find(ctx context.Context, filter Filter) ([]Keyword, error) {
	query := `SELECT ` + keywordColumns + ` FROM keywords WHERE 1=1`
	query, args := applyFilter(query, nil, filter)
	query += " ORDER BY created_at DESC, id DESC"

	var keywords []Keyword
	if err := s.db.SelectContext(ctx, &keywords, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find keywords: %w", err)
	}

	return keywords, nil
}

// FindPage returns one page of keywords matching the filter. It fetches one
// row beyond pageSize so callers can tell whether more results exist.
func (s *Storage) FindPage(ctx context.Context, filter Filter, pageSize int, cursor *Cursor) ([]Keyword, error) {
	query := `SELECT ` + keywordColumns + ` FROM keywords WHERE 1=1`
	query, args := applyFilter(query, nil, filter)

	argIdx := len(args) + 1
	if cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, cursor.CreatedAt, cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, pageSize+1)

	var keywords []Keyword
	if err := s.db.SelectContext(ctx, &keywords, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}

	return keywords, nil
}

func applyFilter(query string, args []interface{}, filter Filter) (string, []interface{}) {
	argIdx := len(args) + 1

	if filter.BrandID != "" {
		query += fmt.Sprintf(" AND brand_id = $%d", argIdx)
		args = append(args, filter.BrandID)
		argIdx++
	}

	if filter.KeywordType != "" {
		query += fmt.Sprintf(" AND keyword_type = $%d", argIdx)
		args = append(args, filter.KeywordType)
		argIdx++
	}

	if filter.MatchType != "" {
		query += fmt.Sprintf(" AND match_type = $%d", argIdx)
		args = append(args, filter.MatchType)
		argIdx++
	}

	if filter.Intent != "" {
		query += fmt.Sprintf(" AND intent = $%d", argIdx)
		args = append(args, filter.Intent)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Search != "" {
		query += fmt.Sprintf(" AND normalized_text LIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, filter.Search)
	}

	return query, args
}

// Get returns a single keyword by id.
func (s *Storage) Get(ctx context.Context, id string) (*Keyword, error) {
	query := `SELECT ` + keywordColumns + ` FROM keywords WHERE id = $1`

	var kw Keyword
	if err := s.db.GetContext(ctx, &kw, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get keyword: %w", err)
	}

	return &kw, nil
}

// Insert persists a new keyword. The id and creation timestamp are assigned
// here when unset; NormalizedText must already be computed by the caller.
func (s *Storage) Insert(ctx context.Context, kw *Keyword) error {
	if kw.ID == "" {
		kw.ID = uuid.New().String()
	}
	if kw.CreatedAt.IsZero() {
		kw.CreatedAt = time.Now().UTC()
	}
	if kw.Tags == nil {
		kw.Tags = pq.StringArray{}
	}

	query := `
		INSERT INTO keywords (
			id, text, normalized_text, brand_id, match_type, keyword_type,
			intent, suggested_bid, status, tags, notes, owner, source, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		kw.ID,
		kw.Text,
		kw.NormalizedText,
		kw.BrandID,
		kw.MatchType,
		kw.KeywordType,
		kw.Intent,
		kw.SuggestedBid,
		kw.Status,
		kw.Tags,
		kw.Notes,
		kw.Owner,
		kw.Source,
		kw.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert keyword: %w", err)
	}

	return nil
}

// Update rewrites the mutable fields of an existing keyword.
func (s *Storage) Update(ctx context.Context, kw *Keyword) error {
	query := `
		UPDATE keywords
		SET text = $1,
		    normalized_text = $2,
		    brand_id = $3,
		    match_type = $4,
		    keyword_type = $5,
		    intent = $6,
		    suggested_bid = $7,
		    status = $8,
		    tags = $9,
		    notes = $10,
		    owner = $11,
		    source = $12
		WHERE id = $13
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		kw.Text,
		kw.NormalizedText,
		kw.BrandID,
		kw.MatchType,
		kw.KeywordType,
		kw.Intent,
		kw.SuggestedBid,
		kw.Status,
		kw.Tags,
		kw.Notes,
		kw.Owner,
		kw.Source,
		kw.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update keyword: %w", err)
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

// Delete removes a single keyword.
func (s *Storage) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
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

// DeleteMany removes every keyword whose id is in ids and returns the number
// of rows actually removed. The single statement keeps the removal
// all-or-nothing.
func (s *Storage) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete keywords: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// Stats summarizes the corpus, optionally scoped to one brand.
type Stats struct {
	Total         int `db:"total" json:"total"`
	Positive      int `db:"positive" json:"positive"`
	Negative      int `db:"negative" json:"negative"`
	Exact         int `db:"exact" json:"exact"`
	Phrase        int `db:"phrase" json:"phrase"`
	Broad         int `db:"broad" json:"broad"`
	Awareness     int `db:"awareness" json:"awareness"`
	Consideration int `db:"consideration" json:"consideration"`
	Conversion    int `db:"conversion" json:"conversion"`
	Unknown       int `db:"unknown" json:"unknown"`
}

func (s *Storage) GetStats(ctx context.Context, brandID string) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE keyword_type = 'positive') AS positive,
			COUNT(*) FILTER (WHERE keyword_type = 'negative') AS negative,
			COUNT(*) FILTER (WHERE match_type = 'exact') AS exact,
			COUNT(*) FILTER (WHERE match_type = 'phrase') AS phrase,
			COUNT(*) FILTER (WHERE match_type = 'broad') AS broad,
			COUNT(*) FILTER (WHERE intent = 'awareness') AS awareness,
			COUNT(*) FILTER (WHERE intent = 'consideration') AS consideration,
			COUNT(*) FILTER (WHERE intent = 'conversion') AS conversion,
			COUNT(*) FILTER (WHERE intent = 'unknown') AS unknown
		FROM keywords
		WHERE ($1 = '' OR brand_id = $1)
	`

	var stats Stats
	if err := s.db.GetContext(ctx, &stats, query, brandID); err != nil {
		return nil, fmt.Errorf("failed to get keyword stats: %w", err)
	}

	return &stats, nil
}
