package worker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/advault/keyword-inventory/internal/dedupe"
	"github.com/advault/keyword-inventory/internal/imports"
	"github.com/advault/keyword-inventory/internal/jobqueue"
	"github.com/advault/keyword-inventory/internal/keyword"
	"github.com/advault/keyword-inventory/internal/metrics"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// maxRowErrors caps how many per-row error notes land in the import metadata.
const maxRowErrors = 20

// KeywordStore is the keyword storage surface the import processor needs.
type KeywordStore interface {
	Find(ctx context.Context, filter keyword.Filter) ([]keyword.Keyword, error)
	Insert(ctx context.Context, kw *keyword.Keyword) error
}

// ImportTracker is the import-record surface the import processor needs.
type ImportTracker interface {
	SetStatus(ctx context.Context, id string, status imports.Status, errorMessage string) error
	SetTotalRows(ctx context.Context, id string, total int) error
	AddProgress(ctx context.Context, id string, processed, successful, failed int) error
	SetMetadata(ctx context.Context, id string, metadata interface{}) error
}

// ImportProcessor ingests keyword CSV files. Rows whose exact-duplicate key
// already exists are rejected; rows that create a positive/negative conflict
// are inserted and reported in the import metadata for later review.
type ImportProcessor struct {
	keywords KeywordStore
	imports  ImportTracker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewImportProcessor(keywords KeywordStore, tracker ImportTracker, m *metrics.Metrics, logger *slog.Logger) *ImportProcessor {
	return &ImportProcessor{
		keywords: keywords,
		imports:  tracker,
		metrics:  m,
		logger:   logger,
	}
}

// importMetadata is the review document stored on the import record.
type importMetadata struct {
	Duplicates int      `json:"duplicates"`
	Conflicts  []string `json:"conflicts,omitempty"`
	RowErrors  []string `json:"row_errors,omitempty"`
}

// importResult is the job result payload.
type importResult struct {
	ImportID       string `json:"import_id"`
	TotalRows      int    `json:"total_rows"`
	SuccessfulRows int    `json:"successful_rows"`
	FailedRows     int    `json:"failed_rows"`
	Conflicts      int    `json:"conflicts"`
}

// Handle executes one import attempt. Progress counters on the record are
// additive, so a retried attempt resumes counting rather than resetting.
func (p *ImportProcessor) Handle(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
	var payload jobqueue.ImportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", jobqueue.ErrInvalidPayload, err)
	}

	p.logger.Info("Import started",
		slog.String("import_id", payload.ImportID),
		slog.String("file_path", payload.FilePath),
		slog.Int("attempt", job.Attempt),
	)

	if err := p.imports.SetStatus(ctx, payload.ImportID, imports.StatusProcessing, ""); err != nil {
		return nil, err
	}

	file, err := os.Open(payload.FilePath)
	if err != nil {
		return nil, p.fail(ctx, payload.ImportID, fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, p.fail(ctx, payload.ImportID, fmt.Errorf("failed to read header row: %w", err))
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["text"]; !ok {
		return nil, p.fail(ctx, payload.ImportID, fmt.Errorf("import file has no text column"))
	}

	seen, conflictIndex, err := p.loadExisting(ctx, payload.BrandID)
	if err != nil {
		return nil, err
	}

	var (
		total      int
		successful int
		failed     int
		meta       importMetadata
	)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, p.fail(ctx, payload.ImportID, fmt.Errorf("failed to read row %d: %w", total+1, err))
		}

		total++
		kw, rowErr := p.parseRow(columns, row, payload.BrandID)
		if rowErr != nil {
			failed++
			p.metrics.ImportRows.WithLabelValues(metrics.RowInvalid).Inc()
			meta.addRowError(fmt.Sprintf("row %d: %s", total, rowErr))
			p.progress(ctx, payload.ImportID, 0, 1)
			continue
		}

		key := kw.DuplicateKey()
		if seen[key] {
			failed++
			meta.Duplicates++
			p.metrics.ImportRows.WithLabelValues(metrics.RowDuplicate).Inc()
			meta.addRowError(fmt.Sprintf("row %d: duplicate of %q", total, kw.NormalizedText))
			p.progress(ctx, payload.ImportID, 0, 1)
			continue
		}

		// A positive/negative clash is still ingested; it surfaces through
		// the conflict scan and the import metadata.
		if conflictIndex[opposingKey(key)] {
			meta.Conflicts = append(meta.Conflicts,
				fmt.Sprintf("row %d: %q conflicts with existing %s keyword", total, kw.NormalizedText, opposite(kw.KeywordType)))
		}

		if err := p.keywords.Insert(ctx, kw); err != nil {
			failed++
			p.metrics.ImportRows.WithLabelValues(metrics.RowInvalid).Inc()
			meta.addRowError(fmt.Sprintf("row %d: insert failed: %s", total, err))
			p.progress(ctx, payload.ImportID, 0, 1)
			continue
		}

		seen[key] = true
		conflictIndex[key] = true
		successful++
		p.metrics.ImportRows.WithLabelValues(metrics.RowInserted).Inc()
		p.progress(ctx, payload.ImportID, 1, 0)
	}

	if err := p.imports.SetTotalRows(ctx, payload.ImportID, total); err != nil {
		p.logger.Error("Failed to record import total", slog.String("error", err.Error()))
	}
	if err := p.imports.SetMetadata(ctx, payload.ImportID, meta); err != nil {
		p.logger.Error("Failed to record import metadata", slog.String("error", err.Error()))
	}
	if err := p.imports.SetStatus(ctx, payload.ImportID, imports.StatusCompleted, ""); err != nil {
		return nil, err
	}

	p.logger.Info("Import finished",
		slog.String("import_id", payload.ImportID),
		slog.Int("total_rows", total),
		slog.Int("successful_rows", successful),
		slog.Int("failed_rows", failed),
		slog.Int("conflicts", len(meta.Conflicts)),
	)

	result, err := json.Marshal(importResult{
		ImportID:       payload.ImportID,
		TotalRows:      total,
		SuccessfulRows: successful,
		FailedRows:     failed,
		Conflicts:      len(meta.Conflicts),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import result: %w", err)
	}

	return result, nil
}

// loadExisting builds the duplicate and conflict indexes from keywords
// already in the corpus. An empty brandID indexes all brands.
func (p *ImportProcessor) loadExisting(ctx context.Context, brandID string) (map[keyword.DuplicateKey]bool, map[keyword.DuplicateKey]bool, error) {
	existing, err := p.keywords.Find(ctx, keyword.Filter{BrandID: brandID})
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[keyword.DuplicateKey]bool, len(existing))
	conflictIndex := make(map[keyword.DuplicateKey]bool, len(existing))
	for i := range existing {
		key := existing[i].DuplicateKey()
		seen[key] = true
		conflictIndex[key] = true
	}

	return seen, conflictIndex, nil
}

func (p *ImportProcessor) parseRow(columns map[string]int, row []string, defaultBrand string) (*keyword.Keyword, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	text := field("text")
	if text == "" {
		return nil, fmt.Errorf("text is empty")
	}

	normalized := dedupe.Normalize(text)
	if normalized == "" {
		return nil, fmt.Errorf("text has no usable characters")
	}

	kw := &keyword.Keyword{
		Text:           text,
		NormalizedText: normalized,
		BrandID:        field("brand_id"),
		MatchType:      keyword.MatchType(field("match_type")),
		KeywordType:    keyword.Type(field("keyword_type")),
		Intent:         keyword.Intent(field("intent")),
		Status:         keyword.StatusActive,
		Notes:          field("notes"),
		Owner:          field("owner"),
		Source:         field("source"),
	}

	if kw.BrandID == "" {
		kw.BrandID = defaultBrand
	}
	if kw.MatchType == "" {
		kw.MatchType = keyword.MatchBroad
	}
	if kw.KeywordType == "" {
		kw.KeywordType = keyword.TypePositive
	}
	if kw.Intent == "" {
		kw.Intent = keyword.IntentUnknown
	}

	if !kw.MatchType.Valid() {
		return nil, fmt.Errorf("invalid match_type %q", kw.MatchType)
	}
	if !kw.KeywordType.Valid() {
		return nil, fmt.Errorf("invalid keyword_type %q", kw.KeywordType)
	}
	if !kw.Intent.Valid() {
		return nil, fmt.Errorf("invalid intent %q", kw.Intent)
	}

	if bid := field("suggested_bid"); bid != "" {
		value, err := decimal.NewFromString(bid)
		if err != nil {
			return nil, fmt.Errorf("invalid suggested_bid %q", bid)
		}
		if value.IsNegative() {
			return nil, fmt.Errorf("suggested_bid %q must not be negative", bid)
		}
		kw.SuggestedBid = decimal.NewNullDecimal(value)
	}

	if tags := field("tags"); tags != "" {
		kw.Tags = pq.StringArray(strings.Split(tags, "|"))
	}

	return kw, nil
}

// progress records one processed row; counter updates are best-effort.
func (p *ImportProcessor) progress(ctx context.Context, importID string, successful, failed int) {
	if err := p.imports.AddProgress(ctx, importID, 1, successful, failed); err != nil {
		p.logger.Error("Failed to record import progress",
			slog.String("import_id", importID),
			slog.String("error", err.Error()),
		)
	}
}

// fail marks the record failed without touching its counters and passes the
// error back to consume the attempt.
func (p *ImportProcessor) fail(ctx context.Context, importID string, cause error) error {
	if err := p.imports.SetStatus(ctx, importID, imports.StatusFailed, cause.Error()); err != nil {
		p.logger.Error("Failed to record import failure",
			slog.String("import_id", importID),
			slog.String("error", err.Error()),
		)
	}
	return cause
}

func (m *importMetadata) addRowError(msg string) {
	if len(m.RowErrors) < maxRowErrors {
		m.RowErrors = append(m.RowErrors, msg)
	}
}

// opposingKey flips the keyword type of a duplicate key, yielding the key a
// conflicting keyword would occupy.
func opposingKey(key keyword.DuplicateKey) keyword.DuplicateKey {
	key.KeywordType = opposite(key.KeywordType)
	return key
}

func opposite(t keyword.Type) keyword.Type {
	if t == keyword.TypePositive {
		return keyword.TypeNegative
	}
	return keyword.TypePositive
}
