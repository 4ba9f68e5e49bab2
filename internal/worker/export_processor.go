package worker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/advault/keyword-inventory/internal/jobqueue"
	"github.com/advault/keyword-inventory/internal/keyword"
	"github.com/advault/keyword-inventory/internal/metrics"
)

// KeywordFinder is the read surface the export processor needs.
type KeywordFinder interface {
	Find(ctx context.Context, filter keyword.Filter) ([]keyword.Keyword, error)
}

// ExportProcessor writes filtered keyword snapshots to the artifact
// directory. The download link lands in the job result.
type ExportProcessor struct {
	keywords KeywordFinder
	dir      string
	baseURL  string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewExportProcessor(keywords KeywordFinder, dir, baseURL string, m *metrics.Metrics, logger *slog.Logger) *ExportProcessor {
	return &ExportProcessor{
		keywords: keywords,
		dir:      dir,
		baseURL:  baseURL,
		metrics:  m,
		logger:   logger,
	}
}

// exportResult is the job result payload.
type exportResult struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	Rows        int    `json:"rows"`
}

// Handle executes one export attempt.
func (p *ExportProcessor) Handle(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
	var payload jobqueue.ExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", jobqueue.ErrInvalidPayload, err)
	}

	if payload.Format != jobqueue.FormatCSV && payload.Format != jobqueue.FormatJSON {
		return nil, fmt.Errorf("%w: unknown export format %q", jobqueue.ErrInvalidPayload, payload.Format)
	}

	filter := keyword.Filter{
		BrandID:     payload.BrandID,
		KeywordType: keyword.Type(payload.KeywordType),
		MatchType:   keyword.MatchType(payload.MatchType),
		Status:      keyword.Status(payload.Status),
	}

	keywords, err := p.keywords.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := fmt.Sprintf("keywords-%s.%s", job.ID, payload.Format)
	path := filepath.Join(p.dir, filename)

	switch payload.Format {
	case jobqueue.FormatCSV:
		err = writeCSV(path, keywords)
	case jobqueue.FormatJSON:
		err = writeJSON(path, keywords)
	}
	if err != nil {
		return nil, err
	}

	p.metrics.Exports.WithLabelValues(payload.Format).Inc()

	p.logger.Info("Export finished",
		slog.String("job_id", job.ID),
		slog.String("format", payload.Format),
		slog.Int("rows", len(keywords)),
		slog.String("path", path),
	)

	result, err := json.Marshal(exportResult{
		DownloadURL: strings.TrimSuffix(p.baseURL, "/") + "/" + filename,
		Filename:    filename,
		Format:      payload.Format,
		Rows:        len(keywords),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export result: %w", err)
	}

	return result, nil
}

func writeCSV(path string, keywords []keyword.Keyword) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"id", "text", "normalized_text", "brand_id", "match_type", "keyword_type",
		"intent", "suggested_bid", "status", "tags", "notes", "owner", "source", "created_at",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for i := range keywords {
		kw := &keywords[i]

		var bid string
		if kw.SuggestedBid.Valid {
			bid = kw.SuggestedBid.Decimal.String()
		}

		record := []string{
			kw.ID,
			kw.Text,
			kw.NormalizedText,
			kw.BrandID,
			string(kw.MatchType),
			string(kw.KeywordType),
			string(kw.Intent),
			bid,
			string(kw.Status),
			strings.Join(kw.Tags, "|"),
			kw.Notes,
			kw.Owner,
			kw.Source,
			kw.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush export file: %w", err)
	}

	return nil
}

func writeJSON(path string, keywords []keyword.Keyword) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(keywords); err != nil {
		return fmt.Errorf("failed to encode export file: %w", err)
	}

	return nil
}
