package worker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/advault/keyword-inventory/internal/jobqueue"
	"github.com/advault/keyword-inventory/internal/keyword"
	"github.com/advault/keyword-inventory/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFinder struct {
	keywords []keyword.Keyword
	filter   keyword.Filter
}

func (f *fakeFinder) Find(_ context.Context, filter keyword.Filter) ([]keyword.Keyword, error) {
	f.filter = filter
	return f.keywords, nil
}

func exportJob(t *testing.T, payload jobqueue.ExportPayload) *jobqueue.Job {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	return &jobqueue.Job{
		ID:      "job-9",
		Lane:    jobqueue.LaneExport,
		Payload: body,
		Attempt: 1,
	}
}

func exportKeywords() []keyword.Keyword {
	return []keyword.Keyword{
		{
			ID:             "id-1",
			Text:           "Running Shoes",
			NormalizedText: "running shoes",
			BrandID:        "b1",
			MatchType:      keyword.MatchExact,
			KeywordType:    keyword.TypePositive,
			Intent:         keyword.IntentConversion,
			SuggestedBid:   decimal.NewNullDecimal(decimal.RequireFromString("1.25")),
			Status:         keyword.StatusActive,
			Tags:           []string{"shoes", "running"},
			CreatedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:             "id-2",
			Text:           "cheap boots",
			NormalizedText: "cheap boots",
			BrandID:        "b1",
			MatchType:      keyword.MatchBroad,
			KeywordType:    keyword.TypeNegative,
			Intent:         keyword.IntentUnknown,
			Status:         keyword.StatusActive,
			CreatedAt:      time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
		},
	}
}

func newExportProcessor(finder *fakeFinder, dir string) *ExportProcessor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExportProcessor(finder, dir, "http://localhost:8080/exports", metrics.New(prometheus.NewRegistry()), logger)
}

func TestExportProcessorHandle(t *testing.T) {
	t.Run("writes csv artifact", func(t *testing.T) {
		dir := t.TempDir()
		finder := &fakeFinder{keywords: exportKeywords()}
		processor := newExportProcessor(finder, dir)

		result, err := processor.Handle(context.Background(), exportJob(t, jobqueue.ExportPayload{
			Format:  "csv",
			BrandID: "b1",
		}))
		require.NoError(t, err)

		var summary exportResult
		require.NoError(t, json.Unmarshal(result, &summary))
		assert.Equal(t, 2, summary.Rows)
		assert.Equal(t, "csv", summary.Format)
		assert.Equal(t, "keywords-job-9.csv", summary.Filename)
		assert.Equal(t, "http://localhost:8080/exports/keywords-job-9.csv", summary.DownloadURL)

		// The filter from the payload reaches the store.
		assert.Equal(t, "b1", finder.filter.BrandID)

		file, err := os.Open(filepath.Join(dir, summary.Filename))
		require.NoError(t, err)
		defer file.Close()

		records, err := csv.NewReader(file).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, "id", records[0][0])
		assert.Equal(t, "id-1", records[1][0])
		assert.Equal(t, "Running Shoes", records[1][1])
		assert.Equal(t, "1.25", records[1][7])
		assert.Equal(t, "shoes|running", records[1][9])
		assert.Equal(t, "id-2", records[2][0])
		assert.Equal(t, "", records[2][7])
	})

	t.Run("writes json artifact", func(t *testing.T) {
		dir := t.TempDir()
		finder := &fakeFinder{keywords: exportKeywords()}
		processor := newExportProcessor(finder, dir)

		result, err := processor.Handle(context.Background(), exportJob(t, jobqueue.ExportPayload{Format: "json"}))
		require.NoError(t, err)

		var summary exportResult
		require.NoError(t, json.Unmarshal(result, &summary))
		assert.Equal(t, "keywords-job-9.json", summary.Filename)

		data, err := os.ReadFile(filepath.Join(dir, summary.Filename))
		require.NoError(t, err)

		var exported []keyword.Keyword
		require.NoError(t, json.Unmarshal(data, &exported))
		require.Len(t, exported, 2)
		assert.Equal(t, "id-1", exported[0].ID)
		assert.Equal(t, "running shoes", exported[0].NormalizedText)
	})

	t.Run("empty corpus still produces an artifact", func(t *testing.T) {
		dir := t.TempDir()
		finder := &fakeFinder{}
		processor := newExportProcessor(finder, dir)

		result, err := processor.Handle(context.Background(), exportJob(t, jobqueue.ExportPayload{Format: "csv"}))
		require.NoError(t, err)

		var summary exportResult
		require.NoError(t, json.Unmarshal(result, &summary))
		assert.Zero(t, summary.Rows)

		file, err := os.Open(filepath.Join(dir, summary.Filename))
		require.NoError(t, err)
		defer file.Close()

		records, err := csv.NewReader(file).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 1) // header only
	})

	t.Run("unknown format is rejected", func(t *testing.T) {
		processor := newExportProcessor(&fakeFinder{}, t.TempDir())

		_, err := processor.Handle(context.Background(), exportJob(t, jobqueue.ExportPayload{Format: "xml"}))
		assert.ErrorIs(t, err, jobqueue.ErrInvalidPayload)
	})

	t.Run("malformed payload is rejected", func(t *testing.T) {
		processor := newExportProcessor(&fakeFinder{}, t.TempDir())

		_, err := processor.Handle(context.Background(), &jobqueue.Job{
			ID:      "job-9",
			Payload: json.RawMessage(`{not json`),
		})
		assert.ErrorIs(t, err, jobqueue.ErrInvalidPayload)
	})
}
