package handler

import (
	"log/slog"

	"github.com/advault/keyword-inventory/internal/dedupe"
	"github.com/advault/keyword-inventory/internal/imports"
	"github.com/advault/keyword-inventory/internal/jobqueue"
	"github.com/advault/keyword-inventory/internal/keyword"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	Keywords       *keyword.Storage
	Imports        *imports.Storage
	Detector       *dedupe.Detector
	Producer       *jobqueue.Producer
	ImportPolicy   jobqueue.Policy
	ExportPolicy   jobqueue.Policy
	FuzzyThreshold float64
}

// KeywordHandler handles keyword CRUD and stats requests
type KeywordHandler struct {
	logger  *slog.Logger
	storage *keyword.Storage
}

// NewKeywordHandler creates a new KeywordHandler instance
func NewKeywordHandler(deps *Dependencies) *KeywordHandler {
	return &KeywordHandler{
		logger:  deps.Logger,
		storage: deps.Keywords,
	}
}

// DedupeHandler handles duplicate detection and merge requests
type DedupeHandler struct {
	logger    *slog.Logger
	detector  *dedupe.Detector
	storage   *keyword.Storage
	threshold float64
}

// NewDedupeHandler creates a new DedupeHandler instance
func NewDedupeHandler(deps *Dependencies) *DedupeHandler {
	return &DedupeHandler{
		logger:    deps.Logger,
		detector:  deps.Detector,
		storage:   deps.Keywords,
		threshold: deps.FuzzyThreshold,
	}
}

// ImportHandler handles import submission and progress requests
type ImportHandler struct {
	logger   *slog.Logger
	imports  *imports.Storage
	producer *jobqueue.Producer
	policy   jobqueue.Policy
}

// NewImportHandler creates a new ImportHandler instance
func NewImportHandler(deps *Dependencies) *ImportHandler {
	return &ImportHandler{
		logger:   deps.Logger,
		imports:  deps.Imports,
		producer: deps.Producer,
		policy:   deps.ImportPolicy,
	}
}

// ExportHandler handles export submission requests
type ExportHandler struct {
	logger   *slog.Logger
	producer *jobqueue.Producer
	policy   jobqueue.Policy
}

// NewExportHandler creates a new ExportHandler instance
func NewExportHandler(deps *Dependencies) *ExportHandler {
	return &ExportHandler{
		logger:   deps.Logger,
		producer: deps.Producer,
		policy:   deps.ExportPolicy,
	}
}

// JobHandler handles job status and cancellation requests
type JobHandler struct {
	logger   *slog.Logger
	producer *jobqueue.Producer
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:   deps.Logger,
		producer: deps.Producer,
	}
}
