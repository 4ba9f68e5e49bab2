package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/advault/keyword-inventory/internal/api/dto"
	"github.com/advault/keyword-inventory/internal/imports"
	"github.com/advault/keyword-inventory/internal/jobqueue"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateImport handles POST /api/v1/imports
// Registers an import record and enqueues a job on the import lane
func (h *ImportHandler) CreateImport(c *gin.Context) {
	var req dto.CreateImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	rec := imports.Record{
		Filename: filepath.Base(req.FilePath),
		BrandID:  req.BrandID,
	}

	if err := h.imports.Create(c.Request.Context(), &rec); err != nil {
		h.logger.Error("Failed to create import record", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create import",
		})
		return
	}

	payload := jobqueue.ImportPayload{
		ImportID: rec.ID,
		FilePath: req.FilePath,
		BrandID:  req.BrandID,
	}

	jobID, err := h.producer.Enqueue(c.Request.Context(), jobqueue.LaneImport, payload, h.policy)
	if err != nil {
		h.logger.Error("Failed to enqueue import job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue import job",
		})
		return
	}

	h.logger.Info("Import submitted",
		slog.String("import_id", rec.ID),
		slog.String("job_id", jobID),
		slog.String("filename", rec.Filename),
	)

	c.JSON(http.StatusAccepted, gin.H{
		"import_id": rec.ID,
		"job_id":    jobID,
		"status":    rec.Status,
	})
}

// GetImport handles GET /api/v1/imports/:import_id
// Returns the import record with its progress counters
func (h *ImportHandler) GetImport(c *gin.Context) {
	importID := c.Param("import_id")

	if _, err := uuid.Parse(importID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "import_id must be a valid UUID",
		})
		return
	}

	rec, err := h.imports.Get(c.Request.Context(), importID)
	if err != nil {
		if errors.Is(err, imports.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Import not found",
			})
			return
		}
		h.logger.Error("Failed to get import record", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get import",
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}
