package handler

import (
	"log/slog"
	"net/http"

	"github.com/advault/keyword-inventory/internal/api/dto"
	"github.com/advault/keyword-inventory/internal/jobqueue"
	"github.com/gin-gonic/gin"
)

// CreateExport handles POST /api/v1/exports
// Enqueues a job on the export lane; the artifact link lands in the job result
func (h *ExportHandler) CreateExport(c *gin.Context) {
	var req dto.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.Format == "" {
		req.Format = jobqueue.FormatCSV
	}
	if req.Format != jobqueue.FormatCSV && req.Format != jobqueue.FormatJSON {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "format must be one of: csv, json",
		})
		return
	}

	payload := jobqueue.ExportPayload{
		Format:      req.Format,
		BrandID:     req.BrandID,
		KeywordType: req.KeywordType,
		MatchType:   req.MatchType,
		Status:      req.Status,
	}

	jobID, err := h.producer.Enqueue(c.Request.Context(), jobqueue.LaneExport, payload, h.policy)
	if err != nil {
		h.logger.Error("Failed to enqueue export job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue export job",
		})
		return
	}

	h.logger.Info("Export submitted",
		slog.String("job_id", jobID),
		slog.String("format", req.Format),
	)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"format": req.Format,
	})
}
