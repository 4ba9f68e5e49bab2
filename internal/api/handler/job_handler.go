package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/advault/keyword-inventory/internal/jobqueue"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetJob handles GET /api/v1/jobs/:job_id
// Retrieves the current state, attempts and result of a job
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	status, err := h.producer.Status(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobqueue.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
// Cancels a job that is still waiting; claimed or finished jobs are refused
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	if err := h.producer.Cancel(c.Request.Context(), jobID); err != nil {
		switch {
		case errors.Is(err, jobqueue.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
		case errors.Is(err, jobqueue.ErrJobNotCancelable):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Job is already running or finished",
			})
		default:
			h.logger.Error("Failed to cancel job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to cancel job",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"state":  jobqueue.StateCanceled,
	})
}
