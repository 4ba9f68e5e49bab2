package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/advault/keyword-inventory/internal/api/dto"
	"github.com/advault/keyword-inventory/internal/dedupe"
	"github.com/advault/keyword-inventory/internal/keyword"
	"github.com/gin-gonic/gin"
)

// FindExactDuplicates handles GET /api/v1/dedupe/exact
// Groups keywords sharing (normalized_text, brand_id, keyword_type, match_type)
func (h *DedupeHandler) FindExactDuplicates(c *gin.Context) {
	brandID := c.Query("brand_id")

	groups, err := h.detector.FindExactDuplicates(c.Request.Context(), brandID)
	if err != nil {
		h.logger.Error("Failed to find exact duplicates", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to find exact duplicates",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"count":  len(groups),
	})
}

// FindFuzzyDuplicates handles GET /api/v1/dedupe/fuzzy
// Reports keyword pairs with similarity in [threshold, 1.0)
func (h *DedupeHandler) FindFuzzyDuplicates(c *gin.Context) {
	var req dto.FuzzyScanRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	threshold := req.Threshold
	if threshold == 0 {
		threshold = h.threshold
	}
	if threshold < 0 || threshold > 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "threshold must be between 0 and 1",
		})
		return
	}

	pairs, err := h.detector.FindFuzzyDuplicates(c.Request.Context(), req.BrandID, threshold)
	if err != nil {
		h.logger.Error("Failed to find fuzzy duplicates", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to find fuzzy duplicates",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pairs":     pairs,
		"count":     len(pairs),
		"threshold": threshold,
	})
}

// FindConflicts handles GET /api/v1/dedupe/conflicts
// Reports terms flagged both positive and negative within the same scope
func (h *DedupeHandler) FindConflicts(c *gin.Context) {
	brandID := c.Query("brand_id")

	conflicts, err := h.detector.FindConflicts(c.Request.Context(), brandID)
	if err != nil {
		h.logger.Error("Failed to find conflicts", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to find conflicts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conflicts": conflicts,
		"count":     len(conflicts),
	})
}

// MergeDuplicates handles POST /api/v1/dedupe/merge
// Deletes the listed duplicates while keeping one surviving keyword
func (h *DedupeHandler) MergeDuplicates(c *gin.Context) {
	var req dto.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if _, err := h.storage.Get(c.Request.Context(), req.KeepID); err != nil {
		if errors.Is(err, keyword.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Keyword to keep not found",
			})
			return
		}
		h.logger.Error("Failed to get keyword", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to merge duplicates",
		})
		return
	}

	result, err := dedupe.Merge(c.Request.Context(), h.storage, req.KeepID, req.DeleteIDs)
	if err != nil {
		h.logger.Error("Failed to merge duplicates", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to merge duplicates",
		})
		return
	}

	h.logger.Info("Duplicates merged",
		slog.String("kept", result.Kept),
		slog.Int64("deleted", result.DeletedCount),
	)

	c.JSON(http.StatusOK, result)
}
