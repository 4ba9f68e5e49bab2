package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/advault/keyword-inventory/internal/api/dto"
	"github.com/advault/keyword-inventory/internal/dedupe"
	"github.com/advault/keyword-inventory/internal/keyword"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ListKeywords handles GET /api/v1/keywords
// Lists keywords with optional filtering and cursor pagination
func (h *KeywordHandler) ListKeywords(c *gin.Context) {
	var req dto.ListKeywordsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeKeywordCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := keyword.Filter{
		BrandID:     req.BrandID,
		KeywordType: keyword.Type(req.KeywordType),
		MatchType:   keyword.MatchType(req.MatchType),
		Intent:      keyword.Intent(req.Intent),
		Status:      keyword.Status(req.Status),
		Search:      req.Search,
	}

	keywords, err := h.storage.FindPage(c.Request.Context(), filter, req.PageSize, cursor)
	if err != nil {
		h.logger.Error("Failed to list keywords", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list keywords",
		})
		return
	}

	hasMore := len(keywords) > req.PageSize
	if hasMore {
		keywords = keywords[:req.PageSize]
	}

	var nextCursor string
	if hasMore {
		last := keywords[len(keywords)-1]
		nextCursor = EncodeKeywordCursor(&keyword.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"keywords":    keywords,
		"next_cursor": nextCursor,
	})
}

// CreateKeyword handles POST /api/v1/keywords
// Creates a single keyword with its normalized form derived server-side
func (h *KeywordHandler) CreateKeyword(c *gin.Context) {
	var req dto.CreateKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	kw := keyword.Keyword{
		Text:         req.Text,
		BrandID:      req.BrandID,
		MatchType:    keyword.MatchType(req.MatchType),
		KeywordType:  keyword.Type(req.KeywordType),
		Intent:       keyword.Intent(req.Intent),
		SuggestedBid: req.SuggestedBid,
		Status:       keyword.Status(req.Status),
		Tags:         pq.StringArray(req.Tags),
		Notes:        req.Notes,
		Owner:        req.Owner,
		Source:       req.Source,
	}

	if kw.Intent == "" {
		kw.Intent = keyword.IntentUnknown
	}
	if kw.Status == "" {
		kw.Status = keyword.StatusActive
	}

	if msg := validateKeyword(&kw); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	kw.NormalizedText = dedupe.Normalize(kw.Text)
	if kw.NormalizedText == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "text must contain at least one character",
		})
		return
	}

	if err := h.storage.Insert(c.Request.Context(), &kw); err != nil {
		h.logger.Error("Failed to create keyword", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create keyword",
		})
		return
	}

	h.logger.Info("Keyword created",
		slog.String("keyword_id", kw.ID),
		slog.String("brand_id", kw.BrandID),
	)

	c.JSON(http.StatusCreated, kw)
}

// GetKeyword handles GET /api/v1/keywords/:keyword_id
func (h *KeywordHandler) GetKeyword(c *gin.Context) {
	keywordID := c.Param("keyword_id")

	if _, err := uuid.Parse(keywordID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "keyword_id must be a valid UUID",
		})
		return
	}

	kw, err := h.storage.Get(c.Request.Context(), keywordID)
	if err != nil {
		if errors.Is(err, keyword.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Keyword not found",
			})
			return
		}
		h.logger.Error("Failed to get keyword", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get keyword",
		})
		return
	}

	c.JSON(http.StatusOK, kw)
}

// UpdateKeyword handles PUT /api/v1/keywords/:keyword_id
// Replaces the mutable fields; normalized text is recomputed from the new text
func (h *KeywordHandler) UpdateKeyword(c *gin.Context) {
	keywordID := c.Param("keyword_id")

	if _, err := uuid.Parse(keywordID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "keyword_id must be a valid UUID",
		})
		return
	}

	var req dto.UpdateKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	existing, err := h.storage.Get(c.Request.Context(), keywordID)
	if err != nil {
		if errors.Is(err, keyword.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Keyword not found",
			})
			return
		}
		h.logger.Error("Failed to get keyword", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get keyword",
		})
		return
	}

	kw := *existing
	kw.Text = req.Text
	kw.BrandID = req.BrandID
	kw.MatchType = keyword.MatchType(req.MatchType)
	kw.KeywordType = keyword.Type(req.KeywordType)
	kw.Intent = keyword.Intent(req.Intent)
	kw.SuggestedBid = req.SuggestedBid
	kw.Status = keyword.Status(req.Status)
	kw.Tags = pq.StringArray(req.Tags)
	kw.Notes = req.Notes
	kw.Owner = req.Owner
	kw.Source = req.Source

	if kw.Intent == "" {
		kw.Intent = keyword.IntentUnknown
	}
	if kw.Status == "" {
		kw.Status = keyword.StatusActive
	}

	if msg := validateKeyword(&kw); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	kw.NormalizedText = dedupe.Normalize(kw.Text)
	if kw.NormalizedText == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "text must contain at least one character",
		})
		return
	}

	if err := h.storage.Update(c.Request.Context(), &kw); err != nil {
		if errors.Is(err, keyword.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Keyword not found",
			})
			return
		}
		h.logger.Error("Failed to update keyword", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update keyword",
		})
		return
	}

	c.JSON(http.StatusOK, kw)
}

// DeleteKeyword handles DELETE /api/v1/keywords/:keyword_id
func (h *KeywordHandler) DeleteKeyword(c *gin.Context) {
	keywordID := c.Param("keyword_id")

	if _, err := uuid.Parse(keywordID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "keyword_id must be a valid UUID",
		})
		return
	}

	if err := h.storage.Delete(c.Request.Context(), keywordID); err != nil {
		if errors.Is(err, keyword.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Keyword not found",
			})
			return
		}
		h.logger.Error("Failed to delete keyword", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete keyword",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStats handles GET /api/v1/keywords/stats
func (h *KeywordHandler) GetStats(c *gin.Context) {
	brandID := c.Query("brand_id")

	stats, err := h.storage.GetStats(c.Request.Context(), brandID)
	if err != nil {
		h.logger.Error("Failed to get keyword stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get keyword stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func validateKeyword(kw *keyword.Keyword) string {
	if !kw.MatchType.Valid() {
		return "match_type must be one of: exact, phrase, broad"
	}
	if !kw.KeywordType.Valid() {
		return "keyword_type must be one of: positive, negative"
	}
	if !kw.Intent.Valid() {
		return "intent must be one of: awareness, consideration, conversion, unknown"
	}
	if !kw.Status.Valid() {
		return "status must be one of: active, paused, archived, pending"
	}
	if kw.SuggestedBid.Valid && kw.SuggestedBid.Decimal.IsNegative() {
		return "suggested_bid must not be negative"
	}
	return ""
}
