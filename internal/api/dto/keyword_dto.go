package dto

import (
	"github.com/shopspring/decimal"
)

type CreateKeywordRequest struct {
	Text         string              `json:"text" binding:"required"`
	BrandID      string              `json:"brand_id"`
	MatchType    string              `json:"match_type" binding:"required"`
	KeywordType  string              `json:"keyword_type" binding:"required"`
	Intent       string              `json:"intent"`
	SuggestedBid decimal.NullDecimal `json:"suggested_bid"`
	Status       string              `json:"status"`
	Tags         []string            `json:"tags"`
	Notes        string              `json:"notes"`
	Owner        string              `json:"owner"`
	Source       string              `json:"source"`
}

type UpdateKeywordRequest struct {
	Text         string              `json:"text" binding:"required"`
	BrandID      string              `json:"brand_id"`
	MatchType    string              `json:"match_type" binding:"required"`
	KeywordType  string              `json:"keyword_type" binding:"required"`
	Intent       string              `json:"intent"`
	SuggestedBid decimal.NullDecimal `json:"suggested_bid"`
	Status       string              `json:"status"`
	Tags         []string            `json:"tags"`
	Notes        string              `json:"notes"`
	Owner        string              `json:"owner"`
	Source       string              `json:"source"`
}

type ListKeywordsRequest struct {
	BrandID     string `form:"brand_id"`
	KeywordType string `form:"keyword_type"`
	MatchType   string `form:"match_type"`
	Intent      string `form:"intent"`
	Status      string `form:"status"`
	Search      string `form:"search"`
	PageSize    int    `form:"page_size"`
	Cursor      string `form:"cursor"`
}
