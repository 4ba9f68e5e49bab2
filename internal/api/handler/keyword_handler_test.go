package handler

import (
	"testing"

	"github.com/advault/keyword-inventory/internal/keyword"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validKeyword() keyword.Keyword {
	return keyword.Keyword{
		Text:        "running shoes",
		MatchType:   keyword.MatchExact,
		KeywordType: keyword.TypePositive,
		Intent:      keyword.IntentUnknown,
		Status:      keyword.StatusActive,
	}
}

func TestValidateKeyword(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*keyword.Keyword)
		errString string
	}{
		{
			name:   "valid keyword",
			mutate: func(*keyword.Keyword) {},
		},
		{
			name:   "valid keyword with non-negative bid",
			mutate: func(kw *keyword.Keyword) { kw.SuggestedBid = decimal.NewNullDecimal(decimal.RequireFromString("1.25")) },
		},
		{
			name:   "zero bid is allowed",
			mutate: func(kw *keyword.Keyword) { kw.SuggestedBid = decimal.NewNullDecimal(decimal.Zero) },
		},
		{
			name:      "negative bid is rejected",
			mutate:    func(kw *keyword.Keyword) { kw.SuggestedBid = decimal.NewNullDecimal(decimal.RequireFromString("-0.01")) },
			errString: "suggested_bid must not be negative",
		},
		{
			name:      "invalid match type",
			mutate:    func(kw *keyword.Keyword) { kw.MatchType = "sideways" },
			errString: "match_type must be one of",
		},
		{
			name:      "invalid keyword type",
			mutate:    func(kw *keyword.Keyword) { kw.KeywordType = "neutral" },
			errString: "keyword_type must be one of",
		},
		{
			name:      "invalid intent",
			mutate:    func(kw *keyword.Keyword) { kw.Intent = "retention" },
			errString: "intent must be one of",
		},
		{
			name:      "invalid status",
			mutate:    func(kw *keyword.Keyword) { kw.Status = "deleted" },
			errString: "status must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kw := validKeyword()
			tt.mutate(&kw)

			msg := validateKeyword(&kw)
			if tt.errString == "" {
				assert.Empty(t, msg)
			} else {
				assert.Contains(t, msg, tt.errString)
			}
		})
	}
}
