package keyword

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// MatchType is the keyword targeting mode.
type MatchType string

const (
	MatchExact  MatchType = "exact"
	MatchPhrase MatchType = "phrase"
	MatchBroad  MatchType = "broad"
)

func (m MatchType) Valid() bool {
	switch m {
	case MatchExact, MatchPhrase, MatchBroad:
		return true
	}
	return false
}

// Type distinguishes terms to target from terms to exclude.
type Type string

const (
	TypePositive Type = "positive"
	TypeNegative Type = "negative"
)

func (t Type) Valid() bool {
	return t == TypePositive || t == TypeNegative
}

// Intent is the funnel-stage classification of a keyword.
type Intent string

const (
	IntentAwareness     Intent = "awareness"
	IntentConsideration Intent = "consideration"
	IntentConversion    Intent = "conversion"
	IntentUnknown       Intent = "unknown"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentAwareness, IntentConsideration, IntentConversion, IntentUnknown:
		return true
	}
	return false
}

// Status is the lifecycle state of a keyword.
type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
	StatusPending  Status = "pending"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusArchived, StatusPending:
		return true
	}
	return false
}

// Keyword is a single targeting term. NormalizedText is always derived from
// Text via dedupe.Normalize and recomputed whenever Text changes.
type Keyword struct {
	ID             string              `db:"id" json:"id"`
	Text           string              `db:"text" json:"text"`
	NormalizedText string              `db:"normalized_text" json:"normalized_text"`
	BrandID        string              `db:"brand_id" json:"brand_id"`
	MatchType      MatchType           `db:"match_type" json:"match_type"`
	KeywordType    Type                `db:"keyword_type" json:"keyword_type"`
	Intent         Intent              `db:"intent" json:"intent"`
	SuggestedBid   decimal.NullDecimal `db:"suggested_bid" json:"suggested_bid"`
	Status         Status              `db:"status" json:"status"`
	Tags           pq.StringArray      `db:"tags" json:"tags"`
	Notes          string              `db:"notes" json:"notes"`
	Owner          string              `db:"owner" json:"owner"`
	Source         string              `db:"source" json:"source"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
}

// DuplicateKey is the exact-duplicate equivalence key. Multiple keywords may
// share a key only transiently, until merged.
type DuplicateKey struct {
	NormalizedText string
	BrandID        string
	KeywordType    Type
	MatchType      MatchType
}

func (k *Keyword) DuplicateKey() DuplicateKey {
	return DuplicateKey{
		NormalizedText: k.NormalizedText,
		BrandID:        k.BrandID,
		KeywordType:    k.KeywordType,
		MatchType:      k.MatchType,
	}
}
