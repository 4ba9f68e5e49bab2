package dedupe

import (
	"context"
	"log/slog"
	"sort"

	"github.com/advault/keyword-inventory/internal/keyword"
)

// DefaultFuzzyThreshold is the minimum similarity for a pair to count as a
// fuzzy duplicate when the caller does not supply a threshold.
const DefaultFuzzyThreshold = 0.85

// KeywordFinder is the read side of the keyword store the detector needs.
type KeywordFinder interface {
	Find(ctx context.Context, filter keyword.Filter) ([]keyword.Keyword, error)
}

// DuplicateGroup is a set of keywords sharing the exact-duplicate key.
type DuplicateGroup struct {
	NormalizedText string            `json:"normalized_text"`
	BrandID        string            `json:"brand_id"`
	KeywordType    keyword.Type      `json:"keyword_type"`
	MatchType      keyword.MatchType `json:"match_type"`
	Count          int               `json:"count"`
	KeywordIDs     []string          `json:"keyword_ids"`
}

// FuzzyPair is a pair of near-identical keywords with similarity in
// [threshold, 1.0). Identical texts are exact duplicates and never
// reported here.
type FuzzyPair struct {
	Keyword1ID   string  `json:"keyword1_id"`
	Keyword1Text string  `json:"keyword1_text"`
	Keyword2ID   string  `json:"keyword2_id"`
	Keyword2Text string  `json:"keyword2_text"`
	Similarity   float64 `json:"similarity"`
}

// Conflict is a term flagged both positive and negative within the same
// brand and match-type scope.
type Conflict struct {
	NormalizedText string            `json:"normalized_text"`
	BrandID        string            `json:"brand_id"`
	MatchType      keyword.MatchType `json:"match_type"`
	PositiveIDs    []string          `json:"positive_ids"`
	NegativeIDs    []string          `json:"negative_ids"`
}

// Detector finds exact duplicates, fuzzy near-duplicates, and
// positive/negative conflicts in the keyword corpus. All detection
// operations are read-only.
type Detector struct {
	store  KeywordFinder
	logger *slog.Logger
}

func NewDetector(store KeywordFinder, logger *slog.Logger) *Detector {
	return &Detector{
		store:  store,
		logger: logger,
	}
}

// FindExactDuplicates groups keywords by (normalized_text, brand_id,
// keyword_type, match_type) and reports every group with more than one
// member. An empty brandID scans all brands.
func (d *Detector) FindExactDuplicates(ctx context.Context, brandID string) ([]DuplicateGroup, error) {
	keywords, err := d.store.Find(ctx, keyword.Filter{BrandID: brandID})
	if err != nil {
		return nil, err
	}

	groups := make(map[keyword.DuplicateKey][]string)
	for i := range keywords {
		key := keywords[i].DuplicateKey()
		groups[key] = append(groups[key], keywords[i].ID)
	}

	results := make([]DuplicateGroup, 0)
	for key, ids := range groups {
		if len(ids) <= 1 {
			continue
		}
		sort.Strings(ids)
		results = append(results, DuplicateGroup{
			NormalizedText: key.NormalizedText,
			BrandID:        key.BrandID,
			KeywordType:    key.KeywordType,
			MatchType:      key.MatchType,
			Count:          len(ids),
			KeywordIDs:     ids,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].NormalizedText != results[j].NormalizedText {
			return results[i].NormalizedText < results[j].NormalizedText
		}
		if results[i].BrandID != results[j].BrandID {
			return results[i].BrandID < results[j].BrandID
		}
		if results[i].KeywordType != results[j].KeywordType {
			return results[i].KeywordType < results[j].KeywordType
		}
		return results[i].MatchType < results[j].MatchType
	})

	d.logger.Debug("Exact duplicate scan finished",
		slog.String("brand_id", brandID),
		slog.Int("keywords", len(keywords)),
		slog.Int("groups", len(results)),
	)

	return results, nil
}

// FindFuzzyDuplicates compares every unordered pair of keywords once and
// reports pairs whose normalized-text similarity falls in [threshold, 1.0).
// A threshold <= 0 selects DefaultFuzzyThreshold.
//
// This is O(n^2) pairwise work and is only suitable for bounded candidate
// sets; large corpora should run it through the background job lanes.
func (d *Detector) FindFuzzyDuplicates(ctx context.Context, brandID string, threshold float64) ([]FuzzyPair, error) {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	keywords, err := d.store.Find(ctx, keyword.Filter{BrandID: brandID})
	if err != nil {
		return nil, err
	}

	results := make([]FuzzyPair, 0)
	for i := 0; i < len(keywords); i++ {
		for j := i + 1; j < len(keywords); j++ {
			similarity := Similarity(keywords[i].NormalizedText, keywords[j].NormalizedText)
			if similarity >= threshold && similarity < 1.0 {
				results = append(results, FuzzyPair{
					Keyword1ID:   keywords[i].ID,
					Keyword1Text: keywords[i].Text,
					Keyword2ID:   keywords[j].ID,
					Keyword2Text: keywords[j].Text,
					Similarity:   similarity,
				})
			}
		}
	}

	d.logger.Debug("Fuzzy duplicate scan finished",
		slog.String("brand_id", brandID),
		slog.Int("keywords", len(keywords)),
		slog.Float64("threshold", threshold),
		slog.Int("pairs", len(results)),
	)

	return results, nil
}

type conflictKey struct {
	normalizedText string
	brandID        string
	matchType      keyword.MatchType
}

// FindConflicts reports every (normalized_text, brand_id, match_type) scope
// that holds both a positive and a negative keyword.
func (d *Detector) FindConflicts(ctx context.Context, brandID string) ([]Conflict, error) {
	keywords, err := d.store.Find(ctx, keyword.Filter{BrandID: brandID})
	if err != nil {
		return nil, err
	}

	type bucket struct {
		positive []string
		negative []string
	}

	buckets := make(map[conflictKey]*bucket)
	for i := range keywords {
		key := conflictKey{
			normalizedText: keywords[i].NormalizedText,
			brandID:        keywords[i].BrandID,
			matchType:      keywords[i].MatchType,
		}
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		switch keywords[i].KeywordType {
		case keyword.TypePositive:
			b.positive = append(b.positive, keywords[i].ID)
		case keyword.TypeNegative:
			b.negative = append(b.negative, keywords[i].ID)
		}
	}

	results := make([]Conflict, 0)
	for key, b := range buckets {
		if len(b.positive) == 0 || len(b.negative) == 0 {
			continue
		}
		sort.Strings(b.positive)
		sort.Strings(b.negative)
		results = append(results, Conflict{
			NormalizedText: key.normalizedText,
			BrandID:        key.brandID,
			MatchType:      key.matchType,
			PositiveIDs:    b.positive,
			NegativeIDs:    b.negative,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].NormalizedText != results[j].NormalizedText {
			return results[i].NormalizedText < results[j].NormalizedText
		}
		if results[i].BrandID != results[j].BrandID {
			return results[i].BrandID < results[j].BrandID
		}
		return results[i].MatchType < results[j].MatchType
	})

	d.logger.Debug("Conflict scan finished",
		slog.String("brand_id", brandID),
		slog.Int("keywords", len(keywords)),
		slog.Int("conflicts", len(results)),
	)

	return results, nil
}
