package keyword

// Filter is an immutable description of a keyword query, constructed once per
// call. Zero-valued fields impose no constraint. All fields match by equality
// except Search, which matches as a case-normalized substring of
// normalized_text.
type Filter struct {
	BrandID     string
	KeywordType Type
	MatchType   MatchType
	Intent      Intent
	Status      Status
	Search      string
}

// IsZero reports whether the filter imposes no constraints at all.
func (f Filter) IsZero() bool {
	return f == Filter{}
}
