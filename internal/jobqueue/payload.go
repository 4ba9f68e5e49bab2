package jobqueue

// ImportPayload is the payload carried by import-lane jobs. The file must be
// readable by the worker service at FilePath.
type ImportPayload struct {
	ImportID string `json:"import_id"`
	FilePath string `json:"file_path"`
	BrandID  string `json:"brand_id"`
}

// ExportPayload is the payload carried by export-lane jobs. Empty filter
// fields match everything.
type ExportPayload struct {
	Format      string `json:"format"`
	BrandID     string `json:"brand_id,omitempty"`
	KeywordType string `json:"keyword_type,omitempty"`
	MatchType   string `json:"match_type,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Export artifact formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)
