package dto

type CreateImportRequest struct {
	FilePath string `json:"file_path" binding:"required"`
	BrandID  string `json:"brand_id"`
}

type CreateExportRequest struct {
	Format      string `json:"format"`
	BrandID     string `json:"brand_id"`
	KeywordType string `json:"keyword_type"`
	MatchType   string `json:"match_type"`
	Status      string `json:"status"`
}
