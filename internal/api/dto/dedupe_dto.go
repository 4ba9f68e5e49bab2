package dto

type FuzzyScanRequest struct {
	BrandID   string  `form:"brand_id"`
	Threshold float64 `form:"threshold"`
}

type MergeRequest struct {
	KeepID    string   `json:"keep_id" binding:"required"`
	DeleteIDs []string `json:"delete_ids" binding:"required"`
}
