package scans

// Page represents a paginated slice of a patient's scan history
type Page struct {
	Data       []*ScanRecord `json:"data"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	Total      int64         `json:"totalItems"`
	TotalPages int           `json:"totalPages"`
}
