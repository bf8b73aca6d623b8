package models

// UnknownZip buckets records whose address has no recognisable zip.
const UnknownZip = "unknown"

const (
	HeatmapTimeCollection = "heatmap_time"
	HeatmapZipCollection  = "heatmap_zipcode"
)

type MonthViolations struct {
	Month     string `json:"month"`
	Violation int    `json:"violation"`
}

type ZipViolations struct {
	ZipCode   string `json:"zipCode"`
	Violation int    `json:"violation"`
}
