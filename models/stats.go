package models

// Interval is the gap between two consecutive inspections of one location.
type Interval struct {
	Days  int    `json:"days"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// IntervalStats carries the intervals both as records and as the parallel
// arrays the dashboard charts read.
type IntervalStats struct {
	Intervals []Interval  `json:"intervals"`
	Days      []int       `json:"intervals_days"`
	Dates     [][2]string `json:"intervals_dates"`
}

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

type FrequencyStats struct {
	Frequency []YearCount `json:"frequency"`
	Total     int         `json:"total_count"`
}
