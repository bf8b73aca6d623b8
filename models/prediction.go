package models

type ScorePrediction struct {
	Facility             string  `json:"facility"`
	AverageScore         float64 `json:"average_score"`
	ZipAverage           float64 `json:"zip_avg"`
	CityAverage          float64 `json:"city_avg"`
	PredictedFutureScore float64 `json:"predicted_future_score"`
}
