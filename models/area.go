package models

// CountyArea is the area key of the rollup over the whole dataset.
const CountyArea = "county"

type AreaRating struct {
	Area   string  `json:"area"`
	Rating float64 `json:"rating"`
	Count  int     `json:"count"`
}

func (AreaRating) CollectionName() string { return "ratings" }

type ScorePoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// AreaScoreSeries holds one mean score per activity date, dates strictly
// increasing.
type AreaScoreSeries struct {
	Area   string       `json:"area"`
	Points []ScorePoint `json:"points"`
}

func (AreaScoreSeries) CollectionName() string { return "scores" }

func (s AreaScoreSeries) Dates() []string {
	dates := make([]string, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

func (s AreaScoreSeries) Scores() []float64 {
	scores := make([]float64, len(s.Points))
	for i, p := range s.Points {
		scores[i] = p.Score
	}
	return scores
}
