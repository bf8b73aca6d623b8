// Package predictor fits a linear model of next-period inspection scores from
// each facility's history and answers single-facility predictions.
package predictor

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"inspection-tracking-api/models"
)

var (
	ErrNotFound         = errors.New("facility not found")
	ErrInsufficientData = errors.New("insufficient historical data")
)

// Features per facility, in column order after the intercept.
const numFeatures = 4

type Config struct {
	// CutoffYear ends the past period. The current period is CutoffYear+1.
	CutoffYear int
	// Ridge is added to the diagonal of the normal equations for every
	// non-intercept weight.
	Ridge float64
}

// Model is trained once and never mutated afterwards, so Predict is safe for
// concurrent use.
type Model struct {
	cfg        Config
	weights    []float64
	fallback   bool
	samples    int
	ratingMean float64

	byFacility map[string][]models.Inspection
	zipScores  map[string][]float64
	allScores  []float64
}

type facilityStats struct {
	pastScores  []float64
	pastRatings []float64
	pastPoints  []float64
	maxCount    int
	current     []float64
}

// Train builds the training set from facilities seen both in the past period
// and in the period right after it, and fits the regression. With fewer
// samples than weights the model predicts the past mean score instead.
func Train(records []models.Inspection, cfg Config) (*Model, error) {
	if cfg.CutoffYear <= 0 {
		return nil, fmt.Errorf("predictor: invalid cutoff year %d", cfg.CutoffYear)
	}
	if cfg.Ridge < 0 {
		return nil, fmt.Errorf("predictor: negative ridge %v", cfg.Ridge)
	}

	m := &Model{
		cfg:        cfg,
		byFacility: make(map[string][]models.Inspection),
		zipScores:  make(map[string][]float64),
		allScores:  make([]float64, 0, len(records)),
	}
	stats := make(map[string]*facilityStats)
	var order []string
	var allRatings []float64

	for _, rec := range records {
		key := facilityKey(rec.FacilityName)
		m.byFacility[key] = append(m.byFacility[key], rec)
		m.zipScores[rec.ZipCode] = append(m.zipScores[rec.ZipCode], rec.Score)
		m.allScores = append(m.allScores, rec.Score)

		at, err := rec.ActivityDate()
		if err != nil {
			continue
		}
		st, ok := stats[key]
		if !ok {
			st = &facilityStats{}
			stats[key] = st
			order = append(order, key)
		}
		switch year := at.Year(); {
		case year <= cfg.CutoffYear:
			st.add(rec)
			if rec.Rating.Present() {
				allRatings = append(allRatings, rec.Rating.Value)
			}
		case year == cfg.CutoffYear+1:
			st.current = append(st.current, rec.Score)
		}
	}
	if len(allRatings) > 0 {
		m.ratingMean = stat.Mean(allRatings, nil)
	}

	var rows [][]float64
	var targets []float64
	for _, key := range order {
		st := stats[key]
		if len(st.pastScores) == 0 || len(st.current) == 0 {
			continue
		}
		rows = append(rows, m.features(st))
		targets = append(targets, stat.Mean(st.current, nil))
	}
	m.samples = len(rows)

	if m.samples < numFeatures+1 {
		log.Printf("predictor: %d training samples, predicting past mean score", m.samples)
		m.fallback = true
		return m, nil
	}

	weights, err := fitRidge(rows, targets, cfg.Ridge)
	if err != nil {
		log.Printf("predictor: fit failed, predicting past mean score: %v", err)
		m.fallback = true
		return m, nil
	}
	m.weights = weights
	log.Printf("predictor: trained on %d facilities, weights=%v", m.samples, weights)
	return m, nil
}

// Samples is the number of facilities the regression was fit on.
func (m *Model) Samples() int { return m.samples }

// Predict returns the facility's score summary and its predicted score for
// the period after the cutoff.
func (m *Model) Predict(facility string) (models.ScorePrediction, error) {
	key := facilityKey(facility)
	recs := m.byFacility[key]
	if len(recs) == 0 {
		return models.ScorePrediction{}, fmt.Errorf("%w: %q", ErrNotFound, facility)
	}

	st := &facilityStats{}
	scores := make([]float64, len(recs))
	for i, rec := range recs {
		scores[i] = rec.Score
		at, err := rec.ActivityDate()
		if err != nil || at.Year() > m.cfg.CutoffYear {
			continue
		}
		st.add(rec)
	}
	if len(st.pastScores) == 0 {
		return models.ScorePrediction{}, fmt.Errorf("%w: %q has no inspections up to %d", ErrInsufficientData, facility, m.cfg.CutoffYear)
	}

	x := m.features(st)
	predicted := x[0]
	if !m.fallback {
		predicted = m.weights[0] + floats.Dot(m.weights[1:], x)
	}

	return models.ScorePrediction{
		Facility:             key,
		AverageScore:         round2(stat.Mean(scores, nil)),
		ZipAverage:           round2(stat.Mean(m.zipScores[recs[0].ZipCode], nil)),
		CityAverage:          round2(stat.Mean(m.allScores, nil)),
		PredictedFutureScore: round2(predicted),
	}, nil
}

func (st *facilityStats) add(rec models.Inspection) {
	st.pastScores = append(st.pastScores, rec.Score)
	if rec.Rating.Present() {
		st.pastRatings = append(st.pastRatings, rec.Rating.Value)
	}
	st.pastPoints = append(st.pastPoints, rec.TotalPoints())
	if n := rec.ViolationCount(); n > st.maxCount {
		st.maxCount = n
	}
}

// features returns past mean score, past mean rating, past mean total points
// and past max violation count. A facility with no rating gets the training
// mean.
func (m *Model) features(st *facilityStats) []float64 {
	rating := m.ratingMean
	if len(st.pastRatings) > 0 {
		rating = stat.Mean(st.pastRatings, nil)
	}
	return []float64{
		stat.Mean(st.pastScores, nil),
		rating,
		stat.Mean(st.pastPoints, nil),
		float64(st.maxCount),
	}
}

// fitRidge solves (XᵀX + λI')w = Xᵀy with an intercept column prepended to X.
// I' leaves the intercept unpenalized.
func fitRidge(rows [][]float64, targets []float64, ridge float64) ([]float64, error) {
	n, p := len(rows), len(rows[0])+1
	x := mat.NewDense(n, p, nil)
	for i, row := range rows {
		x.Set(i, 0, 1)
		for j, v := range row {
			x.Set(i, j+1, v)
		}
	}
	y := mat.NewVecDense(n, targets)

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for j := 1; j < p; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+ridge)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, errors.New("normal equations are not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return nil, fmt.Errorf("solve normal equations: %w", err)
	}

	weights := make([]float64, p)
	for j := range weights {
		weights[j] = w.AtVec(j)
	}
	return weights, nil
}

// facilityKey accepts raw names such as "SUBWAY #123" as well as the cleaned
// names stored at import.
func facilityKey(name string) string {
	return models.CleanName(name)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
