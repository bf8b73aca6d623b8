package handlers

import (
	"errors"
	"net/http"

	"inspection-tracking-api/metrics"
	"inspection-tracking-api/models"
	"inspection-tracking-api/predictor"

	"github.com/gin-gonic/gin"
)

// Predictor answers single-facility score predictions. *predictor.Model
// satisfies it.
type Predictor interface {
	Predict(facility string) (models.ScorePrediction, error)
}

type PredictionHandler struct {
	model Predictor
}

func NewPredictionHandler(model Predictor) *PredictionHandler {
	return &PredictionHandler{model: model}
}

// GetPrediction serves GET /predict/:facility.
func (h *PredictionHandler) GetPrediction(c *gin.Context) {
	facility, ok := pathParam(c, "facility")
	if !ok {
		return
	}

	pred, err := h.model.Predict(facility)
	switch {
	case err == nil:
		metrics.PredictionServed("ok")
	case errors.Is(err, predictor.ErrNotFound):
		metrics.PredictionServed("not_found")
	case errors.Is(err, predictor.ErrInsufficientData):
		metrics.PredictionServed("insufficient_data")
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pred)
}
