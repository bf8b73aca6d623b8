package handlers

import (
	"context"
	"time"

	"inspection-tracking-api/models"
	"inspection-tracking-api/services"

	"github.com/gin-gonic/gin"
)

type ratingsResponse struct {
	RatingsData []models.AreaRating `json:"ratingsData"`
}

type scoresResponse struct {
	Area   string    `json:"area"`
	Dates  []string  `json:"dates"`
	Scores []float64 `json:"scores"`
}

// AreasHandler serves the precomputed per-area views: heatmaps, ratings and
// score series.
type AreasHandler struct {
	svc   *services.InspectionService
	cache *services.CacheService
	ttl   time.Duration
}

func NewAreasHandler(svc *services.InspectionService, cache *services.CacheService, ttl time.Duration) *AreasHandler {
	return &AreasHandler{svc: svc, cache: cache, ttl: ttl}
}

func (h *AreasHandler) GetHeatmapTime(c *gin.Context) {
	cachedView(c, h.cache, h.ttl, services.ResponseKey("heatmap", "time"), h.svc.HeatmapByTime)
}

func (h *AreasHandler) GetHeatmapZip(c *gin.Context) {
	cachedView(c, h.cache, h.ttl, services.ResponseKey("heatmap", "zipcode"), h.svc.HeatmapByZip)
}

// GetRatings serves GET /ratings/ with every bucket, county included.
func (h *AreasHandler) GetRatings(c *gin.Context) {
	cachedView(c, h.cache, h.ttl, services.ResponseKey("ratings", "all"), func(ctx context.Context) (ratingsResponse, error) {
		all, err := h.svc.Ratings(ctx)
		return ratingsResponse{RatingsData: all}, err
	})
}

// GetRatingsMap serves GET /ratings/map with the zip buckets only.
func (h *AreasHandler) GetRatingsMap(c *gin.Context) {
	cachedView(c, h.cache, h.ttl, services.ResponseKey("ratings", "map"), func(ctx context.Context) (ratingsResponse, error) {
		zips, err := h.svc.RatingsMap(ctx)
		return ratingsResponse{RatingsData: zips}, err
	})
}

// GetRatingForArea serves GET /ratings/:area.
func (h *AreasHandler) GetRatingForArea(c *gin.Context) {
	area, ok := pathParam(c, "area")
	if !ok {
		return
	}
	cachedView(c, h.cache, h.ttl, services.ResponseKey("ratings", "area", area), func(ctx context.Context) (models.AreaRating, error) {
		return h.svc.RatingForArea(ctx, area)
	})
}

// GetScores serves GET /scores/:area.
func (h *AreasHandler) GetScores(c *gin.Context) {
	area, ok := pathParam(c, "area")
	if !ok {
		return
	}
	cachedView(c, h.cache, h.ttl, services.ResponseKey("scores", area), func(ctx context.Context) (scoresResponse, error) {
		series, err := h.svc.Scores(ctx, area)
		if err != nil {
			return scoresResponse{}, err
		}
		return scoresResponse{Area: series.Area, Dates: series.Dates(), Scores: series.Scores()}, nil
	})
}
