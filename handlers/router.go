package handlers

import (
	"net/http"
	"time"

	"inspection-tracking-api/config"
	"inspection-tracking-api/metrics"
	"inspection-tracking-api/middleware"
	"inspection-tracking-api/services"

	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Service   *services.InspectionService
	Cache     *services.CacheService
	Predictor Predictor
	CacheTTL  time.Duration
	CORS      config.CORSConfig
}

// NewRouter wires every API route.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.Default()
	// Location queries may contain an escaped "/".
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(middleware.SetupCORS(deps.CORS))
	router.Use(metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		if err := deps.Service.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Inspection API is running",
		})
	})
	router.GET("/metrics", metrics.Handler())

	locations := NewLocationsHandler(deps.Service, deps.Cache, deps.CacheTTL)
	router.GET("/queryList", locations.GetQueryList)
	router.GET("/inspections/:query", locations.GetInspections)
	router.GET("/autocomplete/:query", locations.GetAutocomplete)
	router.GET("/intervals/:query", locations.GetIntervals)
	router.GET("/frequency/:query", locations.GetFrequency)

	areas := NewAreasHandler(deps.Service, deps.Cache, deps.CacheTTL)
	router.GET("/heatmap/time", areas.GetHeatmapTime)
	router.GET("/heatmap/zipcode", areas.GetHeatmapZip)
	router.GET("/ratings/", areas.GetRatings)
	router.GET("/ratings/map", areas.GetRatingsMap)
	router.GET("/ratings/:area", areas.GetRatingForArea)
	router.GET("/scores/:area", areas.GetScores)

	router.GET("/predict/:facility", NewPredictionHandler(deps.Predictor).GetPrediction)

	router.GET("/ws/imports", ImportsWebSocket(deps.Cache))

	return router
}
