package handlers

import (
	"context"
	"net/http"
	"time"

	"inspection-tracking-api/models"
	"inspection-tracking-api/services"

	"github.com/gin-gonic/gin"
)

type LocationsHandler struct {
	svc   *services.InspectionService
	cache *services.CacheService
	ttl   time.Duration
}

func NewLocationsHandler(svc *services.InspectionService, cache *services.CacheService, ttl time.Duration) *LocationsHandler {
	return &LocationsHandler{svc: svc, cache: cache, ttl: ttl}
}

// GetQueryList serves GET /queryList.
func (h *LocationsHandler) GetQueryList(c *gin.Context) {
	cachedView(c, h.cache, h.ttl, services.ResponseKey("query"), func(ctx context.Context) (models.QueryIndex, error) {
		return h.svc.ListLocations(ctx)
	})
}

// GetInspections serves GET /inspections/:query.
func (h *LocationsHandler) GetInspections(c *gin.Context) {
	query, ok := pathParam(c, "query")
	if !ok {
		return
	}
	recs, err := h.svc.Inspections(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inspections": recs})
}

// GetAutocomplete serves GET /autocomplete/:query.
func (h *LocationsHandler) GetAutocomplete(c *gin.Context) {
	query, ok := pathParam(c, "query")
	if !ok {
		return
	}
	matches, err := h.svc.Autocomplete(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (h *LocationsHandler) GetIntervals(c *gin.Context) {
	query, ok := pathParam(c, "query")
	if !ok {
		return
	}
	stats, err := h.svc.Intervals(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *LocationsHandler) GetFrequency(c *gin.Context) {
	query, ok := pathParam(c, "query")
	if !ok {
		return
	}
	stats, err := h.svc.Frequency(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
