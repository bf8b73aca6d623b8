package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"inspection-tracking-api/services"

	"github.com/gin-gonic/gin"
)

// pathParam returns the trimmed path parameter, or writes a 400 and returns
// false when it is blank.
func pathParam(c *gin.Context, name string) (string, bool) {
	v := strings.TrimSpace(c.Param(name))
	if v == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + name + " parameter"})
		return "", false
	}
	return v, true
}

// cachedView serves key from the response cache, falling back to load and
// filling the cache in the background.
func cachedView[T any](c *gin.Context, cache *services.CacheService, ttl time.Duration, key string, load func(context.Context) (T, error)) {
	var cached T
	if err := cache.Get(c.Request.Context(), key, &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	resp, err := load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	go cache.Set(context.Background(), key, resp, ttl)

	c.JSON(http.StatusOK, resp)
}
