package handler

import (
	mid "journeys/middleware"

	"github.com/gin-gonic/gin"
)

const (
	API_VERSION = "1.0.0"

	ROUTE_ROOT     = "/"
	ROUTE_HEALTH   = "/health"
	ROUTE_JOURNEYS = "/journeys"
	ROUTE_FILTERS  = "/filters"
	ROUTE_REFRESH  = "/refresh"

	MAX_SEARCH_TERM_LENGTH = 256
)

// InitAppRoutes registers the journey API. Served from the published
// store.GetStore() snapshot.
func InitAppRoutes(r *gin.Engine) {
	r.GET(ROUTE_ROOT, RootHandler)
	r.GET(ROUTE_HEALTH, HealthHandler)
	r.GET(ROUTE_JOURNEYS, GetJourneysHandler)
	r.GET(ROUTE_FILTERS, GetFilterValuesHandler)
	r.POST(ROUTE_REFRESH, RefreshHandler)

	r.NoRoute(NotFoundHandler)
}

// InitRouter builds an engine with the common middlewares and routes.
func InitRouter() *gin.Engine {
	r := gin.New()
	// Root middleware for cors.
	r.Use(mid.CustomCors())
	r.Use(mid.RequestIdGenerator())
	r.Use(mid.Logger())
	r.Use(mid.Recovery())

	InitAppRoutes(r)
	return r
}
