package handler

import (
	"net/http"
	"time"

	M "journeys/model"
	"journeys/store"
	U "journeys/util"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Journeys API",
		"version": API_VERSION,
		"endpoints": gin.H{
			"journeys": ROUTE_JOURNEYS,
			"filters":  ROUTE_FILTERS,
			"health":   ROUTE_HEALTH,
			"refresh":  ROUTE_REFRESH,
		},
	})
}

// HealthHandler reports OK once a snapshot has been published.
func HealthHandler(c *gin.Context) {
	snapshot := getSnapshot()
	if snapshot == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":        "NOT_READY",
			"timestamp":     U.TimeNowZ().Format(time.RFC3339),
			"totalJourneys": 0,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "OK",
		"timestamp":       U.TimeNowZ().Format(time.RFC3339),
		"totalJourneys":   snapshot.TotalJourneys(),
		"snapshotVersion": snapshot.Version,
		"builtAt":         snapshot.BuiltAt.Format(time.RFC3339),
		"skippedRecords":  snapshot.SkippedRecords,
	})
}

// GetJourneysHandler lists journeys with stats. Query params campaign, medium and content filter on a single touchpoint,
// search matches session id or channel. Empty values are absent.
func GetJourneysHandler(c *gin.Context) {
	journeyStore := store.GetStore()
	if journeyStore == nil {
		abortWithError(c, store.ErrSnapshotNotReady)
		return
	}

	if len(c.Query("search")) > MAX_SEARCH_TERM_LENGTH {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Search term is too long",
		})
		return
	}

	query := M.JourneyQuery{
		Filter: M.NewFilterCriteria(c.Query("campaign"), c.Query("medium"), c.Query("content")),
		Search: c.Query("search"),
	}

	result, err := journeyStore.ListJourneys(query)
	if err != nil {
		log.WithError(err).WithField("query", query.CacheKey()).Error("Failed to list journeys.")
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func GetFilterValuesHandler(c *gin.Context) {
	journeyStore := store.GetStore()
	if journeyStore == nil {
		abortWithError(c, store.ErrSnapshotNotReady)
		return
	}

	filterValues, err := journeyStore.ListFilterValues()
	if err != nil {
		log.WithError(err).Error("Failed to list filter values.")
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, filterValues)
}

// RefreshHandler rebuilds the snapshot from the source. The previous
// snapshot keeps serving when the rebuild fails.
func RefreshHandler(c *gin.Context) {
	journeyStore := store.GetStore()
	if journeyStore == nil {
		abortWithError(c, store.ErrSnapshotNotReady)
		return
	}

	snapshot, err := journeyStore.Rebuild(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshotVersion": snapshot.Version,
		"builtAt":         snapshot.BuiltAt.Format(time.RFC3339),
		"totalJourneys":   snapshot.TotalJourneys(),
		"touchpointCount": snapshot.TouchpointCount,
		"skippedRecords":  snapshot.SkippedRecords,
	})
}

func NotFoundHandler(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
		"error":   "Route not found",
		"message": "The route " + c.Request.URL.RequestURI() + " does not exist",
	})
}

func getSnapshot() *store.Snapshot {
	journeyStore := store.GetStore()
	if journeyStore == nil {
		return nil
	}
	return journeyStore.Snapshot()
}
