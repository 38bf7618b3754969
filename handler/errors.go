package handler

import (
	"net/http"

	M "journeys/model"
	"journeys/store"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const maxInvalidRecordsInResponse = 20

// getErrorResponse maps pipeline errors to a status code and message.
func getErrorResponse(err error) (int, gin.H) {
	switch {
	case errors.Is(err, store.ErrSnapshotNotReady):
		return http.StatusServiceUnavailable, gin.H{
			"error":   "Service Unavailable",
			"message": "Journeys are not loaded yet",
		}
	case M.IsRecordValidationError(err):
		var validationErrs M.RecordValidationErrors
		errors.As(err, &validationErrs)
		if len(validationErrs) > maxInvalidRecordsInResponse {
			validationErrs = validationErrs[:maxInvalidRecordsInResponse]
		}
		return http.StatusInternalServerError, gin.H{
			"error":          "Ingestion Failed",
			"message":        "Touchpoint source has invalid records",
			"invalidRecords": validationErrs,
		}
	case M.IsIngestionFailure(err):
		return http.StatusInternalServerError, gin.H{
			"error":   "Ingestion Failed",
			"message": "Failed to load touchpoint source",
		}
	default:
		return http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to process journeys request",
		}
	}
}

func abortWithError(c *gin.Context, err error) {
	code, body := getErrorResponse(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, body)
}
