package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	C "journeys/config"
	U "journeys/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// scope constants.
const SCOPE_REQ_ID = "requestId"

const HeaderRequestID = "X-Request-ID"

// CustomCors allows every origin unless allowed_origins is configured.
func CustomCors() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AddAllowHeaders(HeaderRequestID)
	corsConfig.AddExposeHeaders(HeaderRequestID)

	var allowedOrigins []string
	if config := C.GetConfig(); config != nil {
		allowedOrigins = config.AllowedOrigins
	}

	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}

	// Applys custom cors and proceed.
	return cors.New(corsConfig)
}

// RequestIdGenerator reuses a valid incoming X-Request-ID or generates one,
// sets it on request scope and echoes it on the response.
func RequestIdGenerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.Request.Header.Get(HeaderRequestID))
		if !U.IsValidUUID(reqID) {
			reqID = U.GetUUID()
			c.Request.Header.Set(HeaderRequestID, reqID)
		}

		U.SetScope(c, SCOPE_REQ_ID, reqID)
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Next()
	}
}

// GetRequestID returns the request id set by RequestIdGenerator.
func GetRequestID(c *gin.Context) string {
	return U.GetScopeStringByKey(c, SCOPE_REQ_ID)
}

// Logger logs every request after it is served.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path
		rawQuery := c.Request.URL.RawQuery

		c.Next()

		logCtx := log.WithFields(log.Fields{
			"req_id":     GetRequestID(c),
			"method":     c.Request.Method,
			"path":       path,
			"query":      rawQuery,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(startTime).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})

		if len(c.Errors) > 0 {
			logCtx.WithField("errors", c.Errors.String()).Error("Request failed.")
			return
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logCtx.Error("Request failed.")
		} else {
			logCtx.Info("Request served.")
		}
	}
}

// Recovery converts panics into a 500 JSON response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.WithFields(log.Fields{
					"req_id": GetRequestID(c),
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
					"panic":  recovered,
					"stack":  string(debug.Stack()),
				}).Error("Panic recovered.")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal Server Error",
					"message": "Something went wrong",
				})
			}
		}()
		c.Next()
	}
}
