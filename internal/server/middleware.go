package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "ownership_request_id"

// requestID reuses the caller's X-Request-ID or assigns a new uuid, and
// echoes it on the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestID returns the id assigned by the request id middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		s.metrics.ObserveRequest(route, code)
		s.log.Debug("http request",
			"request_id", RequestID(c),
			"method", c.Request.Method,
			"route", route,
			"status", code,
			"duration", time.Since(start),
		)
	}
}
