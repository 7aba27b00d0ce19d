package server

import (
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	log "github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-Id"
	loggerKey       = "logger"
)

// RequestID keeps the caller's X-Request-Id or generates one, echoes it in the
// response and stores a logger carrying it in the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			u, err := uuid.NewV4()
			if err != nil {
				log.WithError(err).Warn("[Server] cannot generate request id")
			} else {
				id = u.String()
			}
		}

		c.Header(RequestIDHeader, id)
		c.Set(loggerKey, log.WithFields(log.Fields{
			"request_id": id,
			"path":       c.Request.URL.Path,
		}))
		c.Next()
	}
}

func logger(c *gin.Context) *log.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*log.Entry); ok {
			return entry
		}
	}
	return log.NewEntry(log.StandardLogger())
}
