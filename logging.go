package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

const (
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
)

func setupLogging(c appConfig) {
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if err := setLogLevel(c.LogLevel); err != nil {
		logger.WithError(err).Warn("unknown log level, keeping info")
		logger.SetLevel(logrus.InfoLevel)
	}
}

func setLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

// requestLogger tags every request with an id and logs its outcome.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		entry := logger.WithFields(logrus.Fields{
			"request-id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		c.Set(loggerKey, entry)
		c.Header(requestIDHeader, id)

		c.Next()

		fields := logrus.Fields{
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}
		if uid, ok := c.Get(userIDKey); ok {
			fields["user"] = uid
		}
		if len(c.Errors) > 0 {
			entry.WithFields(fields).WithError(c.Errors.Last()).Error("request failed")
			return
		}
		entry.WithFields(fields).Info("request completed")
	}
}

// logFor returns the request-scoped logger.
func logFor(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logger
}
