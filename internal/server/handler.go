package server

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lxzan/gws"
	"github.com/sirupsen/logrus"
)

func (s *Server) getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.page)
}

func (s *Server) getState(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.broadcaster.Latest())
}

func (s *Server) getYoke(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.yoke.CurrentState())
}

func (s *Server) getCalibration(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.axes)
}

func (s *Server) handleWebSocket(upgrader *gws.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		socket, err := upgrader.Upgrade(c.Writer, c.Request)
		if err != nil {
			logrus.WithError(err).Warn("websocket upgrade failed")
			return
		}
		go socket.ReadLoop()
	}
}

func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handlers can change c.Request.URL.Path
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		stop := time.Since(start)
		latency := int(math.Ceil(float64(stop.Nanoseconds()) / 1000000.0))
		statusCode := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency,
			"method":     c.Request.Method,
			"path":       path,
		})

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
			return
		}
		msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, statusCode, latency)
		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error(msg)
		case statusCode >= http.StatusBadRequest:
			entry.Warn(msg)
		default:
			entry.Debug(msg)
		}
	}
}
