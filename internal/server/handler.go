package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"candleservice/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// FlagRequest is the body of PUT /flag.
type FlagRequest struct {
	Flag *string `json:"flag" binding:"required"`
}

// GetCandle handles GET /candle requests.
func (s *Server) GetCandle(c *gin.Context) {
	q, err := s.validator.ValidateCandleQuery(
		c.Query("code"), c.Query("year"), c.Query("month"), c.Query("day"), c.Query("hour"), c.Query("tz"),
	)
	if err != nil {
		s.handleValidationError(c, err)
		return
	}

	start := time.Now()
	candle, res := s.agg.Query(s.store.Index(), q.Code, q.Start)
	if s.metrics != nil {
		s.metrics.ObserveQuery(res, time.Since(start))
	}

	s.logger.Debug("candle query",
		zap.String("request_id", requestID(c)),
		zap.String("code", q.Code),
		zap.Time("start", q.Start),
		zap.String("resolution", string(res)),
	)
	c.JSON(http.StatusOK, candle)
}

// PutFlag handles PUT /flag requests.
func (s *Server) PutFlag(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleValidationError(c, fmt.Errorf("invalid flag body: %w", err))
		return
	}

	s.logger.Info("received flag", zap.String("request_id", requestID(c)), zap.String("flag", *req.Flag))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStats handles GET /stats requests.
func (s *Server) GetStats(c *gin.Context) {
	snap := s.store.Current()
	c.JSON(http.StatusOK, gin.H{
		"generation": snap.Generation,
		"loaded_at":  snap.LoadedAt.Format(time.RFC3339),
		"fallback":   s.agg.Fallback(),
		"index":      snap.Index.Stats(),
	})
}

// HealthCheck handles GET /health requests.
func (s *Server) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":     "OK",
		"service":    logger.ServiceName,
		"version":    ServiceVersion,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"index_rows": s.store.Index().Len(),
	}
	status := http.StatusOK

	if s.sourceHealth != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if s.sourceHealth.IsHealthy(ctx) {
			body["source"] = "up"
		} else {
			body["source"] = "down"
			body["status"] = "DEGRADED"
			status = http.StatusServiceUnavailable
			s.logger.Warn("tick source unreachable", zap.String("request_id", requestID(c)))
		}
	}

	c.JSON(status, body)
}

func (s *Server) recover(c *gin.Context, v any) {
	s.handleError(c, fmt.Errorf("panic: %v", v), http.StatusInternalServerError, "Internal server error")
	c.Abort()
}

// handleError logs the error and sends the JSON error body.
func (s *Server) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	id := requestID(c)
	s.logger.Error("API error",
		zap.String("request_id", id),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status_code", statusCode),
		zap.Error(err),
	)

	c.JSON(statusCode, gin.H{
		"error":      userMessage,
		"request_id": id,
	})
}

func (s *Server) handleValidationError(c *gin.Context, err error) {
	s.handleError(c, err, http.StatusBadRequest, err.Error())
}
