package api

import (
	"fmt"
	"net/http"
	"strconv"

	"dashsync/internal/errors"
	"dashsync/internal/synclog"
	"dashsync/ports"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

func cacheFor(c *gin.Context, seconds int) {
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", seconds))
}

func (s *Server) handleData(c *gin.Context) {
	name := c.Param("name")
	file, ok := s.opts.Routes[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown dataset"})
		return
	}

	data, err := s.store.Get(c.Request.Context(), file.Key)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": file.NotFound})
			return
		}
		s.logger.Error("failed to fetch data", zap.String("key", file.Key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data"})
		return
	}

	cacheFor(c, file.MaxAge)
	c.Data(http.StatusOK, "text/csv", data)
}

// loadRunLog fetches and decodes the run log, writing the error response
// itself when it returns false.
func (s *Server) loadRunLog(c *gin.Context, failure string) (*synclog.RunLog, []byte, bool) {
	data, err := s.store.Get(c.Request.Context(), s.opts.LogKey)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Sync log not found",
				"message": "No sync has been run yet. The log will be created after the first sync.",
			})
			return nil, nil, false
		}
		s.logger.Error("failed to fetch sync log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
		return nil, nil, false
	}

	log, err := synclog.Decode(data)
	if err != nil {
		s.logger.Error("stored sync log is invalid", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
		return nil, nil, false
	}
	return log, data, true
}

func (s *Server) handleSyncLog(c *gin.Context) {
	_, raw, ok := s.loadRunLog(c, "Failed to fetch sync log")
	if !ok {
		return
	}
	cacheFor(c, syncLogMaxAge)
	c.Data(http.StatusOK, "application/json", raw)
}

func (s *Server) handleSyncStatus(c *gin.Context) {
	log, _, ok := s.loadRunLog(c, "Failed to fetch sync status")
	if !ok {
		return
	}
	cacheFor(c, syncLogMaxAge)
	c.JSON(http.StatusOK, gin.H{
		"last_sync":        log.LastSync,
		"status":           log.Status,
		"duration_seconds": log.DurationSeconds,
	})
}

func (s *Server) handleSyncReport(c *gin.Context) {
	log, _, ok := s.loadRunLog(c, "Failed to render sync report")
	if !ok {
		return
	}
	cacheFor(c, syncLogMaxAge)
	c.Data(http.StatusOK, "text/html; charset=utf-8", RenderReportHTML(log))
}

func (s *Server) handleSyncRuns(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run archive not configured"})
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := s.archive.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list archived runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
