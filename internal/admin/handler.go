package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	httperr "github.com/aevon-lab/projection-daemon/internal/core/errors"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/daemon"
	"github.com/gin-gonic/gin"
)

type progressResponse struct {
	Progress []storage.ProjectionProgress `json:"progress"`
}

type shardsResponse struct {
	Shards []daemon.ShardStatus `json:"shards"`
}

// waitRequest is the body of POST /v1/daemon/wait.
type waitRequest struct {
	Database string `json:"database"`
	Timeout  string `json:"timeout"` // Go duration; defaults to 5s
}

// HandleAllProgress handles GET /v1/daemon/progress
func (s *Service) HandleAllProgress(c *gin.Context) {
	rows, err := s.ctrl.AllProjectionProgress(c.Request.Context(), c.Query("database"))
	if err != nil {
		writeControlError(c, err)
		return
	}
	if rows == nil {
		rows = []storage.ProjectionProgress{}
	}
	c.JSON(http.StatusOK, progressResponse{Progress: rows})
}

// HandleProgress handles GET /v1/daemon/progress/:shard
func (s *Service) HandleProgress(c *gin.Context) {
	row, err := s.ctrl.ProjectionProgressFor(c.Request.Context(), c.Query("database"), c.Param("shard"))
	if err != nil {
		writeControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// HandleShards handles GET /v1/daemon/shards
func (s *Service) HandleShards(c *gin.Context) {
	statuses, err := s.ctrl.ShardStatuses(c.Query("database"))
	if err != nil {
		writeControlError(c, err)
		return
	}
	if statuses == nil {
		statuses = []daemon.ShardStatus{}
	}
	c.JSON(http.StatusOK, shardsResponse{Shards: statuses})
}

// HandleHighWater handles GET /v1/daemon/highwater
func (s *Service) HandleHighWater(c *gin.Context) {
	stats, err := s.ctrl.HighWater(c.Query("database"))
	if err != nil {
		writeControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandlePause handles POST /v1/daemon/shards/:shard/pause
func (s *Service) HandlePause(c *gin.Context) {
	database, shard := c.Query("database"), c.Param("shard")
	if err := s.ctrl.PauseShard(database, shard); err != nil {
		writeControlError(c, err)
		return
	}
	slog.Info("[Admin] Shard paused", "database", database, "shard", shard)
	c.JSON(http.StatusOK, gin.H{"status": "paused", "shard": shard})
}

// HandleResume handles POST /v1/daemon/shards/:shard/resume
func (s *Service) HandleResume(c *gin.Context) {
	database, shard := c.Query("database"), c.Param("shard")
	if err := s.ctrl.ResumeShard(database, shard); err != nil {
		writeControlError(c, err)
		return
	}
	slog.Info("[Admin] Shard resumed", "database", database, "shard", shard)
	c.JSON(http.StatusOK, gin.H{"status": "resumed", "shard": shard})
}

// HandleRebuild handles POST /v1/daemon/projections/:projection/rebuild
// The call returns once the projection's state is discarded and its shards restarted;
// the replay itself runs in the background.
func (s *Service) HandleRebuild(c *gin.Context) {
	name := c.Param("projection")
	if err := s.ctrl.RebuildProjection(c.Request.Context(), name); err != nil {
		writeControlError(c, err)
		return
	}
	slog.Info("[Admin] Projection rebuild started", "projection", name)
	c.JSON(http.StatusAccepted, gin.H{"status": "rebuilding", "projection": name})
}

// HandleWait handles POST /v1/daemon/wait
func (s *Service) HandleWait(c *gin.Context) {
	var req waitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidJsonError,
				Message:   "Invalid JSON body",
				Details:   err.Error(),
			})
			return
		}
	}

	timeout := defaultWaitTimeout
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil || d <= 0 || d > maxWaitTimeout {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpValidationError,
				Message:   "timeout must be a duration between 0 and " + maxWaitTimeout.String(),
				Details:   req.Timeout,
			})
			return
		}
		timeout = d
	}

	if err := s.ctrl.WaitForNonStaleData(c.Request.Context(), req.Database, timeout); err != nil {
		writeControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "caught_up"})
}

func writeControlError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, daemon.ErrShardNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpShardNotFoundError,
			Message:   err.Error(),
		})
	case errors.Is(err, daemon.ErrProjectionNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpProjectionNotFound,
			Message:   err.Error(),
		})
	case errors.Is(err, daemon.ErrDatabaseNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   err.Error(),
		})
	case errors.Is(err, daemon.ErrStaleData), errors.Is(err, daemon.ErrShardPaused):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpStaleDataError,
			Message:   err.Error(),
		})
	case errors.Is(err, daemon.ErrNotLeader), errors.Is(err, daemon.ErrDaemonStopped):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpDaemonUnavailableError,
			Message:   err.Error(),
		})
	default:
		slog.Error("[Admin] Control operation failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Daemon control operation failed",
			Details:   err.Error(),
		})
	}
}
