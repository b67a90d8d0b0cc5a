package admin

import (
	"context"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/daemon"
	"github.com/gin-gonic/gin"
)

const (
	defaultWaitTimeout = 5 * time.Second
	maxWaitTimeout     = 60 * time.Second
)

// Controller is the slice of the daemon the control surface drives.
type Controller interface {
	AllProjectionProgress(ctx context.Context, database string) ([]storage.ProjectionProgress, error)
	ProjectionProgressFor(ctx context.Context, database, shard string) (storage.ProjectionProgress, error)
	ShardStatuses(database string) ([]daemon.ShardStatus, error)
	HighWater(database string) (daemon.HighWaterStatistics, error)
	PauseShard(database, shard string) error
	ResumeShard(database, shard string) error
	RebuildProjection(ctx context.Context, name string) error
	WaitForNonStaleData(ctx context.Context, database string, timeout time.Duration) error
}

// Service exposes daemon control over HTTP.
type Service struct {
	ctrl Controller
}

func NewService(ctrl Controller) *Service {
	if ctrl == nil {
		panic("admin: controller must not be nil")
	}
	return &Service{ctrl: ctrl}
}

// RegisterRoutes registers the daemon control routes.
// Every route takes an optional database query parameter; an empty database
// selects the primary one, or all of them for the list endpoints.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/v1/daemon")
	g.GET("/progress", s.HandleAllProgress)
	g.GET("/progress/:shard", s.HandleProgress)
	g.GET("/shards", s.HandleShards)
	g.GET("/highwater", s.HandleHighWater)
	g.POST("/shards/:shard/pause", s.HandlePause)
	g.POST("/shards/:shard/resume", s.HandleResume)
	g.POST("/projections/:projection/rebuild", s.HandleRebuild)
	g.POST("/wait", s.HandleWait)
}
