package ingestion

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/projection"
	"github.com/gin-gonic/gin"
)

// Databases resolves an attached database by name.
type Databases interface {
	Database(name string) (storage.Database, bool)
}

type Service struct {
	databases        Databases
	inline           []projection.Projection
	defaultDatabase  string
	maxBodySizeBytes int
}

// NewService creates the append service. Inline projections from registry are
// applied inside the append unit of work; registry may be nil.
func NewService(databases Databases, registry *projection.Registry, defaultDatabase string, maxBodySizeMB int) *Service {
	if databases == nil {
		panic("ingestion: databases must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	var inline []projection.Projection
	if registry != nil {
		inline = registry.Inline()
	}
	return &Service{
		databases:        databases,
		inline:           inline,
		defaultDatabase:  defaultDatabase,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/streams/:stream_id/events", s.AppendHandler)
}

// Append writes events to one stream and applies inline projections in the same
// unit of work. Nothing is persisted when any step fails.
func (s *Service) Append(ctx context.Context, db storage.Database, streamID string, opts storage.AppendOptions, events []*v1.Event) ([]*v1.Event, error) {
	uow, err := db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback()
		}
	}()

	persisted, err := uow.AppendEvents(ctx, streamID, opts, events)
	if err != nil {
		return nil, err
	}

	for _, p := range s.inline {
		filter := p.Options().Filter
		matching := make([]*v1.Event, 0, len(persisted))
		for _, evt := range persisted {
			if filter.Matches(evt, evt.AggregateTypeName) {
				matching = append(matching, evt)
			}
		}
		if len(matching) == 0 {
			continue
		}
		if err := p.Apply(ctx, uow, matching); err != nil {
			return nil, fmt.Errorf("inline projection %s: %w", p.Name(), err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	committed = true
	return persisted, nil
}
