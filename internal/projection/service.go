package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxWait          = 30 * time.Second
)

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid document query")

	// ErrUnknownProjection is returned for a projection name that is not registered.
	ErrUnknownProjection = errors.New("unknown projection")

	// ErrUnknownDatabase is returned for a database the daemon has not attached.
	ErrUnknownDatabase = errors.New("unknown database")

	// ErrStaleData is returned when projections did not reach the high-water mark in time.
	ErrStaleData = errors.New("projections have not caught up with the event log")
)

// DocumentStores resolves the document store of an attached database.
type DocumentStores interface {
	DocumentStore(database string) (storage.DocumentStore, bool)
}

// StaleWaiter blocks until every shard of database reached the high-water mark.
// It returns an error wrapping ErrStaleData on timeout.
type StaleWaiter interface {
	WaitForNonStaleData(ctx context.Context, database string, timeout time.Duration) error
}

// Service implements the document read path.
type Service struct {
	stores          DocumentStores
	waiter          StaleWaiter
	registry        *Registry
	defaultDatabase string
}

// NewService creates the query service. waiter may be nil when the daemon is disabled.
func NewService(stores DocumentStores, waiter StaleWaiter, registry *Registry, defaultDatabase string) *Service {
	return &Service{
		stores:          stores,
		waiter:          waiter,
		registry:        registry,
		defaultDatabase: defaultDatabase,
	}
}

// GetDocument loads one document.
func (s *Service) GetDocument(ctx context.Context, req DocumentQueryRequest) (*DocumentResponse, error) {
	req, store, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, invalidQueryf("id is required")
	}

	stale, err := s.waitIfRequested(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, err := store.LoadDocument(ctx, req.Projection, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load document %s/%s: %w", req.Projection, req.ID, err)
	}
	resp := toResponse(req.Database, doc, stale)
	return &resp, nil
}

// ListDocuments returns up to req.Limit documents ordered by id.
func (s *Service) ListDocuments(ctx context.Context, req DocumentQueryRequest) (*DocumentListResponse, error) {
	req, store, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if req.Limit == 0 {
		req.Limit = defaultListLimit
	}
	if req.Limit < 0 || req.Limit > maxListLimit {
		return nil, invalidQueryf("limit must be between 1 and %d", maxListLimit)
	}

	stale, err := s.waitIfRequested(ctx, req)
	if err != nil {
		return nil, err
	}

	docs, err := store.ListDocuments(ctx, req.Projection, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list documents %s: %w", req.Projection, err)
	}

	resp := &DocumentListResponse{
		Database:   req.Database,
		Projection: req.Projection,
		Stale:      stale,
		Documents:  make([]DocumentResponse, 0, len(docs)),
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, toResponse(req.Database, doc, stale))
	}
	return resp, nil
}

func (s *Service) prepare(req DocumentQueryRequest) (DocumentQueryRequest, storage.DocumentStore, error) {
	if req.Database == "" {
		req.Database = s.defaultDatabase
	}
	if req.Projection == "" {
		return req, nil, invalidQueryf("projection is required")
	}
	if req.Wait < 0 || req.Wait > maxWait {
		return req, nil, invalidQueryf("wait must be between 0 and %s", maxWait)
	}
	if s.registry != nil {
		if _, ok := s.registry.Get(req.Projection); !ok {
			return req, nil, fmt.Errorf("%w: %s", ErrUnknownProjection, req.Projection)
		}
	}
	store, ok := s.stores.DocumentStore(req.Database)
	if !ok {
		return req, nil, fmt.Errorf("%w: %s", ErrUnknownDatabase, req.Database)
	}
	return req, store, nil
}

// waitIfRequested reports stale=true instead of failing when the wait times out;
// the caller still gets the last committed document.
func (s *Service) waitIfRequested(ctx context.Context, req DocumentQueryRequest) (bool, error) {
	if req.Wait <= 0 || s.waiter == nil {
		return false, nil
	}
	err := s.waiter.WaitForNonStaleData(ctx, req.Database, req.Wait)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, ErrStaleData) {
		slog.Warn("[Query] Serving stale documents", "database", req.Database, "projection", req.Projection, "wait", req.Wait)
		return true, nil
	}
	return false, fmt.Errorf("wait for non-stale data: %w", err)
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
