package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// InsertProgress creates a shard's progress row.
func (s *Store) InsertProgress(ctx context.Context, shard string, sequence int64) error {
	return s.writeProgress(ctx, func(uow storage.UnitOfWork) error {
		return uow.InsertProgress(ctx, shard, sequence)
	})
}

// UpdateProgress advances a shard's row under the optimistic guard.
func (s *Store) UpdateProgress(ctx context.Context, shard string, expectedPrior, sequence int64) error {
	return s.writeProgress(ctx, func(uow storage.UnitOfWork) error {
		return uow.UpdateProgress(ctx, shard, expectedPrior, sequence)
	})
}

func (s *Store) writeProgress(ctx context.Context, fn func(storage.UnitOfWork) error) error {
	uow, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

// ProgressFor returns 0 for a shard without a row.
func (s *Store) ProgressFor(_ context.Context, shard string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress[shard].LastSequence, nil
}

// FindProgress returns the shard's row or storage.ErrNotFound.
func (s *Store) FindProgress(_ context.Context, shard string) (storage.ProjectionProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.progress[shard]
	if !ok {
		return storage.ProjectionProgress{}, fmt.Errorf("progress for %q: %w", shard, storage.ErrNotFound)
	}
	return row, nil
}

// AllProgress lists every row ordered by shard name.
func (s *Store) AllProgress(context.Context) ([]storage.ProjectionProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]storage.ProjectionProgress, 0, len(s.progress))
	for _, row := range s.progress {
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ShardName < all[j].ShardName })
	return all, nil
}

// DeleteProgress removes a shard's row.
func (s *Store) DeleteProgress(_ context.Context, shard string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress, shard)
	return nil
}

// LoadDocument returns a copy of the stored document.
func (s *Store) LoadDocument(_ context.Context, projection, id string) (storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[projection][id]
	if !ok {
		return storage.Document{}, fmt.Errorf("document %s/%s: %w", projection, id, storage.ErrNotFound)
	}
	return cloneDocument(doc), nil
}

// ListDocuments returns up to limit documents ordered by id.
func (s *Store) ListDocuments(_ context.Context, projection string, limit int) ([]storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.documents[projection]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	docs := make([]storage.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, cloneDocument(byID[id]))
	}
	return docs, nil
}

// DeleteProjectionDocuments drops every document of a projection.
func (s *Store) DeleteProjectionDocuments(_ context.Context, projection string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := int64(len(s.documents[projection]))
	delete(s.documents, projection)
	return deleted, nil
}

// TryAcquireLease grants the lease when it is free, expired or already held by nodeID.
func (s *Store) TryAcquireLease(_ context.Context, resource, nodeID string, ttl time.Duration) (storage.Lease, bool, error) {
	if err := s.injected(OpAcquireLease); err != nil {
		return storage.Lease{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	current, held := s.leases[resource]
	if held && current.NodeID != nodeID && !current.ExpiresAt.Before(now) {
		return storage.Lease{}, false, nil
	}

	lease := storage.Lease{Resource: resource, NodeID: nodeID, AcquiredAt: now, ExpiresAt: now.Add(ttl)}
	if held && current.NodeID == nodeID {
		lease.AcquiredAt = current.AcquiredAt
	}
	s.leases[resource] = lease
	return lease, true, nil
}

// ReleaseLease drops the lease if nodeID holds it.
func (s *Store) ReleaseLease(_ context.Context, resource, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, held := s.leases[resource]
	if !held || current.NodeID != nodeID {
		return fmt.Errorf("release lease %q: %w", resource, storage.ErrLeaseNotHeld)
	}
	delete(s.leases, resource)
	return nil
}

// CurrentLease returns the lease row regardless of expiry.
func (s *Store) CurrentLease(_ context.Context, resource string) (storage.Lease, error) {
	if err := s.injected(OpCurrentLease); err != nil {
		return storage.Lease{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	lease, ok := s.leases[resource]
	if !ok {
		return storage.Lease{}, fmt.Errorf("lease %q: %w", resource, storage.ErrNotFound)
	}
	return lease, nil
}

func cloneDocument(doc storage.Document) storage.Document {
	data := make(map[string]interface{}, len(doc.Data))
	for k, v := range doc.Data {
		data[k] = v
	}
	doc.Data = data
	return doc
}

// TenantSource is a static storage.DatabaseSource, also used to simulate
// tenants registering at runtime.
type TenantSource struct {
	mu      sync.Mutex
	tenants []storage.TenantDatabase
}

// NewTenantSource returns a source listing tenants.
func NewTenantSource(tenants ...storage.TenantDatabase) *TenantSource {
	return &TenantSource{tenants: tenants}
}

// Add registers another tenant database.
func (t *TenantSource) Add(tenant storage.TenantDatabase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tenants = append(t.tenants, tenant)
}

// TenantDatabases lists the registered tenants.
func (t *TenantSource) TenantDatabases(context.Context) ([]storage.TenantDatabase, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]storage.TenantDatabase, len(t.tenants))
	copy(out, t.tenants)
	return out, nil
}
