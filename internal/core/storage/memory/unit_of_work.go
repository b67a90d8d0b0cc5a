package memory

import (
	"context"
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

var errUnitOfWorkDone = errors.New("unit of work already committed or rolled back")

type docKey struct {
	projection string
	id         string
}

type stagedDoc struct {
	doc     storage.Document
	deleted bool
}

type stagedAppend struct {
	streamID        string
	opts            storage.AppendOptions
	expectedVersion int64
	events          []*v1.Event
}

type progressWrite struct {
	shard    string
	insert   bool
	expected int64
	sequence int64
}

// unitOfWork stages every write and applies them atomically on Commit.
type unitOfWork struct {
	store    *Store
	reserved []int64
	appends  []stagedAppend
	docs     map[docKey]stagedDoc
	docOrder []docKey
	progress []progressWrite
	done     bool
}

// Begin opens a unit of work.
func (s *Store) Begin(context.Context) (storage.UnitOfWork, error) {
	if err := s.injected(OpBegin); err != nil {
		return nil, err
	}
	return &unitOfWork{store: s, docs: make(map[docKey]stagedDoc)}, nil
}

func (u *unitOfWork) AppendEvents(_ context.Context, streamID string, opts storage.AppendOptions, events []*v1.Event) ([]*v1.Event, error) {
	if u.done {
		return nil, errUnitOfWorkDone
	}
	if len(events) == 0 {
		return nil, storage.ErrNoEvents
	}
	if streamID == "" {
		return nil, fmt.Errorf("append: stream id is required")
	}

	pending := make([]*v1.Event, 0, len(events))
	for i, evt := range events {
		cp := *evt
		cp.StreamID = streamID
		if err := cp.Validate(); err != nil {
			return nil, fmt.Errorf("append: event %d: %w", i, err)
		}
		pending = append(pending, &cp)
	}

	s := u.store
	s.mu.Lock()
	reserved := s.reserveLocked(len(pending))
	current, aggregateType := int64(0), ""
	if st, ok := s.streams[streamID]; ok {
		current, aggregateType = st.version, st.aggregateType
	}
	s.mu.Unlock()
	u.reserved = append(u.reserved, reserved...)

	for _, staged := range u.appends {
		if staged.streamID == streamID {
			current = staged.expectedVersion + int64(len(staged.events))
		}
	}

	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != current {
		return nil, fmt.Errorf("%w: stream %q is at version %d, expected %d",
			storage.ErrStreamVersionConflict, streamID, current, *opts.ExpectedVersion)
	}

	if aggregateType == "" {
		aggregateType = opts.AggregateType
	}
	for i, evt := range pending {
		evt.Sequence = reserved[i]
		evt.Version = current + int64(i) + 1
		evt.AggregateTypeName = aggregateType
	}

	u.appends = append(u.appends, stagedAppend{
		streamID:        streamID,
		opts:            opts,
		expectedVersion: current,
		events:          pending,
	})
	return pending, nil
}

func (u *unitOfWork) LoadDocument(ctx context.Context, projection, id string) (storage.Document, error) {
	if staged, ok := u.docs[docKey{projection, id}]; ok {
		if staged.deleted {
			return storage.Document{}, fmt.Errorf("document %s/%s: %w", projection, id, storage.ErrNotFound)
		}
		return staged.doc, nil
	}
	return u.store.LoadDocument(ctx, projection, id)
}

func (u *unitOfWork) UpsertDocument(_ context.Context, doc storage.Document) error {
	if u.done {
		return errUnitOfWorkDone
	}
	u.stageDoc(docKey{doc.ProjectionName, doc.ID}, stagedDoc{doc: cloneDocument(doc)})
	return nil
}

func (u *unitOfWork) DeleteDocument(_ context.Context, projection, id string) error {
	if u.done {
		return errUnitOfWorkDone
	}
	u.stageDoc(docKey{projection, id}, stagedDoc{deleted: true})
	return nil
}

func (u *unitOfWork) stageDoc(key docKey, staged stagedDoc) {
	if _, seen := u.docs[key]; !seen {
		u.docOrder = append(u.docOrder, key)
	}
	u.docs[key] = staged
}

func (u *unitOfWork) InsertProgress(_ context.Context, shard string, sequence int64) error {
	if u.done {
		return errUnitOfWorkDone
	}
	if _, exists := u.effectiveProgress(shard); exists {
		return fmt.Errorf("shard %q: %w", shard, storage.ErrProgressExists)
	}
	u.progress = append(u.progress, progressWrite{shard: shard, insert: true, sequence: sequence})
	return nil
}

func (u *unitOfWork) UpdateProgress(_ context.Context, shard string, expectedPrior, sequence int64) error {
	if u.done {
		return errUnitOfWorkDone
	}
	actual, exists := u.effectiveProgress(shard)
	if !exists || actual != expectedPrior {
		return &storage.ProgressionOutOfOrderError{
			Shard:     shard,
			Expected:  expectedPrior,
			Attempted: sequence,
			Actual:    actual,
			Found:     exists,
		}
	}
	u.progress = append(u.progress, progressWrite{shard: shard, expected: expectedPrior, sequence: sequence})
	return nil
}

// effectiveProgress is the committed value overlaid with this unit's staged writes.
func (u *unitOfWork) effectiveProgress(shard string) (int64, bool) {
	u.store.mu.RLock()
	row, exists := u.store.progress[shard]
	u.store.mu.RUnlock()
	seq := row.LastSequence
	for _, w := range u.progress {
		if w.shard == shard {
			seq, exists = w.sequence, true
		}
	}
	return seq, exists
}

// Commit validates every staged write against the committed state and then
// applies all of them, or none.
func (u *unitOfWork) Commit() error {
	if u.done {
		return errUnitOfWorkDone
	}
	u.done = true

	if err := u.store.injected(OpCommit); err != nil {
		u.store.tombstone(u.reserved)
		return fmt.Errorf("commit unit of work: %w", err)
	}

	s := u.store
	s.mu.Lock()
	if err := u.validateLocked(); err != nil {
		s.mu.Unlock()
		s.tombstone(u.reserved)
		return err
	}

	now := s.clock()
	for _, staged := range u.appends {
		st := s.streamLocked(staged.streamID, staged.opts.AggregateType, staged.events[0].TenantID)
		for _, evt := range staged.events {
			evt.Timestamp = now
			cp := *evt
			cp.AggregateTypeName = ""
			s.insertLocked(&cp)
		}
		st.version = staged.expectedVersion + int64(len(staged.events))
	}

	for _, key := range u.docOrder {
		staged := u.docs[key]
		if staged.deleted {
			if byID, ok := s.documents[key.projection]; ok {
				delete(byID, key.id)
			}
			continue
		}
		doc := staged.doc
		doc.UpdatedAt = now
		byID, ok := s.documents[key.projection]
		if !ok {
			byID = make(map[string]storage.Document)
			s.documents[key.projection] = byID
		}
		byID[key.id] = doc
	}

	for _, w := range u.progress {
		row := s.progress[w.shard]
		row.ShardName = w.shard
		row.TenantDatabase = s.identifier
		row.LastSequence = w.sequence
		row.Version++
		row.UpdatedAt = now
		s.progress[w.shard] = row
	}
	s.mu.Unlock()
	return nil
}

func (u *unitOfWork) validateLocked() error {
	s := u.store
	versions := make(map[string]int64)
	for _, staged := range u.appends {
		current, ok := versions[staged.streamID]
		if !ok {
			if st, exists := s.streams[staged.streamID]; exists {
				current = st.version
			}
		}
		if current != staged.expectedVersion {
			return fmt.Errorf("%w: stream %q moved to version %d during the unit of work",
				storage.ErrStreamVersionConflict, staged.streamID, current)
		}
		versions[staged.streamID] = current + int64(len(staged.events))
	}

	progress := make(map[string]int64)
	for _, w := range u.progress {
		actual, exists := progress[w.shard]
		if !exists {
			var row storage.ProjectionProgress
			row, exists = s.progress[w.shard]
			actual = row.LastSequence
		}
		switch {
		case w.insert && exists:
			return fmt.Errorf("shard %q: %w", w.shard, storage.ErrProgressExists)
		case !w.insert && (!exists || actual != w.expected):
			return &storage.ProgressionOutOfOrderError{
				Shard:     w.shard,
				Expected:  w.expected,
				Attempted: w.sequence,
				Actual:    actual,
				Found:     exists,
			}
		}
		progress[w.shard] = w.sequence
	}
	return nil
}

// Rollback discards staged writes and tombstones reserved sequences.
// Calling it after Commit is a no-op.
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	u.store.tombstone(u.reserved)
	return nil
}
