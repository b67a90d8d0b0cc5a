package memory

import (
	"context"
	"sort"
	"time"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// Append writes events in their own unit of work.
func (s *Store) Append(ctx context.Context, streamID string, opts storage.AppendOptions, events []*v1.Event) ([]*v1.Event, error) {
	uow, err := s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	appended, err := uow.AppendEvents(ctx, streamID, opts, events)
	if err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return appended, nil
}

// FetchHighestAssignedSequence returns the last sequence handed out.
func (s *Store) FetchHighestAssignedSequence(context.Context) (int64, error) {
	if err := s.injected(OpFetchHighest); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highest, nil
}

// FetchEventsInRange returns copies of the matching events in (Floor, Ceiling].
func (s *Store) FetchEventsInRange(_ context.Context, q storage.EventRangeQuery) ([]*v1.Event, error) {
	if err := s.injected(OpFetchRange); err != nil {
		return nil, err
	}
	if q.Ceiling <= q.Floor {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.seqs), func(i int) bool { return s.seqs[i] > q.Floor })

	var out []*v1.Event
	for _, seq := range s.seqs[start:] {
		if seq > q.Ceiling {
			break
		}
		evt := s.events[seq]
		aggregateType := ""
		if st, ok := s.streams[evt.StreamID]; ok {
			aggregateType = st.aggregateType
		}
		if !q.Filter.Matches(evt, aggregateType) {
			continue
		}
		cp := *evt
		cp.AggregateTypeName = ""
		out = append(out, &cp)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// FetchStreamAggregateTypeName returns the stream's aggregate type.
func (s *Store) FetchStreamAggregateTypeName(_ context.Context, streamID string) (string, bool, error) {
	if err := s.injected(OpAggregateType); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.streams[streamID]
	if !ok || st.aggregateType == "" {
		return "", false, nil
	}
	return st.aggregateType, true, nil
}

// LastContiguousSequence walks forward from start while the next sequence exists
// and was committed at or before notAfter.
func (s *Store) LastContiguousSequence(_ context.Context, start int64, notAfter time.Time) (int64, error) {
	if err := s.injected(OpContiguous); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	mark := start
	for {
		evt, ok := s.events[mark+1]
		if !ok {
			return mark, nil
		}
		if !notAfter.IsZero() && evt.Timestamp.After(notAfter) {
			return mark, nil
		}
		mark++
	}
}

// NextEventAfter returns the first persisted sequence above mark.
func (s *Store) NextEventAfter(_ context.Context, mark int64) (int64, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := sort.Search(len(s.seqs), func(i int) bool { return s.seqs[i] > mark })
	if i == len(s.seqs) {
		return 0, time.Time{}, false, nil
	}
	evt := s.events[s.seqs[i]]
	return evt.Sequence, evt.Timestamp, true, nil
}

// LoadHighWaterMark returns the persisted mark.
func (s *Store) LoadHighWaterMark(ctx context.Context) (int64, error) {
	return s.ProgressFor(ctx, storage.HighWaterMarkName)
}

// SaveHighWaterMark stores mark unless a higher one is already stored.
func (s *Store) SaveHighWaterMark(_ context.Context, mark int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.progress[storage.HighWaterMarkName]
	if ok && current.LastSequence >= mark {
		return nil
	}
	current.ShardName = storage.HighWaterMarkName
	current.TenantDatabase = s.identifier
	current.LastSequence = mark
	current.Version++
	current.UpdatedAt = s.clock()
	s.progress[storage.HighWaterMarkName] = current
	return nil
}
