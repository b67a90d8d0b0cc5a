// Package memory is an in-process implementation of every storage contract.
// It backs `database.type: memory` and the daemon's behavioral tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// Operation names the store calls a fault injector can intercept.
type Operation string

const (
	OpFetchRange    Operation = "fetch_range"
	OpFetchHighest  Operation = "fetch_highest"
	OpAggregateType Operation = "aggregate_type"
	OpContiguous    Operation = "contiguous"
	OpBegin         Operation = "begin"
	OpCommit        Operation = "commit"
	OpAcquireLease  Operation = "acquire_lease"
	OpCurrentLease  Operation = "current_lease"
)

type stream struct {
	version       int64
	aggregateType string
	tenantID      string
}

// Store keeps one tenant database in memory.
type Store struct {
	mu         sync.RWMutex
	identifier string
	clock      func() time.Time
	fault      func(Operation) error

	highest   int64
	events    map[int64]*v1.Event
	seqs      []int64
	streams   map[string]*stream
	progress  map[string]storage.ProjectionProgress
	documents map[string]map[string]storage.Document
	leases    map[string]storage.Lease
	closed    bool
}

var _ storage.Database = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the store clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// New creates an empty store named identifier.
func New(identifier string, opts ...Option) *Store {
	s := &Store{
		identifier: identifier,
		clock:      time.Now,
		events:     make(map[int64]*v1.Event),
		streams:    make(map[string]*stream),
		progress:   make(map[string]storage.ProjectionProgress),
		documents:  make(map[string]map[string]storage.Document),
		leases:     make(map[string]storage.Lease),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFaultInjector installs fn; a non-nil return fails the intercepted call.
// Pass nil to remove it.
func (s *Store) SetFaultInjector(fn func(Operation) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

func (s *Store) injected(op Operation) error {
	s.mu.RLock()
	fn := s.fault
	s.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(op)
}

// DeleteEvents removes persisted events, simulating rows that vanished after
// their sequence number was assigned.
func (s *Store) DeleteEvents(sequences ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seq := range sequences {
		if _, ok := s.events[seq]; !ok {
			continue
		}
		delete(s.events, seq)
		i := sort.Search(len(s.seqs), func(i int) bool { return s.seqs[i] >= seq })
		s.seqs = append(s.seqs[:i], s.seqs[i+1:]...)
	}
}

// ReserveSequences advances the sequence generator without writing rows,
// simulating transactions that are still in flight.
func (s *Store) ReserveSequences(n int) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserveLocked(n)
}

// CompleteReserved persists an event at a sequence handed out by ReserveSequences,
// simulating a slow transaction that finally commits.
func (s *Store) CompleteReserved(seq int64, streamID string, evt *v1.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[seq]; ok || seq > s.highest {
		return fmt.Errorf("sequence %d is not an open reservation", seq)
	}
	cp := *evt
	cp.StreamID = streamID
	if err := cp.Validate(); err != nil {
		return err
	}
	st := s.streamLocked(streamID, "", cp.TenantID)
	st.version++
	cp.Sequence = seq
	cp.Version = st.version
	cp.Timestamp = s.clock()
	s.insertLocked(&cp)
	return nil
}

func (s *Store) reserveLocked(n int) []int64 {
	reserved := make([]int64, n)
	for i := range reserved {
		s.highest++
		reserved[i] = s.highest
	}
	return reserved
}

func (s *Store) streamLocked(streamID, aggregateType, tenantID string) *stream {
	st, ok := s.streams[streamID]
	if !ok {
		st = &stream{tenantID: tenantID}
		s.streams[streamID] = st
	}
	if st.aggregateType == "" {
		st.aggregateType = aggregateType
	}
	return st
}

func (s *Store) insertLocked(evt *v1.Event) {
	if _, exists := s.events[evt.Sequence]; !exists {
		i := sort.Search(len(s.seqs), func(i int) bool { return s.seqs[i] >= evt.Sequence })
		s.seqs = append(s.seqs, 0)
		copy(s.seqs[i+1:], s.seqs[i:])
		s.seqs[i] = evt.Sequence
	}
	s.events[evt.Sequence] = evt
}

func (s *Store) tombstone(sequences []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	for _, seq := range sequences {
		if _, ok := s.events[seq]; ok {
			continue
		}
		s.insertLocked(v1.NewTombstone(seq, now))
	}
}

// Identifier names the database.
func (s *Store) Identifier() string {
	return s.identifier
}

// Ping fails once the store is closed.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("memory store %q is closed", s.identifier)
	}
	return nil
}

// Close marks the store closed. Data stays readable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Now returns the store clock.
func (s *Store) Now(context.Context) (time.Time, error) {
	return s.clock(), nil
}
