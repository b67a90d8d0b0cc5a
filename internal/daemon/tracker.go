package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ShardAction is the kind of transition a ShardState announces.
type ShardAction int

const (
	ActionStarted ShardAction = iota
	ActionUpdated
	ActionPaused
	ActionErrored
	ActionStopped
	ActionHighWaterMark
)

func (a ShardAction) String() string {
	switch a {
	case ActionStarted:
		return "started"
	case ActionUpdated:
		return "updated"
	case ActionPaused:
		return "paused"
	case ActionErrored:
		return "errored"
	case ActionStopped:
		return "stopped"
	case ActionHighWaterMark:
		return "high_water_mark"
	}
	return fmt.Sprintf("ShardAction(%d)", int(a))
}

// HighWaterShardName is the ShardName of ActionHighWaterMark states.
const HighWaterShardName = "HighWaterMark"

// ShardState is one published transition. Not persisted.
type ShardState struct {
	Database  string
	ShardName string
	Sequence  int64
	Action    ShardAction
	Err       error
	Timestamp time.Time
}

type shardKey struct {
	database string
	shard    string
}

// Tracker is the in-process hub for shard transitions.
// Publish never blocks: each subscriber owns a queue drained by its own goroutine.
type Tracker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
	latest map[shardKey]ShardState
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		subs:   make(map[int]*subscription),
		latest: make(map[shardKey]ShardState),
	}
}

type subscription struct {
	fn     func(ShardState)
	mu     sync.Mutex
	queue  []ShardState
	wake   chan struct{}
	closed chan struct{}
	done   chan struct{}
}

func (s *subscription) push(state ShardState) {
	s.mu.Lock()
	s.queue = append(s.queue, state)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	defer close(s.done)
	for {
		select {
		case <-s.closed:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.closed:
				return
			default:
			}
			s.fn(next)
		}
	}
}

// Subscribe delivers every later state to fn, in publish order, on a dedicated goroutine.
// The returned function unsubscribes and waits for an in-progress delivery to finish.
func (t *Tracker) Subscribe(fn func(ShardState)) (unsubscribe func()) {
	sub := &subscription{
		fn:     fn,
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = sub
	t.mu.Unlock()

	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(sub.closed)
			<-sub.done
		})
	}
}

// Publish records state as the latest for its shard and fans it out.
func (t *Tracker) Publish(state ShardState) {
	if state.Timestamp.IsZero() {
		state.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	t.latest[shardKey{state.Database, state.ShardName}] = state
	subs := make([]*subscription, 0, len(t.subs))
	for _, sub := range t.subs {
		subs = append(subs, sub)
	}
	t.mu.Unlock()

	for _, sub := range subs {
		sub.push(state)
	}
}

// Latest returns the last state published for a shard.
func (t *Tracker) Latest(database, shard string) (ShardState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.latest[shardKey{database, shard}]
	return state, ok
}

// WaitForShardState blocks until the shard publishes a sequence >= minSequence.
// It fails early with ErrShardPaused when the shard pauses, and with a
// deadline error after timeout.
func (t *Tracker) WaitForShardState(ctx context.Context, database, shard string, minSequence int64, timeout time.Duration) (ShardState, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan ShardState, 1)
	offer := func(state ShardState) bool {
		if state.Database != database || state.ShardName != shard {
			return false
		}
		if state.Sequence >= minSequence || state.Action == ActionPaused {
			select {
			case result <- state:
			default:
			}
			return true
		}
		return false
	}

	// Subscribe before reading the latest state so no transition falls in between.
	unsubscribe := t.Subscribe(func(state ShardState) { offer(state) })
	defer unsubscribe()

	if latest, ok := t.Latest(database, shard); ok {
		offer(latest)
	}

	select {
	case state := <-result:
		if state.Action == ActionPaused && state.Sequence < minSequence {
			return state, fmt.Errorf("%s/%s: %w", database, shard, ErrShardPaused)
		}
		return state, nil
	case <-ctx.Done():
		return ShardState{}, fmt.Errorf("waiting for %s/%s to reach %d: %w", database, shard, minSequence, ctx.Err())
	}
}
