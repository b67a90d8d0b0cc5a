package projection

import (
	"context"
	"fmt"
	"sort"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/partition"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// Lifecycle decides where a projection runs.
type Lifecycle int

const (
	// Async projections are driven by the daemon from committed events.
	Async Lifecycle = iota
	// Inline projections are applied inside the append unit of work.
	Inline
)

func (l Lifecycle) String() string {
	if l == Inline {
		return "inline"
	}
	return "async"
}

// AllShardSuffix names the single shard of an unpartitioned projection.
const AllShardSuffix = "All"

// Options describe how a projection is scheduled.
type Options struct {
	Lifecycle Lifecycle
	Filter    storage.EventFilter
	Slices    int // >1 splits the projection into that many stream-partitioned shards
}

// Projection turns events into documents.
// Apply receives events in ascending sequence order and writes through session;
// the caller commits session together with the shard's progress.
type Projection interface {
	Name() string
	Options() Options
	Apply(ctx context.Context, session storage.DocumentSession, events []*v1.Event) error
}

// Teardowner is implemented by projections that own state beyond their documents.
// Without it a rebuild deletes the projection's documents.
type Teardowner interface {
	Teardown(ctx context.Context, docs storage.DocumentStore) error
}

// Shard is the unit of scheduling: one projection, optionally restricted to a slice of streams.
type Shard struct {
	Name       string
	Projection Projection
	Filter     storage.EventFilter
	Slice      int
	Slices     int
}

// Accepts reports whether evt belongs to this shard. evt.AggregateTypeName must be resolved.
func (s Shard) Accepts(evt *v1.Event) bool {
	if !s.Filter.Matches(evt, evt.AggregateTypeName) {
		return false
	}
	return s.Slices <= 1 || partition.For(evt.StreamID, s.Slices) == s.Slice
}

// ShardsFor expands a projection into its shards: "<name>:All" or "<name>:0".."<name>:N-1".
func ShardsFor(p Projection) []Shard {
	opts := p.Options()
	if opts.Slices <= 1 {
		return []Shard{{
			Name:       fmt.Sprintf("%s:%s", p.Name(), AllShardSuffix),
			Projection: p,
			Filter:     opts.Filter,
		}}
	}

	shards := make([]Shard, 0, opts.Slices)
	for i := 0; i < opts.Slices; i++ {
		shards = append(shards, Shard{
			Name:       fmt.Sprintf("%s:%d", p.Name(), i),
			Projection: p,
			Filter:     opts.Filter,
			Slice:      i,
			Slices:     opts.Slices,
		})
	}
	return shards
}

// Registry holds the configured projections by name.
type Registry struct {
	byName map[string]Projection
	names  []string
}

// NewRegistry fails on duplicate or empty names.
func NewRegistry(projections ...Projection) (*Registry, error) {
	r := &Registry{byName: make(map[string]Projection, len(projections))}
	for _, p := range projections {
		if p.Name() == "" {
			return nil, fmt.Errorf("projection name is required")
		}
		if _, dup := r.byName[p.Name()]; dup {
			return nil, fmt.Errorf("projection %q registered twice", p.Name())
		}
		r.byName[p.Name()] = p
		r.names = append(r.names, p.Name())
	}
	sort.Strings(r.names)
	return r, nil
}

// Get returns the projection called name.
func (r *Registry) Get(name string) (Projection, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// All returns every projection ordered by name.
func (r *Registry) All() []Projection {
	out := make([]Projection, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// Inline returns the projections applied on the append path.
func (r *Registry) Inline() []Projection {
	return r.withLifecycle(Inline)
}

// AsyncShards returns the shards the daemon runs, ordered by projection then slice.
func (r *Registry) AsyncShards() []Shard {
	var shards []Shard
	for _, p := range r.withLifecycle(Async) {
		shards = append(shards, ShardsFor(p)...)
	}
	return shards
}

func (r *Registry) withLifecycle(l Lifecycle) []Projection {
	var out []Projection
	for _, p := range r.All() {
		if p.Options().Lifecycle == l {
			out = append(out, p)
		}
	}
	return out
}
