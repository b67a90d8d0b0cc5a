package projection

import (
	"context"
	"sort"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// HandlerFunc applies one event of a registered type.
type HandlerFunc func(ctx context.Context, session storage.DocumentSession, evt *v1.Event) error

// EventProjection dispatches events to handlers registered per event type.
// The dispatch table is built once at configuration time; event types without
// a handler are skipped.
type EventProjection struct {
	name     string
	opts     Options
	handlers map[string]HandlerFunc
}

// Option configures an EventProjection.
type Option func(*EventProjection)

// WithLifecycle selects inline or async application.
func WithLifecycle(l Lifecycle) Option {
	return func(p *EventProjection) { p.opts.Lifecycle = l }
}

// WithSlices partitions the projection into n stream-hashed shards.
func WithSlices(n int) Option {
	return func(p *EventProjection) { p.opts.Slices = n }
}

// WithAggregateTypes restricts the projection to streams of the given aggregate types.
func WithAggregateTypes(types ...string) Option {
	return func(p *EventProjection) { p.opts.Filter.AggregateTypes = types }
}

// NewEventProjection creates an async projection with no handlers.
func NewEventProjection(name string, opts ...Option) *EventProjection {
	p := &EventProjection{
		name:     name,
		opts:     Options{Lifecycle: Async},
		handlers: make(map[string]HandlerFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// On registers fn for eventType, replacing any earlier registration.
func (p *EventProjection) On(eventType string, fn HandlerFunc) *EventProjection {
	p.handlers[eventType] = fn
	return p
}

func (p *EventProjection) Name() string { return p.name }

// Options returns the configured options with the event type filter derived
// from the registered handlers, so the store only loads events this projection handles.
func (p *EventProjection) Options() Options {
	opts := p.opts
	types := make([]string, 0, len(p.handlers))
	for t := range p.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	opts.Filter.EventTypes = types
	return opts
}

func (p *EventProjection) Apply(ctx context.Context, session storage.DocumentSession, events []*v1.Event) error {
	for _, evt := range events {
		fn, ok := p.handlers[evt.Type]
		if !ok {
			continue
		}
		if err := fn(ctx, session, evt); err != nil {
			if IsTransient(err) || storage.IsTransient(err) {
				return err
			}
			return newApplyError(p.name, evt, err)
		}
	}
	return nil
}
