package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/aggregation"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/shopspring/decimal"
)

// RollupProjection materializes one rollup rule: a document per group (and per
// window when the rule is windowed) holding the folded decimal value.
type RollupProjection struct {
	rule   aggregation.RollupRule
	logger *slog.Logger
}

// NewRollupProjection builds the projection for a validated rule.
func NewRollupProjection(rule aggregation.RollupRule, logger *slog.Logger) *RollupProjection {
	if logger == nil {
		logger = slog.Default()
	}
	return &RollupProjection{rule: rule, logger: logger}
}

// RollupProjections builds one projection per rule.
func RollupProjections(rules []aggregation.RollupRule, logger *slog.Logger) []Projection {
	out := make([]Projection, 0, len(rules))
	for _, rule := range rules {
		out = append(out, NewRollupProjection(rule, logger))
	}
	return out
}

func (p *RollupProjection) Name() string { return p.rule.Name }

func (p *RollupProjection) Options() Options {
	return Options{
		Lifecycle: Async,
		Filter: storage.EventFilter{
			EventTypes:     p.rule.SourceEvents,
			AggregateTypes: p.rule.AggregateTypes,
		},
		Slices: p.rule.Slices,
	}
}

type pendingRollup struct {
	key      aggregation.RollupKey
	tenantID string
	state    aggregation.RollupState
}

// Apply folds events into their groups. Each group document is loaded once and
// written once per call; events at or below a document's last_sequence are
// already folded and are skipped.
func (p *RollupProjection) Apply(ctx context.Context, session storage.DocumentSession, events []*v1.Event) error {
	pending := make(map[string]*pendingRollup)
	var order []string

	for _, evt := range events {
		incoming := decimal.Zero
		if p.rule.Operator != aggregation.OpCount {
			v, ok := aggregation.ExtractDecimal(evt.Data, p.rule.Field)
			if !ok {
				p.logger.Debug("[Rollup] Event has no numeric field, skipping",
					"rule", p.rule.Name, "field", p.rule.Field, "sequence", evt.Sequence)
				continue
			}
			incoming = v
		}

		key := aggregation.RollupKey{
			Rule:        p.rule.Name,
			Group:       p.groupOf(evt),
			WindowStart: aggregation.BucketFor(evt.Timestamp, p.rule.WindowSize),
		}
		id := key.DocumentID()

		entry, seen := pending[id]
		if !seen {
			state, err := p.loadState(ctx, session, id)
			if err != nil {
				return newApplyError(p.rule.Name, evt, err)
			}
			entry = &pendingRollup{key: key, tenantID: p.tenantOf(evt), state: state}
			pending[id] = entry
			order = append(order, id)
		}

		if evt.Sequence <= entry.state.LastSequence {
			continue
		}
		entry.state = aggregation.Fold(entry.state, incoming)
		entry.state.LastSequence = evt.Sequence
	}

	for _, id := range order {
		entry := pending[id]
		if entry.state.EventCount == 0 {
			continue
		}
		entry.state.RuleFingerprint = p.rule.Fingerprint
		entry.state.WindowStart = entry.key.WindowStart
		if err := session.UpsertDocument(ctx, storage.Document{
			ProjectionName: p.rule.Name,
			ID:             id,
			TenantID:       entry.tenantID,
			Data:           entry.state.ToDocument(),
			LastSequence:   entry.state.LastSequence,
		}); err != nil {
			return fmt.Errorf("upsert rollup %s/%s: %w", p.rule.Name, id, err)
		}
	}
	return nil
}

func (p *RollupProjection) loadState(ctx context.Context, session storage.DocumentSession, id string) (aggregation.RollupState, error) {
	doc, err := session.LoadDocument(ctx, p.rule.Name, id)
	if errors.Is(err, storage.ErrNotFound) {
		return aggregation.RollupState{Operator: p.rule.Operator}, nil
	}
	if err != nil {
		if storage.IsTransient(err) {
			return aggregation.RollupState{}, Transient(err)
		}
		return aggregation.RollupState{}, err
	}

	state, err := aggregation.StateFromDocument(doc.Data)
	if err != nil {
		return aggregation.RollupState{}, err
	}
	if state.RuleFingerprint != p.rule.Fingerprint {
		p.logger.Warn("[Rollup] Document was built by a different rule version; rebuild the projection to recompute",
			"rule", p.rule.Name, "document", id)
	}
	state.Operator = p.rule.Operator
	return state, nil
}

func (p *RollupProjection) groupOf(evt *v1.Event) string {
	switch p.rule.GroupBy {
	case aggregation.GroupByStream:
		return evt.StreamID
	case aggregation.GroupByTenant:
		return evt.TenantID
	case aggregation.GroupByAggregateType:
		return evt.AggregateTypeName
	default:
		return ""
	}
}

func (p *RollupProjection) tenantOf(evt *v1.Event) string {
	if p.rule.GroupBy == aggregation.GroupByTenant || p.rule.GroupBy == aggregation.GroupByStream {
		return evt.TenantID
	}
	return ""
}
