package aggregation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Supported rollup operators.
// avg and last are deferred; they need composite state (sum+count, value+timestamp).
const (
	OpCount = "count"
	OpSum   = "sum"
	OpMin   = "min"
	OpMax   = "max"
)

// Grouping dimensions of a rollup rule.
const (
	GroupByNone          = ""
	GroupByStream        = "stream"
	GroupByTenant        = "tenant"
	GroupByAggregateType = "aggregate_type"
)

// RollupKey identifies one materialized rollup document.
type RollupKey struct {
	Rule        string
	Group       string
	WindowStart time.Time
}

// DocumentID renders the key as a projection document id.
func (k RollupKey) DocumentID() string {
	parts := []string{k.Group}
	if k.Group == "" {
		parts[0] = "all"
	}
	if !k.WindowStart.IsZero() {
		parts = append(parts, k.WindowStart.UTC().Format(time.RFC3339))
	}
	return strings.Join(parts, "@")
}

// RollupState is the materialized value of one rollup group.
type RollupState struct {
	Operator        string          // count, sum, min, max
	Value           decimal.Decimal // exact arithmetic
	EventCount      int64           // events folded so far
	LastSequence    int64           // sequence of the last folded event
	RuleFingerprint string          // SHA-256 of the rule file
	WindowStart     time.Time       // zero when the rule is not windowed
}

// ToDocument renders the state as document data. Value travels as a string
// so JSON round-trips keep exact precision.
func (s RollupState) ToDocument() map[string]interface{} {
	data := map[string]interface{}{
		"operator":         s.Operator,
		"value":            s.Value.String(),
		"event_count":      s.EventCount,
		"last_sequence":    s.LastSequence,
		"rule_fingerprint": s.RuleFingerprint,
	}
	if !s.WindowStart.IsZero() {
		data["window_start"] = s.WindowStart.UTC().Format(time.RFC3339)
	}
	return data
}

// StateFromDocument parses what ToDocument produced, after a JSON round-trip or not.
func StateFromDocument(data map[string]interface{}) (RollupState, error) {
	var s RollupState
	s.Operator, _ = data["operator"].(string)
	s.RuleFingerprint, _ = data["rule_fingerprint"].(string)

	raw, _ := data["value"].(string)
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return RollupState{}, fmt.Errorf("rollup value %q: %w", raw, err)
	}
	s.Value = value
	s.EventCount = toInt64(data["event_count"])
	s.LastSequence = toInt64(data["last_sequence"])

	if ws, ok := data["window_start"].(string); ok && ws != "" {
		s.WindowStart, err = time.Parse(time.RFC3339, ws)
		if err != nil {
			return RollupState{}, fmt.Errorf("rollup window_start %q: %w", ws, err)
		}
	}
	return s, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
