package aggregation

import (
	"github.com/shopspring/decimal"
)

// Aggregator is the reduce step of a rollup operator.
// Register new operators in Operators; the rollup projection only does a map lookup.
type Aggregator interface {
	// Initial is the rollup value after the first event of a group.
	Initial(incoming decimal.Decimal) decimal.Decimal

	// Apply folds one more event into an existing value.
	Apply(current, incoming decimal.Decimal) decimal.Decimal

	// NeedsField reports whether the operator reads a numeric event field.
	NeedsField() bool
}

// Operators is the registry of rollup operators.
var Operators = map[string]Aggregator{
	OpCount: countAgg{},
	OpSum:   sumAgg{},
	OpMin:   minAgg{},
	OpMax:   maxAgg{},
}

// ValidOperator reports whether op is a registered rollup operator.
func ValidOperator(op string) bool {
	_, ok := Operators[op]
	return ok
}

// Fold applies one event's value to state, starting the group when state is new.
func Fold(state RollupState, incoming decimal.Decimal) RollupState {
	agg := Operators[state.Operator]
	if state.EventCount == 0 {
		state.Value = agg.Initial(incoming)
	} else {
		state.Value = agg.Apply(state.Value, incoming)
	}
	state.EventCount++
	return state
}

type countAgg struct{}

func (countAgg) Initial(_ decimal.Decimal) decimal.Decimal    { return decimal.NewFromInt(1) }
func (countAgg) Apply(cur, _ decimal.Decimal) decimal.Decimal { return cur.Add(decimal.NewFromInt(1)) }
func (countAgg) NeedsField() bool                             { return false }

type sumAgg struct{}

func (sumAgg) Initial(v decimal.Decimal) decimal.Decimal      { return v }
func (sumAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal { return cur.Add(inc) }
func (sumAgg) NeedsField() bool                               { return true }

type minAgg struct{}

func (minAgg) Initial(v decimal.Decimal) decimal.Decimal { return v }
func (minAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if inc.LessThan(cur) {
		return inc
	}
	return cur
}
func (minAgg) NeedsField() bool { return true }

type maxAgg struct{}

func (maxAgg) Initial(v decimal.Decimal) decimal.Decimal { return v }
func (maxAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if inc.GreaterThan(cur) {
		return inc
	}
	return cur
}
func (maxAgg) NeedsField() bool { return true }
