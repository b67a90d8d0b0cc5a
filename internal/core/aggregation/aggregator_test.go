package aggregation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOperators_InitialAndApply(t *testing.T) {
	tests := []struct {
		name        string
		op          string
		incoming    decimal.Decimal
		current     decimal.Decimal
		next        decimal.Decimal
		wantInitial decimal.Decimal
		wantApply   decimal.Decimal
	}{
		{
			name:        "count",
			op:          OpCount,
			incoming:    decimal.NewFromInt(123),
			current:     decimal.NewFromInt(9),
			next:        decimal.NewFromInt(456),
			wantInitial: decimal.NewFromInt(1),
			wantApply:   decimal.NewFromInt(10),
		},
		{
			name:        "sum",
			op:          OpSum,
			incoming:    decimal.NewFromInt(3),
			current:     decimal.NewFromInt(9),
			next:        decimal.NewFromInt(4),
			wantInitial: decimal.NewFromInt(3),
			wantApply:   decimal.NewFromInt(13),
		},
		{
			name:        "min keeps lower",
			op:          OpMin,
			incoming:    decimal.NewFromInt(3),
			current:     decimal.NewFromInt(9),
			next:        decimal.NewFromInt(4),
			wantInitial: decimal.NewFromInt(3),
			wantApply:   decimal.NewFromInt(4),
		},
		{
			name:        "min keeps current when incoming is higher",
			op:          OpMin,
			incoming:    decimal.NewFromInt(3),
			current:     decimal.NewFromInt(4),
			next:        decimal.NewFromInt(9),
			wantInitial: decimal.NewFromInt(3),
			wantApply:   decimal.NewFromInt(4),
		},
		{
			name:        "max keeps higher",
			op:          OpMax,
			incoming:    decimal.NewFromInt(3),
			current:     decimal.NewFromInt(9),
			next:        decimal.NewFromInt(4),
			wantInitial: decimal.NewFromInt(3),
			wantApply:   decimal.NewFromInt(9),
		},
		{
			name:        "max takes incoming when incoming is higher",
			op:          OpMax,
			incoming:    decimal.NewFromInt(3),
			current:     decimal.NewFromInt(4),
			next:        decimal.NewFromInt(9),
			wantInitial: decimal.NewFromInt(3),
			wantApply:   decimal.NewFromInt(9),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agg, ok := Operators[tc.op]
			require.True(t, ok)
			require.True(t, tc.wantInitial.Equal(agg.Initial(tc.incoming)))
			require.True(t, tc.wantApply.Equal(agg.Apply(tc.current, tc.next)))
		})
	}
}

func TestValidOperator(t *testing.T) {
	require.True(t, ValidOperator(OpCount))
	require.True(t, ValidOperator(OpSum))
	require.True(t, ValidOperator(OpMin))
	require.True(t, ValidOperator(OpMax))
	require.False(t, ValidOperator("avg"))
	require.False(t, ValidOperator(""))
}

func TestOperators_NeedsField(t *testing.T) {
	require.False(t, Operators[OpCount].NeedsField())
	require.True(t, Operators[OpSum].NeedsField())
	require.True(t, Operators[OpMin].NeedsField())
	require.True(t, Operators[OpMax].NeedsField())
}

func TestFold(t *testing.T) {
	state := RollupState{Operator: OpSum}
	for _, v := range []string{"1.10", "2.20", "3.30"} {
		state = Fold(state, decimal.RequireFromString(v))
	}
	require.Equal(t, int64(3), state.EventCount)
	require.Equal(t, "6.6", state.Value.String())

	count := Fold(Fold(RollupState{Operator: OpCount}, decimal.Zero), decimal.Zero)
	require.Equal(t, "2", count.Value.String())

	lowest := Fold(Fold(RollupState{Operator: OpMin}, decimal.NewFromInt(8)), decimal.NewFromInt(-2))
	require.Equal(t, "-2", lowest.Value.String())
}

func TestRollupState_DocumentRoundTrip(t *testing.T) {
	window := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	state := RollupState{
		Operator:        OpMax,
		Value:           decimal.RequireFromString("12.345678901234567890"),
		EventCount:      4,
		LastSequence:    77,
		RuleFingerprint: "abc",
		WindowStart:     window,
	}

	// Documents coming back from Postgres have been through JSON.
	raw, err := json.Marshal(state.ToDocument())
	require.NoError(t, err)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &data))

	got, err := StateFromDocument(data)
	require.NoError(t, err)
	require.True(t, state.Value.Equal(got.Value))
	require.Equal(t, int64(4), got.EventCount)
	require.Equal(t, int64(77), got.LastSequence)
	require.Equal(t, "abc", got.RuleFingerprint)
	require.True(t, window.Equal(got.WindowStart))

	_, err = StateFromDocument(map[string]interface{}{"value": "nope"})
	require.Error(t, err)
}

func TestRollupKey_DocumentID(t *testing.T) {
	require.Equal(t, "all", RollupKey{Rule: "trips"}.DocumentID())
	require.Equal(t, "trip-1", RollupKey{Rule: "trips", Group: "trip-1"}.DocumentID())
	require.Equal(t, "acme@2026-02-11T10:00:00Z", RollupKey{
		Rule:        "trips",
		Group:       "acme",
		WindowStart: time.Date(2026, 2, 11, 10, 0, 0, 0, time.FixedZone("x", 3600)).Add(time.Hour),
	}.DocumentID())
}
