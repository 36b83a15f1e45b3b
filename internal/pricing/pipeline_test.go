package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rule(op AdjustmentOp, adj Adjustment, priority int) Rule {
	adj.Op = op
	return Rule{Adjustment: adj, Priority: priority, IsActive: true}
}

func TestApplyAdjustmentsOperations(t *testing.T) {
	require.InDelta(t, 90000, ApplyAdjustments(100000, []Rule{rule(OpFixedDiscount, Adjustment{Amount: 10000}, 1)}), 0.001)
	require.InDelta(t, 105000, ApplyAdjustments(100000, []Rule{rule(OpFixedMarkup, Adjustment{Amount: 5000}, 1)}), 0.001)
	require.InDelta(t, 90000, ApplyAdjustments(100000, []Rule{rule(OpPercentageDiscount, Adjustment{Percent: 10}, 1)}), 0.001)
	require.InDelta(t, 120000, ApplyAdjustments(100000, []Rule{rule(OpPercentageMarkup, Adjustment{Percent: 20}, 1)}), 0.001)
	require.InDelta(t, 60000, ApplyAdjustments(100000, []Rule{rule(OpSetPrice, Adjustment{Price: 60000}, 1)}), 0.001)
}

func TestApplyAdjustmentsChainsInOrder(t *testing.T) {
	rules := []Rule{
		rule(OpPercentageDiscount, Adjustment{Percent: 10}, 10),
		rule(OpFixedMarkup, Adjustment{Amount: 5000}, 5),
	}
	// 100000 -> 90000 -> 95000
	require.InDelta(t, 95000, ApplyAdjustments(100000, rules), 0.001)
}

func TestApplyAdjustmentsStopOnMatch(t *testing.T) {
	rules := []Rule{
		rule(OpSetPrice, Adjustment{Price: 60000, StopOnMatch: true}, 10),
		rule(OpFixedMarkup, Adjustment{Amount: 5000}, 5),
	}
	require.InDelta(t, 60000, ApplyAdjustments(100000, rules), 0.001)
}

func TestApplyAdjustmentsFloorsAtZero(t *testing.T) {
	rules := []Rule{
		rule(OpFixedDiscount, Adjustment{Amount: 150000}, 10),
		rule(OpPercentageMarkup, Adjustment{Percent: 50}, 5),
	}
	// Intermediate -50000 floors to 0 before the markup applies.
	require.InDelta(t, 0, ApplyAdjustments(100000, rules), 0.001)
}

func TestApplyAdjustmentsSkipsUnknownOperation(t *testing.T) {
	rules := []Rule{
		{Adjustment: Adjustment{Op: "bogus_operation", Amount: 99999, StopOnMatch: true}},
		rule(OpFixedDiscount, Adjustment{Amount: 10000}, 5),
	}
	// The unknown operation is a no-op; its stop flag never fires.
	require.InDelta(t, 90000, ApplyAdjustments(100000, rules), 0.001)
}

func TestApplyAdjustmentsEmptyRulesKeepsBase(t *testing.T) {
	require.InDelta(t, 100000, ApplyAdjustments(100000, nil), 0.001)
}

func TestApplyModifiers(t *testing.T) {
	price := ApplyModifiers(100000, []Modifier{
		{Name: "seasonal", Factor: 1.1},
		{Name: "broken", Factor: 0},
		{Name: "competitor", Factor: 0.9},
	})
	require.InDelta(t, 99000, price, 0.001)
}

func TestClampToBand(t *testing.T) {
	require.InDelta(t, 90000, ClampToBand(100000, 90000), 0.001)
	require.InDelta(t, 70000, ClampToBand(100000, 60000), 0.001)
	require.InDelta(t, 150000, ClampToBand(100000, 250000), 0.001)
	require.InDelta(t, 70000, ClampToBand(100000, 0), 0.001)
}
