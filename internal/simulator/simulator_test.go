package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/synth/internal/tree"
	"github.com/quantforge/synth/models"
)

func actionTree(action string) *tree.Node {
	return &tree.Node{
		Kind: tree.KindLogical,
		Op:   tree.OpIfThenElse,
		Children: []*tree.Node{
			{Kind: tree.KindConstant, Value: 1},
			{Kind: tree.KindAction, Op: action, Confidence: 0.9},
			{Kind: tree.KindAction, Op: "hold", Confidence: 0.5},
		},
	}
}

// rsiReversalTree sells above 70, buys below 30, holds otherwise.
func rsiReversalTree() *tree.Node {
	cmp := func(op string, bound float64) *tree.Node {
		return &tree.Node{
			Kind: tree.KindComparator, Op: op,
			Children: []*tree.Node{
				{Kind: tree.KindIndicator, Name: "rsi"},
				{Kind: tree.KindConstant, Value: bound},
			},
		}
	}
	return &tree.Node{
		Kind: tree.KindLogical, Op: tree.OpIfThenElse,
		Children: []*tree.Node{
			cmp(tree.OpGreater, 70),
			{Kind: tree.KindAction, Op: "sell", Confidence: 0.9},
			{
				Kind: tree.KindLogical, Op: tree.OpIfThenElse,
				Children: []*tree.Node{
					cmp(tree.OpLess, 30),
					{Kind: tree.KindAction, Op: "buy", Confidence: 0.9},
					{Kind: tree.KindAction, Op: "hold", Confidence: 0.5},
				},
			},
		},
	}
}

func trendingEvents(n int, growth float64) []models.MarketEvent {
	events := make([]models.MarketEvent, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range events {
		price *= 1 + growth
		events[i] = models.MarketEvent{
			Timestamp:  start.Add(time.Duration(i) * time.Hour),
			Price:      price,
			Volume:     1000,
			Regime:     models.RegimeTrending,
			Indicators: &models.IndicatorSnapshot{RSI: 50, BollingerPosition: 0.5, TrendStrength: 0.8},
		}
	}
	return events
}

func TestAlwaysBuyOnTrendProfits(t *testing.T) {
	sim := New(0)
	res := sim.Run(actionTree("buy"), trendingEvents(100, 0.002))

	assert.Positive(t, res.TotalReturn)
	require.Len(t, res.Trades, 1) // opened once, liquidated at the end
	assert.Equal(t, 1, res.Trades[0].Direction)
	assert.Positive(t, res.Trades[0].PnL)
	assert.Equal(t, models.RegimeTrending, res.Trades[0].Regime)
	assert.Equal(t, 100, res.EventsUsed)
}

func TestAlwaysSellOnTrendLoses(t *testing.T) {
	sim := New(0)
	res := sim.Run(actionTree("sell"), trendingEvents(100, 0.002))
	assert.Negative(t, res.TotalReturn)
	assert.Positive(t, res.MaxDrawdown)
}

func TestReversalClosesBeforeReopening(t *testing.T) {
	// RSI swings force a buy at event 0-4 (rsi 20), a reversal at 5-9
	// (rsi 80), and a final liquidation.
	events := trendingEvents(10, 0.001)
	for i := range events {
		if i < 5 {
			events[i].Indicators.RSI = 20
		} else {
			events[i].Indicators.RSI = 80
		}
	}
	sim := New(0)
	res := sim.Run(rsiReversalTree(), events)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, 1, res.Trades[0].Direction)
	assert.Equal(t, -1, res.Trades[1].Direction)
	// The long closed exactly when the short opened.
	assert.Equal(t, res.Trades[0].ExitPrice, res.Trades[1].EntryPrice)
}

func TestCloseFlattensWithoutReversing(t *testing.T) {
	events := trendingEvents(10, 0.001)
	closeAfterBuy := &tree.Node{
		Kind: tree.KindLogical, Op: tree.OpIfThenElse,
		Children: []*tree.Node{
			{
				Kind: tree.KindComparator, Op: tree.OpLess,
				Children: []*tree.Node{
					{Kind: tree.KindIndicator, Name: "rsi"},
					{Kind: tree.KindConstant, Value: 30},
				},
			},
			{Kind: tree.KindAction, Op: "buy", Confidence: 0.9},
			{Kind: tree.KindAction, Op: "close", Confidence: 0.9},
		},
	}
	for i := range events {
		if i < 3 {
			events[i].Indicators.RSI = 20
		} else {
			events[i].Indicators.RSI = 50
		}
	}
	sim := New(0)
	res := sim.Run(closeAfterBuy, events)

	require.Len(t, res.Trades, 1)
	// Closed at event 3, not held to the end.
	assert.Equal(t, events[3].Timestamp, res.Trades[0].ExitTime)
}

func TestPureHoldNeverTrades(t *testing.T) {
	sim := New(0)
	res := sim.Run(actionTree("hold"), trendingEvents(100, 0.002))
	assert.Empty(t, res.Trades)
	assert.Zero(t, res.TotalReturn)
	assert.Zero(t, res.MaxDrawdown)
}

func TestBadPricesAreSkipped(t *testing.T) {
	events := trendingEvents(10, 0.001)
	events[3].Price = 0
	events[7].Price = -5
	sim := New(0)
	res := sim.Run(actionTree("buy"), events)
	assert.Equal(t, 8, res.EventsUsed)
	assert.Equal(t, 2, res.EventsSkiped)
}

func TestAllBadPricesYieldEmptyRun(t *testing.T) {
	events := trendingEvents(10, 0.001)
	for i := range events {
		events[i].Price = 0
	}
	sim := New(0)
	res := sim.Run(actionTree("buy"), events)
	assert.Empty(t, res.Trades)
	assert.Zero(t, res.TotalReturn)
}

func TestMissingRegimeIsClassified(t *testing.T) {
	events := trendingEvents(20, 0.001)
	for i := range events {
		events[i].Regime = ""
		events[i].Indicators.TrendStrength = 0.9
	}
	sim := New(0)
	res := sim.Run(actionTree("buy"), events)
	require.NotEmpty(t, res.Trades)
	assert.Equal(t, models.RegimeTrending, res.Trades[0].Regime)
}

func TestStatelessAcrossCalls(t *testing.T) {
	sim := New(0)
	events := trendingEvents(50, 0.002)
	first := sim.Run(actionTree("buy"), events)
	second := sim.Run(actionTree("buy"), events)
	assert.Equal(t, first.TotalReturn, second.TotalReturn)
	assert.Equal(t, len(first.Trades), len(second.Trades))
}
