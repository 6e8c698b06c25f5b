package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotFallsBackToNeutral(t *testing.T) {
	ev := &MarketEvent{Price: 100}
	snap := ev.Snapshot()
	assert.InDelta(t, 50.0, snap.RSI, 1e-12)
	assert.InDelta(t, 0.5, snap.BollingerPosition, 1e-12)
	assert.Zero(t, snap.ATR)

	own := &IndicatorSnapshot{RSI: 72}
	ev.Indicators = own
	assert.Same(t, own, ev.Snapshot())
}

func TestGeneNamesAreUniqueAndComplete(t *testing.T) {
	seen := make(map[string]bool, GeneCount)
	for _, name := range GeneNames {
		assert.NotEmpty(t, name)
		assert.False(t, seen[name], "duplicate gene name %q", name)
		seen[name] = true
	}
	assert.Len(t, seen, GeneCount)
}

func TestGeneCategoryBlocks(t *testing.T) {
	assert.Equal(t, CategoryRisk, GeneCategoryOf(0))
	assert.Equal(t, CategoryRisk, GeneCategoryOf(9))
	assert.Equal(t, CategoryTrendFollow, GeneCategoryOf(10))
	assert.Equal(t, CategoryMeanReversion, GeneCategoryOf(25))
	assert.Equal(t, CategoryTiming, GeneCategoryOf(39))
	assert.Equal(t, CategorySizing, GeneCategoryOf(49))
}

func TestAllRegimesCoversEveryLabel(t *testing.T) {
	assert.Len(t, AllRegimes, 6)
	seen := make(map[Regime]bool)
	for _, r := range AllRegimes {
		seen[r] = true
	}
	assert.True(t, seen[RegimeTrending])
	assert.True(t, seen[RegimeQuiet])
}
