package main

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func testGrid() GridConfig { return defaultConfig().Grid }

func TestBuildGrid_ReferenceLadder(t *testing.T) {
	levels, err := BuildGrid(testGrid())
	require.NoError(t, err)
	require.Len(t, levels, 11)

	want := []string{"1.05", "1.06", "1.07", "1.08", "1.09", "1.1", "1.11", "1.12", "1.13", "1.14", "1.15"}
	for i, lv := range levels {
		assert.Equal(t, i, lv.Index)
		assert.True(t, lv.Price.Equal(d(want[i])), "level %d: got %s want %s", i, lv.Price, want[i])
	}

	buys, sells := 0, 0
	for _, lv := range levels {
		if lv.Side == SideBuy {
			buys++
			assert.True(t, lv.Price.LessThan(d("1.10")), "buy level %s must be below midpoint", lv.Price)
		} else {
			sells++
			assert.True(t, lv.Price.GreaterThanOrEqual(d("1.10")), "sell level %s must be >= midpoint", lv.Price)
		}
	}
	assert.Equal(t, 5, buys)
	assert.Equal(t, 6, sells)
	assert.Equal(t, SideSell, levels[5].Side, "midpoint level is a sell")
}

func TestBuildGrid_AscendingAndEvenlySpaced(t *testing.T) {
	cases := []GridConfig{
		testGrid(),
		func() GridConfig { g := testGrid(); g.LevelCount = 1; return g }(),
		func() GridConfig { g := testGrid(); g.LevelCount = 3; return g }(),
		func() GridConfig {
			g := testGrid()
			g.LowerPrice, g.UpperPrice, g.LevelCount = d("100"), d("250"), 7
			return g
		}(),
	}
	tol := d("0.000000001")
	for _, g := range cases {
		levels, err := BuildGrid(g)
		require.NoError(t, err)
		require.Len(t, levels, g.LevelCount+1)
		spacing := g.LevelSpacing()
		for i := 1; i < len(levels); i++ {
			step := levels[i].Price.Sub(levels[i-1].Price)
			assert.True(t, step.IsPositive(), "levels must ascend")
			assert.True(t, step.Sub(spacing).Abs().LessThan(tol), "step %s != spacing %s", step, spacing)
		}
		assert.True(t, levels[0].Price.Equal(g.LowerPrice))
		assert.True(t, levels[len(levels)-1].Price.Sub(g.UpperPrice).Abs().LessThan(tol))
	}
}

func TestBuildGrid_RejectsInvalidConfig(t *testing.T) {
	cases := map[string]func(*GridConfig){
		"zero levels":      func(g *GridConfig) { g.LevelCount = 0 },
		"negative levels":  func(g *GridConfig) { g.LevelCount = -3 },
		"inverted bounds":  func(g *GridConfig) { g.LowerPrice, g.UpperPrice = d("1.15"), d("1.05") },
		"equal bounds":     func(g *GridConfig) { g.UpperPrice = g.LowerPrice },
		"zero lower":       func(g *GridConfig) { g.LowerPrice = decimal.Zero },
		"zero capital":     func(g *GridConfig) { g.Capital = decimal.Zero },
		"negative capital": func(g *GridConfig) { g.Capital = d("-5") },
		"negative sl":      func(g *GridConfig) { g.StopLossPips = d("-1") },
		"negative tp":      func(g *GridConfig) { g.TakeProfitPips = d("-1") },
		"no instrument":    func(g *GridConfig) { g.Instrument = "" },
		"zero unit scale":  func(g *GridConfig) { g.UnitScale = decimal.Zero },
		"zero pip scale":   func(g *GridConfig) { g.PipScale = decimal.Zero },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			g := testGrid()
			mutate(&g)
			levels, err := BuildGrid(g)
			require.Error(t, err)
			assert.Nil(t, levels)
			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "want *ConfigurationError, got %T", err)
		})
	}
}

func TestGridConfig_Derived(t *testing.T) {
	g := testGrid()
	assert.True(t, g.LevelSpacing().Equal(d("0.01")))
	assert.True(t, g.SizePerLevel().Equal(d("100")))
	assert.True(t, g.Midpoint().Equal(d("1.10")))
}

func TestBuildGrid_NonTerminatingSpacing(t *testing.T) {
	g := testGrid()
	g.LowerPrice, g.UpperPrice, g.LevelCount = d("1.00"), d("1.20"), 6

	levels, err := BuildGrid(g)
	require.NoError(t, err)
	require.Len(t, levels, 7)

	mid := levels[3]
	assert.True(t, mid.Price.Equal(d("1.1")), "level 3 = %s", mid.Price)
	assert.Equal(t, SideSell, mid.Side, "midpoint level is a sell")
	assert.True(t, levels[6].Price.Equal(g.UpperPrice), "top level = %s", levels[6].Price)

	sides := make([]OrderSide, 0, len(levels))
	for _, lv := range levels {
		sides = append(sides, lv.Side)
	}
	assert.Equal(t, []OrderSide{SideBuy, SideBuy, SideBuy, SideSell, SideSell, SideSell, SideSell}, sides)
}
