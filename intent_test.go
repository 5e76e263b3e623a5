package main

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalc(t *testing.T, mutate ...func(*GridConfig)) *IntentCalculator {
	t.Helper()
	g := testGrid()
	for _, m := range mutate {
		m(&g)
	}
	c, err := NewIntentCalculator(g)
	require.NoError(t, err)
	return c
}

func TestIntentForLevel_SignMatchesSide(t *testing.T) {
	c := newTestCalc(t)
	levels, err := BuildGrid(testGrid())
	require.NoError(t, err)

	for _, lv := range levels {
		it, err := c.IntentForLevel(lv)
		require.NoError(t, err)
		assert.Equal(t, lv.Side, it.Side)
		assert.Equal(t, "EUR_USD", it.Instrument)
		assert.True(t, it.Price.Equal(lv.Price))
		if it.Side == SideBuy {
			assert.Positive(t, it.Units, "level %s", lv.Price)
		} else {
			assert.Negative(t, it.Units, "level %s", lv.Price)
		}
	}
}

func TestIntentForLevel_Sizing(t *testing.T) {
	c := newTestCalc(t)

	// 100 / 1.08 * 1000 = 92592.59 -> 92592
	it, err := c.IntentForLevel(GridLevel{Index: 3, Price: d("1.08"), Side: SideBuy})
	require.NoError(t, err)
	assert.Equal(t, int64(92592), it.Units)

	// 100 / 1.12 * 1000 = 89285.71 -> -89285
	it, err = c.IntentForLevel(GridLevel{Index: 7, Price: d("1.12"), Side: SideSell})
	require.NoError(t, err)
	assert.Equal(t, int64(-89285), it.Units)
}

func TestIntent_ProtectiveBuy(t *testing.T) {
	c := newTestCalc(t, func(g *GridConfig) {
		g.StopLossPips, g.TakeProfitPips = d("50"), d("100")
	})
	it, err := c.IntentForLevel(GridLevel{Price: d("1.0800"), Side: SideBuy})
	require.NoError(t, err)
	require.NotNil(t, it.StopLoss)
	require.NotNil(t, it.TakeProfit)
	assert.True(t, it.StopLoss.Equal(d("1.0750")), "sl=%s", it.StopLoss)
	assert.True(t, it.TakeProfit.Equal(d("1.0900")), "tp=%s", it.TakeProfit)
}

func TestIntent_ProtectiveSellInverted(t *testing.T) {
	c := newTestCalc(t, func(g *GridConfig) {
		g.StopLossPips, g.TakeProfitPips = d("50"), d("100")
	})
	it, err := c.IntentForLevel(GridLevel{Price: d("1.1200"), Side: SideSell})
	require.NoError(t, err)
	require.NotNil(t, it.StopLoss)
	require.NotNil(t, it.TakeProfit)
	assert.True(t, it.StopLoss.Equal(d("1.1250")), "sl=%s", it.StopLoss)
	assert.True(t, it.TakeProfit.Equal(d("1.1100")), "tp=%s", it.TakeProfit)
	assert.True(t, it.StopLoss.GreaterThan(it.Price))
	assert.True(t, it.TakeProfit.LessThan(it.Price))
}

func TestIntent_ProtectiveDisabled(t *testing.T) {
	c := newTestCalc(t, func(g *GridConfig) {
		g.StopLossPips, g.TakeProfitPips = decimal.Zero, d("20")
	})
	it, err := c.IntentForLevel(GridLevel{Price: d("1.08"), Side: SideBuy})
	require.NoError(t, err)
	assert.Nil(t, it.StopLoss)
	require.NotNil(t, it.TakeProfit)
	assert.True(t, it.TakeProfit.Equal(d("1.082")))
}

func TestIntent_ZeroUnitsSurfaced(t *testing.T) {
	c := newTestCalc(t, func(g *GridConfig) { g.Capital = d("0.001") })
	it, err := c.IntentForLevel(GridLevel{Price: d("1.08"), Side: SideBuy})
	require.NoError(t, err)
	assert.True(t, it.IsZero())
	assert.Equal(t, int64(0), it.Units)
}

func TestIntentForRebalance_Direction(t *testing.T) {
	c := newTestCalc(t)
	spacing := d("0.01")

	// market above the 1.08 level -> SELL one spacing higher
	it, err := c.IntentForRebalance(d("1.08"), spacing, true)
	require.NoError(t, err)
	assert.Equal(t, SideSell, it.Side)
	assert.True(t, it.Price.Equal(d("1.09")), "price=%s", it.Price)
	assert.Negative(t, it.Units)

	// market below -> BUY one spacing lower
	it, err = c.IntentForRebalance(d("1.08"), spacing, false)
	require.NoError(t, err)
	assert.Equal(t, SideBuy, it.Side)
	assert.True(t, it.Price.Equal(d("1.07")), "price=%s", it.Price)
	assert.Positive(t, it.Units)
}

func TestIntentForRebalance_NonPositivePrice(t *testing.T) {
	c := newTestCalc(t)
	_, err := c.IntentForRebalance(d("0.005"), d("0.01"), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonPositivePrice))

	_, err = c.IntentForRebalance(d("0.01"), d("0.01"), false)
	assert.True(t, errors.Is(err, ErrNonPositivePrice))
}

func TestIntent_PriceRoundedToPrecision(t *testing.T) {
	c := newTestCalc(t)
	it, err := c.IntentForRebalance(d("1.0833333333"), d("0.01"), true)
	require.NoError(t, err)
	assert.True(t, it.Price.Equal(d("1.09333")), "price=%s", it.Price)
}

func TestUnits_NonPositivePrice(t *testing.T) {
	c := newTestCalc(t)
	assert.Equal(t, int64(0), c.Units(decimal.Zero, SideBuy))
	assert.Equal(t, int64(0), c.Units(d("-1"), SideSell))
}

func TestNewIntentCalculator_InvalidConfig(t *testing.T) {
	g := testGrid()
	g.LevelCount = 0
	c, err := NewIntentCalculator(g)
	assert.Nil(t, c)
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}
