// FILE: grid.go
// Package main – Grid parameters and the ladder builder.
//
// GridConfig is the immutable description of one trading session's ladder:
// a price range [LowerPrice, UpperPrice] split into LevelCount equal steps.
// BuildGrid turns it into LevelCount+1 GridLevels, each tagged BUY (below the
// midpoint) or SELL (at or above the midpoint).
//
// All grid arithmetic is done in decimal so that levels such as 1.10 land
// exactly on the midpoint instead of a float neighbour of it.

package main

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GridConfig holds the ladder parameters. It is built once at startup and
// never mutated afterwards.
type GridConfig struct {
	Instrument     string          `yaml:"instrument"`
	LowerPrice     decimal.Decimal `yaml:"lower_price"`
	UpperPrice     decimal.Decimal `yaml:"upper_price"`
	LevelCount     int             `yaml:"levels"`
	Capital        decimal.Decimal `yaml:"capital"`
	StopLossPips   decimal.Decimal `yaml:"stop_loss_pips"`   // 0 disables
	TakeProfitPips decimal.Decimal `yaml:"take_profit_pips"` // 0 disables

	// Instrument conventions
	UnitScale      decimal.Decimal `yaml:"unit_scale"`      // size -> whole units
	PipScale       decimal.Decimal `yaml:"pip_scale"`       // price units per pip
	QuotePrecision int32           `yaml:"quote_precision"` // decimal places of a quote
}

// LevelSpacing is the distance between two adjacent levels.
func (g GridConfig) LevelSpacing() decimal.Decimal {
	return g.UpperPrice.Sub(g.LowerPrice).Div(decimal.NewFromInt(int64(g.LevelCount)))
}

// SizePerLevel is the capital allotted to each level.
func (g GridConfig) SizePerLevel() decimal.Decimal {
	return g.Capital.Div(decimal.NewFromInt(int64(g.LevelCount)))
}

// Midpoint splits the ladder into buy and sell halves.
func (g GridConfig) Midpoint() decimal.Decimal {
	return g.LowerPrice.Add(g.UpperPrice).Div(decimal.NewFromInt(2))
}

// Validate reports the first invalid field as a *ConfigurationError.
func (g GridConfig) Validate() error {
	switch {
	case g.Instrument == "":
		return newConfigError("instrument", "must not be empty")
	case g.LevelCount < 1:
		return newConfigError("levels", fmt.Sprintf("must be >= 1 (got %d)", g.LevelCount))
	case !g.LowerPrice.IsPositive():
		return newConfigError("lower_price", fmt.Sprintf("must be > 0 (got %s)", g.LowerPrice))
	case !g.UpperPrice.GreaterThan(g.LowerPrice):
		return newConfigError("upper_price", fmt.Sprintf("must be > lower_price (got %s <= %s)", g.UpperPrice, g.LowerPrice))
	case !g.Capital.IsPositive():
		return newConfigError("capital", fmt.Sprintf("must be > 0 (got %s)", g.Capital))
	case g.StopLossPips.IsNegative():
		return newConfigError("stop_loss_pips", "must be >= 0")
	case g.TakeProfitPips.IsNegative():
		return newConfigError("take_profit_pips", "must be >= 0")
	case !g.UnitScale.IsPositive():
		return newConfigError("unit_scale", "must be > 0")
	case !g.PipScale.IsPositive():
		return newConfigError("pip_scale", "must be > 0")
	case g.QuotePrecision < 0:
		return newConfigError("quote_precision", "must be >= 0")
	}
	return nil
}

// GridLevel is one rung of the ladder.
type GridLevel struct {
	Index int             `json:"index"`
	Price decimal.Decimal `json:"price"`
	Side  OrderSide       `json:"side"`
}

// BuildGrid derives the ladder in ascending price order.
func BuildGrid(g GridConfig) ([]GridLevel, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	span := g.UpperPrice.Sub(g.LowerPrice)
	n := decimal.NewFromInt(int64(g.LevelCount))
	mid := g.Midpoint()

	levels := make([]GridLevel, 0, g.LevelCount+1)
	for i := 0; i <= g.LevelCount; i++ {
		// Multiply before dividing: level n/2 is the midpoint and level n is
		// the upper bound even when the spacing does not terminate.
		price := g.LowerPrice.Add(span.Mul(decimal.NewFromInt(int64(i))).Div(n))
		side := SideSell
		if price.LessThan(mid) {
			side = SideBuy
		}
		levels = append(levels, GridLevel{Index: i, Price: price, Side: side})
	}
	return levels, nil
}
