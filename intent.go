// FILE: intent.go
// Package main – Order intent calculator.
//
// An OrderIntent is the transient description of one limit order the bot
// wants on the book: instrument, signed units, limit price, and optional
// protective stop-loss / take-profit prices. Intents carry no identity and
// are never tracked after dispatch.
//
// Sizing:     units = trunc(sizePerLevel / price * unitScale), negated for SELL
// Protection: BUY  SL = entry - slPips/pipScale, TP = entry + tpPips/pipScale
//             SELL SL = entry + slPips/pipScale, TP = entry - tpPips/pipScale
//
// Rebalance intents are placed one spacing AWAY from the crossed level:
// a cross from above yields a SELL one spacing higher, a cross from below a
// BUY one spacing lower. The consumed level itself is not re-ordered.

package main

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNonPositivePrice is returned when a computed entry price is <= 0.
var ErrNonPositivePrice = errors.New("computed order price is not positive")

// OrderIntent describes one limit order to place.
type OrderIntent struct {
	Instrument string           `json:"instrument"`
	Side       OrderSide        `json:"side"`
	Units      int64            `json:"units"` // >0 buy, <0 sell, 0 = too small to size
	Price      decimal.Decimal  `json:"price"`
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `json:"take_profit,omitempty"`
}

// IsZero reports whether the intent truncated to zero units.
func (o OrderIntent) IsZero() bool { return o.Units == 0 }

func (o OrderIntent) String() string {
	s := fmt.Sprintf("%s %s units=%d @ %s", o.Side, o.Instrument, o.Units, o.Price)
	if o.StopLoss != nil {
		s += " sl=" + o.StopLoss.String()
	}
	if o.TakeProfit != nil {
		s += " tp=" + o.TakeProfit.String()
	}
	return s
}

// IntentCalculator turns levels and triggers into OrderIntents for a single
// GridConfig.
type IntentCalculator struct {
	grid GridConfig
}

// NewIntentCalculator validates g and returns a calculator bound to it.
func NewIntentCalculator(g GridConfig) (*IntentCalculator, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &IntentCalculator{grid: g}, nil
}

// IntentForLevel returns the seed order for a ladder level. It only fails
// when the level price rounds to zero at the quote precision.
func (c *IntentCalculator) IntentForLevel(level GridLevel) (OrderIntent, error) {
	return c.intent(level.Price, level.Side)
}

// IntentForRebalance returns the replacement order after the market crossed
// triggerPrice. isAbove means the market is above the level: place a SELL
// one spacing higher. Otherwise place a BUY one spacing lower.
func (c *IntentCalculator) IntentForRebalance(triggerPrice, spacing decimal.Decimal, isAbove bool) (OrderIntent, error) {
	if isAbove {
		return c.intent(triggerPrice.Add(spacing), SideSell)
	}
	return c.intent(triggerPrice.Sub(spacing), SideBuy)
}

// Units sizes an order at price; the result is truncated toward zero and
// signed by side.
func (c *IntentCalculator) Units(price decimal.Decimal, side OrderSide) int64 {
	if !price.IsPositive() {
		return 0
	}
	n := c.grid.SizePerLevel().Div(price).Mul(c.grid.UnitScale).Truncate(0).IntPart()
	if side == SideSell {
		return -n
	}
	return n
}

// Protective returns the stop-loss and take-profit for an entry. A nil
// pointer means the corresponding distance is disabled.
func (c *IntentCalculator) Protective(entry decimal.Decimal, side OrderSide) (sl, tp *decimal.Decimal) {
	prec := c.grid.QuotePrecision
	dir := decimal.NewFromInt(1)
	if side == SideSell {
		dir = decimal.NewFromInt(-1)
	}
	if c.grid.StopLossPips.IsPositive() {
		d := c.grid.StopLossPips.Div(c.grid.PipScale).Mul(dir)
		v := entry.Sub(d).Round(prec)
		sl = &v
	}
	if c.grid.TakeProfitPips.IsPositive() {
		d := c.grid.TakeProfitPips.Div(c.grid.PipScale).Mul(dir)
		v := entry.Add(d).Round(prec)
		tp = &v
	}
	return sl, tp
}

func (c *IntentCalculator) intent(price decimal.Decimal, side OrderSide) (OrderIntent, error) {
	price = price.Round(c.grid.QuotePrecision)
	if !price.IsPositive() {
		return OrderIntent{}, fmt.Errorf("%w: %s %s", ErrNonPositivePrice, side, price)
	}
	sl, tp := c.Protective(price, side)
	return OrderIntent{
		Instrument: c.grid.Instrument,
		Side:       side,
		Units:      c.Units(price, side),
		Price:      price,
		StopLoss:   sl,
		TakeProfit: tp,
	}, nil
}
