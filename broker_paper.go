// FILE: broker_paper.go
// Package main – In-memory paper broker.
//
// This broker simulates order acceptance. It's used for DRY_RUN and tests.
// Prices come from an optional upstream feed (e.g. live OANDA pricing) or,
// when none is configured, from a settable/scripted price. Orders never
// leave the process; they are kept in memory with a uuid order id.
//
// Methods:
//   • Name() string
//   • GetPrice(ctx, instrument) FeedResult
//   • PlaceLimitOrder(ctx, intent) PlacementResult
//   • SetPrice / Script / Orders – test and dry-run helpers
package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaperOrder is an order accepted by the paper broker.
type PaperOrder struct {
	ID         string
	Intent     OrderIntent
	CreateTime time.Time
}

// PaperBroker keeps a mutable price and the list of accepted orders.
type PaperBroker struct {
	upstream PriceFeed

	mu     sync.Mutex
	price  decimal.Decimal
	script []*decimal.Decimal // nil entry = simulated feed outage
	orders []PaperOrder
	reject map[string]string // client price -> reason, for failure drills
	now    func() time.Time
}

// NewPaperBroker returns a paper broker. upstream may be nil.
func NewPaperBroker(upstream PriceFeed) *PaperBroker {
	return &PaperBroker{
		upstream: upstream,
		reject:   make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *PaperBroker) Name() string {
	if p.upstream != nil {
		return "paper+feed"
	}
	return "paper"
}

// SetPrice fixes the price returned when no script or upstream is set.
func (p *PaperBroker) SetPrice(px decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.price = px
}

// Script queues prices returned one per GetPrice call before falling back
// to the fixed price. A nil entry simulates a feed outage for that call.
func (p *PaperBroker) Script(prices ...*decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, prices...)
}

// RejectAt makes orders at price fail with reason.
func (p *PaperBroker) RejectAt(price decimal.Decimal, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reject[price.String()] = reason
}

func (p *PaperBroker) GetPrice(ctx context.Context, instrument string) FeedResult {
	if err := ctx.Err(); err != nil {
		return feedFailure(instrument, "canceled", err)
	}
	if p.upstream != nil {
		return p.upstream.GetPrice(ctx, instrument)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.script) > 0 {
		next := p.script[0]
		p.script = p.script[1:]
		if next == nil {
			return feedFailure(instrument, "scripted outage", nil)
		}
		p.price = *next
	}
	if !p.price.IsPositive() {
		return feedFailure(instrument, "no paper price set", nil)
	}
	return FeedResult{Tick: MarketTick{Instrument: instrument, Price: p.price, Time: p.now()}}
}

// PlaceLimitOrder accepts any non-zero order unless a rejection is armed for
// its price.
func (p *PaperBroker) PlaceLimitOrder(ctx context.Context, intent OrderIntent) PlacementResult {
	clientID := uuid.New().String()
	if err := ctx.Err(); err != nil {
		return placementFailure(clientID, intent, 0, "canceled", err)
	}
	if intent.Units == 0 {
		return placementFailure(clientID, intent, 0, "units must be non-zero", nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if reason, ok := p.reject[intent.Price.String()]; ok {
		return placementFailure(clientID, intent, 0, reason, nil)
	}
	o := PaperOrder{ID: uuid.New().String(), Intent: intent, CreateTime: p.now()}
	p.orders = append(p.orders, o)
	return PlacementResult{ClientID: clientID, OrderID: o.ID, Intent: intent}
}

// Orders returns a copy of the accepted orders in submission order.
func (p *PaperBroker) Orders() []PaperOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PaperOrder(nil), p.orders...)
}
