// FILE: broker.go
// Package main – Broker abstractions shared by all execution backends.
//
// This file defines the two collaborator boundaries the grid loop talks to:
//   • PriceFeed:    current bid for the instrument (FeedResult)
//   • OrderGateway: submit one limit order (PlacementResult)
//
// A Broker is both. Concrete implementations live in separate files:
//   • broker_paper.go  – in-memory paper broker (no order ever leaves the process)
//   • broker_oanda.go  – OANDA v20 REST client
//
// Neither boundary raises: failures come back inside the result value and
// the loop decides whether to back off (feed) or log and move on (placement).
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the side of a trade.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// MarketTick is one observed price for the instrument.
type MarketTick struct {
	Instrument string
	Price      decimal.Decimal // bid
	Time       time.Time
}

// FeedResult is the outcome of one price fetch. Err is a *FeedError when set.
type FeedResult struct {
	Tick MarketTick
	Err  error
}

// OK reports whether a usable tick was returned.
func (r FeedResult) OK() bool { return r.Err == nil }

// PlacementResult is the outcome of one order submission. Err is a
// *PlacementError when set. Acceptance is not a fill.
type PlacementResult struct {
	ClientID string
	OrderID  string
	Intent   OrderIntent
	Err      error
}

// OK reports whether the venue accepted the order.
func (r PlacementResult) OK() bool { return r.Err == nil }

// PriceFeed fetches the current market price.
type PriceFeed interface {
	GetPrice(ctx context.Context, instrument string) FeedResult
}

// OrderGateway submits limit orders.
type OrderGateway interface {
	PlaceLimitOrder(ctx context.Context, intent OrderIntent) PlacementResult
}

// Broker is the minimal surface the bot needs to operate.
type Broker interface {
	PriceFeed
	OrderGateway
	Name() string
}

// FeedError means no usable price was obtained this cycle.
type FeedError struct {
	Instrument string
	Reason     string
	Cause      error
}

func (e *FeedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("feed %s: %s: %v", e.Instrument, e.Reason, e.Cause)
	}
	return fmt.Sprintf("feed %s: %s", e.Instrument, e.Reason)
}

func (e *FeedError) Unwrap() error { return e.Cause }

// PlacementError means the venue rejected the order or could not be reached.
type PlacementError struct {
	Intent OrderIntent
	Status int // HTTP status when known
	Reason string
	Cause  error
}

func (e *PlacementError) Error() string {
	msg := fmt.Sprintf("place %s: %s", e.Intent, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *PlacementError) Unwrap() error { return e.Cause }

func feedFailure(instrument, reason string, cause error) FeedResult {
	return FeedResult{
		Tick: MarketTick{Instrument: instrument},
		Err:  &FeedError{Instrument: instrument, Reason: reason, Cause: cause},
	}
}

func placementFailure(clientID string, intent OrderIntent, status int, reason string, cause error) PlacementResult {
	return PlacementResult{
		ClientID: clientID,
		Intent:   intent,
		Err:      &PlacementError{Intent: intent, Status: status, Reason: reason, Cause: cause},
	}
}
