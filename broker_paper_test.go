package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperBroker_PriceSources(t *testing.T) {
	pb := NewPaperBroker(nil)
	assert.Equal(t, "paper", pb.Name())

	fr := pb.GetPrice(context.Background(), "EUR_USD")
	assert.False(t, fr.OK(), "no price set yet")

	pb.SetPrice(d("1.1"))
	pb.Script(dp("1.2"), nil)

	fr = pb.GetPrice(context.Background(), "EUR_USD")
	require.True(t, fr.OK())
	assert.True(t, fr.Tick.Price.Equal(d("1.2")))

	fr = pb.GetPrice(context.Background(), "EUR_USD")
	var fe *FeedError
	require.True(t, errors.As(fr.Err, &fe))
	assert.Equal(t, "scripted outage", fe.Reason)

	// script exhausted: the last scripted price sticks
	fr = pb.GetPrice(context.Background(), "EUR_USD")
	require.True(t, fr.OK())
	assert.True(t, fr.Tick.Price.Equal(d("1.2")))
}

func TestPaperBroker_Upstream(t *testing.T) {
	up := NewPaperBroker(nil)
	up.SetPrice(d("1.0777"))
	pb := NewPaperBroker(up)
	assert.Equal(t, "paper+feed", pb.Name())

	fr := pb.GetPrice(context.Background(), "EUR_USD")
	require.True(t, fr.OK())
	assert.True(t, fr.Tick.Price.Equal(d("1.0777")))

	pr := pb.PlaceLimitOrder(context.Background(), OrderIntent{Instrument: "EUR_USD", Side: SideBuy, Units: 1, Price: d("1.07")})
	require.True(t, pr.OK())
	assert.Len(t, pb.Orders(), 1)
	assert.Empty(t, up.Orders())
}

func TestPaperBroker_PlaceLimitOrder(t *testing.T) {
	pb := NewPaperBroker(nil)
	ctx := context.Background()

	pr := pb.PlaceLimitOrder(ctx, OrderIntent{Instrument: "EUR_USD", Side: SideSell, Units: -3, Price: d("1.12")})
	require.True(t, pr.OK())
	assert.NotEmpty(t, pr.OrderID)
	assert.NotEmpty(t, pr.ClientID)

	pr = pb.PlaceLimitOrder(ctx, OrderIntent{Instrument: "EUR_USD", Side: SideBuy, Price: d("1.07")})
	var pe *PlacementError
	require.True(t, errors.As(pr.Err, &pe))
	assert.Equal(t, "units must be non-zero", pe.Reason)

	pb.RejectAt(d("1.06"), "margin")
	pr = pb.PlaceLimitOrder(ctx, OrderIntent{Instrument: "EUR_USD", Side: SideBuy, Units: 2, Price: d("1.06")})
	require.False(t, pr.OK())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	pr = pb.PlaceLimitOrder(cctx, OrderIntent{Instrument: "EUR_USD", Side: SideBuy, Units: 2, Price: d("1.07")})
	require.False(t, pr.OK())
	assert.True(t, errors.Is(pr.Err, context.Canceled))

	orders := pb.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, int64(-3), orders[0].Intent.Units)
}
