// FILE: live.go
// Package main – Live loop: ladder seeding and the rebalancing cycle.
//
// Run drives the grid in real time:
//   • Seed one limit order per ladder level (BUY below the midpoint, SELL at
//     or above it).
//   • Every PollInterval, fetch one tick, check every level for proximity
//     (|price - level| < spacing / ToleranceDivisor), build one rebalance
//     intent per triggered level, then dispatch them independently.
//   • When the feed has no price, skip evaluation and wait FeedBackoff.
//
// States per cycle: FETCHING -> EVALUATING -> DISPATCHING -> SLEEPING.
//
// Notes:
//   - Triggers are at-least-once by default: a price that lingers in a band
//     fires that level every cycle. RETRIGGER_MODE=reenter keeps a per-level
//     in-band map and fires once per band entry.
//   - Placement failures are logged and abandoned; they never stop the loop.
//   - Sleep goes through Clock so tests can run N cycles without waiting.

package main

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Clock abstracts wall time for the loop.
type Clock interface {
	Now() time.Time
	// Sleep waits d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Trigger is one level firing on one tick.
type Trigger struct {
	Level GridLevel
	Price decimal.Decimal // tick price
	Above bool            // market above the level -> SELL above; else BUY below
}

func (t Trigger) direction() string {
	if t.Above {
		return "above"
	}
	return "below"
}

// CycleReport summarizes one FETCHING..DISPATCHING pass.
type CycleReport struct {
	Seq      int
	Time     time.Time
	Price    decimal.Decimal
	FeedErr  error
	Triggers []Trigger
	Results  []PlacementResult
	Skipped  int // zero-unit or non-positive-price intents
}

// Dispatched counts accepted placements.
func (c CycleReport) Dispatched() int {
	n := 0
	for _, r := range c.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed counts rejected placements.
func (c CycleReport) Failed() int { return len(c.Results) - c.Dispatched() }

// Option customizes a Rebalancer.
type Option func(*Rebalancer)

// WithClock replaces the wall clock used for timestamps and sleeps.
func WithClock(c Clock) Option { return func(r *Rebalancer) { r.clock = c } }

// WithJournal records every placement attempt to j.
func WithJournal(j Journal) Option { return func(r *Rebalancer) { r.journal = j } }

// WithLogger sets the base log entry; component fields are added on top.
func WithLogger(l *logrus.Entry) Option { return func(r *Rebalancer) { r.log = l } }

// WithStatus publishes the ladder and every cycle report to s.
func WithStatus(s *StatusBoard) Option { return func(r *Rebalancer) { r.status = s } }

// Rebalancer owns the ladder and the feedback loop. It is not safe for
// concurrent use; Run is the single thread of control.
type Rebalancer struct {
	cfg       Config
	levels    []GridLevel
	spacing   decimal.Decimal
	tolerance decimal.Decimal
	calc      *IntentCalculator

	feed    PriceFeed
	gateway OrderGateway
	journal Journal
	clock   Clock
	log     *logrus.Entry
	status  *StatusBoard

	inBand map[int]bool // level index -> fired during current band visit
	seq    int
}

// NewRebalancer validates cfg and builds the ladder. A *ConfigurationError
// is returned before any collaborator is called.
func NewRebalancer(cfg Config, feed PriceFeed, gateway OrderGateway, opts ...Option) (*Rebalancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	levels, err := BuildGrid(cfg.Grid)
	if err != nil {
		return nil, err
	}
	calc, err := NewIntentCalculator(cfg.Grid)
	if err != nil {
		return nil, err
	}
	r := &Rebalancer{
		cfg:       cfg,
		levels:    levels,
		spacing:   cfg.Grid.LevelSpacing(),
		tolerance: cfg.Tolerance(),
		calc:      calc,
		feed:      feed,
		gateway:   gateway,
		journal:   nopJournal{},
		clock:     wallClock{},
		log:       logrus.NewEntry(logrus.StandardLogger()),
		inBand:    make(map[int]bool),
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.WithFields(logrus.Fields{"component": "rebalancer", "instrument": cfg.Grid.Instrument})
	mtxLevels.Set(float64(len(levels)))
	if r.status != nil {
		r.status.SetLadder(r.Plan())
	}
	return r, nil
}

// Levels returns a copy of the ladder.
func (r *Rebalancer) Levels() []GridLevel { return append([]GridLevel(nil), r.levels...) }

// PlannedLevel pairs a level with its seed intent.
type PlannedLevel struct {
	Level  GridLevel   `json:"level"`
	Intent OrderIntent `json:"intent"`
	Error  string      `json:"error,omitempty"`
}

// Plan returns the seed intent for every level without dispatching.
func (r *Rebalancer) Plan() []PlannedLevel {
	out := make([]PlannedLevel, 0, len(r.levels))
	for _, lv := range r.levels {
		it, err := r.calc.IntentForLevel(lv)
		p := PlannedLevel{Level: lv, Intent: it}
		if err != nil {
			p.Error = err.Error()
		}
		out = append(out, p)
	}
	return out
}

// Run seeds the ladder (when enabled) and cycles until ctx is done.
func (r *Rebalancer) Run(ctx context.Context) error {
	r.log.Infof("[BOOT] levels=%d range=[%s,%s] spacing=%s tolerance=%s size/level=%s retrigger=%s",
		len(r.levels), r.cfg.Grid.LowerPrice, r.cfg.Grid.UpperPrice, r.spacing, r.tolerance,
		r.cfg.Grid.SizePerLevel(), r.cfg.Retrigger)

	if r.cfg.SeedLadder {
		r.SeedLadder(ctx)
	}
	for {
		if ctx.Err() != nil {
			r.log.Info("shutdown")
			return nil
		}
		rep := r.Cycle(ctx)
		wait := r.cfg.PollInterval
		if rep.FeedErr != nil {
			wait = r.cfg.FeedBackoff
		}
		if err := r.clock.Sleep(ctx, wait); err != nil {
			r.log.Info("shutdown")
			return nil
		}
	}
}

// SeedLadder places one order per level and returns every placement result.
// Failures are logged and do not stop the remaining levels.
func (r *Rebalancer) SeedLadder(ctx context.Context) []PlacementResult {
	var results []PlacementResult
	for _, lv := range r.levels {
		if ctx.Err() != nil {
			break
		}
		it, err := r.calc.IntentForLevel(lv)
		if err != nil {
			r.log.Warnf("[SEED] level %d skipped: %v", lv.Index, err)
			continue
		}
		if it.IsZero() {
			mtxZeroUnits.WithLabelValues("seed").Inc()
			r.log.Warnf("[SEED] level %d @ %s sized to 0 units; not submitted", lv.Index, it.Price)
			continue
		}
		results = append(results, r.dispatch(ctx, "seed", it, lv.Index, nil))
	}
	ok := 0
	for _, pr := range results {
		if pr.OK() {
			ok++
		}
	}
	r.log.Infof("[SEED] placed=%d failed=%d", ok, len(results)-ok)
	return results
}

// Cycle runs exactly one fetch/evaluate/dispatch pass.
func (r *Rebalancer) Cycle(ctx context.Context) CycleReport {
	r.seq++
	rep := CycleReport{Seq: r.seq, Time: r.clock.Now()}
	defer func() {
		if r.status != nil {
			r.status.Record(rep)
		}
	}()

	// FETCHING
	fr := r.feed.GetPrice(ctx, r.cfg.Grid.Instrument)
	if !fr.OK() {
		mtxFeedFailures.Inc()
		rep.FeedErr = fr.Err
		r.log.Warnf("[FEED] %v; retry in %s", fr.Err, r.cfg.FeedBackoff)
		return rep
	}
	rep.Price = fr.Tick.Price
	mtxLastPrice.Set(fr.Tick.Price.InexactFloat64())
	r.log.Debugf("[TICK] px=%s", fr.Tick.Price)

	// EVALUATING
	rep.Triggers = r.evaluate(fr.Tick.Price)
	type pending struct {
		intent OrderIntent
		level  int
	}
	var queue []pending
	for _, t := range rep.Triggers {
		mtxTriggers.WithLabelValues(t.direction()).Inc()
		it, err := r.calc.IntentForRebalance(t.Level.Price, r.spacing, t.Above)
		if err != nil {
			rep.Skipped++
			r.log.Warnf("[TRIGGER] level %d @ %s px=%s: %v", t.Level.Index, t.Level.Price, t.Price, err)
			continue
		}
		r.log.Infof("[TRIGGER] level %d @ %s px=%s -> %s", t.Level.Index, t.Level.Price, t.Price, it)
		if it.IsZero() {
			rep.Skipped++
			mtxZeroUnits.WithLabelValues("rebalance").Inc()
			r.log.Warnf("[TRIGGER] %s sized to 0 units; not submitted", it.Price)
			continue
		}
		queue = append(queue, pending{intent: it, level: t.Level.Index})
	}

	// DISPATCHING
	trigger := fr.Tick.Price
	for _, p := range queue {
		rep.Results = append(rep.Results, r.dispatch(ctx, "rebalance", p.intent, p.level, &trigger))
	}
	mtxCycles.Inc()
	return rep
}

// evaluate returns the levels whose tolerance band contains price. A price
// exactly on a level fires nothing.
func (r *Rebalancer) evaluate(price decimal.Decimal) []Trigger {
	var out []Trigger
	for _, lv := range r.levels {
		diff := price.Sub(lv.Price)
		if diff.Abs().GreaterThanOrEqual(r.tolerance) {
			delete(r.inBand, lv.Index)
			continue
		}
		if diff.IsZero() {
			continue
		}
		if r.cfg.Retrigger == RetriggerReenter {
			if r.inBand[lv.Index] {
				continue
			}
			r.inBand[lv.Index] = true
		}
		out = append(out, Trigger{Level: lv, Price: price, Above: diff.IsPositive()})
	}
	return out
}

func (r *Rebalancer) dispatch(ctx context.Context, kind string, it OrderIntent, level int, trigger *decimal.Decimal) PlacementResult {
	pr := r.gateway.PlaceLimitOrder(ctx, it)
	incOrder(kind, it.Side, pr.OK())

	entry := JournalEntry{
		ClientID:     pr.ClientID,
		Kind:         kind,
		Instrument:   it.Instrument,
		Side:         it.Side,
		Units:        it.Units,
		Price:        it.Price,
		StopLoss:     it.StopLoss,
		TakeProfit:   it.TakeProfit,
		LevelIndex:   level,
		TriggerPrice: trigger,
		OrderID:      pr.OrderID,
		CreatedAt:    r.clock.Now(),
	}
	if pr.OK() {
		entry.Status = "accepted"
		r.log.Infof("[ORDER] %s %s id=%s", kind, it, pr.OrderID)
	} else {
		entry.Status = "rejected"
		entry.Reason = pr.Err.Error()
		r.log.Errorf("[ORDER] %s failed: %v", kind, pr.Err)
	}
	if err := r.journal.Record(ctx, entry); err != nil {
		r.log.Warnf("journal: %v", err)
	}
	return pr
}
