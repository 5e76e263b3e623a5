// FILE: main.go
// Package main – Program entrypoint and HTTP status server.
//
// Boot sequence:
//   1) loadBotEnv()        – hydrate env from a dotenv file (no shell exports required)
//   2) loadConfig()        – defaults < YAML (-config) < env
//   3) cfg.Validate()      – invalid grid => exit 1 before any network call
//   4) wire broker/journal/rebalancer
//   5) start the status server on cfg.Port (/healthz, /metrics, /grid, /status, /orders)
//   6) seed the ladder and run the rebalancing loop until SIGINT/SIGTERM
//
// Flags:
//   -config <file>   Optional YAML config
//   -env <file>      Dotenv file to load (default .env)
//   -plan            Print the ladder and seed orders, then exit (no network)
//
// Example:
//   go run . -config grid.yaml
//   DRY_RUN=true go run .      # live OANDA prices, simulated orders

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

func main() {
	// ---- Flags ----
	var cfgPath, envPath string
	var planOnly bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config")
	flag.StringVar(&envPath, "env", ".env", "Path to dotenv file")
	flag.BoolVar(&planOnly, "plan", false, "Print the ladder and exit")
	flag.Parse()

	boot := logrus.NewEntry(logrus.StandardLogger())
	if err := run(boot, cfgPath, envPath, planOnly); err != nil {
		boot.Errorf("%v", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup (journal, signal
// context) always happens.
func run(boot *logrus.Entry, cfgPath, envPath string, planOnly bool) error {
	// ---- Environment & Config ----
	loadBotEnv(boot, envPath)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	log := logrus.NewEntry(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	if planOnly {
		rb, err := NewRebalancer(cfg, NewPaperBroker(nil), NewPaperBroker(nil), WithLogger(log))
		if err != nil {
			return err
		}
		printPlan(os.Stdout, cfg, rb.Plan())
		return nil
	}

	// ---- Broker wiring ----
	broker, err := newBroker(cfg)
	if err != nil {
		return fmt.Errorf("broker: %w", err)
	}

	journal, err := openJournal(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer journal.Close()

	board := NewStatusBoard()
	rb, err := NewRebalancer(cfg, broker, broker,
		WithLogger(log.WithField("broker", broker.Name())),
		WithJournal(journal),
		WithStatus(board),
	)
	if err != nil {
		return err
	}

	// ---- HTTP status/metrics ----
	srv, _, err := startStatusServer(fmt.Sprintf(":%d", cfg.Port), newRouter(board, journal), log)
	if err != nil {
		return fmt.Errorf("status server: %w", err)
	}

	// ---- Run ----
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Infof("Starting %s grid on %s dry_run=%v", broker.Name(), cfg.Grid.Instrument, cfg.DryRun)
	if err := rb.Run(ctx); err != nil {
		log.Errorf("run: %v", err)
	}

	// ---- Graceful shutdown for HTTP server ----
	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
	return nil
}

// newBroker selects the execution backend.
//
//	BROKER=paper              static PAPER_PRICE, simulated orders
//	BROKER=oanda DRY_RUN=true live OANDA prices, simulated orders
//	BROKER=oanda              live prices and orders
func newBroker(cfg Config) (Broker, error) {
	if cfg.Broker == "paper" {
		pb := NewPaperBroker(nil)
		pb.SetPrice(cfg.PaperPrice)
		return pb, nil
	}
	ob, err := NewOANDABroker(cfg.OANDA)
	if err != nil {
		return nil, err
	}
	if cfg.DryRun {
		return NewPaperBroker(ob), nil
	}
	return ob, nil
}
