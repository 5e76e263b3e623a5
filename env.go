// FILE: env.go
// Package main – Environment helpers for the grid bot.
//
// This file provides:
//   1) Small helpers to read environment variables with sane defaults
//      (strings, ints, bools, decimals, second-based durations).
//   2) loadBotEnv, which hydrates the process env from a dotenv file without
//      overriding anything already exported.
//
// Notes:
//   • The bot never requires `export $(cat .env ...)`.
//   • A missing dotenv file is not an error; the process env is used as-is.

package main

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// --------- Env helpers (used across files) ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvDecimal parses exact decimals so prices like 1.05 stay 1.05.
func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

// getEnvSeconds reads a whole number of seconds.
func getEnvSeconds(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Second
}

// --------- .env loader ---------

// loadBotEnv reads path (default .env) into the process env. Variables that
// are already set win over the file.
func loadBotEnv(log *logrus.Entry, path string) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("env: %s not found, relying on process env", path)
			return
		}
		log.Warnf("env: %s: %v", path, err)
		return
	}
	log.Infof("env: loaded %s", path)
}
