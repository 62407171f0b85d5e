// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Durations are expressed in the unit named
// by the variable; monetary-adjacent knobs like the redemption cap are
// percentages.
type Config struct {
	Env                  string // application environment (dev/test/prod)
	Port                 string // HTTP port to listen on
	DBUser               string // database username
	DBPass               string // database password (optional)
	DBHost               string // database host address
	DBPort               string // database port number
	DBName               string // database name
	JWTSecret            string // secret used to verify customer access tokens
	QRSigningSecret      string // secret used to sign ticket QR payloads
	HoldTTLMin           int    // seat hold (and booking deadline) TTL in minutes
	ReconcileIntervalSec int    // expiry reconciler sweep interval in seconds
	LoyaltyMaxRedeemPct  int    // max share of an order payable with points, 0-100
	TicketCodeRetries    int    // retry budget for ticket code generation
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must(); missing
// values halt startup with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:                  must("APP_ENV"),
		Port:                 must("APP_PORT"),
		DBUser:               must("DB_USER"),
		DBPass:               os.Getenv("DB_PASS"),
		DBHost:               must("DB_HOST"),
		DBPort:               must("DB_PORT"),
		DBName:               must("DB_NAME"),
		JWTSecret:            must("JWT_SECRET"),
		QRSigningSecret:      must("QR_SIGNING_SECRET"),
		HoldTTLMin:           mustInt("HOLD_TTL_MIN"),
		ReconcileIntervalSec: mustInt("RECONCILE_INTERVAL_SEC"),
		LoyaltyMaxRedeemPct:  mustInt("LOYALTY_MAX_REDEEM_PCT"),
		TicketCodeRetries:    mustInt("TICKET_CODE_RETRIES"),
	}
	if cfg.LoyaltyMaxRedeemPct < 0 || cfg.LoyaltyMaxRedeemPct > 100 {
		log.Fatalf("LOYALTY_MAX_REDEEM_PCT must be in [0,100], got %d", cfg.LoyaltyMaxRedeemPct)
	}
	if cfg.HoldTTLMin < 1 {
		log.Fatalf("HOLD_TTL_MIN must be at least 1, got %d", cfg.HoldTTLMin)
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an
// integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
