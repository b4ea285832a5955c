package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr         string
	StoreDriver      string // "postgres" or "memory"
	DBDSN            string
	JWTIssuer        string
	JWTSecret        string
	JWTTTL           time.Duration
	WebSocketOrigin  string
	EventsFile       string
	DemoStartingCash decimal.Decimal
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	if c.StoreDriver == "" {
		c.StoreDriver = "postgres"
	}
	if c.StoreDriver != "postgres" && c.StoreDriver != "memory" {
		return c, errors.New("invalid STORE_DRIVER: use postgres or memory")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" && c.StoreDriver == "postgres" {
		missing = append(missing, "DB_DSN")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, err
		}
		c.JWTTTL = d
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	c.EventsFile = os.Getenv("EVENTS_FILE")
	startingCash := os.Getenv("DEMO_STARTING_CASH")
	if startingCash == "" {
		startingCash = "2000"
	}
	cash, err := decimal.NewFromString(startingCash)
	if err != nil || cash.IsNegative() {
		return c, errors.New("invalid DEMO_STARTING_CASH")
	}
	c.DemoStartingCash = cash
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}
