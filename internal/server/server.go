package server

import (
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"promobar/internal/client"
	"promobar/internal/database"
	"promobar/internal/engine"
	"promobar/internal/usage"
)

type Server struct {
	DB               database.Database
	Client           client.Client
	Redis            *redis.Client
	Engine           engine.Engine
	Ledger           usage.Ledger
	Logger           logger
	AuthSecretKey    jwk.Key
	BillingSecret    string
	BillingReturnURL string
	CacheTTL         time.Duration
}

type logger interface {
	Debug(v ...any)
	Info(v ...any)
	Warn(v ...any)
	Error(v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// Storefront read paths fail closed within this budget so an internal outage
// never blocks a shopper's page.
const storefrontTimeout = 2 * time.Second
