// Package di wires configuration, infrastructure and services together.
package di

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	solanaadapter "github.com/solbridge/bridge_service/internal/adapters/solana"
	"github.com/solbridge/bridge_service/internal/domain/repositories"
	bridgesvc "github.com/solbridge/bridge_service/internal/domain/services/bridge"
	"github.com/solbridge/bridge_service/internal/domain/services/events"
	"github.com/solbridge/bridge_service/internal/domain/services/reconciliation"
	transfersvc "github.com/solbridge/bridge_service/internal/domain/services/transfer"
	"github.com/solbridge/bridge_service/internal/infrastructure/adapters/email"
	"github.com/solbridge/bridge_service/internal/infrastructure/adapters/natspub"
	"github.com/solbridge/bridge_service/internal/infrastructure/adapters/pyth"
	"github.com/solbridge/bridge_service/internal/infrastructure/cache"
	"github.com/solbridge/bridge_service/internal/infrastructure/config"
	infrarepos "github.com/solbridge/bridge_service/internal/infrastructure/repositories"
	messagepruner "github.com/solbridge/bridge_service/internal/workers/message_pruner"
	"github.com/solbridge/bridge_service/pkg/logger"
)

// Container holds every long-lived dependency.
type Container struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *sqlx.DB
	Cache  *cache.Client

	Store           repositories.BridgeStore
	IdempotencyRepo *infrarepos.IdempotencyRepository
	Ledger          *solanaadapter.Ledger
	Oracle          repositories.PriceOracle
	Publisher       repositories.EventPublisher
	Alerts          repositories.AlertSender

	EventsService         *events.Service
	BridgeService         *bridgesvc.Service
	TransferService       *transfersvc.Service
	ReconciliationService *reconciliation.Service
	Pruner                *messagepruner.Pruner
}

// vaultDeriver adapts the Solana ledger to the admin service contract.
type vaultDeriver struct {
	ledger *solanaadapter.Ledger
}

func (v vaultDeriver) BridgeVault() (string, uint8) {
	accounts := v.ledger.Accounts()
	return accounts.Vault.String(), accounts.VaultBump
}

func (v vaultDeriver) TokenVault(mint string) (string, uint8, error) {
	vault, bump, err := v.ledger.TokenVault(mint)
	if err != nil {
		return "", 0, err
	}
	return vault.String(), bump, nil
}

// NewContainer builds the dependency graph.
func NewContainer(cfg *config.Config, log *logger.Logger, db *sqlx.DB) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: log,
		DB:     db,
	}

	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		// The cache is an optimization; the service runs without it.
		log.Warn("Redis unavailable, continuing without cache", "error", err)
	}
	c.Cache = redisClient

	c.Store = infrarepos.NewPostgresBridgeStore(db)
	c.IdempotencyRepo = infrarepos.NewIdempotencyRepository(db, log.Zap())

	ledger, err := solanaadapter.NewLedger(
		cfg.Solana.RPCEndpoint, cfg.Solana.ProgramID, cfg.Solana.SignerKey, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create solana ledger: %w", err)
	}
	c.Ledger = ledger

	c.Oracle = pyth.NewClient(pyth.Config{
		BaseURL:        cfg.Oracle.BaseURL,
		PriceFeedID:    cfg.Oracle.PriceFeedID,
		Timeout:        time.Duration(cfg.Oracle.Timeout) * time.Second,
		Staleness:      time.Duration(cfg.Oracle.StalenessSeconds) * time.Second,
		RequestsPerSec: cfg.Oracle.RateLimitPerSec,
	}, log.Zap())

	if cfg.NATS.Enabled {
		publisher, err := natspub.NewPublisher(cfg.NATS, log.Zap())
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		c.Publisher = publisher
	} else {
		c.Publisher = natspub.NoopPublisher{}
	}

	c.Alerts = email.NewSendGridSender(cfg.Email, log.Zap())

	c.EventsService = events.NewService(c.Store, c.Publisher, log)
	c.BridgeService = bridgesvc.NewService(
		c.Store, c.Ledger, vaultDeriver{ledger: ledger}, c.EventsService,
		cfg.Bridge.Owner, cfg.Bridge.ChainSelector, log)
	if redisClient != nil {
		c.BridgeService.SetCache(redisClient)
	}
	c.TransferService = transfersvc.NewService(
		c.Store, c.Ledger, c.Oracle, c.EventsService, cfg.Bridge.Owner, log)
	c.ReconciliationService = reconciliation.NewService(
		c.Store, c.Ledger, c.Alerts, cfg.Reconciliation.AlertThreshold, log)
	c.Pruner = messagepruner.New(
		c.Store,
		c.IdempotencyRepo,
		time.Duration(cfg.Retention.MessageMaxAgeDays)*24*time.Hour,
		log)

	return c, nil
}

// Close releases held connections.
func (c *Container) Close() {
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			c.Logger.Warn("Failed to close event publisher", "error", err)
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", "error", err)
		}
	}
}
