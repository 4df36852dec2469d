// Package repositories defines the persistence and external-system contracts
// the services depend on. Implementations live under internal/infrastructure
// and internal/adapters.
package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solbridge/bridge_service/internal/domain/entities"
)

// BridgeStore persists the bridge configuration, token registry, consumed
// message set and event log. All mutating calls made inside a WithTx callback
// share one transaction and commit or roll back together.
type BridgeStore interface {
	// WithTx runs fn inside a database transaction. The transaction is bound
	// to the context passed to fn; store calls made with that context join it.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Config.
	CreateConfig(ctx context.Context, cfg *entities.BridgeConfig) error
	GetConfig(ctx context.Context) (*entities.BridgeConfig, error)
	UpdateProtocolFee(ctx context.Context, fee uint64) error
	IncrementFeeVault(ctx context.Context, amount uint64) error
	DecrementFeeVault(ctx context.Context, amount uint64) error

	// Token registry.
	CreateToken(ctx context.Context, token *entities.RegisteredToken) error
	GetToken(ctx context.Context, tokenID string) (*entities.RegisteredToken, error)
	ListTokens(ctx context.Context) ([]*entities.RegisteredToken, error)
	DeleteToken(ctx context.Context, tokenID string) error

	// Liquidity counters. Decrements fail with ErrInsufficientLiquidity or
	// ErrUnderflow instead of going negative.
	IncrementLocked(ctx context.Context, tokenID string, amount uint64) error
	DecrementLocked(ctx context.Context, tokenID string, amount uint64) error
	IncrementTarget(ctx context.Context, tokenID string, amount uint64) error
	DecrementTarget(ctx context.Context, tokenID string, amount uint64) error

	// ConsumeMessage records a message id as processed. A second call with the
	// same id fails with ErrReplayedMessage.
	ConsumeMessage(ctx context.Context, msg *entities.ConsumedMessage) error
	GetConsumedMessage(ctx context.Context, messageID string) (*entities.ConsumedMessage, error)
	PruneConsumedMessages(ctx context.Context, olderThan time.Time) (int64, error)

	// Event log.
	AppendEvent(ctx context.Context, event *entities.BridgeEvent) error
	ListEvents(ctx context.Context, afterSeq int64, limit int) ([]*entities.BridgeEvent, error)
}

// TokenLedger moves tokens and native funds on the settlement chain. The
// store is the source of truth for accounting; the ledger executes the
// matching on-chain movements.
type TokenLedger interface {
	// Transfer moves amount of mint from one token account to another.
	Transfer(ctx context.Context, mint, from, to string, amount uint64) (signature string, err error)
	// TransferFromVault moves amount out of the bridge token vault for mint.
	TransferFromVault(ctx context.Context, mint, to string, amount uint64) (signature string, err error)
	// TransferNative moves native lamports from the fee vault to a beneficiary.
	TransferNative(ctx context.Context, to string, amount uint64) (signature string, err error)
	// EnsureTokenAccount returns the associated token account for owner and
	// mint, creating it when missing.
	EnsureTokenAccount(ctx context.Context, owner, mint string) (string, error)
	// VaultBalance reports the on-chain balance of the bridge token vault.
	VaultBalance(ctx context.Context, mint string) (uint64, error)
}

// PriceOracle resolves the native token's USD price for oracle fee mode.
type PriceOracle interface {
	// LatestPrice returns the USD price of one native token and the publish
	// time of the quote.
	LatestPrice(ctx context.Context) (price decimal.Decimal, publishedAt time.Time, err error)
}

// EventPublisher fans out committed bridge events to downstream consumers.
// Publishing is best effort; the event log remains the durable record.
type EventPublisher interface {
	Publish(ctx context.Context, event *entities.BridgeEvent) error
	Close() error
}

// AlertSender delivers operational alerts, such as reconciliation drift.
type AlertSender interface {
	SendAlert(ctx context.Context, subject, body string) error
}
