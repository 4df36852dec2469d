// Package repositories contains the Postgres implementations of the domain
// persistence contracts.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	domainerrors "github.com/solbridge/bridge_service/internal/domain/errors"
)

type txKey struct{}

// PostgresBridgeStore persists bridge state in Postgres. Mutations made with
// a context produced by WithTx share one transaction.
type PostgresBridgeStore struct {
	db *sqlx.DB
}

// NewPostgresBridgeStore creates a store backed by db.
func NewPostgresBridgeStore(db *sqlx.DB) *PostgresBridgeStore {
	return &PostgresBridgeStore{db: db}
}

// execer returns the transaction bound to ctx, or the pool when there is none.
func (s *PostgresBridgeStore) execer(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// WithTx runs fn inside a transaction bound to the callback's context.
func (s *PostgresBridgeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		// Already inside a transaction, join it.
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateConfig inserts the singleton configuration row.
func (s *PostgresBridgeStore) CreateConfig(ctx context.Context, cfg *entities.BridgeConfig) error {
	query := `
		INSERT INTO bridge_config (owner, vault_address, vault_bump, protocol_fee, fee_mode, chain_selector, fee_vault_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.execer(ctx).ExecContext(ctx, query,
		cfg.Owner, cfg.VaultAddress, cfg.VaultBump, cfg.ProtocolFee, cfg.FeeMode, cfg.ChainSelector, cfg.FeeVaultBalance)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyInitialized
		}
		return fmt.Errorf("failed to create bridge config: %w", err)
	}
	return nil
}

// GetConfig loads the singleton configuration row.
func (s *PostgresBridgeStore) GetConfig(ctx context.Context) (*entities.BridgeConfig, error) {
	var cfg entities.BridgeConfig
	query := `
		SELECT owner, vault_address, vault_bump, protocol_fee, fee_mode, chain_selector, fee_vault_balance, created_at, updated_at
		FROM bridge_config WHERE id = 1`

	if err := sqlx.GetContext(ctx, s.execer(ctx), &cfg, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to get bridge config: %w", err)
	}
	return &cfg, nil
}

// UpdateProtocolFee replaces the protocol fee.
func (s *PostgresBridgeStore) UpdateProtocolFee(ctx context.Context, fee uint64) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE bridge_config SET protocol_fee = $1, updated_at = NOW() WHERE id = 1`, fee)
	if err != nil {
		return fmt.Errorf("failed to update protocol fee: %w", err)
	}
	return requireRowChanged(res, domainerrors.ErrNotInitialized)
}

// IncrementFeeVault credits collected fees.
func (s *PostgresBridgeStore) IncrementFeeVault(ctx context.Context, amount uint64) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE bridge_config SET fee_vault_balance = fee_vault_balance + $1, updated_at = NOW() WHERE id = 1`, amount)
	if err != nil {
		return fmt.Errorf("failed to increment fee vault: %w", err)
	}
	return requireRowChanged(res, domainerrors.ErrNotInitialized)
}

// DecrementFeeVault debits the fee vault. The WHERE guard keeps the balance
// from going negative under concurrent withdrawals.
func (s *PostgresBridgeStore) DecrementFeeVault(ctx context.Context, amount uint64) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE bridge_config SET fee_vault_balance = fee_vault_balance - $1, updated_at = NOW()
		 WHERE id = 1 AND fee_vault_balance >= $1`, amount)
	if err != nil {
		return fmt.Errorf("failed to decrement fee vault: %w", err)
	}
	return requireRowChanged(res, domainerrors.ErrInsufficientFeeBalance)
}

// CreateToken inserts a registry entry.
func (s *PostgresBridgeStore) CreateToken(ctx context.Context, token *entities.RegisteredToken) error {
	query := `
		INSERT INTO registered_tokens (token_id, local_mint, remote_chain_selector, remote_token, vault_account, vault_bump, locked_amount, target_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.execer(ctx).ExecContext(ctx, query,
		token.TokenID, token.LocalMint, token.RemoteChainSelector, token.RemoteToken,
		token.VaultAccount, token.VaultBump, token.LockedAmount, token.TargetBalance)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetToken loads a registry entry by its id.
func (s *PostgresBridgeStore) GetToken(ctx context.Context, tokenID string) (*entities.RegisteredToken, error) {
	var token entities.RegisteredToken
	query := `
		SELECT token_id, local_mint, remote_chain_selector, remote_token, vault_account, vault_bump,
		       locked_amount, target_balance, created_at, updated_at
		FROM registered_tokens WHERE token_id = $1`

	if err := sqlx.GetContext(ctx, s.execer(ctx), &token, query, tokenID); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.UnknownTokenError(tokenID)
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &token, nil
}

// ListTokens returns all registry entries ordered by creation time.
func (s *PostgresBridgeStore) ListTokens(ctx context.Context) ([]*entities.RegisteredToken, error) {
	var tokens []*entities.RegisteredToken
	query := `
		SELECT token_id, local_mint, remote_chain_selector, remote_token, vault_account, vault_bump,
		       locked_amount, target_balance, created_at, updated_at
		FROM registered_tokens ORDER BY created_at`

	if err := sqlx.SelectContext(ctx, s.execer(ctx), &tokens, query); err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

// DeleteToken removes a registry entry. The locked_amount guard refuses to
// drop an entry that still holds custody.
func (s *PostgresBridgeStore) DeleteToken(ctx context.Context, tokenID string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM registered_tokens WHERE token_id = $1 AND locked_amount = 0`, tokenID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing entry from one holding liquidity.
		if _, getErr := s.GetToken(ctx, tokenID); getErr != nil {
			return getErr
		}
		return domainerrors.ErrLiquidityNotEmpty
	}
	return nil
}

// IncrementLocked credits the custody counter.
func (s *PostgresBridgeStore) IncrementLocked(ctx context.Context, tokenID string, amount uint64) error {
	return s.adjustCounter(ctx, tokenID,
		`UPDATE registered_tokens SET locked_amount = locked_amount + $2, updated_at = NOW() WHERE token_id = $1`,
		amount, nil)
}

// DecrementLocked debits the custody counter, failing instead of underflowing.
func (s *PostgresBridgeStore) DecrementLocked(ctx context.Context, tokenID string, amount uint64) error {
	return s.adjustCounter(ctx, tokenID,
		`UPDATE registered_tokens SET locked_amount = locked_amount - $2, updated_at = NOW()
		 WHERE token_id = $1 AND locked_amount >= $2`,
		amount, domainerrors.ErrInsufficientLiquidity)
}

// IncrementTarget credits the advisory remote-chain balance counter.
func (s *PostgresBridgeStore) IncrementTarget(ctx context.Context, tokenID string, amount uint64) error {
	return s.adjustCounter(ctx, tokenID,
		`UPDATE registered_tokens SET target_balance = target_balance + $2, updated_at = NOW() WHERE token_id = $1`,
		amount, nil)
}

// DecrementTarget debits the advisory counter, failing instead of underflowing.
func (s *PostgresBridgeStore) DecrementTarget(ctx context.Context, tokenID string, amount uint64) error {
	return s.adjustCounter(ctx, tokenID,
		`UPDATE registered_tokens SET target_balance = target_balance - $2, updated_at = NOW()
		 WHERE token_id = $1 AND target_balance >= $2`,
		amount, domainerrors.ErrUnderflow)
}

func (s *PostgresBridgeStore) adjustCounter(ctx context.Context, tokenID, query string, amount uint64, guardErr error) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, tokenID, amount)
	if err != nil {
		return fmt.Errorf("failed to adjust counter for token %s: %w", tokenID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := s.GetToken(ctx, tokenID); getErr != nil {
			return getErr
		}
		if guardErr != nil {
			return guardErr
		}
		return domainerrors.UnknownTokenError(tokenID)
	}
	return nil
}

// ConsumeMessage records a processed message id. The primary key makes a
// second insert of the same id fail as a replay.
func (s *PostgresBridgeStore) ConsumeMessage(ctx context.Context, msg *entities.ConsumedMessage) error {
	query := `
		INSERT INTO consumed_messages (message_id, token_id, source_chain_selector, recipient, amount)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.execer(ctx).ExecContext(ctx, query,
		msg.MessageID, msg.TokenID, msg.SourceChainSelector, msg.Recipient, msg.Amount)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ReplayedMessageError(msg.MessageID)
		}
		return fmt.Errorf("failed to consume message: %w", err)
	}
	return nil
}

// GetConsumedMessage loads a replay record by message id.
func (s *PostgresBridgeStore) GetConsumedMessage(ctx context.Context, messageID string) (*entities.ConsumedMessage, error) {
	var msg entities.ConsumedMessage
	query := `
		SELECT message_id, token_id, source_chain_selector, recipient, amount, consumed_at
		FROM consumed_messages WHERE message_id = $1`

	if err := sqlx.GetContext(ctx, s.execer(ctx), &msg, query, messageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get consumed message: %w", err)
	}
	return &msg, nil
}

// PruneConsumedMessages deletes replay records older than the cutoff and
// returns the number removed.
func (s *PostgresBridgeStore) PruneConsumedMessages(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM consumed_messages WHERE consumed_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune consumed messages: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

// AppendEvent writes one event-log row and fills in its sequence number.
func (s *PostgresBridgeStore) AppendEvent(ctx context.Context, event *entities.BridgeEvent) error {
	query := `
		INSERT INTO bridge_events (event_type, token_id, payload)
		VALUES ($1, $2, $3)
		RETURNING seq, created_at`

	row := s.execer(ctx).QueryRowxContext(ctx, query, event.EventType, event.TokenID, event.Payload)
	if err := row.Scan(&event.Seq, &event.CreatedAt); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ListEvents returns up to limit events with seq greater than afterSeq.
func (s *PostgresBridgeStore) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]*entities.BridgeEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var events []*entities.BridgeEvent
	query := `
		SELECT seq, event_type, token_id, payload, created_at
		FROM bridge_events WHERE seq > $1 ORDER BY seq LIMIT $2`

	if err := sqlx.SelectContext(ctx, s.execer(ctx), &events, query, afterSeq, limit); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func requireRowChanged(res sql.Result, notChangedErr error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return notChangedErr
	}
	return nil
}
