package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/solbridge/bridge_service/pkg/tracing"
)

// IdempotencyKey represents an idempotency key record
type IdempotencyKey struct {
	ID             uuid.UUID       `db:"id"`
	IdempotencyKey string          `db:"idempotency_key"`
	RequestPath    string          `db:"request_path"`
	RequestMethod  string          `db:"request_method"`
	RequestHash    string          `db:"request_hash"`
	ResponseStatus int             `db:"response_status"`
	ResponseBody   json.RawMessage `db:"response_body"`
	CreatedAt      time.Time       `db:"created_at"`
	ExpiresAt      time.Time       `db:"expires_at"`
}

// IdempotencyRepository handles idempotency key operations
type IdempotencyRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db *sqlx.DB, logger *zap.Logger) *IdempotencyRepository {
	return &IdempotencyRepository{db: db, logger: logger}
}

// Get retrieves an idempotency key record. A missing or expired key returns
// nil without error.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*IdempotencyKey, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{
		Operation: "SELECT",
		Table:     "idempotency_keys",
	})
	defer span.End()

	query := `
		SELECT id, idempotency_key, request_path, request_method, request_hash,
		       response_status, response_body, created_at, expires_at
		FROM idempotency_keys
		WHERE idempotency_key = $1 AND expires_at > NOW()`

	var record IdempotencyKey
	err := r.db.GetContext(ctx, &record, query, key)
	if err == sql.ErrNoRows {
		tracing.EndDBSpan(span, nil, 0)
		return nil, nil
	}
	tracing.EndDBSpan(span, err, 1)
	if err != nil {
		r.logger.Error("Failed to get idempotency key",
			zap.String("key", key),
			zap.Error(err))
		return nil, err
	}

	return &record, nil
}

// Create stores a new idempotency key record
func (r *IdempotencyRepository) Create(ctx context.Context, record *IdempotencyKey) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{
		Operation: "INSERT",
		Table:     "idempotency_keys",
	})
	defer span.End()

	query := `
		INSERT INTO idempotency_keys (
			idempotency_key, request_path, request_method, request_hash,
			response_status, response_body, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		record.IdempotencyKey,
		record.RequestPath,
		record.RequestMethod,
		record.RequestHash,
		record.ResponseStatus,
		record.ResponseBody,
		record.ExpiresAt,
	).Scan(&record.ID, &record.CreatedAt)

	tracing.EndDBSpan(span, err, 1)
	if err != nil {
		r.logger.Error("Failed to create idempotency key",
			zap.String("key", record.IdempotencyKey),
			zap.Error(err))
		return err
	}

	return nil
}

// UpdateResponse records the final response for a completed request.
func (r *IdempotencyRepository) UpdateResponse(ctx context.Context, key string, status int, body json.RawMessage) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{
		Operation: "UPDATE",
		Table:     "idempotency_keys",
	})
	defer span.End()

	query := `
		UPDATE idempotency_keys
		SET response_status = $2, response_body = $3
		WHERE idempotency_key = $1`

	res, err := r.db.ExecContext(ctx, query, key, status, body)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		r.logger.Error("Failed to update idempotency key",
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	rows, _ := res.RowsAffected()
	tracing.EndDBSpan(span, nil, rows)
	return nil
}

// DeleteExpired removes expired idempotency keys and returns the count.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{
		Operation: "DELETE",
		Table:     "idempotency_keys",
	})
	defer span.End()

	res, err := r.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= NOW()`)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return 0, err
	}
	rows, _ := res.RowsAffected()
	tracing.EndDBSpan(span, nil, rows)
	return rows, nil
}
