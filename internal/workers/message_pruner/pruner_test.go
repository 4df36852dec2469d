package messagepruner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	"github.com/solbridge/bridge_service/internal/domain/repositories/storetest"
	"github.com/solbridge/bridge_service/pkg/logger"
)

func TestRunOnceRemovesExpiredRecords(t *testing.T) {
	store := storetest.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.ConsumeMessage(ctx, &entities.ConsumedMessage{MessageID: "msg-1", TokenID: "token-a", Amount: 1}))
	require.NoError(t, store.ConsumeMessage(ctx, &entities.ConsumedMessage{MessageID: "msg-2", TokenID: "token-a", Amount: 2}))

	// Zero retention makes everything consumed before now eligible.
	pruner := New(store, nil, 0, logger.New("error", "test"))
	time.Sleep(5 * time.Millisecond)
	pruner.RunOnce(ctx)

	_, err := store.GetConsumedMessage(ctx, "msg-1")
	assert.Error(t, err)
	_, err = store.GetConsumedMessage(ctx, "msg-2")
	assert.Error(t, err)
}

type countingKeyCleaner struct {
	calls int
}

func (c *countingKeyCleaner) DeleteExpired(ctx context.Context) (int64, error) {
	c.calls++
	return 3, nil
}

func TestRunOnceCleansIdempotencyKeys(t *testing.T) {
	store := storetest.NewMemoryStore()
	cleaner := &countingKeyCleaner{}

	pruner := New(store, cleaner, 24*time.Hour, logger.New("error", "test"))
	pruner.RunOnce(context.Background())

	assert.Equal(t, 1, cleaner.calls)
}

func TestRunOnceKeepsRecentRecords(t *testing.T) {
	store := storetest.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.ConsumeMessage(ctx, &entities.ConsumedMessage{MessageID: "msg-1", TokenID: "token-a", Amount: 1}))

	pruner := New(store, nil, 24*time.Hour, logger.New("error", "test"))
	pruner.RunOnce(ctx)

	msg, err := store.GetConsumedMessage(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", msg.MessageID)
}
