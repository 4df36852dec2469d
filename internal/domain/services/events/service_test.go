package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	"github.com/solbridge/bridge_service/internal/domain/repositories/storetest"
	"github.com/solbridge/bridge_service/pkg/logger"
)

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(ctx context.Context, event *entities.BridgeEvent) error {
	p.calls++
	return assert.AnError
}

func (p *failingPublisher) Close() error { return nil }

func TestAppendAssignsSequence(t *testing.T) {
	store := storetest.NewMemoryStore()
	svc := NewService(store, &failingPublisher{}, logger.New("error", "test"))

	first, err := svc.Append(context.Background(), entities.EventAddLiquidity, "token-a", entities.AddLiquidityEvent{Amount: 10})
	require.NoError(t, err)
	second, err := svc.Append(context.Background(), entities.EventSendToken, "token-a", entities.SendTokenEvent{Amount: 5})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, entities.EventSendToken, second.EventType)
}

func TestListPaginatesAfterSequence(t *testing.T) {
	store := storetest.NewMemoryStore()
	svc := NewService(store, &failingPublisher{}, logger.New("error", "test"))

	for i := 0; i < 5; i++ {
		_, err := svc.Append(context.Background(), entities.EventAddLiquidity, "token-a", entities.AddLiquidityEvent{Amount: uint64(i)})
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].Seq)
	assert.Equal(t, int64(4), page[1].Seq)
}

func TestPublishCommittedSwallowsFailures(t *testing.T) {
	store := storetest.NewMemoryStore()
	publisher := &failingPublisher{}
	svc := NewService(store, publisher, logger.New("error", "test"))

	event, err := svc.Append(context.Background(), entities.EventWithdraw, "", entities.WithdrawEvent{Amount: 1})
	require.NoError(t, err)

	// Must not panic or surface the error; the event log is the durable record.
	svc.PublishCommitted(context.Background(), event, nil)
	assert.Equal(t, 1, publisher.calls)
}
