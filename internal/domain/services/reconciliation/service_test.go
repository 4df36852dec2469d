package reconciliation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	"github.com/solbridge/bridge_service/internal/domain/repositories/storetest"
	"github.com/solbridge/bridge_service/pkg/logger"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Transfer(ctx context.Context, mint, from, to string, amount uint64) (string, error) {
	args := m.Called(ctx, mint, from, to, amount)
	return args.String(0), args.Error(1)
}

func (m *MockLedger) TransferFromVault(ctx context.Context, mint, to string, amount uint64) (string, error) {
	args := m.Called(ctx, mint, to, amount)
	return args.String(0), args.Error(1)
}

func (m *MockLedger) TransferNative(ctx context.Context, to string, amount uint64) (string, error) {
	args := m.Called(ctx, to, amount)
	return args.String(0), args.Error(1)
}

func (m *MockLedger) EnsureTokenAccount(ctx context.Context, owner, mint string) (string, error) {
	args := m.Called(ctx, owner, mint)
	return args.String(0), args.Error(1)
}

func (m *MockLedger) VaultBalance(ctx context.Context, mint string) (uint64, error) {
	args := m.Called(ctx, mint)
	return args.Get(0).(uint64), args.Error(1)
}

type recordingAlerts struct {
	subjects []string
}

func (r *recordingAlerts) SendAlert(ctx context.Context, subject, body string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

func seedToken(store *storetest.MemoryStore, tokenID, mint string, locked uint64) {
	store.SeedToken(&entities.RegisteredToken{
		TokenID:      tokenID,
		LocalMint:    mint,
		RemoteToken:  "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		LockedAmount: locked,
	})
}

func TestRunCleanWhenBalancesMatch(t *testing.T) {
	store := storetest.NewMemoryStore()
	seedToken(store, "token-a", "mint-a", 1_000)

	ledger := new(MockLedger)
	ledger.On("VaultBalance", mock.Anything, "mint-a").Return(uint64(1_000), nil)

	alerts := &recordingAlerts{}
	svc := NewService(store, ledger, alerts, 100, logger.New("error", "test"))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TokensChecked)
	assert.Empty(t, report.Drifts)
	assert.Empty(t, alerts.subjects)
}

func TestRunAlertsOnShortfall(t *testing.T) {
	store := storetest.NewMemoryStore()
	seedToken(store, "token-a", "mint-a", 1_000)

	ledger := new(MockLedger)
	ledger.On("VaultBalance", mock.Anything, "mint-a").Return(uint64(990), nil)

	alerts := &recordingAlerts{}
	// A shortfall alerts even when the gap is under the threshold.
	svc := NewService(store, ledger, alerts, 100, logger.New("error", "test"))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, uint64(10), report.Drifts[0].Difference)
	assert.Len(t, alerts.subjects, 1)
}

func TestRunToleratesSurplusWithinThreshold(t *testing.T) {
	store := storetest.NewMemoryStore()
	seedToken(store, "token-a", "mint-a", 1_000)

	ledger := new(MockLedger)
	ledger.On("VaultBalance", mock.Anything, "mint-a").Return(uint64(1_050), nil)

	alerts := &recordingAlerts{}
	svc := NewService(store, ledger, alerts, 100, logger.New("error", "test"))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Drifts)
	assert.Empty(t, alerts.subjects)
}

func TestRunSkipsTokensWithUnreadableVaults(t *testing.T) {
	store := storetest.NewMemoryStore()
	seedToken(store, "token-a", "mint-a", 1_000)
	seedToken(store, "token-b", "mint-b", 2_000)

	ledger := new(MockLedger)
	ledger.On("VaultBalance", mock.Anything, "mint-a").Return(uint64(0), assert.AnError)
	ledger.On("VaultBalance", mock.Anything, "mint-b").Return(uint64(2_000), nil)

	alerts := &recordingAlerts{}
	svc := NewService(store, ledger, alerts, 100, logger.New("error", "test"))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.TokensChecked)
	assert.Empty(t, report.Drifts)
}
