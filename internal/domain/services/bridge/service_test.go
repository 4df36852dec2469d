package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	domainerrors "github.com/solbridge/bridge_service/internal/domain/errors"
	"github.com/solbridge/bridge_service/internal/domain/repositories/storetest"
	"github.com/solbridge/bridge_service/internal/domain/services/events"
	"github.com/solbridge/bridge_service/pkg/logger"
)

const (
	testOwner       = "owner-wallet"
	testMint        = "So11111111111111111111111111111111111111112"
	testBeneficiary = "SysvarC1ock11111111111111111111111111111111"
	testRemoteToken = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testSelector    = uint64(1601511254)
	remoteSelector  = uint64(5009297550715157269)
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

type stubVaults struct{}

func (stubVaults) BridgeVault() (string, uint8) { return "fee-vault", 254 }
func (stubVaults) TokenVault(mint string) (string, uint8, error) {
	return "vault-" + mint, 253, nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, event *entities.BridgeEvent) error { return nil }
func (stubPublisher) Close() error                                                   { return nil }

func newTestService(t *testing.T) (*Service, *storetest.MemoryStore, *MockLedger) {
	t.Helper()
	store := storetest.NewMemoryStore()
	ledger := new(MockLedger)
	log := logger.New("error", "test")
	eventsSvc := events.NewService(store, stubPublisher{}, log)
	svc := NewService(store, ledger, stubVaults{}, eventsSvc, testOwner, testSelector, log)
	return svc, store, ledger
}

func initialize(t *testing.T, svc *Service) *entities.BridgeConfig {
	t.Helper()
	cfg, err := svc.Initialize(context.Background(), testOwner, &entities.InitializeRequest{
		ProtocolFee:   100,
		ChainSelector: testSelector,
	})
	require.NoError(t, err)
	return cfg
}

func TestInitializeIsASingleton(t *testing.T) {
	svc, _, _ := newTestService(t)

	cfg := initialize(t, svc)
	assert.Equal(t, testOwner, cfg.Owner)
	assert.Equal(t, entities.FeeModeFixed, cfg.FeeMode)
	assert.Equal(t, "fee-vault", cfg.VaultAddress)

	_, err := svc.Initialize(context.Background(), testOwner, &entities.InitializeRequest{
		ProtocolFee:   200,
		ChainSelector: testSelector,
	})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyInitialized)
}

func TestInitializeRejectsZeroFee(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Initialize(context.Background(), testOwner, &entities.InitializeRequest{
		ProtocolFee:   0,
		ChainSelector: testSelector,
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidProtocolFee)
}

func TestInitializeRejectsWrongChainSelector(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Initialize(context.Background(), testOwner, &entities.InitializeRequest{
		ProtocolFee:   100,
		ChainSelector: testSelector + 1,
	})
	assert.ErrorIs(t, err, domainerrors.ErrChainMismatch)
}

func TestInitializeRequiresOwner(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Initialize(context.Background(), "intruder", &entities.InitializeRequest{
		ProtocolFee:   100,
		ChainSelector: testSelector,
	})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestSetProtocolFeeRejectsZero(t *testing.T) {
	svc, _, _ := newTestService(t)
	initialize(t, svc)

	err := svc.SetProtocolFee(context.Background(), testOwner, 0)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidProtocolFee)

	require.NoError(t, svc.SetProtocolFee(context.Background(), testOwner, 250))
	cfg, err := svc.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(250), cfg.ProtocolFee)
}

func TestAddTokenDerivesDeterministicKey(t *testing.T) {
	svc, _, _ := newTestService(t)
	initialize(t, svc)

	req := &entities.AddTokenRequest{
		LocalMint:           testMint,
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	}

	token, err := svc.AddToken(context.Background(), testOwner, req)
	require.NoError(t, err)

	wantID, err := entities.DeriveTokenID(testMint, testSelector, remoteSelector, testRemoteToken)
	require.NoError(t, err)
	assert.Equal(t, wantID, token.TokenID)
	assert.Equal(t, "vault-"+testMint, token.VaultAccount)

	// The same pairing cannot be registered twice.
	_, err = svc.AddToken(context.Background(), testOwner, req)
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateEntry)
}

func TestRemoveTokenRefusesWhileLiquidityLocked(t *testing.T) {
	svc, store, _ := newTestService(t)
	initialize(t, svc)

	token, err := svc.AddToken(context.Background(), testOwner, &entities.AddTokenRequest{
		LocalMint:           testMint,
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})
	require.NoError(t, err)

	require.NoError(t, store.IncrementLocked(context.Background(), token.TokenID, 500))

	err = svc.RemoveToken(context.Background(), testOwner, &entities.RemoveTokenRequest{
		LocalMint:           testMint,
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrLiquidityNotEmpty)

	require.NoError(t, store.DecrementLocked(context.Background(), token.TokenID, 500))
	require.NoError(t, svc.RemoveToken(context.Background(), testOwner, &entities.RemoveTokenRequest{
		LocalMint:           testMint,
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	}))

	_, err = svc.GetToken(context.Background(), token.TokenID)
	assert.ErrorIs(t, err, domainerrors.ErrUnknownToken)
}

func TestUpdateTokenBalanceGuardsUnderflow(t *testing.T) {
	svc, _, _ := newTestService(t)
	initialize(t, svc)

	token, err := svc.AddToken(context.Background(), testOwner, &entities.AddTokenRequest{
		LocalMint:           testMint,
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTokenBalance(context.Background(), testOwner, token.TokenID, 1_000, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), updated.TargetBalance)

	_, err = svc.UpdateTokenBalance(context.Background(), testOwner, token.TokenID, 2_000, false)
	assert.ErrorIs(t, err, domainerrors.ErrUnderflow)
}

func TestWithdrawTokenMovesLockedLiquidity(t *testing.T) {
	svc, store, ledger := newTestService(t)
	initialize(t, svc)

	token, err := svc.AddToken(context.Background(), testOwner, &entities.AddTokenRequest{
		LocalMint:           testMint,
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})
	require.NoError(t, err)
	require.NoError(t, store.IncrementLocked(context.Background(), token.TokenID, 10_000))

	ledger.On("EnsureTokenAccount", mock.Anything, testBeneficiary, testMint).Return("beneficiary-ata", nil)
	ledger.On("TransferFromVault", mock.Anything, testMint, "beneficiary-ata", uint64(4_000)).Return("sig", nil)

	err = svc.WithdrawToken(context.Background(), testOwner, &entities.WithdrawTokenRequest{
		TokenID:     token.TokenID,
		Amount:      4_000,
		Beneficiary: testBeneficiary,
	})
	require.NoError(t, err)

	got, err := store.GetToken(context.Background(), token.TokenID)
	require.NoError(t, err)
	assert.Equal(t, uint64(6_000), got.LockedAmount)
	ledger.AssertExpectations(t)
}

func TestWithdrawGuardsFeeVaultBalance(t *testing.T) {
	svc, store, ledger := newTestService(t)
	initialize(t, svc)

	require.NoError(t, store.IncrementFeeVault(context.Background(), 300))

	err := svc.Withdraw(context.Background(), testOwner, &entities.WithdrawRequest{
		Amount:      500,
		Beneficiary: testBeneficiary,
	})
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientFeeBalance)

	ledger.On("TransferNative", mock.Anything, testBeneficiary, uint64(300)).Return("sig", nil)
	require.NoError(t, svc.Withdraw(context.Background(), testOwner, &entities.WithdrawRequest{
		Amount:      300,
		Beneficiary: testBeneficiary,
	}))

	cfg, err := store.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cfg.FeeVaultBalance)
}

type memCache struct {
	values map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string][]byte)}
}

func (c *memCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = data
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func TestGetTokenReadsThroughCache(t *testing.T) {
	svc, store, _ := newTestService(t)
	initialize(t, svc)
	cache := newMemCache()
	svc.SetCache(cache)

	token, err := svc.AddToken(context.Background(), testOwner, &entities.AddTokenRequest{
		LocalMint:           testMint,
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})
	require.NoError(t, err)

	// First read populates the cache; a stale store entry then proves the
	// second read served the cached copy.
	got, err := svc.GetToken(context.Background(), token.TokenID)
	require.NoError(t, err)
	assert.Equal(t, testMint, got.LocalMint)

	require.NoError(t, store.IncrementLocked(context.Background(), token.TokenID, 777))
	cached, err := svc.GetToken(context.Background(), token.TokenID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cached.LockedAmount)
}

func TestUpdateTokenBalanceInvalidatesCache(t *testing.T) {
	svc, _, _ := newTestService(t)
	initialize(t, svc)
	cache := newMemCache()
	svc.SetCache(cache)

	token, err := svc.AddToken(context.Background(), testOwner, &entities.AddTokenRequest{
		LocalMint:           testMint,
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})
	require.NoError(t, err)

	_, err = svc.GetToken(context.Background(), token.TokenID)
	require.NoError(t, err)

	updated, err := svc.UpdateTokenBalance(context.Background(), testOwner, token.TokenID, 9_000, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_000), updated.TargetBalance)

	fresh, err := svc.GetToken(context.Background(), token.TokenID)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_000), fresh.TargetBalance)
}
