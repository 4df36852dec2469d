package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
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
	testOwner        = "owner-wallet"
	testMint         = "So11111111111111111111111111111111111111112"
	testSender       = "SysvarRent111111111111111111111111111111111"
	testRecipient    = "SysvarC1ock11111111111111111111111111111111"
	testRemoteToken  = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testSelector     = uint64(1601511254)
	remoteSelector   = uint64(5009297550715157269)
	testVaultAccount = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
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

type stubOracle struct {
	price decimal.Decimal
	err   error
}

func (o stubOracle) LatestPrice(ctx context.Context) (decimal.Decimal, time.Time, error) {
	if o.err != nil {
		return decimal.Zero, time.Time{}, o.err
	}
	return o.price, time.Now(), nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, event *entities.BridgeEvent) error { return nil }
func (stubPublisher) Close() error                                                   { return nil }

func newTestService(t *testing.T, feeMode entities.FeeMode, fee uint64, oracle stubOracle) (*Service, *storetest.MemoryStore, *MockLedger, string) {
	t.Helper()

	store := storetest.NewMemoryStore()
	store.SeedConfig(&entities.BridgeConfig{
		Owner:         testOwner,
		VaultAddress:  "fee-vault",
		ProtocolFee:   fee,
		FeeMode:       feeMode,
		ChainSelector: testSelector,
	})

	tokenID, err := entities.DeriveTokenID(testMint, testSelector, remoteSelector, testRemoteToken)
	require.NoError(t, err)
	store.SeedToken(&entities.RegisteredToken{
		TokenID:             tokenID,
		LocalMint:           testMint,
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
		VaultAccount:        testVaultAccount,
		TargetBalance:       50_000_000,
	})

	ledger := new(MockLedger)
	log := logger.New("error", "test")
	eventsSvc := events.NewService(store, stubPublisher{}, log)
	svc := NewService(store, ledger, oracle, eventsSvc, testOwner, log)
	return svc, store, ledger, tokenID
}

func TestAddLiquidityCreditsLockedAmount(t *testing.T) {
	svc, store, ledger, tokenID := newTestService(t, entities.FeeModeFixed, 100, stubOracle{})

	ledger.On("EnsureTokenAccount", mock.Anything, testSender, testMint).Return("sender-ata", nil)
	ledger.On("Transfer", mock.Anything, testMint, "sender-ata", testVaultAccount, uint64(100_000_000)).Return("sig1", nil)

	token, err := svc.AddLiquidity(context.Background(), &entities.AddLiquidityRequest{
		TokenID: tokenID,
		Amount:  100_000_000,
		Sender:  testSender,
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), token.LockedAmount)
	ledger.AssertExpectations(t)

	appended := store.Events()
	require.Len(t, appended, 1)
	assert.Equal(t, entities.EventAddLiquidity, appended[0].EventType)
}

func TestSendEscrowsPrincipalAndFee(t *testing.T) {
	svc, store, ledger, tokenID := newTestService(t, entities.FeeModeFixed, 100, stubOracle{})

	ledger.On("EnsureTokenAccount", mock.Anything, testSender, testMint).Return("sender-ata", nil)
	ledger.On("Transfer", mock.Anything, testMint, "sender-ata", testVaultAccount, mock.Anything).Return("sig", nil)
	ledger.On("TransferNative", mock.Anything, "fee-vault", uint64(100)).Return("fee-sig", nil)

	_, err := svc.AddLiquidity(context.Background(), &entities.AddLiquidityRequest{
		TokenID: tokenID,
		Amount:  100_000_000,
		Sender:  testSender,
	})
	require.NoError(t, err)

	resp, err := svc.Send(context.Background(), &entities.SendRequest{
		TokenID:             tokenID,
		Amount:              10_000_000,
		Sender:              testSender,
		RemoteBridge:        "0x1111111111111111111111111111111111111111",
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(100), resp.Fee)
	assert.Equal(t, uint64(110_000_000), resp.LockedAmount)

	cfg, err := store.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), cfg.FeeVaultBalance)
	ledger.AssertExpectations(t)
}

func TestSendRejectsPairingMismatch(t *testing.T) {
	svc, _, _, tokenID := newTestService(t, entities.FeeModeFixed, 100, stubOracle{})

	_, err := svc.Send(context.Background(), &entities.SendRequest{
		TokenID:             tokenID,
		Amount:              10_000_000,
		Sender:              testSender,
		RemoteBridge:        "0x1111111111111111111111111111111111111111",
		RemoteChainSelector: remoteSelector + 1,
		RemoteToken:         testRemoteToken,
	})

	assert.ErrorIs(t, err, domainerrors.ErrChainMismatch)
}

func TestSendRequiresTargetBalanceAboveAmount(t *testing.T) {
	svc, _, _, tokenID := newTestService(t, entities.FeeModeFixed, 100, stubOracle{})

	// Target balance equal to the amount is not enough; it must exceed it.
	_, err := svc.Send(context.Background(), &entities.SendRequest{
		TokenID:             tokenID,
		Amount:              50_000_000,
		Sender:              testSender,
		RemoteBridge:        "0x1111111111111111111111111111111111111111",
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})

	assert.ErrorIs(t, err, domainerrors.ErrInsufficientTargetBalance)
}

func TestSendOracleFeeConversion(t *testing.T) {
	// 250 cents at $25 per native token is 0.1 tokens, 100_000_000 lamports.
	svc, _, ledger, tokenID := newTestService(t, entities.FeeModeOracle, 250, stubOracle{price: decimal.NewFromInt(25)})

	ledger.On("EnsureTokenAccount", mock.Anything, testSender, testMint).Return("sender-ata", nil)
	ledger.On("Transfer", mock.Anything, testMint, "sender-ata", testVaultAccount, uint64(10_000_000)).Return("sig", nil)
	ledger.On("TransferNative", mock.Anything, "fee-vault", uint64(100_000_000)).Return("fee-sig", nil)

	resp, err := svc.Send(context.Background(), &entities.SendRequest{
		TokenID:             tokenID,
		Amount:              10_000_000,
		Sender:              testSender,
		RemoteBridge:        "0x1111111111111111111111111111111111111111",
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), resp.Fee)
	ledger.AssertExpectations(t)
}

func TestSendFailsWhenOracleUnavailable(t *testing.T) {
	svc, store, _, tokenID := newTestService(t, entities.FeeModeOracle, 250, stubOracle{err: domainerrors.ErrOracleUnavailable})

	_, err := svc.Send(context.Background(), &entities.SendRequest{
		TokenID:             tokenID,
		Amount:              10_000_000,
		Sender:              testSender,
		RemoteBridge:        "0x1111111111111111111111111111111111111111",
		RemoteChainSelector: remoteSelector,
		RemoteToken:         testRemoteToken,
	})

	assert.ErrorIs(t, err, domainerrors.ErrOracleUnavailable)
	assert.Empty(t, store.Events())
}

func TestMessageReceiveCreditsExactlyOnce(t *testing.T) {
	svc, store, ledger, tokenID := newTestService(t, entities.FeeModeFixed, 100, stubOracle{})

	ledger.On("EnsureTokenAccount", mock.Anything, mock.Anything, testMint).Return("ata", nil)
	ledger.On("Transfer", mock.Anything, testMint, "ata", testVaultAccount, mock.Anything).Return("sig", nil)
	ledger.On("TransferFromVault", mock.Anything, testMint, "ata", uint64(5_000_000)).Return("out-sig", nil)

	_, err := svc.AddLiquidity(context.Background(), &entities.AddLiquidityRequest{
		TokenID: tokenID,
		Amount:  20_000_000,
		Sender:  testSender,
	})
	require.NoError(t, err)

	msg := &entities.TransferMessage{
		TokenID:             tokenID,
		SourceChainSelector: remoteSelector,
		Recipient:           testRecipient,
		Amount:              5_000_000,
		Nonce:               7,
	}

	resp, err := svc.MessageReceive(context.Background(), testOwner, msg)
	require.NoError(t, err)
	assert.Equal(t, msg.ID(), resp.MessageID)

	token, err := store.GetToken(context.Background(), tokenID)
	require.NoError(t, err)
	assert.Equal(t, uint64(15_000_000), token.LockedAmount)

	// The same message again must be rejected without moving funds.
	_, err = svc.MessageReceive(context.Background(), testOwner, msg)
	assert.ErrorIs(t, err, domainerrors.ErrReplayedMessage)

	token, err = store.GetToken(context.Background(), tokenID)
	require.NoError(t, err)
	assert.Equal(t, uint64(15_000_000), token.LockedAmount)
}

func TestMessageReceiveRequiresOwner(t *testing.T) {
	svc, _, _, tokenID := newTestService(t, entities.FeeModeFixed, 100, stubOracle{})

	_, err := svc.MessageReceive(context.Background(), "someone-else", &entities.TransferMessage{
		TokenID:             tokenID,
		SourceChainSelector: remoteSelector,
		Recipient:           testRecipient,
		Amount:              1,
		Nonce:               1,
	})

	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestMessageReceiveRejectsWrongSourceChain(t *testing.T) {
	svc, _, _, tokenID := newTestService(t, entities.FeeModeFixed, 100, stubOracle{})

	_, err := svc.MessageReceive(context.Background(), testOwner, &entities.TransferMessage{
		TokenID:             tokenID,
		SourceChainSelector: remoteSelector + 1,
		Recipient:           testRecipient,
		Amount:              1,
		Nonce:               1,
	})

	assert.ErrorIs(t, err, domainerrors.ErrChainMismatch)
}

func TestMessageReceiveRejectsOverdraw(t *testing.T) {
	svc, _, _, tokenID := newTestService(t, entities.FeeModeFixed, 100, stubOracle{})

	_, err := svc.MessageReceive(context.Background(), testOwner, &entities.TransferMessage{
		TokenID:             tokenID,
		SourceChainSelector: remoteSelector,
		Recipient:           testRecipient,
		Amount:              1_000_000,
		Nonce:               1,
	})

	assert.ErrorIs(t, err, domainerrors.ErrInsufficientLiquidity)
}

func TestMessageReceiveValidatesInput(t *testing.T) {
	svc, _, _, _ := newTestService(t, entities.FeeModeFixed, 100, stubOracle{})

	_, err := svc.MessageReceive(context.Background(), testOwner, &entities.TransferMessage{
		TokenID:             "",
		SourceChainSelector: remoteSelector,
		Recipient:           testRecipient,
		Amount:              1,
	})

	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}
