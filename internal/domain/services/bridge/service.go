// Package bridge implements the owner-gated administration of the bridge:
// configuration, token registry and withdrawals.
package bridge

import (
	"context"
	"time"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	domainerrors "github.com/solbridge/bridge_service/internal/domain/errors"
	"github.com/solbridge/bridge_service/internal/domain/repositories"
	"github.com/solbridge/bridge_service/internal/domain/services/events"
	"github.com/solbridge/bridge_service/pkg/logger"
	"github.com/solbridge/bridge_service/pkg/metrics"
	"github.com/solbridge/bridge_service/pkg/tracing"
)

// VaultDeriver exposes the derived bridge vault addresses.
type VaultDeriver interface {
	BridgeVault() (address string, bump uint8)
	TokenVault(mint string) (address string, bump uint8, err error)
}

// CacheClient interface for caching registry reads.
type CacheClient interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// registryCacheTTL bounds how stale a cached registry entry can get; the
// locked counters also move on transfer traffic, which does not invalidate.
const registryCacheTTL = 10 * time.Second

const tokenListCacheKey = "tokens:all"

func tokenCacheKey(tokenID string) string {
	return "tokens:" + tokenID
}

// Service carries out admin operations. Every mutation checks the caller
// against the configured owner before touching state.
type Service struct {
	store         repositories.BridgeStore
	ledger        repositories.TokenLedger
	vaults        VaultDeriver
	events        *events.Service
	cache         CacheClient
	owner         string
	chainSelector uint64
	log           *logger.Logger
}

// NewService creates the admin service.
func NewService(
	store repositories.BridgeStore,
	ledger repositories.TokenLedger,
	vaults VaultDeriver,
	eventsSvc *events.Service,
	owner string,
	chainSelector uint64,
	log *logger.Logger,
) *Service {
	return &Service{
		store:         store,
		ledger:        ledger,
		vaults:        vaults,
		events:        eventsSvc,
		owner:         owner,
		chainSelector: chainSelector,
		log:           log,
	}
}

// SetCache sets the cache client (optional).
func (s *Service) SetCache(cache CacheClient) {
	s.cache = cache
}

func (s *Service) invalidateToken(ctx context.Context, tokenID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, tokenCacheKey(tokenID), tokenListCacheKey); err != nil {
		s.log.Warn("Failed to invalidate token cache", "token_id", tokenID, "error", err)
	}
}

func (s *Service) authorize(caller string) error {
	if caller != s.owner {
		return domainerrors.UnauthorizedError("caller is not the bridge owner")
	}
	return nil
}

// Initialize creates the bridge configuration singleton. It can only succeed
// once; a second call fails with ErrAlreadyInitialized.
func (s *Service) Initialize(ctx context.Context, caller string, req *entities.InitializeRequest) (*entities.BridgeConfig, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "bridge", "Initialize")
	defer span.End()

	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if req.ProtocolFee == 0 {
		return nil, domainerrors.ErrInvalidProtocolFee
	}
	// The deployment's chain selector is fixed in configuration; refusing a
	// mismatched bootstrap catches copy-paste mistakes early.
	if s.chainSelector != 0 && req.ChainSelector != s.chainSelector {
		return nil, domainerrors.ErrChainMismatch
	}

	feeMode := req.FeeMode
	if feeMode == "" {
		feeMode = entities.FeeModeFixed
	}

	vaultAddress, vaultBump := s.vaults.BridgeVault()
	cfg := &entities.BridgeConfig{
		Owner:         caller,
		VaultAddress:  vaultAddress,
		VaultBump:     vaultBump,
		ProtocolFee:   req.ProtocolFee,
		FeeMode:       feeMode,
		ChainSelector: req.ChainSelector,
	}

	if err := s.store.CreateConfig(ctx, cfg); err != nil {
		return nil, err
	}

	s.log.Info("Bridge initialized",
		"owner", cfg.Owner,
		"chain_selector", cfg.ChainSelector,
		"protocol_fee", cfg.ProtocolFee,
		"fee_mode", cfg.FeeMode)
	return cfg, nil
}

// GetConfig returns the current configuration.
func (s *Service) GetConfig(ctx context.Context) (*entities.BridgeConfig, error) {
	return s.store.GetConfig(ctx)
}

// SetProtocolFee replaces the protocol fee. Zero is rejected: a free bridge
// is always a misconfiguration.
func (s *Service) SetProtocolFee(ctx context.Context, caller string, fee uint64) error {
	ctx, span := tracing.StartServiceSpan(ctx, "bridge", "SetProtocolFee")
	defer span.End()

	if err := s.authorize(caller); err != nil {
		return err
	}
	if fee == 0 {
		return domainerrors.ErrInvalidProtocolFee
	}

	if err := s.store.UpdateProtocolFee(ctx, fee); err != nil {
		return err
	}

	s.log.Info("Protocol fee updated", "protocol_fee", fee)
	return nil
}

// AddToken registers a local mint with its remote counterpart. The registry
// key is derived from the pairing, so registering the same pairing twice
// fails with ErrDuplicateEntry.
func (s *Service) AddToken(ctx context.Context, caller string, req *entities.AddTokenRequest) (*entities.RegisteredToken, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "bridge", "AddToken")
	defer span.End()

	if err := s.authorize(caller); err != nil {
		return nil, err
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	tokenID, err := entities.DeriveTokenID(req.LocalMint, cfg.ChainSelector, req.RemoteChainSelector, req.RemoteToken)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.ErrInvalidInput, err.Error())
	}

	vaultAccount, vaultBump, err := s.vaults.TokenVault(req.LocalMint)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.ErrInvalidInput, err.Error())
	}

	token := &entities.RegisteredToken{
		TokenID:             tokenID,
		LocalMint:           req.LocalMint,
		RemoteChainSelector: req.RemoteChainSelector,
		RemoteToken:         req.RemoteToken,
		VaultAccount:        vaultAccount,
		VaultBump:           vaultBump,
	}
	if err := token.Validate(); err != nil {
		return nil, domainerrors.Wrap(domainerrors.ErrInvalidInput, err.Error())
	}

	var event *entities.BridgeEvent
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateToken(ctx, token); err != nil {
			return err
		}
		event, err = s.events.Append(ctx, entities.EventAddToken, tokenID, entities.AddTokenEvent{
			LocalToken:          token.LocalMint,
			RemoteChainSelector: token.RemoteChainSelector,
			RemoteToken:         token.RemoteToken,
			TokenID:             tokenID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishCommitted(ctx, event)
	s.invalidateToken(ctx, tokenID)
	s.log.Info("Token registered",
		"token_id", tokenID,
		"local_mint", token.LocalMint,
		"remote_chain_selector", token.RemoteChainSelector)
	return token, nil
}

// RemoveToken removes a registry entry. Entries still holding locked
// liquidity cannot be removed.
func (s *Service) RemoveToken(ctx context.Context, caller string, req *entities.RemoveTokenRequest) error {
	ctx, span := tracing.StartServiceSpan(ctx, "bridge", "RemoveToken")
	defer span.End()

	if err := s.authorize(caller); err != nil {
		return err
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return err
	}

	tokenID, err := entities.DeriveTokenID(req.LocalMint, cfg.ChainSelector, req.RemoteChainSelector, req.RemoteToken)
	if err != nil {
		return domainerrors.Wrap(domainerrors.ErrInvalidInput, err.Error())
	}

	var event *entities.BridgeEvent
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteToken(ctx, tokenID); err != nil {
			return err
		}
		event, err = s.events.Append(ctx, entities.EventRemoveToken, tokenID, entities.RemoveTokenEvent{
			TokenID:    tokenID,
			LocalToken: req.LocalMint,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.events.PublishCommitted(ctx, event)
	s.invalidateToken(ctx, tokenID)
	metrics.LockedAmount.DeleteLabelValues(tokenID)
	s.log.Info("Token removed", "token_id", tokenID)
	return nil
}

// GetToken returns one registry entry.
func (s *Service) GetToken(ctx context.Context, tokenID string) (*entities.RegisteredToken, error) {
	if s.cache != nil {
		var cached entities.RegisteredToken
		if ok, err := s.cache.GetJSON(ctx, tokenCacheKey(tokenID), &cached); err == nil && ok {
			return &cached, nil
		}
	}

	token, err := s.store.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, tokenCacheKey(tokenID), token, registryCacheTTL)
	}
	return token, nil
}

// ListTokens returns all registry entries.
func (s *Service) ListTokens(ctx context.Context) ([]*entities.RegisteredToken, error) {
	if s.cache != nil {
		var cached []*entities.RegisteredToken
		if ok, err := s.cache.GetJSON(ctx, tokenListCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, tokenListCacheKey, tokens, registryCacheTTL)
	}
	return tokens, nil
}

// UpdateTokenBalance adjusts the advisory counter tracking how much liquidity
// the owner believes is available on the remote chain. It is the only way
// this counter moves.
func (s *Service) UpdateTokenBalance(ctx context.Context, caller, tokenID string, amount uint64, increase bool) (*entities.RegisteredToken, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "bridge", "UpdateTokenBalance")
	defer span.End()

	if err := s.authorize(caller); err != nil {
		return nil, err
	}

	var err error
	if increase {
		err = s.store.IncrementTarget(ctx, tokenID, amount)
	} else {
		err = s.store.DecrementTarget(ctx, tokenID, amount)
	}
	if err != nil {
		return nil, err
	}

	token, err := s.store.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	s.invalidateToken(ctx, tokenID)
	s.log.Info("Target balance updated",
		"token_id", tokenID,
		"target_balance", token.TargetBalance,
		"increase", increase,
		"amount", amount)
	return token, nil
}

// WithdrawToken drains locked liquidity from a token vault to a beneficiary
// account. The on-chain transfer runs inside the transaction so a failed
// movement rolls the accounting back.
func (s *Service) WithdrawToken(ctx context.Context, caller string, req *entities.WithdrawTokenRequest) error {
	ctx, span := tracing.StartServiceSpan(ctx, "bridge", "WithdrawToken")
	defer span.End()

	if err := s.authorize(caller); err != nil {
		return err
	}

	token, err := s.store.GetToken(ctx, req.TokenID)
	if err != nil {
		return err
	}

	var event *entities.BridgeEvent
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.DecrementLocked(ctx, req.TokenID, req.Amount); err != nil {
			return err
		}

		beneficiaryAccount, err := s.ledger.EnsureTokenAccount(ctx, req.Beneficiary, token.LocalMint)
		if err != nil {
			return err
		}
		if _, err := s.ledger.TransferFromVault(ctx, token.LocalMint, beneficiaryAccount, req.Amount); err != nil {
			return err
		}

		event, err = s.events.Append(ctx, entities.EventWithdrawToken, req.TokenID, entities.WithdrawTokenEvent{
			Token:       token.LocalMint,
			Amount:      req.Amount,
			Beneficiary: req.Beneficiary,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.events.PublishCommitted(ctx, event)
	s.invalidateToken(ctx, req.TokenID)
	metrics.LockedAmount.WithLabelValues(req.TokenID).Sub(float64(req.Amount))
	s.log.Info("Token liquidity withdrawn",
		"token_id", req.TokenID,
		"amount", req.Amount,
		"beneficiary", req.Beneficiary)
	return nil
}

// Withdraw drains accumulated native fees to a beneficiary.
func (s *Service) Withdraw(ctx context.Context, caller string, req *entities.WithdrawRequest) error {
	ctx, span := tracing.StartServiceSpan(ctx, "bridge", "Withdraw")
	defer span.End()

	if err := s.authorize(caller); err != nil {
		return err
	}

	var event *entities.BridgeEvent
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.DecrementFeeVault(ctx, req.Amount); err != nil {
			return err
		}
		if _, err := s.ledger.TransferNative(ctx, req.Beneficiary, req.Amount); err != nil {
			return err
		}

		var err error
		event, err = s.events.Append(ctx, entities.EventWithdraw, "", entities.WithdrawEvent{
			Beneficiary: req.Beneficiary,
			Amount:      req.Amount,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.events.PublishCommitted(ctx, event)
	metrics.FeeVaultBalance.Sub(float64(req.Amount))
	s.log.Info("Fees withdrawn",
		"amount", req.Amount,
		"beneficiary", req.Beneficiary)
	return nil
}
