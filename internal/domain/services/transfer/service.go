// Package transfer implements the lock-and-release protocol: liquidity
// deposits, outbound sends and inbound message crediting.
package transfer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	domainerrors "github.com/solbridge/bridge_service/internal/domain/errors"
	"github.com/solbridge/bridge_service/internal/domain/repositories"
	"github.com/solbridge/bridge_service/internal/domain/services/events"
	"github.com/solbridge/bridge_service/pkg/logger"
	"github.com/solbridge/bridge_service/pkg/metrics"
	"github.com/solbridge/bridge_service/pkg/tracing"
)

const lamportsPerSol = 1_000_000_000

// Service moves value through the bridge. All accounting changes and their
// event-log rows commit in one transaction.
type Service struct {
	store  repositories.BridgeStore
	ledger repositories.TokenLedger
	oracle repositories.PriceOracle
	events *events.Service
	owner  string
	log    *logger.Logger
}

// NewService creates the transfer service.
func NewService(
	store repositories.BridgeStore,
	ledger repositories.TokenLedger,
	oracle repositories.PriceOracle,
	eventsSvc *events.Service,
	owner string,
	log *logger.Logger,
) *Service {
	return &Service{
		store:  store,
		ledger: ledger,
		oracle: oracle,
		events: eventsSvc,
		owner:  owner,
		log:    log,
	}
}

// AddLiquidity deposits tokens from the sender into the token vault and
// credits the locked counter.
func (s *Service) AddLiquidity(ctx context.Context, req *entities.AddLiquidityRequest) (*entities.RegisteredToken, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "transfer", "AddLiquidity")
	defer span.End()

	token, err := s.store.GetToken(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	var event *entities.BridgeEvent
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.IncrementLocked(ctx, req.TokenID, req.Amount); err != nil {
			return err
		}

		senderAccount, err := s.ledger.EnsureTokenAccount(ctx, req.Sender, token.LocalMint)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Transfer(ctx, token.LocalMint, senderAccount, token.VaultAccount, req.Amount); err != nil {
			return err
		}

		event, err = s.events.Append(ctx, entities.EventAddLiquidity, req.TokenID, entities.AddLiquidityEvent{
			LocalToken:          token.LocalMint,
			Amount:              req.Amount,
			RemoteChainSelector: token.RemoteChainSelector,
			RemoteToken:         token.RemoteToken,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishCommitted(ctx, event)
	metrics.LockedAmount.WithLabelValues(req.TokenID).Add(float64(req.Amount))

	token, err = s.store.GetToken(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Liquidity added",
		"token_id", req.TokenID,
		"amount", req.Amount,
		"locked_amount", token.LockedAmount)
	return token, nil
}

// Send escrows principal plus fee for an outbound transfer. The principal
// joins the locked liquidity, the fee accrues to the fee vault, and the
// emitted event is what authorizes the release on the remote chain.
func (s *Service) Send(ctx context.Context, req *entities.SendRequest) (*entities.SendResponse, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "transfer", "Send")
	defer span.End()

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	token, err := s.store.GetToken(ctx, req.TokenID)
	if err != nil {
		metrics.SendsTotal.WithLabelValues(req.TokenID, "unknown_token").Inc()
		return nil, err
	}

	// The registry entry is the source of truth for the pairing; a send
	// naming a different remote chain or token is malformed.
	if token.RemoteChainSelector != req.RemoteChainSelector || token.RemoteToken != req.RemoteToken {
		metrics.SendsTotal.WithLabelValues(req.TokenID, "chain_mismatch").Inc()
		return nil, domainerrors.ErrChainMismatch
	}

	// The remote side must be believed able to cover the payout. The counter
	// is advisory and only the owner moves it.
	if token.TargetBalance <= req.Amount {
		metrics.SendsTotal.WithLabelValues(req.TokenID, "insufficient_target").Inc()
		return nil, domainerrors.ErrInsufficientTargetBalance
	}

	fee, err := s.resolveFee(ctx, cfg)
	if err != nil {
		metrics.SendsTotal.WithLabelValues(req.TokenID, "fee_error").Inc()
		return nil, err
	}

	var event *entities.BridgeEvent
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.IncrementLocked(ctx, req.TokenID, req.Amount); err != nil {
			return err
		}
		if err := s.store.IncrementFeeVault(ctx, fee); err != nil {
			return err
		}

		senderAccount, err := s.ledger.EnsureTokenAccount(ctx, req.Sender, token.LocalMint)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Transfer(ctx, token.LocalMint, senderAccount, token.VaultAccount, req.Amount); err != nil {
			return err
		}
		if _, err := s.ledger.TransferNative(ctx, cfg.VaultAddress, fee); err != nil {
			return err
		}

		event, err = s.events.Append(ctx, entities.EventSendToken, req.TokenID, entities.SendTokenEvent{
			LocalToken:          token.LocalMint,
			Sender:              req.Sender,
			Amount:              req.Amount,
			Fee:                 fee,
			RemoteBridge:        req.RemoteBridge,
			RemoteChainSelector: req.RemoteChainSelector,
			RemoteToken:         req.RemoteToken,
		})
		return err
	})
	if err != nil {
		metrics.SendsTotal.WithLabelValues(req.TokenID, "error").Inc()
		return nil, err
	}

	s.events.PublishCommitted(ctx, event)
	metrics.SendsTotal.WithLabelValues(req.TokenID, "ok").Inc()
	metrics.LockedAmount.WithLabelValues(req.TokenID).Add(float64(req.Amount))
	metrics.FeeVaultBalance.Add(float64(fee))

	token, err = s.store.GetToken(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Tokens sent",
		"token_id", req.TokenID,
		"amount", req.Amount,
		"fee", fee,
		"remote_chain_selector", req.RemoteChainSelector,
		"locked_amount", token.LockedAmount)

	return &entities.SendResponse{
		TokenID:      req.TokenID,
		Amount:       req.Amount,
		Fee:          fee,
		LockedAmount: token.LockedAmount,
	}, nil
}

// MessageReceive credits an inbound cross-chain message exactly once. The
// caller must be the owner; messages are relayed by the operator.
func (s *Service) MessageReceive(ctx context.Context, caller string, msg *entities.TransferMessage) (*entities.MessageReceiveResponse, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "transfer", "MessageReceive")
	defer span.End()

	if caller != s.owner {
		return nil, domainerrors.UnauthorizedError("caller is not the bridge owner")
	}

	if err := msg.Validate(); err != nil {
		return nil, domainerrors.Wrap(domainerrors.ErrInvalidInput, err.Error())
	}

	token, err := s.store.GetToken(ctx, msg.TokenID)
	if err != nil {
		metrics.ReceivesTotal.WithLabelValues(msg.TokenID, "unknown_token").Inc()
		return nil, err
	}

	if token.RemoteChainSelector != msg.SourceChainSelector {
		metrics.ReceivesTotal.WithLabelValues(msg.TokenID, "chain_mismatch").Inc()
		return nil, domainerrors.ErrChainMismatch
	}

	messageID := msg.ID()
	var event *entities.BridgeEvent
	var recipientAccount string

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		// Recording the id and debiting custody commit together, so a replay
		// can never double-credit.
		if err := s.store.ConsumeMessage(ctx, &entities.ConsumedMessage{
			MessageID:           messageID,
			TokenID:             msg.TokenID,
			SourceChainSelector: msg.SourceChainSelector,
			Recipient:           msg.Recipient,
			Amount:              msg.Amount,
		}); err != nil {
			return err
		}

		if err := s.store.DecrementLocked(ctx, msg.TokenID, msg.Amount); err != nil {
			return err
		}

		var err error
		recipientAccount, err = s.ledger.EnsureTokenAccount(ctx, msg.Recipient, token.LocalMint)
		if err != nil {
			return err
		}
		if _, err := s.ledger.TransferFromVault(ctx, token.LocalMint, recipientAccount, msg.Amount); err != nil {
			return err
		}

		event, err = s.events.Append(ctx, entities.EventMessageReceived, msg.TokenID, entities.MessageReceivedEvent{
			SourceChainSelector: msg.SourceChainSelector,
			ToAddress:           msg.Recipient,
			TokenID:             msg.TokenID,
			Amount:              msg.Amount,
			MessageID:           messageID,
		})
		return err
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrReplayedMessage) {
			metrics.ReplaysRejectedTotal.Inc()
			metrics.ReceivesTotal.WithLabelValues(msg.TokenID, "replay").Inc()
		} else {
			metrics.ReceivesTotal.WithLabelValues(msg.TokenID, "error").Inc()
		}
		return nil, err
	}

	s.events.PublishCommitted(ctx, event)
	metrics.ReceivesTotal.WithLabelValues(msg.TokenID, "ok").Inc()
	metrics.LockedAmount.WithLabelValues(msg.TokenID).Sub(float64(msg.Amount))

	s.log.Info("Message credited",
		"message_id", messageID,
		"token_id", msg.TokenID,
		"amount", msg.Amount,
		"recipient", msg.Recipient)

	return &entities.MessageReceiveResponse{
		MessageID:        messageID,
		TokenID:          msg.TokenID,
		Amount:           msg.Amount,
		RecipientAccount: recipientAccount,
	}, nil
}

// resolveFee returns the lamport fee for one send. Fixed mode charges the
// configured fee directly; oracle mode interprets it as USD cents and
// converts at the current price, rounding up.
func (s *Service) resolveFee(ctx context.Context, cfg *entities.BridgeConfig) (uint64, error) {
	if cfg.FeeMode != entities.FeeModeOracle {
		return cfg.ProtocolFee, nil
	}

	price, _, err := s.oracle.LatestPrice(ctx)
	if err != nil {
		return 0, err
	}
	if !price.IsPositive() {
		return 0, domainerrors.ErrOracleUnavailable
	}

	cents := decimal.NewFromUint64(cfg.ProtocolFee)
	lamports := cents.
		Div(decimal.NewFromInt(100)).
		Div(price).
		Mul(decimal.NewFromInt(lamportsPerSol)).
		Ceil()

	return uint64(lamports.IntPart()), nil
}
