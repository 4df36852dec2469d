package solana

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	domainerrors "github.com/solbridge/bridge_service/internal/domain/errors"
	"github.com/solbridge/bridge_service/pkg/logger"
)

// Ledger executes token and native movements on the settlement chain. It
// signs with the bridge authority key; database accounting stays the source
// of truth and each movement here mirrors a committed ledger change.
type Ledger struct {
	rpcClient  *rpc.Client
	programID  solana.PublicKey
	signer     solana.PrivateKey
	accounts   *BridgeAccounts
	maxRetries int
	log        *logger.Logger
}

// NewLedger connects the ledger to an RPC endpoint.
func NewLedger(endpoint, programID, signerKey string, log *logger.Logger) (*Ledger, error) {
	program, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}

	signer, err := solana.PrivateKeyFromBase58(signerKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}

	accounts, err := DeriveBridgeAccounts(program)
	if err != nil {
		return nil, err
	}

	return &Ledger{
		rpcClient:  rpc.New(endpoint),
		programID:  program,
		signer:     signer,
		accounts:   accounts,
		maxRetries: 3,
		log:        log,
	}, nil
}

// Accounts exposes the derived bridge addresses.
func (l *Ledger) Accounts() *BridgeAccounts {
	return l.accounts
}

// TokenVault returns the derived vault token account for mint.
func (l *Ledger) TokenVault(mint string) (solana.PublicKey, uint8, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("invalid mint: %w", err)
	}
	return DeriveTokenVault(l.programID, mintKey)
}

// Transfer moves amount of mint between two token accounts, signed by the
// bridge authority.
func (l *Ledger) Transfer(ctx context.Context, mint, from, to string, amount uint64) (string, error) {
	fromKey, err := solana.PublicKeyFromBase58(from)
	if err != nil {
		return "", fmt.Errorf("invalid source account: %w", err)
	}
	toKey, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid destination account: %w", err)
	}

	ix := token.NewTransferInstruction(
		amount,
		fromKey,
		toKey,
		l.signer.PublicKey(),
		nil,
	).Build()

	return l.sendInstruction(ctx, ix)
}

// TransferFromVault moves amount out of the bridge token vault for mint.
func (l *Ledger) TransferFromVault(ctx context.Context, mint, to string, amount uint64) (string, error) {
	vault, _, err := l.TokenVault(mint)
	if err != nil {
		return "", err
	}
	return l.Transfer(ctx, mint, vault.String(), to, amount)
}

// TransferNative moves lamports from the fee vault authority to a
// beneficiary.
func (l *Ledger) TransferNative(ctx context.Context, to string, amount uint64) (string, error) {
	toKey, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid beneficiary: %w", err)
	}

	ix := system.NewTransferInstruction(
		amount,
		l.signer.PublicKey(),
		toKey,
	).Build()

	return l.sendInstruction(ctx, ix)
}

// EnsureTokenAccount returns the associated token account for owner and mint,
// creating it when missing.
func (l *Ledger) EnsureTokenAccount(ctx context.Context, owner, mint string) (string, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return "", fmt.Errorf("invalid owner: %w", err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("invalid mint: %w", err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(ownerKey, mintKey)
	if err != nil {
		return "", fmt.Errorf("failed to derive associated token account: %w", err)
	}

	info, err := l.rpcClient.GetAccountInfo(ctx, ata)
	if err == nil && info.Value != nil {
		return ata.String(), nil
	}

	ix := associatedtokenaccount.NewCreateInstruction(
		l.signer.PublicKey(),
		ownerKey,
		mintKey,
	).Build()

	if _, err := l.sendInstruction(ctx, ix); err != nil {
		return "", fmt.Errorf("failed to create token account: %w", err)
	}
	return ata.String(), nil
}

// VaultBalance reports the on-chain balance of the bridge token vault.
func (l *Ledger) VaultBalance(ctx context.Context, mint string) (uint64, error) {
	vault, _, err := l.TokenVault(mint)
	if err != nil {
		return 0, err
	}

	res, err := l.rpcClient.GetTokenAccountBalance(ctx, vault, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get vault balance: %w", err)
	}

	balance, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse vault balance %q: %w", res.Value.Amount, err)
	}
	return balance, nil
}

func (l *Ledger) sendInstruction(ctx context.Context, ix solana.Instruction) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		sig, err := l.attemptSend(ctx, ix)
		if err == nil {
			return sig, nil
		}
		lastErr = err
		if attempt != l.maxRetries {
			l.log.Warn("Transaction attempt failed, retrying",
				"attempt", attempt+1, "error", err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	return "", domainerrors.Wrap(domainerrors.ErrTransferFailed, lastErr.Error())
}

func (l *Ledger) attemptSend(ctx context.Context, ix solana.Instruction) (string, error) {
	recent, err := l.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent.Value.Blockhash,
		solana.TransactionPayer(l.signer.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(l.signer.PublicKey()) {
			return &l.signer
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := l.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}
