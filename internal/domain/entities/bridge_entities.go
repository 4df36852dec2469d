package entities

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
)

// FeeMode selects how the protocol fee for a send is resolved.
type FeeMode string

const (
	// FeeModeFixed charges ProtocolFee lamports directly.
	FeeModeFixed FeeMode = "fixed"
	// FeeModeOracle interprets ProtocolFee as USD cents and converts it to
	// lamports through the price oracle at send time.
	FeeModeOracle FeeMode = "oracle"
)

// BridgeConfig is the singleton bridge configuration record. It is created
// exactly once by Initialize and mutated only by admin operations.
type BridgeConfig struct {
	Owner           string    `db:"owner" json:"owner"`
	VaultAddress    string    `db:"vault_address" json:"vault_address"`
	VaultBump       uint8     `db:"vault_bump" json:"vault_bump"`
	ProtocolFee     uint64    `db:"protocol_fee" json:"protocol_fee"`
	FeeMode         FeeMode   `db:"fee_mode" json:"fee_mode"`
	ChainSelector   uint64    `db:"chain_selector" json:"chain_selector"`
	FeeVaultBalance uint64    `db:"fee_vault_balance" json:"fee_vault_balance"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// RegisteredToken is one registry entry: a local mint paired with its remote
// counterpart, plus the liquidity counters for that pairing.
type RegisteredToken struct {
	TokenID             string    `db:"token_id" json:"token_id"`
	LocalMint           string    `db:"local_mint" json:"local_mint"`
	RemoteChainSelector uint64    `db:"remote_chain_selector" json:"remote_chain_selector"`
	RemoteToken         string    `db:"remote_token" json:"remote_token"`
	VaultAccount        string    `db:"vault_account" json:"vault_account"`
	VaultBump           uint8     `db:"vault_bump" json:"vault_bump"`
	LockedAmount        uint64    `db:"locked_amount" json:"locked_amount"`
	TargetBalance       uint64    `db:"target_balance" json:"target_balance"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the registry entry fields before persistence.
func (t *RegisteredToken) Validate() error {
	if _, err := solana.PublicKeyFromBase58(t.LocalMint); err != nil {
		return fmt.Errorf("invalid local mint %q: %w", t.LocalMint, err)
	}
	if !common.IsHexAddress(t.RemoteToken) {
		return fmt.Errorf("invalid remote token address %q", t.RemoteToken)
	}
	if t.RemoteChainSelector == 0 {
		return fmt.Errorf("remote chain selector must be non-zero")
	}
	return nil
}

// DeriveTokenID computes the registry key for a (local mint, remote chain,
// remote token) pairing: the first 8 bytes of
// keccak256(mint || local_selector || remote_selector || remote_token), hex
// encoded. Hash keying replaced an older integer-id scheme so that entries are
// self-describing and ids cannot collide across chains.
func DeriveTokenID(localMint string, localChainSelector, remoteChainSelector uint64, remoteToken string) (string, error) {
	mint, err := solana.PublicKeyFromBase58(localMint)
	if err != nil {
		return "", fmt.Errorf("invalid local mint %q: %w", localMint, err)
	}

	buf := make([]byte, 0, 32+8+8+len(remoteToken))
	buf = append(buf, mint.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, localChainSelector)
	buf = binary.BigEndian.AppendUint64(buf, remoteChainSelector)
	buf = append(buf, []byte(remoteToken)...)

	sum := crypto.Keccak256(buf)
	return hex.EncodeToString(sum[:8]), nil
}

// TransferMessage is a cross-chain message submitted by the relay for
// crediting on this chain. It is never persisted beyond its consumed-set
// record.
type TransferMessage struct {
	TokenID             string `json:"token_id"`
	SourceChainSelector uint64 `json:"source_chain_selector"`
	Recipient           string `json:"recipient"`
	Amount              uint64 `json:"amount"`
	Nonce               uint64 `json:"nonce"`
}

// ID derives the message's uniqueness key: keccak256 over every field.
// Consuming the same key twice is rejected as a replay.
func (m *TransferMessage) ID() string {
	buf := make([]byte, 0, len(m.TokenID)+8+len(m.Recipient)+8+8)
	buf = append(buf, []byte(m.TokenID)...)
	buf = binary.BigEndian.AppendUint64(buf, m.SourceChainSelector)
	buf = append(buf, []byte(m.Recipient)...)
	buf = binary.BigEndian.AppendUint64(buf, m.Amount)
	buf = binary.BigEndian.AppendUint64(buf, m.Nonce)
	return hex.EncodeToString(crypto.Keccak256(buf))
}

// Validate checks the message fields before processing.
func (m *TransferMessage) Validate() error {
	if m.TokenID == "" {
		return fmt.Errorf("token id is required")
	}
	if m.SourceChainSelector == 0 {
		return fmt.Errorf("source chain selector must be non-zero")
	}
	if _, err := solana.PublicKeyFromBase58(m.Recipient); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", m.Recipient, err)
	}
	if m.Amount == 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

// ConsumedMessage is the persisted replay-prevention record for a processed
// transfer message.
type ConsumedMessage struct {
	MessageID           string    `db:"message_id" json:"message_id"`
	TokenID             string    `db:"token_id" json:"token_id"`
	SourceChainSelector uint64    `db:"source_chain_selector" json:"source_chain_selector"`
	Recipient           string    `db:"recipient" json:"recipient"`
	Amount              uint64    `db:"amount" json:"amount"`
	ConsumedAt          time.Time `db:"consumed_at" json:"consumed_at"`
}

// ErrorResponse is the standard API error envelope.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
