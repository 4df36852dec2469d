// Package solana integrates the bridge with its settlement chain: derived
// vault addresses and SPL token movements.
package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed prefixes for the bridge program's derived addresses.
const (
	BridgeSeed     = "BRIDGE_SEED"
	VaultSeed      = "VAULT_SEED"
	TokenVaultSeed = "BRIDGE_TOKEN_VAULT_SEED"
)

// BridgeAccounts holds the program-derived addresses shared by every
// operation.
type BridgeAccounts struct {
	Bridge     solana.PublicKey
	BridgeBump uint8
	Vault      solana.PublicKey
	VaultBump  uint8
}

// DeriveBridgeAccounts derives the bridge state and native fee vault PDAs.
// Both are keyed on fixed seed prefixes under the bridge program.
func DeriveBridgeAccounts(programID solana.PublicKey) (*BridgeAccounts, error) {
	bridge, bridgeBump, err := solana.FindProgramAddress(
		[][]byte{[]byte(BridgeSeed)},
		programID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive bridge PDA: %w", err)
	}

	vault, vaultBump, err := solana.FindProgramAddress(
		[][]byte{[]byte(VaultSeed)},
		programID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault PDA: %w", err)
	}

	return &BridgeAccounts{
		Bridge:     bridge,
		BridgeBump: bridgeBump,
		Vault:      vault,
		VaultBump:  vaultBump,
	}, nil
}

// DeriveTokenVault derives the per-mint token vault PDA.
func DeriveTokenVault(programID, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	vault, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(TokenVaultSeed), mint.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive token vault PDA for %s: %w", mint, err)
	}
	return vault, bump, nil
}
