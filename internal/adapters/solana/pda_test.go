package solana

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

func TestDeriveBridgeAccountsIsDeterministic(t *testing.T) {
	first, err := DeriveBridgeAccounts(testProgramID)
	require.NoError(t, err)
	second, err := DeriveBridgeAccounts(testProgramID)
	require.NoError(t, err)

	assert.Equal(t, first.Bridge, second.Bridge)
	assert.Equal(t, first.Vault, second.Vault)
	assert.Equal(t, first.BridgeBump, second.BridgeBump)
	assert.NotEqual(t, first.Bridge, first.Vault)
}

func TestDeriveTokenVaultVariesPerMint(t *testing.T) {
	mintA := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintB := solana.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")

	vaultA, _, err := DeriveTokenVault(testProgramID, mintA)
	require.NoError(t, err)
	vaultB, _, err := DeriveTokenVault(testProgramID, mintB)
	require.NoError(t, err)

	assert.NotEqual(t, vaultA, vaultB)

	again, bump, err := DeriveTokenVault(testProgramID, mintA)
	require.NoError(t, err)
	assert.Equal(t, vaultA, again)
	assert.LessOrEqual(t, bump, uint8(255))
}
