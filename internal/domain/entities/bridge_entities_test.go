package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wrappedSol  = "So11111111111111111111111111111111111111112"
	remoteToken = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

func TestDeriveTokenIDIsDeterministic(t *testing.T) {
	first, err := DeriveTokenID(wrappedSol, 1601511254, 5009297550715157269, remoteToken)
	require.NoError(t, err)
	second, err := DeriveTokenID(wrappedSol, 1601511254, 5009297550715157269, remoteToken)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 16) // 8 bytes, hex encoded
}

func TestDeriveTokenIDVariesPerPairing(t *testing.T) {
	base, err := DeriveTokenID(wrappedSol, 1601511254, 5009297550715157269, remoteToken)
	require.NoError(t, err)

	otherChain, err := DeriveTokenID(wrappedSol, 1601511254, 1, remoteToken)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherChain)

	otherToken, err := DeriveTokenID(wrappedSol, 1601511254, 5009297550715157269, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.NotEqual(t, base, otherToken)
}

func TestDeriveTokenIDRejectsBadMint(t *testing.T) {
	_, err := DeriveTokenID("not-a-key", 1, 2, remoteToken)
	assert.Error(t, err)
}

func TestTransferMessageIDCoversEveryField(t *testing.T) {
	base := TransferMessage{
		TokenID:             "abcd1234abcd1234",
		SourceChainSelector: 5009297550715157269,
		Recipient:           "SysvarC1ock11111111111111111111111111111111",
		Amount:              5_000_000,
		Nonce:               7,
	}

	same := base
	assert.Equal(t, base.ID(), same.ID())
	assert.Len(t, base.ID(), 64)

	bumpedNonce := base
	bumpedNonce.Nonce = 8
	assert.NotEqual(t, base.ID(), bumpedNonce.ID())

	bumpedAmount := base
	bumpedAmount.Amount = 5_000_001
	assert.NotEqual(t, base.ID(), bumpedAmount.ID())
}

func TestTransferMessageValidate(t *testing.T) {
	valid := TransferMessage{
		TokenID:             "abcd1234abcd1234",
		SourceChainSelector: 1,
		Recipient:           "SysvarC1ock11111111111111111111111111111111",
		Amount:              1,
	}
	assert.NoError(t, valid.Validate())

	missingToken := valid
	missingToken.TokenID = ""
	assert.Error(t, missingToken.Validate())

	zeroChain := valid
	zeroChain.SourceChainSelector = 0
	assert.Error(t, zeroChain.Validate())

	badRecipient := valid
	badRecipient.Recipient = "nope"
	assert.Error(t, badRecipient.Validate())

	zeroAmount := valid
	zeroAmount.Amount = 0
	assert.Error(t, zeroAmount.Validate())
}

func TestRegisteredTokenValidate(t *testing.T) {
	valid := RegisteredToken{
		LocalMint:           wrappedSol,
		RemoteChainSelector: 1,
		RemoteToken:         remoteToken,
	}
	assert.NoError(t, valid.Validate())

	badMint := valid
	badMint.LocalMint = "nope"
	assert.Error(t, badMint.Validate())

	badRemote := valid
	badRemote.RemoteToken = "0x123"
	assert.Error(t, badRemote.Validate())

	zeroChain := valid
	zeroChain.RemoteChainSelector = 0
	assert.Error(t, zeroChain.Validate())
}
