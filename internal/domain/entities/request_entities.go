package entities

// InitializeRequest creates the bridge configuration singleton.
type InitializeRequest struct {
	ProtocolFee   uint64  `json:"protocol_fee" binding:"required"`
	ChainSelector uint64  `json:"chain_selector" binding:"required"`
	FeeMode       FeeMode `json:"fee_mode,omitempty"`
}

// SetProtocolFeeRequest replaces the protocol fee.
type SetProtocolFeeRequest struct {
	ProtocolFee uint64 `json:"protocol_fee" binding:"required"`
}

// AddTokenRequest registers a local mint with its remote counterpart.
type AddTokenRequest struct {
	LocalMint           string `json:"local_mint" binding:"required,base58"`
	RemoteChainSelector uint64 `json:"remote_chain_selector" binding:"required"`
	RemoteToken         string `json:"remote_token" binding:"required,evmaddr"`
}

// RemoveTokenRequest removes a registry entry by its key tuple.
type RemoveTokenRequest struct {
	LocalMint           string `json:"local_mint" binding:"required,base58"`
	RemoteChainSelector uint64 `json:"remote_chain_selector" binding:"required"`
	RemoteToken         string `json:"remote_token" binding:"required,evmaddr"`
}

// AddLiquidityRequest deposits tokens from the caller into the token vault.
type AddLiquidityRequest struct {
	TokenID string `json:"token_id" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
	Sender  string `json:"sender" binding:"required,base58"`
}

// UpdateTokenBalanceRequest adjusts the advisory remote-chain balance counter.
type UpdateTokenBalanceRequest struct {
	Amount   uint64 `json:"amount" binding:"required"`
	Increase bool   `json:"increase"`
}

// SendRequest locks tokens for an outbound cross-chain transfer.
type SendRequest struct {
	TokenID             string `json:"token_id" binding:"required"`
	Amount              uint64 `json:"amount" binding:"required"`
	Sender              string `json:"sender" binding:"required,base58"`
	RemoteBridge        string `json:"remote_bridge" binding:"required"`
	RemoteChainSelector uint64 `json:"remote_chain_selector" binding:"required"`
	RemoteToken         string `json:"remote_token" binding:"required,evmaddr"`
}

// WithdrawTokenRequest drains locked liquidity to a beneficiary token account.
type WithdrawTokenRequest struct {
	TokenID     string `json:"token_id" binding:"required"`
	Amount      uint64 `json:"amount" binding:"required"`
	Beneficiary string `json:"beneficiary" binding:"required,base58"`
}

// WithdrawRequest drains accumulated native fees to a beneficiary.
type WithdrawRequest struct {
	Amount      uint64 `json:"amount" binding:"required"`
	Beneficiary string `json:"beneficiary" binding:"required,base58"`
}

// SendResponse reports the escrow outcome of a send.
type SendResponse struct {
	TokenID      string `json:"token_id"`
	Amount       uint64 `json:"amount"`
	Fee          uint64 `json:"fee"`
	LockedAmount uint64 `json:"locked_amount"`
}

// MessageReceiveResponse reports the crediting outcome of an inbound message.
type MessageReceiveResponse struct {
	MessageID        string `json:"message_id"`
	TokenID          string `json:"token_id"`
	Amount           uint64 `json:"amount"`
	RecipientAccount string `json:"recipient_account"`
}
