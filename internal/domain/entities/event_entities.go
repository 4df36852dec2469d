package entities

import (
	"encoding/json"
	"time"
)

// EventType identifies a bridge state transition in the event log.
type EventType string

const (
	EventAddToken        EventType = "AddTokenEvent"
	EventRemoveToken     EventType = "RemoveTokenEvent"
	EventAddLiquidity    EventType = "AddLiquidityEvent"
	EventSendToken       EventType = "SendTokenEvent"
	EventMessageReceived EventType = "MessageReceivedEvent"
	EventWithdraw        EventType = "WithdrawEvent"
	EventWithdrawToken   EventType = "WithdrawTokenEvent"
)

// BridgeEvent is one row of the append-only event log. The relayer reads
// events ordered by Seq; the payload carries everything the destination chain
// needs to act on the transition.
type BridgeEvent struct {
	Seq       int64           `db:"seq" json:"seq"`
	EventType EventType       `db:"event_type" json:"event_type"`
	TokenID   string          `db:"token_id" json:"token_id,omitempty"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// AddTokenEvent is emitted when a registry entry is created.
type AddTokenEvent struct {
	LocalToken          string `json:"local_token"`
	RemoteChainSelector uint64 `json:"remote_chain_selector"`
	RemoteToken         string `json:"remote_token"`
	TokenID             string `json:"token_id"`
}

// RemoveTokenEvent is emitted when a registry entry is removed.
type RemoveTokenEvent struct {
	TokenID    string `json:"token_id"`
	LocalToken string `json:"local_token"`
}

// AddLiquidityEvent is emitted when tokens are deposited into a token vault.
type AddLiquidityEvent struct {
	LocalToken          string `json:"local_token"`
	Amount              uint64 `json:"amount"`
	RemoteChainSelector uint64 `json:"remote_chain_selector"`
	RemoteToken         string `json:"remote_token"`
}

// SendTokenEvent is the durable record of an outbound transfer. It is the
// only artifact the relay has to authorize a release on the remote chain.
type SendTokenEvent struct {
	LocalToken          string `json:"local_token"`
	Sender              string `json:"sender"`
	Amount              uint64 `json:"amount"`
	Fee                 uint64 `json:"fee"`
	RemoteBridge        string `json:"remote_bridge"`
	RemoteChainSelector uint64 `json:"remote_chain_selector"`
	RemoteToken         string `json:"remote_token"`
}

// MessageReceivedEvent is emitted after an inbound message is credited.
type MessageReceivedEvent struct {
	SourceChainSelector uint64 `json:"source_chain_selector"`
	ToAddress           string `json:"to_address"`
	TokenID             string `json:"token_id"`
	Amount              uint64 `json:"amount"`
	MessageID           string `json:"message_id"`
}

// WithdrawEvent is emitted when accumulated fees leave the fee vault.
type WithdrawEvent struct {
	Beneficiary string `json:"beneficiary"`
	Amount      uint64 `json:"amount"`
}

// WithdrawTokenEvent is emitted when the owner drains token liquidity.
type WithdrawTokenEvent struct {
	Token       string `json:"token"`
	Amount      uint64 `json:"amount"`
	Beneficiary string `json:"beneficiary"`
}

// NewBridgeEvent marshals a typed payload into an event-log row.
func NewBridgeEvent(eventType EventType, tokenID string, payload interface{}) (*BridgeEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &BridgeEvent{
		EventType: eventType,
		TokenID:   tokenID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}
