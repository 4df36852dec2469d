// Package errors provides the bridge error taxonomy. Every operation returns
// one of these sentinels (possibly wrapped) so handlers can map failures to
// consistent HTTP responses, and callers can branch with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates the caller is not the configured owner.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyInitialized indicates the bridge configuration already exists.
	ErrAlreadyInitialized = errors.New("bridge already initialized")

	// ErrNotInitialized indicates the bridge configuration has not been created.
	ErrNotInitialized = errors.New("bridge not initialized")

	// ErrUnknownToken indicates the token key is not in the registry.
	ErrUnknownToken = errors.New("unsupported token")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateEntry indicates the registry key already exists.
	ErrDuplicateEntry = errors.New("token already registered")

	// ErrChainMismatch indicates the supplied remote chain does not match the
	// registry entry.
	ErrChainMismatch = errors.New("remote chain selector mismatch")

	// ErrInvalidProtocolFee indicates a zero or out-of-bounds fee.
	ErrInvalidProtocolFee = errors.New("invalid protocol fee")

	// ErrUnderflow indicates a counter decrease below zero.
	ErrUnderflow = errors.New("balance underflow")

	// ErrInsufficientLiquidity indicates a debit larger than locked_amount.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrInsufficientTargetBalance indicates the believed remote-side balance
	// cannot cover the transfer.
	ErrInsufficientTargetBalance = errors.New("insufficient target chain balance")

	// ErrInsufficientFeeBalance indicates a fee withdrawal larger than the
	// accumulated fee vault balance.
	ErrInsufficientFeeBalance = errors.New("insufficient fee balance")

	// ErrLiquidityNotEmpty indicates a registry removal while custody remains.
	ErrLiquidityNotEmpty = errors.New("locked liquidity not empty")

	// ErrReplayedMessage indicates the message id was already consumed.
	ErrReplayedMessage = errors.New("message already processed")

	// ErrOracleUnavailable indicates the price oracle could not be reached.
	ErrOracleUnavailable = errors.New("price oracle unavailable")

	// ErrStalePrice indicates the oracle price is older than the freshness window.
	ErrStalePrice = errors.New("price feed is stale")

	// ErrTransferFailed indicates the token ledger rejected a movement.
	ErrTransferFailed = errors.New("token transfer failed")

	// ErrInvalidInput indicates malformed request input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = errors.New("internal error")
)

// DomainError carries a machine-readable code alongside a sentinel.
type DomainError struct {
	Err     error
	Code    string
	Message string
	Details map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// WithDetails attaches structured context to the error.
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// New creates a DomainError wrapping a sentinel.
func New(err error, code, message string) *DomainError {
	return &DomainError{Err: err, Code: code, Message: message}
}

// UnknownTokenError reports an unregistered token key.
func UnknownTokenError(tokenID string) *DomainError {
	return &DomainError{
		Err:     ErrUnknownToken,
		Code:    "UNKNOWN_TOKEN",
		Message: fmt.Sprintf("token %s is not registered", tokenID),
	}
}

// UnauthorizedError reports a caller that is not the owner.
func UnauthorizedError(message string) *DomainError {
	return &DomainError{Err: ErrUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

// ReplayedMessageError reports a duplicate message submission.
func ReplayedMessageError(messageID string) *DomainError {
	return &DomainError{
		Err:     ErrReplayedMessage,
		Code:    "REPLAYED_MESSAGE",
		Message: fmt.Sprintf("message %s was already processed", messageID),
	}
}

// Code extracts the machine-readable code from a domain error, mapping bare
// sentinels to their canonical codes.
func Code(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrAlreadyInitialized):
		return "ALREADY_INITIALIZED"
	case errors.Is(err, ErrNotInitialized):
		return "NOT_INITIALIZED"
	case errors.Is(err, ErrUnknownToken):
		return "UNKNOWN_TOKEN"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrDuplicateEntry):
		return "DUPLICATE_ENTRY"
	case errors.Is(err, ErrChainMismatch):
		return "CHAIN_MISMATCH"
	case errors.Is(err, ErrInvalidProtocolFee):
		return "INVALID_PROTOCOL_FEE"
	case errors.Is(err, ErrUnderflow):
		return "UNDERFLOW"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "INSUFFICIENT_LIQUIDITY"
	case errors.Is(err, ErrInsufficientTargetBalance):
		return "INSUFFICIENT_TARGET_BALANCE"
	case errors.Is(err, ErrInsufficientFeeBalance):
		return "INSUFFICIENT_FEE_BALANCE"
	case errors.Is(err, ErrLiquidityNotEmpty):
		return "LIQUIDITY_NOT_EMPTY"
	case errors.Is(err, ErrReplayedMessage):
		return "REPLAYED_MESSAGE"
	case errors.Is(err, ErrOracleUnavailable):
		return "ORACLE_UNAVAILABLE"
	case errors.Is(err, ErrStalePrice):
		return "STALE_PRICE"
	case errors.Is(err, ErrTransferFailed):
		return "TRANSFER_FAILED"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	default:
		return "INTERNAL_ERROR"
	}
}

// Is re-exports errors.Is for callers that import this package alone.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap adds context to an error without losing the sentinel.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
