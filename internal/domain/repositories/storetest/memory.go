// Package storetest provides an in-memory BridgeStore for service tests.
// Guard behavior mirrors the Postgres implementation so accounting tests
// exercise the same failure paths.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	domainerrors "github.com/solbridge/bridge_service/internal/domain/errors"
)

// MemoryStore implements repositories.BridgeStore on maps. WithTx runs the
// callback directly; rollback is not simulated, so tests asserting partial
// failure should order guarded operations first, as the services do.
type MemoryStore struct {
	mu       sync.Mutex
	config   *entities.BridgeConfig
	tokens   map[string]*entities.RegisteredToken
	consumed map[string]*entities.ConsumedMessage
	events   []*entities.BridgeEvent
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens:   make(map[string]*entities.RegisteredToken),
		consumed: make(map[string]*entities.ConsumedMessage),
	}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *MemoryStore) CreateConfig(ctx context.Context, cfg *entities.BridgeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config != nil {
		return domainerrors.ErrAlreadyInitialized
	}
	now := time.Now().UTC()
	stored := *cfg
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.config = &stored
	return nil
}

func (s *MemoryStore) GetConfig(ctx context.Context) (*entities.BridgeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return nil, domainerrors.ErrNotInitialized
	}
	cfg := *s.config
	return &cfg, nil
}

func (s *MemoryStore) UpdateProtocolFee(ctx context.Context, fee uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return domainerrors.ErrNotInitialized
	}
	s.config.ProtocolFee = fee
	s.config.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) IncrementFeeVault(ctx context.Context, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return domainerrors.ErrNotInitialized
	}
	s.config.FeeVaultBalance += amount
	return nil
}

func (s *MemoryStore) DecrementFeeVault(ctx context.Context, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return domainerrors.ErrNotInitialized
	}
	if s.config.FeeVaultBalance < amount {
		return domainerrors.ErrInsufficientFeeBalance
	}
	s.config.FeeVaultBalance -= amount
	return nil
}

func (s *MemoryStore) CreateToken(ctx context.Context, token *entities.RegisteredToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token.TokenID]; ok {
		return domainerrors.ErrDuplicateEntry
	}
	now := time.Now().UTC()
	stored := *token
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.tokens[token.TokenID] = &stored
	return nil
}

func (s *MemoryStore) GetToken(ctx context.Context, tokenID string) (*entities.RegisteredToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenID]
	if !ok {
		return nil, domainerrors.UnknownTokenError(tokenID)
	}
	copied := *token
	return &copied, nil
}

func (s *MemoryStore) ListTokens(ctx context.Context) ([]*entities.RegisteredToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens := make([]*entities.RegisteredToken, 0, len(s.tokens))
	for _, token := range s.tokens {
		copied := *token
		tokens = append(tokens, &copied)
	}
	return tokens, nil
}

func (s *MemoryStore) DeleteToken(ctx context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenID]
	if !ok {
		return domainerrors.UnknownTokenError(tokenID)
	}
	if token.LockedAmount > 0 {
		return domainerrors.ErrLiquidityNotEmpty
	}
	delete(s.tokens, tokenID)
	return nil
}

func (s *MemoryStore) IncrementLocked(ctx context.Context, tokenID string, amount uint64) error {
	return s.adjust(tokenID, func(t *entities.RegisteredToken) error {
		t.LockedAmount += amount
		return nil
	})
}

func (s *MemoryStore) DecrementLocked(ctx context.Context, tokenID string, amount uint64) error {
	return s.adjust(tokenID, func(t *entities.RegisteredToken) error {
		if t.LockedAmount < amount {
			return domainerrors.ErrInsufficientLiquidity
		}
		t.LockedAmount -= amount
		return nil
	})
}

func (s *MemoryStore) IncrementTarget(ctx context.Context, tokenID string, amount uint64) error {
	return s.adjust(tokenID, func(t *entities.RegisteredToken) error {
		t.TargetBalance += amount
		return nil
	})
}

func (s *MemoryStore) DecrementTarget(ctx context.Context, tokenID string, amount uint64) error {
	return s.adjust(tokenID, func(t *entities.RegisteredToken) error {
		if t.TargetBalance < amount {
			return domainerrors.ErrUnderflow
		}
		t.TargetBalance -= amount
		return nil
	})
}

func (s *MemoryStore) adjust(tokenID string, fn func(*entities.RegisteredToken) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenID]
	if !ok {
		return domainerrors.UnknownTokenError(tokenID)
	}
	if err := fn(token); err != nil {
		return err
	}
	token.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ConsumeMessage(ctx context.Context, msg *entities.ConsumedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consumed[msg.MessageID]; ok {
		return domainerrors.ReplayedMessageError(msg.MessageID)
	}
	stored := *msg
	stored.ConsumedAt = time.Now().UTC()
	s.consumed[msg.MessageID] = &stored
	return nil
}

func (s *MemoryStore) GetConsumedMessage(ctx context.Context, messageID string) (*entities.ConsumedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.consumed[messageID]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	copied := *msg
	return &copied, nil
}

func (s *MemoryStore) PruneConsumedMessages(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, msg := range s.consumed {
		if msg.ConsumedAt.Before(olderThan) {
			delete(s.consumed, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, event *entities.BridgeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.Seq = int64(len(s.events) + 1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	copied := *event
	s.events = append(s.events, &copied)
	return nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]*entities.BridgeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []*entities.BridgeEvent
	for _, event := range s.events {
		if event.Seq <= afterSeq {
			continue
		}
		copied := *event
		out = append(out, &copied)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Events returns every appended event, for assertions.
func (s *MemoryStore) Events() []*entities.BridgeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entities.BridgeEvent, len(s.events))
	copy(out, s.events)
	return out
}

// SeedConfig installs a configuration without going through Initialize.
func (s *MemoryStore) SeedConfig(cfg *entities.BridgeConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cfg
	s.config = &copied
}

// SeedToken installs a registry entry directly.
func (s *MemoryStore) SeedToken(token *entities.RegisteredToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.tokens[token.TokenID] = &copied
}
