// Package reconciliation periodically compares the ledger's custody counters
// against the on-chain vault balances and alerts on drift.
package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/solbridge/bridge_service/internal/domain/repositories"
	"github.com/solbridge/bridge_service/pkg/logger"
	"github.com/solbridge/bridge_service/pkg/metrics"
)

// Drift describes one token whose ledger and chain balances disagree.
type Drift struct {
	TokenID      string `json:"token_id"`
	LocalMint    string `json:"local_mint"`
	LockedAmount uint64 `json:"locked_amount"`
	VaultBalance uint64 `json:"vault_balance"`
	Difference   uint64 `json:"difference"`
}

// Report is the outcome of one reconciliation run.
type Report struct {
	RanAt         time.Time `json:"ran_at"`
	TokensChecked int       `json:"tokens_checked"`
	Drifts        []Drift   `json:"drifts"`
}

// Service runs reconciliation checks.
type Service struct {
	store          repositories.BridgeStore
	ledger         repositories.TokenLedger
	alerts         repositories.AlertSender
	alertThreshold uint64
	log            *logger.Logger
}

// NewService creates the reconciliation service.
func NewService(
	store repositories.BridgeStore,
	ledger repositories.TokenLedger,
	alerts repositories.AlertSender,
	alertThreshold uint64,
	log *logger.Logger,
) *Service {
	return &Service{
		store:          store,
		ledger:         ledger,
		alerts:         alerts,
		alertThreshold: alertThreshold,
		log:            log,
	}
}

// Run checks every registered token. The vault can legitimately hold more
// than locked_amount (donations, rent), so only a shortfall or a gap above
// the threshold raises an alert.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens for reconciliation: %w", err)
	}

	report := &Report{RanAt: time.Now().UTC(), TokensChecked: len(tokens)}

	for _, token := range tokens {
		balance, err := s.ledger.VaultBalance(ctx, token.LocalMint)
		if err != nil {
			s.log.Warn("Failed to read vault balance",
				"token_id", token.TokenID,
				"error", err)
			continue
		}

		var diff uint64
		if balance >= token.LockedAmount {
			diff = balance - token.LockedAmount
		} else {
			diff = token.LockedAmount - balance
		}
		metrics.ReconciliationDrift.WithLabelValues(token.TokenID).Set(float64(diff))

		shortfall := balance < token.LockedAmount
		if shortfall || diff > s.alertThreshold {
			report.Drifts = append(report.Drifts, Drift{
				TokenID:      token.TokenID,
				LocalMint:    token.LocalMint,
				LockedAmount: token.LockedAmount,
				VaultBalance: balance,
				Difference:   diff,
			})
			s.log.Warn("Reconciliation drift detected",
				"token_id", token.TokenID,
				"locked_amount", token.LockedAmount,
				"vault_balance", balance,
				"shortfall", shortfall)
		}
	}

	if len(report.Drifts) > 0 {
		s.sendAlert(ctx, report)
	} else {
		s.log.Info("Reconciliation clean", "tokens_checked", report.TokensChecked)
	}

	return report, nil
}

func (s *Service) sendAlert(ctx context.Context, report *Report) {
	var b strings.Builder
	fmt.Fprintf(&b, "Reconciliation run at %s found %d drifting token(s):\n\n",
		report.RanAt.Format(time.RFC3339), len(report.Drifts))
	for _, d := range report.Drifts {
		fmt.Fprintf(&b, "token %s (mint %s): locked=%d vault=%d diff=%d\n",
			d.TokenID, d.LocalMint, d.LockedAmount, d.VaultBalance, d.Difference)
	}

	subject := fmt.Sprintf("Bridge reconciliation drift: %d token(s)", len(report.Drifts))
	if err := s.alerts.SendAlert(ctx, subject, b.String()); err != nil {
		s.log.Error("Failed to send reconciliation alert", "error", err)
	}
}
