package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nivixpay/nivix-ledger/internal/domain"
	"github.com/nivixpay/nivix-ledger/internal/observability"
)

// ReconciliationService verifies ledger integrity invariants. It is
// read-only: violations are reported through logs and metrics, never
// repaired in place.
type ReconciliationService struct {
	store TxStore
}

func NewReconciliationService(store TxStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run sweeps the invariants the engine is supposed to preserve: sender
// statistics must match the completed transfer stream, the platform counter
// must match the record count, and synced flags must agree with their
// sync timestamps.
func (s *ReconciliationService) Run(ctx context.Context) error {
	pool := s.store.Pool()

	// total_sent must equal the sum of the user's completed transfers.
	rows, err := pool.Query(ctx, `
		SELECT u.owner, u.home_currency, u.total_sent, COALESCE(SUM(t.amount), 0)
		FROM users u
		LEFT JOIN transaction_records t ON t.from_user = u.owner AND t.status = $1
		GROUP BY u.id
		HAVING u.total_sent <> COALESCE(SUM(t.amount), 0)`,
		domain.TxStatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("query sender statistics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var owner, currency string
		var totalSent, recorded int64
		if err := rows.Scan(&owner, &currency, &totalSent, &recorded); err != nil {
			return fmt.Errorf("scan sender statistics: %w", err)
		}
		observability.IncrementConservationViolation(currency)
		zap.L().Error("sender statistics diverged from transfer records",
			zap.String("owner", owner),
			zap.Int64("total_sent", totalSent),
			zap.Int64("recorded", recorded),
		)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sender statistics: %w", err)
	}

	// The platform counter advances once per completed transfer.
	var counted, recorded int64
	if err := pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_transactions), 0),
			(SELECT COUNT(*) FROM transaction_records WHERE status = $1)
		FROM platforms`,
		domain.TxStatusCompleted,
	).Scan(&counted, &recorded); err != nil {
		return fmt.Errorf("query platform counter: %w", err)
	}
	if counted != recorded {
		observability.IncrementConservationViolation("all")
		zap.L().Error("platform transaction counter diverged from record count",
			zap.Int64("counter", counted),
			zap.Int64("records", recorded),
		)
	}

	// A synced record without a sync timestamp (or the reverse) means the
	// flag flip escaped its transaction.
	var torn int64
	if err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM offline_transactions
		WHERE (synced AND sync_timestamp = 0) OR (NOT synced AND sync_timestamp <> 0)`,
	).Scan(&torn); err != nil {
		return fmt.Errorf("query offline sync flags: %w", err)
	}
	if torn > 0 {
		observability.IncrementConservationViolation("offline")
		zap.L().Error("offline records with torn sync state", zap.Int64("count", torn))
	}

	return nil
}
