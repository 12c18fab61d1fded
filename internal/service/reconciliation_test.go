package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nivixpay/nivix-ledger/internal/repository"
	"github.com/nivixpay/nivix-ledger/internal/token"
)

func TestReconciliationCleanLedger(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	store := repository.NewStore(db)
	transferSvc := NewTransferService(store, token.NewMockMover())

	platform, _ := createPlatform(t, repo)
	_, senderWallet, senderKey := createFundedUser(t, repo, "amara", "NGN", 1000, true)
	_, recipientWallet, _ := createFundedUser(t, repo, "kwame", "NGN", 0, true)

	ctx := context.Background()
	_, err := transferSvc.ProcessTransfer(ctx, TransferCmd{
		PlatformID:   platform.ID,
		FromWalletID: senderWallet.ID,
		ToWalletID:   recipientWallet.ID,
		Amount:       250,
		Authority:    senderKey,
	})
	require.NoError(t, err)

	require.NoError(t, NewReconciliationService(store).Run(ctx))
}

// The sweep is read-only: even over corrupted data it reports and returns,
// never mutates.
func TestReconciliationIsReadOnly(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	store := repository.NewStore(db)

	createPlatform(t, repo)
	sender, _, _ := createFundedUser(t, repo, "amara", "NGN", 1000, true)

	ctx := context.Background()

	// Fabricate a stats drift: total_sent with no matching records.
	_, err := db.Exec(ctx, `UPDATE users SET total_sent = 999 WHERE id = $1`, sender.ID)
	require.NoError(t, err)

	require.NoError(t, NewReconciliationService(store).Run(ctx))

	var totalSent int64
	require.NoError(t, db.QueryRow(ctx, `SELECT total_sent FROM users WHERE id = $1`, sender.ID).Scan(&totalSent))
	require.Equal(t, int64(999), totalSent)
}
