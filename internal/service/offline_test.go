package service

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivixpay/nivix-ledger/internal/models"
	"github.com/nivixpay/nivix-ledger/internal/repository"
	"github.com/nivixpay/nivix-ledger/internal/token"
)

func signedRecordCmd(sender, recipient solana.PublicKey, amount uint64) RecordCmd {
	var sig solana.Signature
	copy(sig[:], []byte("offline-channel-attestation"))
	return RecordCmd{
		Sender:              sender,
		Recipient:           recipient,
		Amount:              amount,
		SourceCurrency:      "NGN",
		DestinationCurrency: "NGN",
		ChannelID:           "bluetooth-mesh-7",
		Signature:           sig,
		OfflineTimestamp:    1_700_000_000,
	}
}

func TestOfflineRecordLimit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	store := repository.NewStore(db)
	svc := NewOfflineService(store, repo, token.NewMockMover())

	createPlatform(t, repo)
	sender, _, _ := createFundedUser(t, repo, "amara", "NGN", 1000, true)
	recipient, _, _ := createFundedUser(t, repo, "kwame", "NGN", 0, true)

	ctx := context.Background()

	// At the ceiling is allowed.
	rec, err := svc.Record(ctx, signedRecordCmd(sender.Owner, recipient.Owner, 500))
	require.NoError(t, err)
	assert.False(t, rec.Synced)
	assert.Zero(t, rec.SyncTimestamp)

	// One above is not.
	_, err = svc.Record(ctx, signedRecordCmd(sender.Owner, recipient.Owner, 501))
	require.ErrorIs(t, err, models.ErrExceedsOfflineLimit)
}

func TestOfflineRecordRequiresKyc(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	store := repository.NewStore(db)
	svc := NewOfflineService(store, repo, token.NewMockMover())

	createPlatform(t, repo)
	sender, _, _ := createFundedUser(t, repo, "amara", "NGN", 1000, false)
	recipient, _, _ := createFundedUser(t, repo, "kwame", "NGN", 0, true)

	_, err := svc.Record(context.Background(), signedRecordCmd(sender.Owner, recipient.Owner, 100))
	require.ErrorIs(t, err, models.ErrKycRequired)
}

func TestOfflineSyncSettlesOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	store := repository.NewStore(db)
	svc := NewOfflineService(store, repo, token.NewMockMover())

	createPlatform(t, repo)
	sender, senderWallet, senderKey := createFundedUser(t, repo, "amara", "NGN", 1000, true)
	recipient, recipientWallet, _ := createFundedUser(t, repo, "kwame", "NGN", 0, true)

	ctx := context.Background()
	rec, err := svc.Record(ctx, signedRecordCmd(sender.Owner, recipient.Owner, 300))
	require.NoError(t, err)

	cmd := SyncCmd{
		RecordID:     rec.ID,
		FromWalletID: senderWallet.ID,
		ToWalletID:   recipientWallet.ID,
		Authority:    senderKey,
	}
	require.NoError(t, svc.Sync(ctx, cmd))

	assert.Equal(t, uint64(700), walletBalance(t, db, senderWallet.ID))
	assert.Equal(t, uint64(300), walletBalance(t, db, recipientWallet.ID))

	stored, err := repo.GetOfflineTransaction(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.Synced)
	assert.NotZero(t, stored.SyncTimestamp)

	// A replay is rejected and must not move money again.
	err = svc.Sync(ctx, cmd)
	require.ErrorIs(t, err, models.ErrAlreadySynced)
	assert.Equal(t, uint64(700), walletBalance(t, db, senderWallet.ID))
	assert.Equal(t, uint64(300), walletBalance(t, db, recipientWallet.ID))
}

func TestOfflineSyncMoverFailureRollsBack(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	store := repository.NewStore(db)
	mover := token.NewMockMover()
	svc := NewOfflineService(store, repo, mover)

	createPlatform(t, repo)
	sender, senderWallet, senderKey := createFundedUser(t, repo, "amara", "NGN", 1000, true)
	recipient, recipientWallet, _ := createFundedUser(t, repo, "kwame", "NGN", 0, true)

	ctx := context.Background()
	rec, err := svc.Record(ctx, signedRecordCmd(sender.Owner, recipient.Owner, 300))
	require.NoError(t, err)

	cmd := SyncCmd{
		RecordID:     rec.ID,
		FromWalletID: senderWallet.ID,
		ToWalletID:   recipientWallet.ID,
		Authority:    senderKey,
	}

	mover.FailureRate = 1.0
	err = svc.Sync(ctx, cmd)
	require.Error(t, err)
	require.NotErrorIs(t, err, models.ErrAlreadySynced)

	// Balances and the record are untouched, so the settlement stays retryable.
	assert.Equal(t, uint64(1000), walletBalance(t, db, senderWallet.ID))
	assert.Zero(t, walletBalance(t, db, recipientWallet.ID))
	stored, err := repo.GetOfflineTransaction(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, stored.Synced)
	assert.Zero(t, stored.SyncTimestamp)

	// Once custody recovers, the retry settles exactly once.
	mover.FailureRate = 0
	require.NoError(t, svc.Sync(ctx, cmd))
	assert.Equal(t, uint64(700), walletBalance(t, db, senderWallet.ID))
	assert.Equal(t, uint64(300), walletBalance(t, db, recipientWallet.ID))
}

func TestOfflineSyncConcurrentSettlesOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	store := repository.NewStore(db)
	svc := NewOfflineService(store, repo, token.NewMockMover())

	createPlatform(t, repo)
	sender, senderWallet, senderKey := createFundedUser(t, repo, "amara", "NGN", 1000, true)
	recipient, recipientWallet, _ := createFundedUser(t, repo, "kwame", "NGN", 0, true)

	ctx := context.Background()
	rec, err := svc.Record(ctx, signedRecordCmd(sender.Owner, recipient.Owner, 300))
	require.NoError(t, err)

	n := 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			errs <- svc.Sync(ctx, SyncCmd{
				RecordID:     rec.ID,
				FromWalletID: senderWallet.ID,
				ToWalletID:   recipientWallet.ID,
				Authority:    senderKey,
			})
		}()
	}

	succeeded := 0
	for i := 0; i < n; i++ {
		err := <-errs
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrAlreadySynced)
	}
	assert.Equal(t, 1, succeeded)

	assert.Equal(t, uint64(700), walletBalance(t, db, senderWallet.ID))
	assert.Equal(t, uint64(300), walletBalance(t, db, recipientWallet.ID))
}

func TestOfflineSyncUnknownRecord(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	store := repository.NewStore(db)
	svc := NewOfflineService(store, repo, token.NewMockMover())

	createPlatform(t, repo)
	_, senderWallet, senderKey := createFundedUser(t, repo, "amara", "NGN", 1000, true)
	_, recipientWallet, _ := createFundedUser(t, repo, "kwame", "NGN", 0, true)

	err := svc.Sync(context.Background(), SyncCmd{
		RecordID:     uuid.New(),
		FromWalletID: senderWallet.ID,
		ToWalletID:   recipientWallet.ID,
		Authority:    senderKey,
	})
	require.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestOfflineListUnsynced(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	store := repository.NewStore(db)
	svc := NewOfflineService(store, repo, token.NewMockMover())

	createPlatform(t, repo)
	sender, senderWallet, senderKey := createFundedUser(t, repo, "amara", "NGN", 1000, true)
	recipient, recipientWallet, _ := createFundedUser(t, repo, "kwame", "NGN", 0, true)

	ctx := context.Background()
	first, err := svc.Record(ctx, signedRecordCmd(sender.Owner, recipient.Owner, 100))
	require.NoError(t, err)
	second, err := svc.Record(ctx, signedRecordCmd(sender.Owner, recipient.Owner, 200))
	require.NoError(t, err)

	pending, err := svc.ListUnsynced(ctx, sender.Owner, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, svc.Sync(ctx, SyncCmd{
		RecordID:     first.ID,
		FromWalletID: senderWallet.ID,
		ToWalletID:   recipientWallet.ID,
		Authority:    senderKey,
	}))

	pending, err = svc.ListUnsynced(ctx, sender.Owner, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}
