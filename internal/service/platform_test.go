package service

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivixpay/nivix-ledger/internal/models"
	"github.com/nivixpay/nivix-ledger/internal/repository"
)

func TestRegisterUserRequiresActivePlatform(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	svc := NewPlatformService(repo)

	ctx := context.Background()
	platform, err := svc.ActivatePlatform(ctx, "nivix", solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.True(t, platform.IsActive)

	user, err := svc.RegisterUser(ctx, platform.ID, solana.NewWallet().PublicKey(), "amara", "NGN", false)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.False(t, user.KycVerified)

	_, err = db.Exec(ctx, `UPDATE platforms SET is_active = FALSE WHERE id = $1`, platform.ID)
	require.NoError(t, err)

	_, err = svc.RegisterUser(ctx, platform.ID, solana.NewWallet().PublicKey(), "kwame", "GHS", false)
	require.ErrorIs(t, err, models.ErrPlatformInactive)
}

func TestAddWalletUniquePerCurrency(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	svc := NewPlatformService(repo)

	ctx := context.Background()
	platform, err := svc.ActivatePlatform(ctx, "nivix", solana.NewWallet().PublicKey())
	require.NoError(t, err)
	user, err := svc.RegisterUser(ctx, platform.ID, solana.NewWallet().PublicKey(), "amara", "NGN", true)
	require.NoError(t, err)

	wallet, err := svc.AddWallet(ctx, user.ID, "NGN", solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Zero(t, wallet.Balance)

	// Second wallet for the same (user, currency) pair hits the unique index.
	_, err = svc.AddWallet(ctx, user.ID, "NGN", solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.Error(t, err)

	// A different currency is fine.
	_, err = svc.AddWallet(ctx, user.ID, "GHS", solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
}

func TestAddWalletInactiveUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	svc := NewPlatformService(repo)

	ctx := context.Background()
	platform, err := svc.ActivatePlatform(ctx, "nivix", solana.NewWallet().PublicKey())
	require.NoError(t, err)
	user, err := svc.RegisterUser(ctx, platform.ID, solana.NewWallet().PublicKey(), "amara", "NGN", true)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `UPDATE users SET is_active = FALSE WHERE id = $1`, user.ID)
	require.NoError(t, err)

	_, err = svc.AddWallet(ctx, user.ID, "NGN", solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, models.ErrUserInactive)
}

func TestAttestKycAdminGate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := repository.NewRepository(db)
	svc := NewPlatformService(repo)

	ctx := context.Background()
	admin := solana.NewWallet().PrivateKey
	platform, err := svc.ActivatePlatform(ctx, "nivix", admin.PublicKey())
	require.NoError(t, err)
	user, err := svc.RegisterUser(ctx, platform.ID, solana.NewWallet().PublicKey(), "amara", "NGN", false)
	require.NoError(t, err)

	stranger := solana.NewWallet().PrivateKey
	err = svc.AttestKyc(ctx, platform.ID, user.Owner, true, []solana.PublicKey{stranger.PublicKey()})
	require.ErrorIs(t, err, models.ErrAdminRequired)

	require.NoError(t, svc.AttestKyc(ctx, platform.ID, user.Owner, true, []solana.PublicKey{admin.PublicKey()}))
	stored, err := repo.GetUserByOwner(ctx, user.Owner)
	require.NoError(t, err)
	assert.True(t, stored.KycVerified)

	// Revocation goes through the same gate.
	require.NoError(t, svc.AttestKyc(ctx, platform.ID, user.Owner, false, []solana.PublicKey{admin.PublicKey()}))
	stored, err = repo.GetUserByOwner(ctx, user.Owner)
	require.NoError(t, err)
	assert.False(t, stored.KycVerified)
}
