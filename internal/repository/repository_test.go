package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivixpay/nivix-ledger/internal/db"
	"github.com/nivixpay/nivix-ledger/internal/models"
	"github.com/nivixpay/nivix-ledger/internal/testutil/dblock"
)

func init() {
	_ = godotenv.Load("../../.env") // Load from root
}

func TestMain(m *testing.M) {
	release := dblock.Acquire()
	code := m.Run()
	release()
	os.Exit(code)
}

func connectTestDB(t *testing.T) *Repository {
	t.Helper()

	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	pool, err := db.Connect(context.Background(), os.Getenv("DATABASE_URL"))
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	t.Cleanup(pool.Close)

	var schema *string
	if err := pool.QueryRow(context.Background(), `SELECT to_regclass('platforms')::text`).Scan(&schema); err != nil || schema == nil {
		t.Skip("Skipping integration test: schema not applied, run migrations first")
	}
	return NewRepository(pool)
}

func TestUserAndWalletRoundTrip(t *testing.T) {
	repo := connectTestDB(t)
	ctx := context.Background()

	owner := solana.NewWallet().PublicKey()
	user := &models.User{
		ID:           uuid.New(),
		Owner:        owner,
		Username:     "rt_" + uuid.NewString()[:8],
		KycVerified:  true,
		HomeCurrency: "NGN",
		IsActive:     true,
		CreatedAt:    time.Now().Unix(),
	}
	require.NoError(t, repo.CreateUser(ctx, user))

	byID, err := repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, byID.Owner)
	assert.True(t, byID.KycVerified)

	byOwner, err := repo.GetUserByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byOwner.ID)

	wallet := &models.Wallet{
		ID:           uuid.New(),
		UserID:       user.ID,
		Owner:        owner,
		CurrencyCode: "NGN",
		TokenMint:    solana.NewWallet().PublicKey(),
		TokenAccount: solana.NewWallet().PublicKey(),
		Balance:      0,
		IsActive:     true,
		CreatedAt:    time.Now().Unix(),
	}
	require.NoError(t, repo.CreateWallet(ctx, wallet))

	stored, err := repo.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.TokenAccount, stored.TokenAccount)
	assert.Zero(t, stored.Balance)
}

func TestNotFoundSentinels(t *testing.T) {
	repo := connectTestDB(t)
	ctx := context.Background()

	_, err := repo.GetPlatform(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrPlatformNotFound)

	_, err = repo.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	_, err = repo.GetUserByOwner(ctx, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	_, err = repo.GetWallet(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrWalletNotFound)

	_, err = repo.GetOfflineTransaction(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrRecordNotFound)

	_, err = repo.GetPool(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrPoolNotFound)

	err = repo.SetKycVerified(ctx, solana.NewWallet().PublicKey(), true)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}
