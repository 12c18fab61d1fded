package service

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/nivixpay/nivix-ledger/internal/domain"
	"github.com/nivixpay/nivix-ledger/internal/models"
	"github.com/nivixpay/nivix-ledger/internal/repository"
)

// PlatformService covers the account store: platform bootstrap, user
// registration, wallet creation and KYC attestation. These are record
// constructors; they never touch balances.
type PlatformService struct {
	repo *repository.Repository
	now  Clock
}

func NewPlatformService(repo *repository.Repository) *PlatformService {
	return &PlatformService{repo: repo, now: systemClock}
}

// WithClock overrides the timestamp source.
func (s *PlatformService) WithClock(now Clock) *PlatformService {
	s.now = now
	return s
}

// ActivatePlatform creates the platform root record.
func (s *PlatformService) ActivatePlatform(ctx context.Context, name string, admin solana.PublicKey) (*models.Platform, error) {
	platform := &models.Platform{
		ID:        uuid.New(),
		Admin:     admin,
		Name:      name,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreatePlatform(ctx, platform); err != nil {
		return nil, err
	}
	return platform, nil
}

// RegisterUser creates a user under an active platform.
func (s *PlatformService) RegisterUser(ctx context.Context, platformID uuid.UUID, owner solana.PublicKey, username, homeCurrency string, kycVerified bool) (*models.User, error) {
	platform, err := s.repo.GetPlatform(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if !platform.IsActive {
		return nil, models.ErrPlatformInactive
	}

	user := &models.User{
		ID:           uuid.New(),
		Owner:        owner,
		Username:     username,
		KycVerified:  kycVerified,
		HomeCurrency: homeCurrency,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AddWallet creates a per-currency wallet for an active user. The unique
// index on (user_id, currency_code) rejects a second wallet for the pair.
func (s *PlatformService) AddWallet(ctx context.Context, userID uuid.UUID, currencyCode string, tokenMint, tokenAccount solana.PublicKey) (*models.Wallet, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.ErrUserInactive
	}

	wallet := &models.Wallet{
		ID:           uuid.New(),
		UserID:       user.ID,
		Owner:        user.Owner,
		CurrencyCode: currencyCode,
		TokenMint:    tokenMint,
		TokenAccount: tokenAccount,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

// AttestKyc records the KYC collaborator's verdict for a user. Only the
// platform admin may attest.
func (s *PlatformService) AttestKyc(ctx context.Context, platformID uuid.UUID, owner solana.PublicKey, verified bool, signers []solana.PublicKey) error {
	platform, err := s.repo.GetPlatform(ctx, platformID)
	if err != nil {
		return err
	}
	if !domain.Authorized(platform.Admin, signers) {
		return models.ErrAdminRequired
	}
	return s.repo.SetKycVerified(ctx, owner, verified)
}
