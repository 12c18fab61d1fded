package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nivixpay/nivix-ledger/internal/domain"
	"github.com/nivixpay/nivix-ledger/internal/models"
	"github.com/nivixpay/nivix-ledger/internal/observability"
	"github.com/nivixpay/nivix-ledger/internal/repository"
	"github.com/nivixpay/nivix-ledger/internal/token"
)

// PoolService operates the internal currency-exchange pools: creation,
// swaps with slippage protection and administrative rate updates.
type PoolService struct {
	store TxStore
	repo  *repository.Repository
	mover token.Mover
	audit *AuditService
	now   Clock
}

func NewPoolService(store TxStore, repo *repository.Repository, mover token.Mover) *PoolService {
	return &PoolService{
		store: store,
		repo:  repo,
		mover: mover,
		audit: NewAuditService(),
		now:   systemClock,
	}
}

// WithClock overrides the timestamp source.
func (s *PoolService) WithClock(now Clock) *PoolService {
	s.now = now
	return s
}

// CreatePoolCmd carries the admin-gated pool constructor parameters.
type CreatePoolCmd struct {
	PlatformID          uuid.UUID
	Name                string
	SourceCurrency      string
	DestinationCurrency string
	SourceMint          solana.PublicKey
	DestinationMint     solana.PublicKey
	SourceAccount       solana.PublicKey
	DestinationAccount  solana.PublicKey
	InitialRate         uint64
	Signers             []solana.PublicKey
}

// CreatePool creates a liquidity pool. Only the platform admin may.
func (s *PoolService) CreatePool(ctx context.Context, cmd CreatePoolCmd) (*models.LiquidityPool, error) {
	platform, err := s.repo.GetPlatform(ctx, cmd.PlatformID)
	if err != nil {
		return nil, err
	}
	if !domain.Authorized(platform.Admin, cmd.Signers) {
		return nil, models.ErrAdminRequired
	}

	pool := &models.LiquidityPool{
		ID:                  uuid.New(),
		Name:                cmd.Name,
		Admin:               platform.Admin,
		SourceCurrency:      cmd.SourceCurrency,
		DestinationCurrency: cmd.DestinationCurrency,
		SourceMint:          cmd.SourceMint,
		DestinationMint:     cmd.DestinationMint,
		SourceAccount:       cmd.SourceAccount,
		DestinationAccount:  cmd.DestinationAccount,
		ExchangeRate:        cmd.InitialRate,
		IsActive:            true,
		CreatedAt:           s.now(),
	}

	err = s.store.RunInTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO liquidity_pools (id, name, admin, source_currency, destination_currency, source_mint,
				destination_mint, source_account, destination_account, exchange_rate, total_swapped, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, TRUE, $11)`,
			pool.ID, pool.Name, pool.Admin.String(), pool.SourceCurrency, pool.DestinationCurrency,
			pool.SourceMint.String(), pool.DestinationMint.String(), pool.SourceAccount.String(),
			pool.DestinationAccount.String(), int64(pool.ExchangeRate), pool.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create pool: %w", err)
		}
		return s.audit.Write(ctx, tx, domain.EntityPool, pool.ID, nil, "pool.created", "", fmt.Sprintf("rate=%d", pool.ExchangeRate), nil)
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// SwapCmd carries one swap request. UserAuthority signs the user-to-pool
// leg; PoolAuthority is the pool's own signing capability for the payout leg.
type SwapCmd struct {
	PoolID                 uuid.UUID
	UserOwner              solana.PublicKey
	UserSourceAccount      solana.PublicKey
	UserDestinationAccount solana.PublicKey
	AmountIn               uint64
	MinimumAmountOut       uint64
	UserAuthority          solana.PrivateKey
	PoolAuthority          solana.PrivateKey
}

// Swap prices amountIn at the pool's fixed-point rate, enforces the caller's
// slippage floor, executes both custody moves and advances the pool's
// cumulative volume, all in one atomic unit.
func (s *PoolService) Swap(ctx context.Context, cmd SwapCmd) (uint64, error) {
	user, err := s.repo.GetUserByOwner(ctx, cmd.UserOwner)
	if err != nil {
		return 0, err
	}
	if !user.KycVerified {
		return 0, models.ErrKycRequired
	}

	var amountOut uint64
	var pair string
	err = s.store.RunInTx(ctx, func(tx pgx.Tx) error {
		var (
			srcCur, dstCur string
			srcAc, dstAc   string
			rate, swapped  int64
			isActive       bool
		)
		err := tx.QueryRow(ctx, `
			SELECT source_currency, destination_currency, source_account, destination_account,
				exchange_rate, total_swapped, is_active
			FROM liquidity_pools WHERE id = $1 FOR UPDATE`,
			cmd.PoolID,
		).Scan(&srcCur, &dstCur, &srcAc, &dstAc, &rate, &swapped, &isActive)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrPoolNotFound
			}
			return fmt.Errorf("failed to lock pool: %w", err)
		}
		if !isActive {
			return models.ErrPoolInactive
		}

		amountOut, err = domain.Quote(cmd.AmountIn, uint64(rate))
		if err != nil {
			return arithmeticDefect(err, "price swap")
		}
		if amountOut < cmd.MinimumAmountOut {
			return models.ErrSlippageExceeded
		}

		poolSource, err := solana.PublicKeyFromBase58(srcAc)
		if err != nil {
			return fmt.Errorf("failed to decode pool source account: %w", err)
		}
		poolDestination, err := solana.PublicKeyFromBase58(dstAc)
		if err != nil {
			return fmt.Errorf("failed to decode pool destination account: %w", err)
		}

		// Leg 1: user pays the pool, signed by the user.
		if _, err := s.mover.Move(ctx, cmd.AmountIn, cmd.UserSourceAccount, poolSource, cmd.UserAuthority); err != nil {
			return fmt.Errorf("source token move failed: %w", err)
		}
		// Leg 2: pool pays the user, signed by the pool authority. A failure
		// here rolls the ledger back while the funding leg has already settled
		// externally; the stranded deposit surfaces through the returned error
		// and reconciliation, never as recorded volume.
		if _, err := s.mover.Move(ctx, amountOut, poolDestination, cmd.UserDestinationAccount, cmd.PoolAuthority); err != nil {
			return fmt.Errorf("destination token move failed: %w", err)
		}

		newSwapped, err := domain.CheckedAdd(uint64(swapped), cmd.AmountIn)
		if err != nil {
			return arithmeticDefect(err, "advance total_swapped")
		}
		if err := execExpectOne(ctx, tx, "update pool volume",
			`UPDATE liquidity_pools SET total_swapped = $1 WHERE id = $2`, int64(newSwapped), cmd.PoolID); err != nil {
			return err
		}

		pair = srcCur + "/" + dstCur
		return s.audit.Write(ctx, tx, domain.EntityPool, cmd.PoolID, nil, "pool.swapped", "", fmt.Sprintf("in=%d out=%d", cmd.AmountIn, amountOut), nil)
	})
	if err != nil {
		return 0, err
	}

	observability.AddSwapVolume(pair, cmd.AmountIn)
	return amountOut, nil
}

// UpdateExchangeRate overwrites the pool's rate. Only the pool admin may.
// No bounds check: a zero rate is accepted and makes every later swap quote
// zero output, which the slippage guard then surfaces to callers.
func (s *PoolService) UpdateExchangeRate(ctx context.Context, poolID uuid.UUID, newRate uint64, signers []solana.PublicKey) error {
	return s.store.RunInTx(ctx, func(tx pgx.Tx) error {
		var (
			adminStr string
			prevRate int64
		)
		err := tx.QueryRow(ctx,
			`SELECT admin, exchange_rate FROM liquidity_pools WHERE id = $1 FOR UPDATE`,
			poolID,
		).Scan(&adminStr, &prevRate)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrPoolNotFound
			}
			return fmt.Errorf("failed to lock pool: %w", err)
		}

		admin, err := solana.PublicKeyFromBase58(adminStr)
		if err != nil {
			return fmt.Errorf("failed to decode pool admin: %w", err)
		}
		if !domain.Authorized(admin, signers) {
			return models.ErrAdminRequired
		}

		if err := execExpectOne(ctx, tx, "update exchange rate",
			`UPDATE liquidity_pools SET exchange_rate = $1 WHERE id = $2`, int64(newRate), poolID); err != nil {
			return err
		}
		return s.audit.Write(ctx, tx, domain.EntityPool, poolID, nil, "pool.rate_updated",
			fmt.Sprintf("rate=%d", prevRate), fmt.Sprintf("rate=%d", newRate), nil)
	})
}
