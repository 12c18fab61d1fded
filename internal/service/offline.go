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

// OfflineService records transfers authorized while the payer was
// disconnected and later settles each one exactly once.
type OfflineService struct {
	store TxStore
	repo  *repository.Repository
	mover token.Mover
	audit *AuditService
	now   Clock
}

func NewOfflineService(store TxStore, repo *repository.Repository, mover token.Mover) *OfflineService {
	return &OfflineService{
		store: store,
		repo:  repo,
		mover: mover,
		audit: NewAuditService(),
		now:   systemClock,
	}
}

// WithClock overrides the timestamp source.
func (s *OfflineService) WithClock(now Clock) *OfflineService {
	s.now = now
	return s
}

// RecordCmd carries a phase-1 offline record request. The signature is
// persisted verbatim for later audit; validating it against the sender is
// the identity collaborator's job.
type RecordCmd struct {
	Sender              solana.PublicKey
	Recipient           solana.PublicKey
	Amount              uint64
	SourceCurrency      string
	DestinationCurrency string
	ChannelID           string
	Signature           solana.Signature
	OfflineTimestamp    int64
}

// Record persists a durable intent. No balance moves in this phase.
func (s *OfflineService) Record(ctx context.Context, cmd RecordCmd) (*models.OfflineTransaction, error) {
	user, err := s.repo.GetUserByOwner(ctx, cmd.Sender)
	if err != nil {
		return nil, err
	}
	if !user.KycVerified {
		return nil, models.ErrKycRequired
	}
	if cmd.Amount > domain.OfflineTxLimit {
		return nil, models.ErrExceedsOfflineLimit
	}

	record := &models.OfflineTransaction{
		ID:                  uuid.New(),
		FromUser:            cmd.Sender,
		ToUser:              cmd.Recipient,
		Amount:              cmd.Amount,
		SourceCurrency:      cmd.SourceCurrency,
		DestinationCurrency: cmd.DestinationCurrency,
		ChannelID:           cmd.ChannelID,
		Signature:           cmd.Signature,
		OfflineTimestamp:    cmd.OfflineTimestamp,
		CreatedAt:           s.now(),
	}

	err = s.store.RunInTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO offline_transactions (id, from_user, to_user, amount, source_currency, destination_currency,
				channel_id, signature, offline_timestamp, synced, sync_timestamp, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, 0, $10)`,
			record.ID, record.FromUser.String(), record.ToUser.String(), int64(record.Amount),
			record.SourceCurrency, record.DestinationCurrency, record.ChannelID,
			record.Signature[:], record.OfflineTimestamp, record.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create offline transaction: %w", err)
		}
		return s.audit.Write(ctx, tx, domain.EntityOfflineTx, record.ID, nil, "offline.recorded", "", "recorded", nil)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SyncCmd carries a phase-2 settlement request. Authority is the sender's
// signing capability for the external token move.
type SyncCmd struct {
	RecordID     uuid.UUID
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Authority    solana.PrivateKey
}

// Sync settles one offline record against live balances, at most once. The
// record row is locked and the synced flag flips inside the same transaction
// as the balance mutation, so a concurrent or repeated sync sees
// ErrAlreadySynced instead of double-spending.
func (s *OfflineService) Sync(ctx context.Context, cmd SyncCmd) error {
	err := s.store.RunInTx(ctx, func(tx pgx.Tx) error {
		var (
			amount int64
			synced bool
		)
		err := tx.QueryRow(ctx,
			`SELECT amount, synced FROM offline_transactions WHERE id = $1 FOR UPDATE`,
			cmd.RecordID,
		).Scan(&amount, &synced)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrRecordNotFound
			}
			return fmt.Errorf("failed to lock offline transaction: %w", err)
		}
		if synced {
			return models.ErrAlreadySynced
		}

		from, to, err := lockWalletPair(ctx, tx, cmd.FromWalletID, cmd.ToWalletID)
		if err != nil {
			return err
		}
		if from.balance < uint64(amount) {
			return models.ErrInsufficientBalance
		}

		newFromBalance, err := domain.CheckedSub(from.balance, uint64(amount))
		if err != nil {
			return arithmeticDefect(err, "debit sender")
		}
		newToBalance, err := domain.CheckedAdd(to.balance, uint64(amount))
		if err != nil {
			return arithmeticDefect(err, "credit recipient")
		}

		if err := execExpectOne(ctx, tx, "update sender wallet",
			`UPDATE wallets SET balance = $1 WHERE id = $2`, int64(newFromBalance), cmd.FromWalletID); err != nil {
			return err
		}
		if err := execExpectOne(ctx, tx, "update recipient wallet",
			`UPDATE wallets SET balance = $1 WHERE id = $2`, int64(newToBalance), cmd.ToWalletID); err != nil {
			return err
		}

		fromAccount, err := solana.PublicKeyFromBase58(from.tokenAccount)
		if err != nil {
			return fmt.Errorf("failed to decode sender token account: %w", err)
		}
		toAccount, err := solana.PublicKeyFromBase58(to.tokenAccount)
		if err != nil {
			return fmt.Errorf("failed to decode recipient token account: %w", err)
		}
		if _, err := s.mover.Move(ctx, uint64(amount), fromAccount, toAccount, cmd.Authority); err != nil {
			return fmt.Errorf("token move failed: %w", err)
		}

		// Flag flip commits with the balance mutation. The NOT synced guard
		// is the backstop should the row lock above ever be bypassed.
		if err := execExpectOne(ctx, tx, "mark offline transaction synced",
			`UPDATE offline_transactions SET synced = TRUE, sync_timestamp = $1 WHERE id = $2 AND NOT synced`,
			s.now(), cmd.RecordID); err != nil {
			return err
		}

		return s.audit.Write(ctx, tx, domain.EntityOfflineTx, cmd.RecordID, nil, "offline.synced", "recorded", "synced", nil)
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadySynced) {
			observability.IncrementOfflineSync("replayed")
		} else {
			observability.IncrementOfflineSync("failed")
		}
		return err
	}
	observability.IncrementOfflineSync("completed")
	return nil
}

// ListUnsynced returns a sender's pending offline records.
func (s *OfflineService) ListUnsynced(ctx context.Context, owner solana.PublicKey, limit int) ([]models.OfflineTransaction, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.GetUnsyncedOfflineTransactions(ctx, owner, limit)
}
