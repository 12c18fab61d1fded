package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nivixpay/nivix-ledger/internal/domain"
	"github.com/nivixpay/nivix-ledger/internal/models"
	"github.com/nivixpay/nivix-ledger/internal/observability"
	"github.com/nivixpay/nivix-ledger/internal/token"
)

// TransferService executes online same-ledger transfers between two wallets.
type TransferService struct {
	store TxStore
	mover token.Mover
	audit *AuditService
	now   Clock
}

func NewTransferService(store TxStore, mover token.Mover) *TransferService {
	return &TransferService{
		store: store,
		mover: mover,
		audit: NewAuditService(),
		now:   systemClock,
	}
}

// WithClock overrides the timestamp source.
func (s *TransferService) WithClock(now Clock) *TransferService {
	s.now = now
	return s
}

// TransferCmd carries the parameters of one online transfer. Authority is
// the sender's signing capability for the external token move.
type TransferCmd struct {
	PlatformID          uuid.UUID
	FromWalletID        uuid.UUID
	ToWalletID          uuid.UUID
	Amount              uint64
	SourceCurrency      string
	DestinationCurrency string
	Memo                string
	Authority           solana.PrivateKey
}

type lockedWallet struct {
	userID       uuid.UUID
	owner        string
	tokenAccount string
	balance      uint64
}

// ProcessTransfer debits the sender, credits the recipient, advances user and
// platform statistics, settles once against the custody layer and appends a
// Completed transaction record. All of it commits or none of it does.
func (s *TransferService) ProcessTransfer(ctx context.Context, cmd TransferCmd) (*models.TransactionRecord, error) {
	if cmd.FromWalletID == cmd.ToWalletID {
		return nil, errors.New("cannot transfer to the same wallet")
	}
	if len(cmd.Authority) == 0 {
		return nil, errors.New("authority is required")
	}

	var record *models.TransactionRecord
	err := s.store.RunInTx(ctx, func(tx pgx.Tx) error {
		from, to, err := lockWalletPair(ctx, tx, cmd.FromWalletID, cmd.ToWalletID)
		if err != nil {
			return err
		}

		// Preconditions, in order: balance first, then KYC.
		if from.balance < cmd.Amount {
			return models.ErrInsufficientBalance
		}

		// User rows are locked in id order for the same reason as wallets.
		if _, err := tx.Exec(ctx,
			`SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
			[]uuid.UUID{from.userID, to.userID},
		); err != nil {
			return fmt.Errorf("failed to lock users: %w", err)
		}

		var kycVerified bool
		var totalSent int64
		if err := tx.QueryRow(ctx,
			`SELECT kyc_verified, total_sent FROM users WHERE id = $1`,
			from.userID,
		).Scan(&kycVerified, &totalSent); err != nil {
			return fmt.Errorf("failed to fetch sender user: %w", err)
		}
		if !kycVerified {
			return models.ErrKycRequired
		}

		var totalReceived int64
		if err := tx.QueryRow(ctx,
			`SELECT total_received FROM users WHERE id = $1`,
			to.userID,
		).Scan(&totalReceived); err != nil {
			return fmt.Errorf("failed to fetch recipient user: %w", err)
		}

		var totalTransactions int64
		if err := tx.QueryRow(ctx,
			`SELECT total_transactions FROM platforms WHERE id = $1 FOR UPDATE`,
			cmd.PlatformID,
		).Scan(&totalTransactions); err != nil {
			return fmt.Errorf("failed to fetch platform: %w", err)
		}

		newFromBalance, err := domain.CheckedSub(from.balance, cmd.Amount)
		if err != nil {
			return arithmeticDefect(err, "debit sender")
		}
		newToBalance, err := domain.CheckedAdd(to.balance, cmd.Amount)
		if err != nil {
			return arithmeticDefect(err, "credit recipient")
		}
		newTotalSent, err := domain.CheckedAdd(uint64(totalSent), cmd.Amount)
		if err != nil {
			return arithmeticDefect(err, "advance total_sent")
		}
		newTotalReceived, err := domain.CheckedAdd(uint64(totalReceived), cmd.Amount)
		if err != nil {
			return arithmeticDefect(err, "advance total_received")
		}
		newTotalTransactions, err := domain.CheckedAdd(uint64(totalTransactions), 1)
		if err != nil {
			return arithmeticDefect(err, "advance total_transactions")
		}

		if err := execExpectOne(ctx, tx, "update sender wallet",
			`UPDATE wallets SET balance = $1 WHERE id = $2`, int64(newFromBalance), cmd.FromWalletID); err != nil {
			return err
		}
		if err := execExpectOne(ctx, tx, "update recipient wallet",
			`UPDATE wallets SET balance = $1 WHERE id = $2`, int64(newToBalance), cmd.ToWalletID); err != nil {
			return err
		}
		if err := execExpectOne(ctx, tx, "update sender stats",
			`UPDATE users SET total_sent = $1 WHERE id = $2`, int64(newTotalSent), from.userID); err != nil {
			return err
		}
		if err := execExpectOne(ctx, tx, "update recipient stats",
			`UPDATE users SET total_received = $1 WHERE id = $2`, int64(newTotalReceived), to.userID); err != nil {
			return err
		}
		if err := execExpectOne(ctx, tx, "update platform stats",
			`UPDATE platforms SET total_transactions = $1 WHERE id = $2`, int64(newTotalTransactions), cmd.PlatformID); err != nil {
			return err
		}

		// Exactly one custody-layer move. A failure here rolls back every
		// mutation above.
		fromAccount, err := solana.PublicKeyFromBase58(from.tokenAccount)
		if err != nil {
			return fmt.Errorf("failed to decode sender token account: %w", err)
		}
		toAccount, err := solana.PublicKeyFromBase58(to.tokenAccount)
		if err != nil {
			return fmt.Errorf("failed to decode recipient token account: %w", err)
		}
		if _, err := s.mover.Move(ctx, cmd.Amount, fromAccount, toAccount, cmd.Authority); err != nil {
			return fmt.Errorf("token move failed: %w", err)
		}

		fromUser, err := solana.PublicKeyFromBase58(from.owner)
		if err != nil {
			return fmt.Errorf("failed to decode sender owner: %w", err)
		}
		toUser, err := solana.PublicKeyFromBase58(to.owner)
		if err != nil {
			return fmt.Errorf("failed to decode recipient owner: %w", err)
		}

		record = &models.TransactionRecord{
			ID:                  uuid.New(),
			FromUser:            fromUser,
			ToUser:              toUser,
			Amount:              cmd.Amount,
			SourceCurrency:      cmd.SourceCurrency,
			DestinationCurrency: cmd.DestinationCurrency,
			Memo:                cmd.Memo,
			Timestamp:           s.now(),
			Status:              domain.TxStatusCompleted,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO transaction_records (id, from_user, to_user, amount, source_currency, destination_currency, memo, ts, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			record.ID, record.FromUser.String(), record.ToUser.String(), int64(record.Amount),
			record.SourceCurrency, record.DestinationCurrency, record.Memo, record.Timestamp, record.Status,
		); err != nil {
			return fmt.Errorf("failed to create transaction record: %w", err)
		}

		return s.audit.Write(ctx, tx, domain.EntityTransaction, record.ID, nil, "transfer.completed", "", domain.TxStatusCompleted, nil)
	})
	if err != nil {
		observability.IncrementTransfer("failed")
		return nil, err
	}

	observability.IncrementTransfer("completed")
	return record, nil
}

// lockWalletPair locks both wallets in sorted-ID order to avoid deadlocks
// between concurrent transfers, then returns their current rows.
func lockWalletPair(ctx context.Context, tx pgx.Tx, fromID, toID uuid.UUID) (from, to lockedWallet, err error) {
	first, second := sortedPair(fromID, toID)
	for _, id := range []uuid.UUID{first, second} {
		var lockedID uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM wallets WHERE id = $1 FOR UPDATE`, id).Scan(&lockedID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return from, to, models.ErrWalletNotFound
			}
			return from, to, fmt.Errorf("failed to lock wallet %s: %w", id, err)
		}
	}

	fetch := func(id uuid.UUID) (lockedWallet, error) {
		var (
			w       lockedWallet
			balance int64
		)
		err := tx.QueryRow(ctx,
			`SELECT user_id, owner, token_account, balance FROM wallets WHERE id = $1`, id,
		).Scan(&w.userID, &w.owner, &w.tokenAccount, &balance)
		if err != nil {
			return w, fmt.Errorf("failed to fetch wallet %s: %w", id, err)
		}
		w.balance = uint64(balance)
		return w, nil
	}

	if from, err = fetch(fromID); err != nil {
		return from, to, err
	}
	to, err = fetch(toID)
	return from, to, err
}

func execExpectOne(ctx context.Context, tx pgx.Tx, operation, query string, args ...any) error {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return requireExactlyOne(tag.RowsAffected(), operation)
}

// arithmeticDefect marks a checked-arithmetic failure. The preceding balance
// checks make these unreachable; if one fires it is a defect, so it is
// logged and counted, never mapped to a client error.
func arithmeticDefect(err error, step string) error {
	observability.IncrementArithmeticDefect()
	zap.L().Error("checked arithmetic failed", zap.String("step", step), zap.Error(err))
	return fmt.Errorf("%s: %w", step, err)
}
