package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivixpay/nivix-ledger/internal/models"
)

// Repository holds the non-transactional reads and the record constructors.
// Balance-mutating SQL lives in the service layer, inside Store.RunInTx.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreatePlatform(ctx context.Context, p *models.Platform) error {
	query := `INSERT INTO platforms (id, admin, name, is_active, total_transactions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query, p.ID, p.Admin.String(), p.Name, p.IsActive, int64(p.TotalTransactions), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create platform: %w", err)
	}
	return nil
}

func (r *Repository) GetPlatform(ctx context.Context, id uuid.UUID) (*models.Platform, error) {
	query := `SELECT id, admin, name, is_active, total_transactions, created_at FROM platforms WHERE id = $1`
	return scanPlatform(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (id, owner, username, kyc_verified, home_currency, total_sent, total_received, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query, u.ID, u.Owner.String(), u.Username, u.KycVerified, u.HomeCurrency,
		int64(u.TotalSent), int64(u.TotalReceived), u.IsActive, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, owner, username, kyc_verified, home_currency, total_sent, total_received, is_active, created_at
		FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) GetUserByOwner(ctx context.Context, owner solana.PublicKey) (*models.User, error) {
	query := `SELECT id, owner, username, kyc_verified, home_currency, total_sent, total_received, is_active, created_at
		FROM users WHERE owner = $1`
	return scanUser(r.db.QueryRow(ctx, query, owner.String()))
}

// IsPlatformAdmin reports whether owner administers any platform.
func (r *Repository) IsPlatformAdmin(ctx context.Context, owner solana.PublicKey) (bool, error) {
	var isAdmin bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM platforms WHERE admin = $1)`, owner.String()).Scan(&isAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to check platform admin: %w", err)
	}
	return isAdmin, nil
}

// SetKycVerified flips the KYC attestation flag for a user.
func (r *Repository) SetKycVerified(ctx context.Context, owner solana.PublicKey, verified bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET kyc_verified = $1 WHERE owner = $2`, verified, owner.String())
	if err != nil {
		return fmt.Errorf("failed to update kyc status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (r *Repository) CreateWallet(ctx context.Context, w *models.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, owner, currency_code, token_mint, token_account, balance, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query, w.ID, w.UserID, w.Owner.String(), w.CurrencyCode,
		w.TokenMint.String(), w.TokenAccount.String(), int64(w.Balance), w.IsActive, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *Repository) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	query := `SELECT id, user_id, owner, currency_code, token_mint, token_account, balance, is_active, created_at
		FROM wallets WHERE id = $1`
	return scanWallet(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) GetOfflineTransaction(ctx context.Context, id uuid.UUID) (*models.OfflineTransaction, error) {
	query := `SELECT id, from_user, to_user, amount, source_currency, destination_currency, channel_id,
		signature, offline_timestamp, synced, sync_timestamp, created_at
		FROM offline_transactions WHERE id = $1`
	return scanOfflineTx(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) GetPool(ctx context.Context, id uuid.UUID) (*models.LiquidityPool, error) {
	query := `SELECT id, name, admin, source_currency, destination_currency, source_mint, destination_mint,
		source_account, destination_account, exchange_rate, total_swapped, is_active, created_at
		FROM liquidity_pools WHERE id = $1`
	return scanPool(r.db.QueryRow(ctx, query, id))
}

// GetTransactionsByUser lists transfer records where the owner key appears on
// either side, newest first.
func (r *Repository) GetTransactionsByUser(ctx context.Context, owner solana.PublicKey, limit, offset int) ([]models.TransactionRecord, error) {
	query := `
		SELECT id, from_user, to_user, amount, source_currency, destination_currency, memo, ts, status
		FROM transaction_records
		WHERE from_user = $1 OR to_user = $1
		ORDER BY ts DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, owner.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var (
			rec            models.TransactionRecord
			fromStr, toStr string
			amount         int64
		)
		if err := rows.Scan(&rec.ID, &fromStr, &toStr, &amount, &rec.SourceCurrency,
			&rec.DestinationCurrency, &rec.Memo, &rec.Timestamp, &rec.Status); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if rec.FromUser, err = solana.PublicKeyFromBase58(fromStr); err != nil {
			return nil, fmt.Errorf("failed to decode from_user: %w", err)
		}
		if rec.ToUser, err = solana.PublicKeyFromBase58(toStr); err != nil {
			return nil, fmt.Errorf("failed to decode to_user: %w", err)
		}
		rec.Amount = uint64(amount)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetUnsyncedOfflineTransactions lists pending offline records for a sender.
func (r *Repository) GetUnsyncedOfflineTransactions(ctx context.Context, owner solana.PublicKey, limit int) ([]models.OfflineTransaction, error) {
	query := `SELECT id, from_user, to_user, amount, source_currency, destination_currency, channel_id,
		signature, offline_timestamp, synced, sync_timestamp, created_at
		FROM offline_transactions
		WHERE from_user = $1 AND NOT synced
		ORDER BY created_at
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, owner.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get offline transactions: %w", err)
	}
	defer rows.Close()

	var records []models.OfflineTransaction
	for rows.Next() {
		rec, err := scanOfflineTxRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlatform(row rowScanner) (*models.Platform, error) {
	var (
		p        models.Platform
		adminStr string
		total    int64
	)
	err := row.Scan(&p.ID, &adminStr, &p.Name, &p.IsActive, &total, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPlatformNotFound
		}
		return nil, fmt.Errorf("failed to get platform: %w", err)
	}
	if p.Admin, err = solana.PublicKeyFromBase58(adminStr); err != nil {
		return nil, fmt.Errorf("failed to decode platform admin: %w", err)
	}
	p.TotalTransactions = uint64(total)
	return &p, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u              models.User
		ownerStr       string
		sent, received int64
	)
	err := row.Scan(&u.ID, &ownerStr, &u.Username, &u.KycVerified, &u.HomeCurrency,
		&sent, &received, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u.Owner, err = solana.PublicKeyFromBase58(ownerStr); err != nil {
		return nil, fmt.Errorf("failed to decode user owner: %w", err)
	}
	u.TotalSent = uint64(sent)
	u.TotalReceived = uint64(received)
	return &u, nil
}

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var (
		w                        models.Wallet
		ownerStr, mintStr, taStr string
		balance                  int64
	)
	err := row.Scan(&w.ID, &w.UserID, &ownerStr, &w.CurrencyCode, &mintStr, &taStr,
		&balance, &w.IsActive, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if w.Owner, err = solana.PublicKeyFromBase58(ownerStr); err != nil {
		return nil, fmt.Errorf("failed to decode wallet owner: %w", err)
	}
	if w.TokenMint, err = solana.PublicKeyFromBase58(mintStr); err != nil {
		return nil, fmt.Errorf("failed to decode token mint: %w", err)
	}
	if w.TokenAccount, err = solana.PublicKeyFromBase58(taStr); err != nil {
		return nil, fmt.Errorf("failed to decode token account: %w", err)
	}
	w.Balance = uint64(balance)
	return &w, nil
}

func scanOfflineTx(row rowScanner) (*models.OfflineTransaction, error) {
	rec, err := scanOfflineTxRow(row)
	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrRecordNotFound
	}
	return rec, err
}

func scanOfflineTxRow(row rowScanner) (*models.OfflineTransaction, error) {
	var (
		rec            models.OfflineTransaction
		fromStr, toStr string
		amount         int64
		sig            []byte
	)
	err := row.Scan(&rec.ID, &fromStr, &toStr, &amount, &rec.SourceCurrency, &rec.DestinationCurrency,
		&rec.ChannelID, &sig, &rec.OfflineTimestamp, &rec.Synced, &rec.SyncTimestamp, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get offline transaction: %w", err)
	}
	if rec.FromUser, err = solana.PublicKeyFromBase58(fromStr); err != nil {
		return nil, fmt.Errorf("failed to decode from_user: %w", err)
	}
	if rec.ToUser, err = solana.PublicKeyFromBase58(toStr); err != nil {
		return nil, fmt.Errorf("failed to decode to_user: %w", err)
	}
	if len(sig) != len(rec.Signature) {
		return nil, fmt.Errorf("stored signature has %d bytes, want %d", len(sig), len(rec.Signature))
	}
	copy(rec.Signature[:], sig)
	rec.Amount = uint64(amount)
	return &rec, nil
}

func scanPool(row rowScanner) (*models.LiquidityPool, error) {
	var (
		p                                        models.LiquidityPool
		adminStr, srcMint, dstMint, srcAc, dstAc string
		rate, swapped                            int64
	)
	err := row.Scan(&p.ID, &p.Name, &adminStr, &p.SourceCurrency, &p.DestinationCurrency,
		&srcMint, &dstMint, &srcAc, &dstAc, &rate, &swapped, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	if p.Admin, err = solana.PublicKeyFromBase58(adminStr); err != nil {
		return nil, fmt.Errorf("failed to decode pool admin: %w", err)
	}
	if p.SourceMint, err = solana.PublicKeyFromBase58(srcMint); err != nil {
		return nil, fmt.Errorf("failed to decode source mint: %w", err)
	}
	if p.DestinationMint, err = solana.PublicKeyFromBase58(dstMint); err != nil {
		return nil, fmt.Errorf("failed to decode destination mint: %w", err)
	}
	if p.SourceAccount, err = solana.PublicKeyFromBase58(srcAc); err != nil {
		return nil, fmt.Errorf("failed to decode source account: %w", err)
	}
	if p.DestinationAccount, err = solana.PublicKeyFromBase58(dstAc); err != nil {
		return nil, fmt.Errorf("failed to decode destination account: %w", err)
	}
	p.ExchangeRate = uint64(rate)
	p.TotalSwapped = uint64(swapped)
	return &p, nil
}
