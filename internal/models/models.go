package models

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Platform is the singleton root record for the payment platform.
type Platform struct {
	ID                uuid.UUID        `json:"id"`
	Admin             solana.PublicKey `json:"admin"`
	Name              string           `json:"name"`
	IsActive          bool             `json:"is_active"`
	TotalTransactions uint64           `json:"total_transactions"`
	CreatedAt         int64            `json:"created_at"`
}

// User is a registered platform participant identified by its owner key.
type User struct {
	ID            uuid.UUID        `json:"id"`
	Owner         solana.PublicKey `json:"owner"`
	Username      string           `json:"username"`
	KycVerified   bool             `json:"kyc_verified"`
	HomeCurrency  string           `json:"home_currency"`
	TotalSent     uint64           `json:"total_sent"`
	TotalReceived uint64           `json:"total_received"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     int64            `json:"created_at"`
}

// Wallet holds a user's balance in one currency, paired with the external
// custody account that actually holds the tokens.
type Wallet struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	Owner        solana.PublicKey `json:"owner"`
	CurrencyCode string           `json:"currency_code"`
	TokenMint    solana.PublicKey `json:"token_mint"`
	TokenAccount solana.PublicKey `json:"token_account"`
	Balance      uint64           `json:"balance"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    int64            `json:"created_at"`
}

// TransactionRecord is the immutable record of a completed online transfer.
type TransactionRecord struct {
	ID                  uuid.UUID        `json:"id"`
	FromUser            solana.PublicKey `json:"from_user"`
	ToUser              solana.PublicKey `json:"to_user"`
	Amount              uint64           `json:"amount"`
	SourceCurrency      string           `json:"source_currency"`
	DestinationCurrency string           `json:"destination_currency"`
	Memo                string           `json:"memo"`
	Timestamp           int64            `json:"timestamp"`
	Status              string           `json:"status"`
}

// OfflineTransaction is a transfer authorized without connectivity, recorded
// first and settled exactly once by a later sync.
type OfflineTransaction struct {
	ID                  uuid.UUID        `json:"id"`
	FromUser            solana.PublicKey `json:"from_user"`
	ToUser              solana.PublicKey `json:"to_user"`
	Amount              uint64           `json:"amount"`
	SourceCurrency      string           `json:"source_currency"`
	DestinationCurrency string           `json:"destination_currency"`
	ChannelID           string           `json:"channel_id"`
	Signature           solana.Signature `json:"signature"`
	OfflineTimestamp    int64            `json:"offline_timestamp"`
	Synced              bool             `json:"synced"`
	SyncTimestamp       int64            `json:"sync_timestamp"`
	CreatedAt           int64            `json:"created_at"`
}

// LiquidityPool is a two-currency exchange facility with an admin-set
// fixed-point rate (scaled by domain.RateScale).
type LiquidityPool struct {
	ID                  uuid.UUID        `json:"id"`
	Name                string           `json:"name"`
	Admin               solana.PublicKey `json:"admin"`
	SourceCurrency      string           `json:"source_currency"`
	DestinationCurrency string           `json:"destination_currency"`
	SourceMint          solana.PublicKey `json:"source_mint"`
	DestinationMint     solana.PublicKey `json:"destination_mint"`
	SourceAccount       solana.PublicKey `json:"source_account"`
	DestinationAccount  solana.PublicKey `json:"destination_account"`
	ExchangeRate        uint64           `json:"exchange_rate"`
	TotalSwapped        uint64           `json:"total_swapped"`
	IsActive            bool             `json:"is_active"`
	CreatedAt           int64            `json:"created_at"`
}

// AuditEntry is an append-only trail row written for mutating operations.
type AuditEntry struct {
	ID         uuid.UUID  `json:"id"`
	EntityType string     `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Action     string     `json:"action"`
	PrevState  string     `json:"prev_state,omitempty"`
	NextState  string     `json:"next_state,omitempty"`
	Metadata   []byte     `json:"metadata,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
