package domain

// Transaction record statuses. The engine only ever writes Completed; the
// remaining values exist for records imported from offline channels and for
// forward compatibility with dispute handling.
const (
	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
	TxStatusFailed    = "FAILED"
	TxStatusCancelled = "CANCELLED"
)

// RateScale is the fixed-point scale of liquidity pool exchange rates.
// A rate of 832500 encodes 1 unit of source = 83.25 units of destination.
const RateScale = 10_000

// OfflineTxLimit is the ceiling, in minor units, on a single offline
// transaction. Transfers above it must be made online.
const OfflineTxLimit = 500

// Audit entity types.
const (
	EntityPlatform    = "platform"
	EntityUser        = "user"
	EntityWallet      = "wallet"
	EntityTransaction = "transaction"
	EntityOfflineTx   = "offline_transaction"
	EntityPool        = "liquidity_pool"
)
