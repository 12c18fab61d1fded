// Package token provides the external token-movement primitive the ledger
// engine settles against. The engine treats a move as atomic: either the
// full amount lands on the destination account or nothing happened.
package token

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Mover moves value between external token accounts. Implementations must
// not retry internally; a failure is reported once and rolls back the
// enclosing ledger transaction.
type Mover interface {
	// Move transfers amount (minor units) from one token account to another,
	// signed by authority. It returns an opaque settlement reference.
	Move(ctx context.Context, amount uint64, from, to solana.PublicKey, authority solana.PrivateKey) (string, error)
}
