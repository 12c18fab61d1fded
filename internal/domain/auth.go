package domain

import "github.com/gagliardetto/solana-go"

// Authorized reports whether the stored identity is among the identities
// that cryptographically signed the request. Every "caller must equal
// stored X" gate in the engine goes through this predicate.
func Authorized(stored solana.PublicKey, signers []solana.PublicKey) bool {
	for _, s := range signers {
		if s.Equals(stored) {
			return true
		}
	}
	return false
}
