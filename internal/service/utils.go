package service

import (
	"fmt"

	"github.com/google/uuid"
)

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}

// sortedPair returns the two IDs in a stable order so concurrent operations
// always take row locks in the same sequence.
func sortedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
