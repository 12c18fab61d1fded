package token

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// MoveRecord captures one simulated settlement for test assertions.
type MoveRecord struct {
	Amount    uint64
	From      solana.PublicKey
	To        solana.PublicKey
	Authority solana.PublicKey
}

// MockMover simulates the external custody layer. It fails with probability
// FailureRate and records every successful move.
type MockMover struct {
	// FailureRate is the probability of failure (0.0 to 1.0).
	FailureRate float64
	// FailOnMove, when positive, fails exactly the Nth move attempt.
	FailOnMove int

	mu    sync.Mutex
	calls int
	moves []MoveRecord
}

// NewMockMover creates a mover that never fails. Tests flip FailureRate to
// 1.0 to fail every move, or pin FailOnMove to fail one specific leg.
func NewMockMover() *MockMover {
	return &MockMover{}
}

// Move validates inputs, rolls the failure dice and records the settlement.
func (m *MockMover) Move(ctx context.Context, amount uint64, from, to solana.PublicKey, authority solana.PrivateKey) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("token move canceled: %w", ctx.Err())
	default:
	}

	if from.IsZero() || to.IsZero() {
		return "", fmt.Errorf("token move requires both accounts")
	}
	if len(authority) == 0 {
		return "", fmt.Errorf("token move requires an authorizing identity")
	}
	m.mu.Lock()
	m.calls++
	attempt := m.calls
	m.mu.Unlock()

	if m.FailOnMove > 0 && attempt == m.FailOnMove {
		return "", fmt.Errorf("custody layer temporarily unavailable")
	}
	if m.FailureRate > 0 && rand.Float64() < m.FailureRate {
		return "", fmt.Errorf("custody layer temporarily unavailable")
	}

	m.mu.Lock()
	m.moves = append(m.moves, MoveRecord{
		Amount:    amount,
		From:      from,
		To:        to,
		Authority: authority.PublicKey(),
	})
	m.mu.Unlock()

	ref := fmt.Sprintf("MOCK-%s-%05d", time.Now().Format("20060102-150405"), rand.Intn(100000))
	return ref, nil
}

// Moves returns a copy of the recorded settlements.
func (m *MockMover) Moves() []MoveRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MoveRecord, len(m.moves))
	copy(out, m.moves)
	return out
}
