package token

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockMoverRecordsMoves(t *testing.T) {
	mover := NewMockMover()
	authority := solana.NewWallet().PrivateKey
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()

	ref, err := mover.Move(context.Background(), 250, from, to, authority)
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	moves := mover.Moves()
	require.Len(t, moves, 1)
	assert.Equal(t, uint64(250), moves[0].Amount)
	assert.Equal(t, from, moves[0].From)
	assert.Equal(t, to, moves[0].To)
	assert.Equal(t, authority.PublicKey(), moves[0].Authority)
}

func TestMockMoverValidation(t *testing.T) {
	mover := NewMockMover()
	authority := solana.NewWallet().PrivateKey
	account := solana.NewWallet().PublicKey()

	_, err := mover.Move(context.Background(), 1, solana.PublicKey{}, account, authority)
	require.Error(t, err)

	_, err = mover.Move(context.Background(), 1, account, account, nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mover.Move(ctx, 1, account, account, authority)
	require.Error(t, err)

	assert.Empty(t, mover.Moves())
}

func TestMockMoverFailureRate(t *testing.T) {
	mover := NewMockMover()
	mover.FailureRate = 1.0

	_, err := mover.Move(context.Background(), 1, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PrivateKey)
	require.Error(t, err)
	assert.Empty(t, mover.Moves())
}

func TestMockMoverFailOnMove(t *testing.T) {
	mover := NewMockMover()
	mover.FailOnMove = 2
	authority := solana.NewWallet().PrivateKey
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()

	_, err := mover.Move(context.Background(), 1, from, to, authority)
	require.NoError(t, err)

	// Only the pinned attempt fails.
	_, err = mover.Move(context.Background(), 2, from, to, authority)
	require.Error(t, err)
	_, err = mover.Move(context.Background(), 3, from, to, authority)
	require.NoError(t, err)

	moves := mover.Moves()
	require.Len(t, moves, 2)
	assert.Equal(t, uint64(1), moves[0].Amount)
	assert.Equal(t, uint64(3), moves[1].Amount)
}
