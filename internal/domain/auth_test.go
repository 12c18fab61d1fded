package domain

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestAuthorized(t *testing.T) {
	admin := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	assert.True(t, Authorized(admin, []solana.PublicKey{other, admin}))
	assert.False(t, Authorized(admin, []solana.PublicKey{other}))
	assert.False(t, Authorized(admin, nil))
}
