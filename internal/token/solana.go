package token

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaMover settles moves on-chain as SPL token transfers between the
// wallets' custody token accounts.
type SolanaMover struct {
	rpcClient *rpc.Client
}

// NewSolanaMover creates a mover backed by the given RPC endpoint.
func NewSolanaMover(rpcURL string) *SolanaMover {
	return &SolanaMover{rpcClient: rpc.New(rpcURL)}
}

// Move builds, signs and submits a single token transfer. The cluster either
// executes the whole transaction or rejects it, which gives the engine the
// all-or-nothing semantics it relies on.
func (m *SolanaMover) Move(ctx context.Context, amount uint64, from, to solana.PublicKey, authority solana.PrivateKey) (string, error) {
	if len(authority) != 64 {
		return "", fmt.Errorf("invalid authority key length: expected 64 bytes")
	}

	recent, err := m.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}

	transfer := token.NewTransferInstruction(
		amount,
		from,
		to,
		authority.PublicKey(),
		[]solana.PublicKey{},
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transfer},
		recent.Value.Blockhash,
		solana.TransactionPayer(authority.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(authority.PublicKey()) {
			return &authority
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := m.rpcClient.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return sig.String(), nil
}
