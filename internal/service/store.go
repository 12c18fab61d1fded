package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxStore defines the minimal data access contract required by services.
type TxStore interface {
	Pool() *pgxpool.Pool
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Clock supplies epoch-second timestamps. Injected so tests can pin time.
type Clock func() int64

func systemClock() int64 {
	return time.Now().Unix()
}
