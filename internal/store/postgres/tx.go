package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/worthlabs/worthhub/internal/domain"
)

// UnitOfWork implements domain.UnitOfWork on a pgx connection pool. Each Do
// call opens one transaction and binds every store to it, so the
// instruction's mutations commit or roll back as a unit.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork creates a UnitOfWork backed by the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Do runs fn inside a single database transaction.
func (u *UnitOfWork) Do(ctx context.Context, fn func(domain.Stores) error) error {
	err := pgx.BeginFunc(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(Stores(tx))
	})
	if err != nil {
		return fmt.Errorf("postgres: tx: %w", err)
	}
	return nil
}

// Stores binds every store implementation to the given Querier.
func Stores(q Querier) domain.Stores {
	return domain.Stores{
		Topics:      NewTopicStore(q),
		Commitments: NewCommitmentStore(q),
		Escrows:     NewEscrowStore(q),
		Settlements: NewSettlementStore(q),
		Audit:       NewAuditStore(q),
	}
}

// Compile-time interface check.
var _ domain.UnitOfWork = (*UnitOfWork)(nil)
