package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/worthlabs/worthhub/internal/domain"
)

// EscrowStore implements domain.EscrowStore using PostgreSQL.
type EscrowStore struct {
	q Querier
}

// NewEscrowStore creates a new EscrowStore bound to the given Querier.
func NewEscrowStore(q Querier) *EscrowStore {
	return &EscrowStore{q: q}
}

// Create inserts the escrow account for a topic.
func (s *EscrowStore) Create(ctx context.Context, e domain.Escrow) error {
	const query = `
		INSERT INTO escrows (topic_id, address, balance, reserve, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.q.Exec(ctx, query,
		int64(e.TopicID), e.Address[:], int64(e.Balance), int64(e.Reserve), e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create escrow topic=%d: %w", e.TopicID, err)
	}
	return nil
}

// Get retrieves the escrow account for a topic.
func (s *EscrowStore) Get(ctx context.Context, topicID uint64) (domain.Escrow, error) {
	var e domain.Escrow
	var id, balance, reserve int64
	var addr []byte

	err := s.q.QueryRow(ctx,
		`SELECT topic_id, address, balance, reserve, updated_at FROM escrows WHERE topic_id = $1`,
		int64(topicID)).Scan(&id, &addr, &balance, &reserve, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Escrow{}, domain.ErrNotFound
		}
		return domain.Escrow{}, fmt.Errorf("postgres: get escrow topic=%d: %w", topicID, err)
	}

	e.TopicID = uint64(id)
	e.Balance = uint64(balance)
	e.Reserve = uint64(reserve)
	copy(e.Address[:], addr)
	return e, nil
}

// Update persists a mutated escrow balance.
func (s *EscrowStore) Update(ctx context.Context, e domain.Escrow) error {
	const query = `UPDATE escrows SET balance = $2, updated_at = $3 WHERE topic_id = $1`

	tag, err := s.q.Exec(ctx, query, int64(e.TopicID), int64(e.Balance), e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: update escrow topic=%d: %w", e.TopicID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
