package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/worthlabs/worthhub/internal/domain"
)

// SettlementStore implements domain.SettlementStore using PostgreSQL.
type SettlementStore struct {
	q Querier
}

// NewSettlementStore creates a new SettlementStore bound to the given
// Querier.
func NewSettlementStore(q Querier) *SettlementStore {
	return &SettlementStore{q: q}
}

// Create inserts the settlement record for a topic. Settlement is one-shot,
// so a second insert maps to domain.ErrAlreadyExists.
func (s *SettlementStore) Create(ctx context.Context, rec domain.Settlement) error {
	const query = `
		INSERT INTO settlements (topic_id, consensus, truth_edge, loser_pool,
			distributable, total_paid, reserve, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.q.Exec(ctx, query,
		int64(rec.TopicID), rec.Consensus, rec.TruthEdge,
		int64(rec.LoserPool), int64(rec.Distributable),
		int64(rec.TotalPaid), int64(rec.Reserve), rec.SettledAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create settlement topic=%d: %w", rec.TopicID, err)
	}
	return nil
}

// Get retrieves the settlement record for a topic.
func (s *SettlementStore) Get(ctx context.Context, topicID uint64) (domain.Settlement, error) {
	var rec domain.Settlement
	var id, loserPool, distributable, totalPaid, reserve int64

	err := s.q.QueryRow(ctx,
		`SELECT topic_id, consensus, truth_edge, loser_pool, distributable,
			total_paid, reserve, settled_at
		FROM settlements WHERE topic_id = $1`,
		int64(topicID)).Scan(
		&id, &rec.Consensus, &rec.TruthEdge, &loserPool,
		&distributable, &totalPaid, &reserve, &rec.SettledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Settlement{}, domain.ErrNotFound
		}
		return domain.Settlement{}, fmt.Errorf("postgres: get settlement topic=%d: %w", topicID, err)
	}

	rec.TopicID = uint64(id)
	rec.LoserPool = uint64(loserPool)
	rec.Distributable = uint64(distributable)
	rec.TotalPaid = uint64(totalPaid)
	rec.Reserve = uint64(reserve)
	return rec, nil
}
