package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/worthlabs/worthhub/internal/domain"
)

// CommitmentStore implements domain.CommitmentStore using PostgreSQL.
type CommitmentStore struct {
	q Querier
}

// NewCommitmentStore creates a new CommitmentStore bound to the given
// Querier.
func NewCommitmentStore(q Querier) *CommitmentStore {
	return &CommitmentStore{q: q}
}

const commitmentCols = `topic_id, topic_ref, participant, commitment_hash,
	stake_amount, submit_order, prediction_value, revealed, salt, settled,
	payout_amount, created_at, updated_at`

// Create inserts a new commitment. A second commitment by the same
// participant on the same topic maps to domain.ErrAlreadyExists.
func (s *CommitmentStore) Create(ctx context.Context, c domain.Commitment) error {
	const query = `
		INSERT INTO commitments (` + commitmentCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.q.Exec(ctx, query,
		int64(c.TopicID), c.TopicRef[:], c.Participant[:], c.CommitmentHash[:],
		int64(c.StakeAmount), int32(c.SubmitOrder), c.PredictionValue,
		c.Revealed, c.Salt[:], c.Settled, int64(c.PayoutAmount),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create commitment topic=%d: %w", c.TopicID, err)
	}
	return nil
}

// Get retrieves one participant's commitment on a topic.
func (s *CommitmentStore) Get(ctx context.Context, topicID uint64, participant domain.Identity) (domain.Commitment, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+commitmentCols+` FROM commitments WHERE topic_id = $1 AND participant = $2`,
		int64(topicID), participant[:])
	c, err := scanCommitment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Commitment{}, domain.ErrNotFound
		}
		return domain.Commitment{}, fmt.Errorf("postgres: get commitment topic=%d: %w", topicID, err)
	}
	return c, nil
}

// Update persists a mutated commitment (reveal or settlement).
func (s *CommitmentStore) Update(ctx context.Context, c domain.Commitment) error {
	const query = `
		UPDATE commitments SET
			prediction_value = $3, revealed = $4, salt = $5,
			settled = $6, payout_amount = $7, updated_at = $8
		WHERE topic_id = $1 AND participant = $2`

	tag, err := s.q.Exec(ctx, query,
		int64(c.TopicID), c.Participant[:],
		c.PredictionValue, c.Revealed, c.Salt[:],
		c.Settled, int64(c.PayoutAmount), c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update commitment topic=%d: %w", c.TopicID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByTopic returns every commitment for the topic in submit order.
func (s *CommitmentStore) ListByTopic(ctx context.Context, topicID uint64) ([]domain.Commitment, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+commitmentCols+` FROM commitments WHERE topic_id = $1 ORDER BY submit_order`,
		int64(topicID))
	if err != nil {
		return nil, fmt.Errorf("postgres: list commitments topic=%d: %w", topicID, err)
	}
	defer rows.Close()

	var commitments []domain.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan commitment: %w", err)
		}
		commitments = append(commitments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list commitments rows: %w", err)
	}
	return commitments, nil
}

// scanCommitment scans a single commitment row.
func scanCommitment(row pgx.Row) (domain.Commitment, error) {
	var c domain.Commitment
	var topicID, stakeAmount, payoutAmount int64
	var submitOrder int32
	var topicRef, participant, hash, salt []byte

	err := row.Scan(
		&topicID, &topicRef, &participant, &hash,
		&stakeAmount, &submitOrder, &c.PredictionValue, &c.Revealed,
		&salt, &c.Settled, &payoutAmount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Commitment{}, err
	}

	c.TopicID = uint64(topicID)
	c.StakeAmount = uint64(stakeAmount)
	c.PayoutAmount = uint64(payoutAmount)
	c.SubmitOrder = uint32(submitOrder)
	copy(c.TopicRef[:], topicRef)
	copy(c.Participant[:], participant)
	copy(c.CommitmentHash[:], hash)
	copy(c.Salt[:], salt)
	return c, nil
}
