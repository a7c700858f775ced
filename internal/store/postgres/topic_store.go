package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/worthlabs/worthhub/internal/domain"
)

// TopicStore implements domain.TopicStore using PostgreSQL.
type TopicStore struct {
	q Querier
}

// NewTopicStore creates a new TopicStore bound to the given Querier.
func NewTopicStore(q Querier) *TopicStore {
	return &TopicStore{q: q}
}

const topicCols = `topic_id, creator, truth_authority, description, symbol,
	commit_deadline, reveal_deadline, min_stake, status, truth_value,
	total_stake, commitment_count, reveal_count, created_at, updated_at`

// Create inserts a new topic. A duplicate topic ID maps to
// domain.ErrAlreadyExists.
func (s *TopicStore) Create(ctx context.Context, t domain.Topic) error {
	const query = `
		INSERT INTO topics (` + topicCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.q.Exec(ctx, query,
		int64(t.TopicID), t.Creator[:], t.TruthAuthority[:],
		t.Description, t.Symbol,
		t.CommitDeadline, t.RevealDeadline, int64(t.MinStake),
		int16(t.Status), t.TruthValue,
		int64(t.TotalStake), int32(t.CommitmentCount), int32(t.RevealCount),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create topic %d: %w", t.TopicID, err)
	}
	return nil
}

// Get retrieves a topic by ID.
func (s *TopicStore) Get(ctx context.Context, topicID uint64) (domain.Topic, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+topicCols+` FROM topics WHERE topic_id = $1`, int64(topicID))
	t, err := scanTopic(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Topic{}, domain.ErrNotFound
		}
		return domain.Topic{}, fmt.Errorf("postgres: get topic %d: %w", topicID, err)
	}
	return t, nil
}

// Update persists a mutated topic record.
func (s *TopicStore) Update(ctx context.Context, t domain.Topic) error {
	const query = `
		UPDATE topics SET
			status = $2, truth_value = $3, total_stake = $4,
			commitment_count = $5, reveal_count = $6, updated_at = $7
		WHERE topic_id = $1`

	tag, err := s.q.Exec(ctx, query,
		int64(t.TopicID), int16(t.Status), t.TruthValue,
		int64(t.TotalStake), int32(t.CommitmentCount), int32(t.RevealCount),
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update topic %d: %w", t.TopicID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns topics with pagination and optional status filtering,
// ordered by topic ID.
func (s *TopicStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Topic, error) {
	query := `SELECT ` + topicCols + ` FROM topics`
	args := []any{}
	argIdx := 1

	if opts.Status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argIdx)
		args = append(args, int16(*opts.Status))
		argIdx++
	}

	query += " ORDER BY topic_id"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list topics: %w", err)
	}
	defer rows.Close()

	var topics []domain.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list topics rows: %w", err)
	}
	return topics, nil
}

// Count returns the total number of topics.
func (s *TopicStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.q.QueryRow(ctx, "SELECT COUNT(*) FROM topics").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count topics: %w", err)
	}
	return count, nil
}

// scanTopic scans a single topic row.
func scanTopic(row pgx.Row) (domain.Topic, error) {
	var t domain.Topic
	var topicID, minStake, totalStake int64
	var status int16
	var commitmentCount, revealCount int32
	var creator, truthAuthority []byte

	err := row.Scan(
		&topicID, &creator, &truthAuthority, &t.Description, &t.Symbol,
		&t.CommitDeadline, &t.RevealDeadline, &minStake, &status, &t.TruthValue,
		&totalStake, &commitmentCount, &revealCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Topic{}, err
	}

	t.TopicID = uint64(topicID)
	t.MinStake = uint64(minStake)
	t.TotalStake = uint64(totalStake)
	t.Status = domain.TopicStatus(status)
	t.CommitmentCount = uint32(commitmentCount)
	t.RevealCount = uint32(revealCount)
	copy(t.Creator[:], creator)
	copy(t.TruthAuthority[:], truthAuthority)
	return t, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
