package domain

import (
	"context"
	"time"
)

// Clock supplies the authoritative wall-clock used for deadline gates. It is
// injected so phase transitions are testable without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// ListOpts provides pagination and optional status filtering for list
// queries.
type ListOpts struct {
	Limit  int
	Offset int
	Status *TopicStatus
}

// TopicStore persists topics.
type TopicStore interface {
	// Create inserts a new topic; ErrAlreadyExists if the topic ID is taken.
	Create(ctx context.Context, topic Topic) error
	Get(ctx context.Context, topicID uint64) (Topic, error)
	Update(ctx context.Context, topic Topic) error
	List(ctx context.Context, opts ListOpts) ([]Topic, error)
	Count(ctx context.Context) (int64, error)
}

// CommitmentStore persists commitments. Commitments are never deleted.
type CommitmentStore interface {
	// Create inserts a new commitment; ErrAlreadyExists if the participant
	// already holds one for the topic.
	Create(ctx context.Context, c Commitment) error
	Get(ctx context.Context, topicID uint64, participant Identity) (Commitment, error)
	Update(ctx context.Context, c Commitment) error
	// ListByTopic returns every commitment for the topic ordered by
	// submit_order ascending.
	ListByTopic(ctx context.Context, topicID uint64) ([]Commitment, error)
}

// EscrowStore persists the per-topic escrow accounts.
type EscrowStore interface {
	Create(ctx context.Context, e Escrow) error
	Get(ctx context.Context, topicID uint64) (Escrow, error)
	Update(ctx context.Context, e Escrow) error
}

// SettlementStore persists settlement outcome records.
type SettlementStore interface {
	Create(ctx context.Context, s Settlement) error
	Get(ctx context.Context, topicID uint64) (Settlement, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log of every state-changing
// instruction.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Stores bundles every store participating in a single instruction
// transaction.
type Stores struct {
	Topics      TopicStore
	Commitments CommitmentStore
	Escrows     EscrowStore
	Settlements SettlementStore
	Audit       AuditStore
}

// UnitOfWork executes fn against a transactional view of the stores. Either
// every mutation made inside fn commits together, or a returned error rolls
// all of them back; instructions never leave partial effects behind.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(Stores) error) error
}
