// Package memory implements the domain store interfaces in process memory.
// It backs unit tests and the standalone development mode. Its unit of work
// gives the same all-or-nothing guarantee as the SQL implementation by
// running each transaction against a copy of the state and swapping the
// copy in only on success.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/worthlabs/worthhub/internal/domain"
)

type commitmentKey struct {
	topicID     uint64
	participant domain.Identity
}

type state struct {
	topics      map[uint64]domain.Topic
	commitments map[commitmentKey]domain.Commitment
	escrows     map[uint64]domain.Escrow
	settlements map[uint64]domain.Settlement
	audit       []domain.AuditEntry
	nextAuditID int64
}

func newState() *state {
	return &state{
		topics:      make(map[uint64]domain.Topic),
		commitments: make(map[commitmentKey]domain.Commitment),
		escrows:     make(map[uint64]domain.Escrow),
		settlements: make(map[uint64]domain.Settlement),
		nextAuditID: 1,
	}
}

func (s *state) clone() *state {
	c := &state{
		topics:      make(map[uint64]domain.Topic, len(s.topics)),
		commitments: make(map[commitmentKey]domain.Commitment, len(s.commitments)),
		escrows:     make(map[uint64]domain.Escrow, len(s.escrows)),
		settlements: make(map[uint64]domain.Settlement, len(s.settlements)),
		audit:       make([]domain.AuditEntry, len(s.audit)),
		nextAuditID: s.nextAuditID,
	}
	for k, v := range s.topics {
		c.topics[k] = v
	}
	for k, v := range s.commitments {
		c.commitments[k] = v
	}
	for k, v := range s.escrows {
		c.escrows[k] = v
	}
	for k, v := range s.settlements {
		c.settlements[k] = v
	}
	copy(c.audit, s.audit)
	return c
}

// Store is an in-memory database implementing domain.UnitOfWork and all of
// the domain store interfaces.
type Store struct {
	mu    sync.Mutex
	state *state
}

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{state: newState()}
}

// Do runs fn against a transactional copy of the store. The copy replaces
// the live state only when fn returns nil, so a failed instruction leaves
// no partial effects. The store mutex serializes transactions, mirroring
// the ledger's exclusive-write locking.
func (s *Store) Do(ctx context.Context, fn func(domain.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	views := domain.Stores{
		Topics:      &topicView{tx},
		Commitments: &commitmentView{tx},
		Escrows:     &escrowView{tx},
		Settlements: &settlementView{tx},
		Audit:       &auditView{tx},
	}
	if err := fn(views); err != nil {
		return err
	}
	s.state = tx
	return nil
}

// Compile-time interface check.
var _ domain.UnitOfWork = (*Store)(nil)

type topicView struct{ st *state }

func (v *topicView) Create(_ context.Context, t domain.Topic) error {
	if _, ok := v.st.topics[t.TopicID]; ok {
		return domain.ErrAlreadyExists
	}
	v.st.topics[t.TopicID] = t
	return nil
}

func (v *topicView) Get(_ context.Context, topicID uint64) (domain.Topic, error) {
	t, ok := v.st.topics[topicID]
	if !ok {
		return domain.Topic{}, domain.ErrNotFound
	}
	return t, nil
}

func (v *topicView) Update(_ context.Context, t domain.Topic) error {
	if _, ok := v.st.topics[t.TopicID]; !ok {
		return domain.ErrNotFound
	}
	v.st.topics[t.TopicID] = t
	return nil
}

func (v *topicView) List(_ context.Context, opts domain.ListOpts) ([]domain.Topic, error) {
	var topics []domain.Topic
	for _, t := range v.st.topics {
		if opts.Status != nil && t.Status != *opts.Status {
			continue
		}
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		return topics[i].TopicID < topics[j].TopicID
	})
	return paginate(topics, opts), nil
}

func (v *topicView) Count(_ context.Context) (int64, error) {
	return int64(len(v.st.topics)), nil
}

type commitmentView struct{ st *state }

func (v *commitmentView) Create(_ context.Context, c domain.Commitment) error {
	key := commitmentKey{c.TopicID, c.Participant}
	if _, ok := v.st.commitments[key]; ok {
		return domain.ErrAlreadyExists
	}
	v.st.commitments[key] = c
	return nil
}

func (v *commitmentView) Get(_ context.Context, topicID uint64, participant domain.Identity) (domain.Commitment, error) {
	c, ok := v.st.commitments[commitmentKey{topicID, participant}]
	if !ok {
		return domain.Commitment{}, domain.ErrNotFound
	}
	return c, nil
}

func (v *commitmentView) Update(_ context.Context, c domain.Commitment) error {
	key := commitmentKey{c.TopicID, c.Participant}
	if _, ok := v.st.commitments[key]; !ok {
		return domain.ErrNotFound
	}
	v.st.commitments[key] = c
	return nil
}

func (v *commitmentView) ListByTopic(_ context.Context, topicID uint64) ([]domain.Commitment, error) {
	var cs []domain.Commitment
	for key, c := range v.st.commitments {
		if key.topicID == topicID {
			cs = append(cs, c)
		}
	}
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].SubmitOrder < cs[j].SubmitOrder
	})
	return cs, nil
}

type escrowView struct{ st *state }

func (v *escrowView) Create(_ context.Context, e domain.Escrow) error {
	if _, ok := v.st.escrows[e.TopicID]; ok {
		return domain.ErrAlreadyExists
	}
	v.st.escrows[e.TopicID] = e
	return nil
}

func (v *escrowView) Get(_ context.Context, topicID uint64) (domain.Escrow, error) {
	e, ok := v.st.escrows[topicID]
	if !ok {
		return domain.Escrow{}, domain.ErrNotFound
	}
	return e, nil
}

func (v *escrowView) Update(_ context.Context, e domain.Escrow) error {
	if _, ok := v.st.escrows[e.TopicID]; !ok {
		return domain.ErrNotFound
	}
	v.st.escrows[e.TopicID] = e
	return nil
}

type settlementView struct{ st *state }

func (v *settlementView) Create(_ context.Context, rec domain.Settlement) error {
	if _, ok := v.st.settlements[rec.TopicID]; ok {
		return domain.ErrAlreadyExists
	}
	v.st.settlements[rec.TopicID] = rec
	return nil
}

func (v *settlementView) Get(_ context.Context, topicID uint64) (domain.Settlement, error) {
	rec, ok := v.st.settlements[topicID]
	if !ok {
		return domain.Settlement{}, domain.ErrNotFound
	}
	return rec, nil
}

type auditView struct{ st *state }

func (v *auditView) Log(_ context.Context, event string, detail map[string]any) error {
	entry := domain.AuditEntry{
		ID:        v.st.nextAuditID,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	v.st.nextAuditID++
	v.st.audit = append(v.st.audit, entry)
	return nil
}

// List returns audit entries newest first, matching the SQL store.
func (v *auditView) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	entries := make([]domain.AuditEntry, len(v.st.audit))
	for i, e := range v.st.audit {
		entries[len(entries)-1-i] = e
	}
	return paginate(entries, opts), nil
}

func paginate[T any](items []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
