// Package service implements the topic lifecycle state machine. Every
// state-changing instruction runs under the topic's distributed lock and a
// store transaction, so a call either commits all of its record mutations
// and escrow movements together or leaves state untouched.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/worthlabs/worthhub/internal/commitment"
	"github.com/worthlabs/worthhub/internal/domain"
	"github.com/worthlabs/worthhub/internal/fixed"
	"github.com/worthlabs/worthhub/internal/notify"
	"github.com/worthlabs/worthhub/internal/settle"
)

// DefaultEscrowReserve is the platform-mandated minimum balance an escrow
// account retains after settlement.
const DefaultEscrowReserve uint64 = 890_880

// defaultLockTTL bounds how long a crashed instruction can hold a topic
// lock before it expires.
const defaultLockTTL = 10 * time.Second

// TopicServiceDeps bundles the dependencies of the TopicService. UoW and
// Clock are required; the rest are optional and skipped when nil.
type TopicServiceDeps struct {
	UoW      domain.UnitOfWork
	Clock    domain.Clock
	Locks    domain.LockManager
	Cache    domain.TopicCache
	Bus      domain.SignalBus
	Notifier *notify.Notifier
	Archiver domain.Archiver
}

// TopicServiceConfig carries tunables for the service.
type TopicServiceConfig struct {
	// EscrowReserve is recorded on every new escrow and retained at
	// settlement. Zero means DefaultEscrowReserve.
	EscrowReserve uint64
	// LockTTL is the expiry on per-topic instruction locks. Zero means the
	// package default.
	LockTTL time.Duration
}

// TopicService owns topic phase transitions and validates every instruction
// against the current phase and deadlines.
type TopicService struct {
	uow      domain.UnitOfWork
	clock    domain.Clock
	locks    domain.LockManager
	cache    domain.TopicCache
	bus      domain.SignalBus
	notifier *notify.Notifier
	archiver domain.Archiver
	reserve  uint64
	lockTTL  time.Duration
	logger   *slog.Logger
}

// NewTopicService creates a TopicService.
func NewTopicService(deps TopicServiceDeps, cfg TopicServiceConfig, logger *slog.Logger) *TopicService {
	reserve := cfg.EscrowReserve
	if reserve == 0 {
		reserve = DefaultEscrowReserve
	}
	ttl := cfg.LockTTL
	if ttl == 0 {
		ttl = defaultLockTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &TopicService{
		uow:      deps.UoW,
		clock:    clock,
		locks:    deps.Locks,
		cache:    deps.Cache,
		bus:      deps.Bus,
		notifier: deps.Notifier,
		archiver: deps.Archiver,
		reserve:  reserve,
		lockTTL:  ttl,
		logger:   logger.With(slog.String("component", "topic_service")),
	}
}

// CreateTopicParams are the caller-supplied fields for a new topic.
type CreateTopicParams struct {
	TopicID        uint64
	Creator        domain.Identity
	TruthAuthority domain.Identity
	Description    string
	Symbol         string
	CommitDeadline int64
	RevealDeadline int64
	MinStake       uint64
}

// CreateTopic opens a new topic and its paired escrow account. Deadlines
// must both be strictly in the future with the commit deadline before the
// reveal deadline.
func (s *TopicService) CreateTopic(ctx context.Context, p CreateTopicParams) (domain.Topic, error) {
	if len(p.Description) > domain.MaxDescriptionLen {
		return domain.Topic{}, domain.ErrDescriptionTooLong
	}
	if len(p.Symbol) > domain.MaxSymbolLen {
		return domain.Topic{}, domain.ErrSymbolTooLong
	}

	now := s.clock.Now()
	if p.CommitDeadline <= now.Unix() || p.RevealDeadline <= p.CommitDeadline {
		return domain.Topic{}, domain.ErrInvalidDeadlines
	}

	topic := domain.Topic{
		TopicID:        p.TopicID,
		Creator:        p.Creator,
		TruthAuthority: p.TruthAuthority,
		Description:    p.Description,
		Symbol:         p.Symbol,
		CommitDeadline: p.CommitDeadline,
		RevealDeadline: p.RevealDeadline,
		MinStake:       p.MinStake,
		Status:         domain.TopicStatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	escrow := domain.Escrow{
		Address:   domain.EscrowAddress(topic.Address()),
		TopicID:   p.TopicID,
		Reserve:   s.reserve,
		UpdatedAt: now,
	}

	unlock, err := s.lockTopic(ctx, p.TopicID)
	if err != nil {
		return domain.Topic{}, err
	}
	defer unlock()

	err = s.uow.Do(ctx, func(st domain.Stores) error {
		if err := st.Topics.Create(ctx, topic); err != nil {
			return fmt.Errorf("topic_service: create topic %d: %w", p.TopicID, err)
		}
		if err := st.Escrows.Create(ctx, escrow); err != nil {
			return fmt.Errorf("topic_service: create escrow for topic %d: %w", p.TopicID, err)
		}
		return s.audit(ctx, st, domain.EventTopicCreated, map[string]any{
			"topic_id": p.TopicID,
			"symbol":   p.Symbol,
			"creator":  p.Creator.Hex(),
		})
	})
	if err != nil {
		return domain.Topic{}, err
	}

	s.logger.InfoContext(ctx, "topic created",
		slog.Uint64("topic_id", p.TopicID),
		slog.String("symbol", p.Symbol),
	)
	s.publish(ctx, domain.Event{
		Type:    domain.EventTopicCreated,
		TopicID: p.TopicID,
		Symbol:  p.Symbol,
		Status:  domain.TopicStatusOpen,
		At:      now,
	})
	return topic, nil
}

// Commit records a participant's hash-locked prediction and deposits the
// stake into escrow. Valid only while the topic is Open and before the
// commit deadline.
func (s *TopicService) Commit(ctx context.Context, topicID uint64, participant domain.Identity, hash domain.Hash, stake uint64) (domain.Commitment, error) {
	unlock, err := s.lockTopic(ctx, topicID)
	if err != nil {
		return domain.Commitment{}, err
	}
	defer unlock()

	now := s.clock.Now()
	var created domain.Commitment
	err = s.uow.Do(ctx, func(st domain.Stores) error {
		topic, err := st.Topics.Get(ctx, topicID)
		if err != nil {
			return fmt.Errorf("topic_service: commit: %w", err)
		}
		if topic.Status != domain.TopicStatusOpen || now.Unix() >= topic.CommitDeadline {
			return domain.ErrCommitPhaseEnded
		}
		if stake == 0 {
			return domain.ErrZeroStake
		}
		if stake < topic.MinStake {
			return domain.ErrStakeBelowMinimum
		}

		created = domain.Commitment{
			TopicID:        topicID,
			TopicRef:       topic.Address(),
			Participant:    participant,
			CommitmentHash: hash,
			StakeAmount:    stake,
			SubmitOrder:    topic.CommitmentCount,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := st.Commitments.Create(ctx, created); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return domain.ErrDuplicateCommitment
			}
			return fmt.Errorf("topic_service: create commitment: %w", err)
		}

		escrow, err := st.Escrows.Get(ctx, topicID)
		if err != nil {
			return fmt.Errorf("topic_service: commit: load escrow: %w", err)
		}
		if err := escrow.Deposit(stake); err != nil {
			return err
		}
		escrow.UpdatedAt = now
		if err := st.Escrows.Update(ctx, escrow); err != nil {
			return fmt.Errorf("topic_service: commit: update escrow: %w", err)
		}

		if topic.TotalStake+stake < topic.TotalStake {
			return domain.ErrArithmeticOverflow
		}
		topic.TotalStake += stake
		topic.CommitmentCount++
		topic.UpdatedAt = now
		if err := st.Topics.Update(ctx, topic); err != nil {
			return fmt.Errorf("topic_service: commit: update topic: %w", err)
		}

		return s.audit(ctx, st, domain.EventCommitted, map[string]any{
			"topic_id":     topicID,
			"participant":  participant.Hex(),
			"stake":        stake,
			"submit_order": created.SubmitOrder,
		})
	})
	if err != nil {
		return domain.Commitment{}, err
	}

	s.invalidate(ctx, topicID)
	s.publish(ctx, domain.Event{
		Type:        domain.EventCommitted,
		TopicID:     topicID,
		Status:      domain.TopicStatusOpen,
		Participant: participant,
		At:          now,
	})
	return created, nil
}

// Reveal discloses a participant's prediction and salt. The pair must hash
// to the stored commitment; any mismatch leaves state untouched. The first
// successful reveal flips the topic from Open to Revealing.
func (s *TopicService) Reveal(ctx context.Context, topicID uint64, participant domain.Identity, prediction int64, salt domain.Hash) (domain.Commitment, error) {
	unlock, err := s.lockTopic(ctx, topicID)
	if err != nil {
		return domain.Commitment{}, err
	}
	defer unlock()

	now := s.clock.Now()
	var revealed domain.Commitment
	var status domain.TopicStatus
	err = s.uow.Do(ctx, func(st domain.Stores) error {
		topic, err := st.Topics.Get(ctx, topicID)
		if err != nil {
			return fmt.Errorf("topic_service: reveal: %w", err)
		}
		if topic.Status != domain.TopicStatusOpen && topic.Status != domain.TopicStatusRevealing {
			return domain.ErrInvalidTopicState
		}
		if now.Unix() < topic.CommitDeadline {
			return domain.ErrCommitPhaseNotEnded
		}
		if now.Unix() >= topic.RevealDeadline {
			return domain.ErrRevealPhaseEnded
		}

		c, err := st.Commitments.Get(ctx, topicID, participant)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUnknownParticipant
			}
			return fmt.Errorf("topic_service: reveal: %w", err)
		}
		if c.Revealed {
			return domain.ErrAlreadyRevealed
		}
		if !commitment.Verify(c.CommitmentHash, prediction, salt, participant) {
			return domain.ErrHashMismatch
		}

		c.PredictionValue = prediction
		c.Salt = salt
		c.Revealed = true
		c.UpdatedAt = now
		if err := st.Commitments.Update(ctx, c); err != nil {
			return fmt.Errorf("topic_service: reveal: update commitment: %w", err)
		}

		topic.RevealCount++
		if topic.Status == domain.TopicStatusOpen {
			topic.Status = domain.TopicStatusRevealing
		}
		topic.UpdatedAt = now
		if err := st.Topics.Update(ctx, topic); err != nil {
			return fmt.Errorf("topic_service: reveal: update topic: %w", err)
		}

		revealed = c
		status = topic.Status
		return s.audit(ctx, st, domain.EventRevealed, map[string]any{
			"topic_id":    topicID,
			"participant": participant.Hex(),
			"prediction":  prediction,
		})
	})
	if err != nil {
		return domain.Commitment{}, err
	}

	s.invalidate(ctx, topicID)
	s.publish(ctx, domain.Event{
		Type:        domain.EventRevealed,
		TopicID:     topicID,
		Status:      status,
		Participant: participant,
		At:          now,
	})
	return revealed, nil
}

// Finalize records the realized truth value. Only the topic's truth
// authority may call it, and only after the reveal deadline while the topic
// is still Open or Revealing.
func (s *TopicService) Finalize(ctx context.Context, topicID uint64, caller domain.Identity, truthValue int64) (domain.Topic, error) {
	unlock, err := s.lockTopic(ctx, topicID)
	if err != nil {
		return domain.Topic{}, err
	}
	defer unlock()

	now := s.clock.Now()
	var finalized domain.Topic
	err = s.uow.Do(ctx, func(st domain.Stores) error {
		topic, err := st.Topics.Get(ctx, topicID)
		if err != nil {
			return fmt.Errorf("topic_service: finalize: %w", err)
		}
		if caller != topic.TruthAuthority {
			return domain.ErrUnauthorizedOracle
		}
		if topic.Status != domain.TopicStatusOpen && topic.Status != domain.TopicStatusRevealing {
			return domain.ErrAlreadyFinalized
		}
		if now.Unix() < topic.RevealDeadline {
			return domain.ErrRevealPhaseNotEnded
		}

		topic.TruthValue = truthValue
		topic.Status = domain.TopicStatusFinalized
		topic.UpdatedAt = now
		if err := st.Topics.Update(ctx, topic); err != nil {
			return fmt.Errorf("topic_service: finalize: update topic: %w", err)
		}

		finalized = topic
		return s.audit(ctx, st, domain.EventFinalized, map[string]any{
			"topic_id":    topicID,
			"truth_value": truthValue,
		})
	})
	if err != nil {
		return domain.Topic{}, err
	}

	s.invalidate(ctx, topicID)
	s.publish(ctx, domain.Event{
		Type:    domain.EventFinalized,
		TopicID: topicID,
		Symbol:  finalized.Symbol,
		Status:  domain.TopicStatusFinalized,
		At:      now,
	})
	s.notify(ctx, domain.EventFinalized,
		fmt.Sprintf("Topic %d finalized", topicID),
		fmt.Sprintf("%s finalized with truth value %s", finalized.Symbol, fixed.Format(truthValue)),
	)
	return finalized, nil
}

// Settle runs the settlement engine over the supplied participant set,
// which must cover every commitment known to the topic, pays out from
// escrow, and moves the topic to its terminal Settled state. Callable at
// most once: re-invocation fails because the status is no longer Finalized.
func (s *TopicService) Settle(ctx context.Context, topicID uint64, caller domain.Identity, participants []domain.Identity) (domain.Settlement, error) {
	unlock, err := s.lockTopic(ctx, topicID)
	if err != nil {
		return domain.Settlement{}, err
	}
	defer unlock()

	now := s.clock.Now()
	var record domain.Settlement
	var symbol string
	err = s.uow.Do(ctx, func(st domain.Stores) error {
		topic, err := st.Topics.Get(ctx, topicID)
		if err != nil {
			return fmt.Errorf("topic_service: settle: %w", err)
		}
		if topic.Status == domain.TopicStatusSettled {
			return domain.ErrAlreadySettled
		}
		if topic.Status != domain.TopicStatusFinalized {
			return domain.ErrInvalidTopicState
		}
		if caller != topic.Creator && caller != topic.TruthAuthority {
			return domain.ErrUnauthorizedAuthority
		}

		commitments, err := st.Commitments.ListByTopic(ctx, topicID)
		if err != nil {
			return fmt.Errorf("topic_service: settle: list commitments: %w", err)
		}
		if err := checkCoverage(commitments, participants); err != nil {
			return err
		}

		escrow, err := st.Escrows.Get(ctx, topicID)
		if err != nil {
			return fmt.Errorf("topic_service: settle: load escrow: %w", err)
		}

		result, err := settle.Compute(topic, commitments, escrow.Reserve)
		if err != nil {
			return err
		}

		byParticipant := make(map[domain.Identity]domain.Commitment, len(commitments))
		for _, c := range commitments {
			byParticipant[c.Participant] = c
		}
		for _, p := range result.Payouts {
			c := byParticipant[p.Participant]
			if c.Settled {
				// Idempotence guard for settlements split across calls:
				// a commitment is paid at most once.
				continue
			}
			if p.Amount > 0 {
				if err := escrow.Withdraw(p.Amount); err != nil {
					return err
				}
			}
			c.Settled = true
			c.PayoutAmount = p.Amount
			c.UpdatedAt = now
			if err := st.Commitments.Update(ctx, c); err != nil {
				return fmt.Errorf("topic_service: settle: update commitment: %w", err)
			}
		}

		escrow.UpdatedAt = now
		if err := st.Escrows.Update(ctx, escrow); err != nil {
			return fmt.Errorf("topic_service: settle: update escrow: %w", err)
		}

		record = domain.Settlement{
			TopicID:       topicID,
			Consensus:     result.Consensus,
			TruthEdge:     result.TruthEdge,
			LoserPool:     result.LoserPool,
			Distributable: result.Distributable,
			TotalPaid:     result.TotalPaid,
			Reserve:       escrow.Reserve,
			SettledAt:     now,
		}
		if err := st.Settlements.Create(ctx, record); err != nil {
			return fmt.Errorf("topic_service: settle: create settlement: %w", err)
		}

		topic.Status = domain.TopicStatusSettled
		topic.UpdatedAt = now
		if err := st.Topics.Update(ctx, topic); err != nil {
			return fmt.Errorf("topic_service: settle: update topic: %w", err)
		}

		symbol = topic.Symbol
		return s.audit(ctx, st, domain.EventSettled, map[string]any{
			"topic_id":   topicID,
			"total_paid": result.TotalPaid,
			"loser_pool": result.LoserPool,
			"consensus":  result.Consensus,
		})
	})
	if err != nil {
		return domain.Settlement{}, err
	}

	s.logger.InfoContext(ctx, "topic settled",
		slog.Uint64("topic_id", topicID),
		slog.Uint64("total_paid", record.TotalPaid),
		slog.Uint64("loser_pool", record.LoserPool),
	)
	s.invalidate(ctx, topicID)
	s.publish(ctx, domain.Event{
		Type:    domain.EventSettled,
		TopicID: topicID,
		Symbol:  symbol,
		Status:  domain.TopicStatusSettled,
		At:      now,
	})
	s.notify(ctx, domain.EventSettled,
		fmt.Sprintf("Topic %d settled", topicID),
		fmt.Sprintf("%s settled: %d paid out, %d forfeited", symbol, record.TotalPaid, record.LoserPool),
	)
	s.archive(ctx, topicID)
	return record, nil
}

// checkCoverage verifies that the supplied participant set matches the
// commitments known to the topic: no unknown participants, no missing ones.
func checkCoverage(commitments []domain.Commitment, participants []domain.Identity) error {
	known := make(map[domain.Identity]bool, len(commitments))
	for _, c := range commitments {
		known[c.Participant] = true
	}
	supplied := make(map[domain.Identity]bool, len(participants))
	for _, p := range participants {
		if !known[p] {
			return domain.ErrUnknownParticipant
		}
		supplied[p] = true
	}
	for _, c := range commitments {
		if !supplied[c.Participant] {
			return domain.ErrPartialSettlement
		}
	}
	return nil
}

func (s *TopicService) lockTopic(ctx context.Context, topicID uint64) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	unlock, err := s.locks.Acquire(ctx, fmt.Sprintf("topic:%d", topicID), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("topic_service: lock topic %d: %w", topicID, err)
	}
	return unlock, nil
}

func (s *TopicService) audit(ctx context.Context, st domain.Stores, event string, detail map[string]any) error {
	if st.Audit == nil {
		return nil
	}
	if err := st.Audit.Log(ctx, event, detail); err != nil {
		return fmt.Errorf("topic_service: audit %s: %w", event, err)
	}
	return nil
}
