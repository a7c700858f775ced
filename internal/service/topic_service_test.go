package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/worthlabs/worthhub/internal/commitment"
	"github.com/worthlabs/worthhub/internal/domain"
	"github.com/worthlabs/worthhub/internal/store/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func ident(b byte) domain.Identity {
	var id domain.Identity
	id[0] = b
	return id
}

func salt(b byte) domain.Hash {
	var h domain.Hash
	h[0] = b
	return h
}

var (
	creator = ident(0x01)
	oracle  = ident(0x02)
	alice   = ident(0xA1)
	bob     = ident(0xB2)
	carol   = ident(0xC3)
)

func newTestService(t *testing.T) (*TopicService, *memory.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewTopicService(TopicServiceDeps{UoW: store, Clock: clock}, TopicServiceConfig{}, logger)
	return svc, store, clock
}

// openTopic creates topic 1 with a 100s commit window followed by a 100s
// reveal window, relative to the fake clock.
func openTopic(t *testing.T, svc *TopicService, clock *fakeClock, minStake uint64) domain.Topic {
	t.Helper()
	topic, err := svc.CreateTopic(context.Background(), CreateTopicParams{
		TopicID:        1,
		Creator:        creator,
		TruthAuthority: oracle,
		Description:    "realized volatility of SOL/USD over the next hour",
		Symbol:         "SOLVOL",
		CommitDeadline: clock.Now().Unix() + 100,
		RevealDeadline: clock.Now().Unix() + 200,
		MinStake:       minStake,
	})
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	return topic
}

func getTopic(t *testing.T, store *memory.Store, id uint64) domain.Topic {
	t.Helper()
	var topic domain.Topic
	err := store.Do(context.Background(), func(st domain.Stores) error {
		var err error
		topic, err = st.Topics.Get(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatalf("get topic %d: %v", id, err)
	}
	return topic
}

func getCommitment(t *testing.T, store *memory.Store, id uint64, p domain.Identity) domain.Commitment {
	t.Helper()
	var c domain.Commitment
	err := store.Do(context.Background(), func(st domain.Stores) error {
		var err error
		c, err = st.Commitments.Get(context.Background(), id, p)
		return err
	})
	if err != nil {
		t.Fatalf("get commitment: %v", err)
	}
	return c
}

func getEscrow(t *testing.T, store *memory.Store, id uint64) domain.Escrow {
	t.Helper()
	var e domain.Escrow
	err := store.Do(context.Background(), func(st domain.Stores) error {
		var err error
		e, err = st.Escrows.Get(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatalf("get escrow: %v", err)
	}
	return e
}

func TestCreateTopicValidation(t *testing.T) {
	svc, _, clock := newTestService(t)
	now := clock.Now().Unix()
	base := CreateTopicParams{
		TopicID:        1,
		Creator:        creator,
		TruthAuthority: oracle,
		Description:    "desc",
		Symbol:         "SYM",
		CommitDeadline: now + 100,
		RevealDeadline: now + 200,
	}

	cases := []struct {
		name   string
		mutate func(*CreateTopicParams)
		want   error
	}{
		{"description too long", func(p *CreateTopicParams) {
			p.Description = strings.Repeat("x", domain.MaxDescriptionLen+1)
		}, domain.ErrDescriptionTooLong},
		{"symbol too long", func(p *CreateTopicParams) {
			p.Symbol = strings.Repeat("S", domain.MaxSymbolLen+1)
		}, domain.ErrSymbolTooLong},
		{"commit deadline now", func(p *CreateTopicParams) {
			p.CommitDeadline = now
		}, domain.ErrInvalidDeadlines},
		{"commit deadline in past", func(p *CreateTopicParams) {
			p.CommitDeadline = now - 1
		}, domain.ErrInvalidDeadlines},
		{"reveal not after commit", func(p *CreateTopicParams) {
			p.RevealDeadline = p.CommitDeadline
		}, domain.ErrInvalidDeadlines},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			if _, err := svc.CreateTopic(context.Background(), p); !errors.Is(err, tc.want) {
				t.Errorf("CreateTopic error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateTopicOpensEscrow(t *testing.T) {
	svc, store, clock := newTestService(t)
	topic := openTopic(t, svc, clock, 0)

	if topic.Status != domain.TopicStatusOpen {
		t.Errorf("status = %q, want %q", topic.Status, domain.TopicStatusOpen)
	}
	escrow := getEscrow(t, store, topic.TopicID)
	if escrow.Reserve != DefaultEscrowReserve {
		t.Errorf("escrow reserve = %d, want %d", escrow.Reserve, DefaultEscrowReserve)
	}
	if escrow.Balance != 0 {
		t.Errorf("escrow balance = %d, want 0", escrow.Balance)
	}

	_, err := svc.CreateTopic(context.Background(), CreateTopicParams{
		TopicID:        topic.TopicID,
		Creator:        creator,
		TruthAuthority: oracle,
		Symbol:         "DUP",
		CommitDeadline: clock.Now().Unix() + 100,
		RevealDeadline: clock.Now().Unix() + 200,
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate CreateTopic error = %v, want ErrAlreadyExists", err)
	}
}

func TestCommit(t *testing.T) {
	svc, store, clock := newTestService(t)
	topic := openTopic(t, svc, clock, 1_000_000)
	ctx := context.Background()
	hash := commitment.Compute(150_000_000, salt(1), alice)

	first, err := svc.Commit(ctx, topic.TopicID, alice, hash, 100_000_000)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if first.SubmitOrder != 0 {
		t.Errorf("first submit order = %d, want 0", first.SubmitOrder)
	}
	second, err := svc.Commit(ctx, topic.TopicID, bob, commitment.Compute(1, salt(2), bob), 50_000_000)
	if err != nil {
		t.Fatalf("Commit bob: %v", err)
	}
	if second.SubmitOrder != 1 {
		t.Errorf("second submit order = %d, want 1", second.SubmitOrder)
	}

	got := getTopic(t, store, topic.TopicID)
	if got.TotalStake != 150_000_000 {
		t.Errorf("total stake = %d, want 150_000_000", got.TotalStake)
	}
	if got.CommitmentCount != 2 {
		t.Errorf("commitment count = %d, want 2", got.CommitmentCount)
	}
	if escrow := getEscrow(t, store, topic.TopicID); escrow.Balance != 150_000_000 {
		t.Errorf("escrow balance = %d, want 150_000_000", escrow.Balance)
	}

	if _, err := svc.Commit(ctx, topic.TopicID, alice, hash, 100_000_000); !errors.Is(err, domain.ErrDuplicateCommitment) {
		t.Errorf("duplicate commit error = %v, want ErrDuplicateCommitment", err)
	}
	if _, err := svc.Commit(ctx, topic.TopicID, carol, hash, 0); !errors.Is(err, domain.ErrZeroStake) {
		t.Errorf("zero stake error = %v, want ErrZeroStake", err)
	}
	if _, err := svc.Commit(ctx, topic.TopicID, carol, hash, 999_999); !errors.Is(err, domain.ErrStakeBelowMinimum) {
		t.Errorf("low stake error = %v, want ErrStakeBelowMinimum", err)
	}
	if _, err := svc.Commit(ctx, 404, carol, hash, 100_000_000); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown topic error = %v, want ErrNotFound", err)
	}

	clock.advance(101 * time.Second)
	if _, err := svc.Commit(ctx, topic.TopicID, carol, hash, 100_000_000); !errors.Is(err, domain.ErrCommitPhaseEnded) {
		t.Errorf("late commit error = %v, want ErrCommitPhaseEnded", err)
	}
}

func TestReveal(t *testing.T) {
	svc, store, clock := newTestService(t)
	topic := openTopic(t, svc, clock, 0)
	ctx := context.Background()

	const prediction = int64(150_000_000)
	aliceSalt := salt(7)
	hash := commitment.Compute(prediction, aliceSalt, alice)
	if _, err := svc.Commit(ctx, topic.TopicID, alice, hash, 100_000_000); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := svc.Reveal(ctx, topic.TopicID, alice, prediction, aliceSalt); !errors.Is(err, domain.ErrCommitPhaseNotEnded) {
		t.Errorf("early reveal error = %v, want ErrCommitPhaseNotEnded", err)
	}

	clock.advance(101 * time.Second)

	if _, err := svc.Reveal(ctx, topic.TopicID, alice, prediction, salt(8)); !errors.Is(err, domain.ErrHashMismatch) {
		t.Errorf("wrong salt error = %v, want ErrHashMismatch", err)
	}
	if c := getCommitment(t, store, topic.TopicID, alice); c.Revealed {
		t.Error("failed reveal mutated the commitment")
	}
	if _, err := svc.Reveal(ctx, topic.TopicID, bob, prediction, aliceSalt); !errors.Is(err, domain.ErrUnknownParticipant) {
		t.Errorf("unknown participant error = %v, want ErrUnknownParticipant", err)
	}

	revealed, err := svc.Reveal(ctx, topic.TopicID, alice, prediction, aliceSalt)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if !revealed.Revealed || revealed.PredictionValue != prediction || revealed.Salt != aliceSalt {
		t.Errorf("revealed commitment = %+v", revealed)
	}
	got := getTopic(t, store, topic.TopicID)
	if got.Status != domain.TopicStatusRevealing {
		t.Errorf("status after first reveal = %q, want %q", got.Status, domain.TopicStatusRevealing)
	}
	if got.RevealCount != 1 {
		t.Errorf("reveal count = %d, want 1", got.RevealCount)
	}

	if _, err := svc.Reveal(ctx, topic.TopicID, alice, prediction, aliceSalt); !errors.Is(err, domain.ErrAlreadyRevealed) {
		t.Errorf("double reveal error = %v, want ErrAlreadyRevealed", err)
	}

	clock.advance(100 * time.Second)
	if _, err := svc.Reveal(ctx, topic.TopicID, alice, prediction, aliceSalt); !errors.Is(err, domain.ErrRevealPhaseEnded) {
		t.Errorf("late reveal error = %v, want ErrRevealPhaseEnded", err)
	}
}

func TestFinalize(t *testing.T) {
	svc, _, clock := newTestService(t)
	topic := openTopic(t, svc, clock, 0)
	ctx := context.Background()

	if _, err := svc.Finalize(ctx, topic.TopicID, creator, 1); !errors.Is(err, domain.ErrUnauthorizedOracle) {
		t.Errorf("non-oracle finalize error = %v, want ErrUnauthorizedOracle", err)
	}
	if _, err := svc.Finalize(ctx, topic.TopicID, oracle, 1); !errors.Is(err, domain.ErrRevealPhaseNotEnded) {
		t.Errorf("early finalize error = %v, want ErrRevealPhaseNotEnded", err)
	}

	clock.advance(201 * time.Second)
	finalized, err := svc.Finalize(ctx, topic.TopicID, oracle, 151_000_000)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if finalized.Status != domain.TopicStatusFinalized {
		t.Errorf("status = %q, want %q", finalized.Status, domain.TopicStatusFinalized)
	}
	if finalized.TruthValue != 151_000_000 {
		t.Errorf("truth value = %d, want 151_000_000", finalized.TruthValue)
	}

	if _, err := svc.Finalize(ctx, topic.TopicID, oracle, 2); !errors.Is(err, domain.ErrAlreadyFinalized) {
		t.Errorf("refinalize error = %v, want ErrAlreadyFinalized", err)
	}
	// No reveals can land once the topic left the Open/Revealing states.
	if _, err := svc.Reveal(ctx, topic.TopicID, alice, 1, salt(1)); !errors.Is(err, domain.ErrInvalidTopicState) {
		t.Errorf("reveal after finalize error = %v, want ErrInvalidTopicState", err)
	}
}

func TestSettleLifecycle(t *testing.T) {
	svc, store, clock := newTestService(t)
	topic := openTopic(t, svc, clock, 0)
	ctx := context.Background()

	const stake = uint64(100_000_000)
	aliceSalt, bobSalt := salt(1), salt(2)
	commits := []struct {
		who  domain.Identity
		pred int64
		s    domain.Hash
	}{
		{alice, 150_000_000, aliceSalt},
		{bob, 155_500_000, bobSalt},
		{carol, 140_000_000, salt(3)},
	}
	for _, c := range commits {
		if _, err := svc.Commit(ctx, topic.TopicID, c.who, commitment.Compute(c.pred, c.s, c.who), stake); err != nil {
			t.Fatalf("Commit %x: %v", c.who[0], err)
		}
	}

	clock.advance(101 * time.Second)
	if _, err := svc.Reveal(ctx, topic.TopicID, alice, 150_000_000, aliceSalt); err != nil {
		t.Fatalf("Reveal alice: %v", err)
	}
	if _, err := svc.Reveal(ctx, topic.TopicID, bob, 155_500_000, bobSalt); err != nil {
		t.Fatalf("Reveal bob: %v", err)
	}
	// Carol never reveals; her stake becomes the loser pool.

	all := []domain.Identity{alice, bob, carol}
	if _, err := svc.Settle(ctx, topic.TopicID, creator, all); !errors.Is(err, domain.ErrInvalidTopicState) {
		t.Errorf("settle before finalize error = %v, want ErrInvalidTopicState", err)
	}

	clock.advance(100 * time.Second)
	if _, err := svc.Finalize(ctx, topic.TopicID, oracle, 151_000_000); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if _, err := svc.Settle(ctx, topic.TopicID, alice, all); !errors.Is(err, domain.ErrUnauthorizedAuthority) {
		t.Errorf("unauthorized settle error = %v, want ErrUnauthorizedAuthority", err)
	}
	if _, err := svc.Settle(ctx, topic.TopicID, creator, []domain.Identity{alice, bob, ident(0xFF)}); !errors.Is(err, domain.ErrUnknownParticipant) {
		t.Errorf("unknown participant error = %v, want ErrUnknownParticipant", err)
	}
	if _, err := svc.Settle(ctx, topic.TopicID, creator, []domain.Identity{alice, bob}); !errors.Is(err, domain.ErrPartialSettlement) {
		t.Errorf("partial set error = %v, want ErrPartialSettlement", err)
	}

	record, err := svc.Settle(ctx, topic.TopicID, creator, all)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if record.Consensus != 152_750_000 {
		t.Errorf("consensus = %d, want 152_750_000", record.Consensus)
	}
	if record.LoserPool != stake {
		t.Errorf("loser pool = %d, want %d", record.LoserPool, stake)
	}
	wantPaid := 3*stake - DefaultEscrowReserve
	if record.TotalPaid != wantPaid {
		t.Errorf("total paid = %d, want %d", record.TotalPaid, wantPaid)
	}

	// Alice was the only aligned revealer: her stake back plus the entire
	// distributable bonus pool. Bob revealed but misaligned: exact refund.
	if c := getCommitment(t, store, topic.TopicID, alice); !c.Settled || c.PayoutAmount != 199_109_120 {
		t.Errorf("alice payout = %d (settled=%v), want 199_109_120", c.PayoutAmount, c.Settled)
	}
	if c := getCommitment(t, store, topic.TopicID, bob); !c.Settled || c.PayoutAmount != stake {
		t.Errorf("bob payout = %d (settled=%v), want %d", c.PayoutAmount, c.Settled, stake)
	}
	if c := getCommitment(t, store, topic.TopicID, carol); !c.Settled || c.PayoutAmount != 0 {
		t.Errorf("carol payout = %d (settled=%v), want 0", c.PayoutAmount, c.Settled)
	}

	escrow := getEscrow(t, store, topic.TopicID)
	if escrow.Balance != escrow.Reserve {
		t.Errorf("escrow balance = %d, want reserve %d", escrow.Balance, escrow.Reserve)
	}
	if got := getTopic(t, store, topic.TopicID); got.Status != domain.TopicStatusSettled {
		t.Errorf("status = %q, want %q", got.Status, domain.TopicStatusSettled)
	}

	if _, err := svc.Settle(ctx, topic.TopicID, creator, all); !errors.Is(err, domain.ErrAlreadySettled) {
		t.Errorf("resettle error = %v, want ErrAlreadySettled", err)
	}
}
