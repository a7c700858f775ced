package settle

import (
	"errors"
	"math"
	"testing"

	"github.com/worthlabs/worthhub/internal/domain"
)

const testReserve uint64 = 890_880

func ident(b byte) domain.Identity {
	var id domain.Identity
	id[0] = b
	return id
}

func finalizedTopic(totalStake uint64, truth int64) domain.Topic {
	return domain.Topic{
		TopicID:    1,
		Status:     domain.TopicStatusFinalized,
		TruthValue: truth,
		TotalStake: totalStake,
	}
}

func checkConservation(t *testing.T, res Result, totalStake, reserve uint64) {
	t.Helper()
	var sum uint64
	for _, p := range res.Payouts {
		sum += p.Amount
	}
	if sum != res.TotalPaid {
		t.Errorf("payout sum %d != TotalPaid %d", sum, res.TotalPaid)
	}
	if res.TotalPaid+reserve != totalStake {
		t.Errorf("conservation violated: paid %d + reserve %d != stake %d",
			res.TotalPaid, reserve, totalStake)
	}
}

// Three participants stake 100,000,000 each. A predicts 150.00 and B 155.50,
// both reveal; C never reveals and forfeits. Truth lands at 151.00, below
// the 152.75 consensus, so only A deviated the right way: A collects the
// whole forfeited pool, B gets exactly their stake back, C gets nothing.
func TestComputeThreeParticipantTopic(t *testing.T) {
	topic := finalizedTopic(300_000_000, 151_000_000)
	commitments := []domain.Commitment{
		{Participant: ident(1), StakeAmount: 100_000_000, SubmitOrder: 0, PredictionValue: 150_000_000, Revealed: true},
		{Participant: ident(2), StakeAmount: 100_000_000, SubmitOrder: 1, PredictionValue: 155_500_000, Revealed: true},
		{Participant: ident(3), StakeAmount: 100_000_000, SubmitOrder: 2, Revealed: false},
	}

	res, err := Compute(topic, commitments, testReserve)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if res.Consensus != 152_750_000 {
		t.Errorf("consensus = %d, want 152750000", res.Consensus)
	}
	if res.TruthEdge != -1_750_000 {
		t.Errorf("truth edge = %d, want -1750000", res.TruthEdge)
	}
	if res.LoserPool != 100_000_000 {
		t.Errorf("loser pool = %d, want 100000000", res.LoserPool)
	}
	if res.Distributable != 299_109_120 {
		t.Errorf("distributable = %d, want 299109120", res.Distributable)
	}

	if len(res.Payouts) != 3 {
		t.Fatalf("payouts = %d, want 3", len(res.Payouts))
	}
	a, b, c := res.Payouts[0], res.Payouts[1], res.Payouts[2]
	if a.Amount != 199_109_120 {
		t.Errorf("aligned revealer payout = %d, want 199109120", a.Amount)
	}
	if b.Amount != 100_000_000 {
		t.Errorf("misaligned revealer payout = %d, want exactly stake 100000000", b.Amount)
	}
	if c.Amount != 0 {
		t.Errorf("non-revealer payout = %d, want 0", c.Amount)
	}
	if a.Amount <= b.Amount {
		t.Error("aligned revealer must outrank misaligned revealer")
	}

	checkConservation(t, res, topic.TotalStake, testReserve)
}

// Two aligned revealers with different errors plus one misaligned: the more
// accurate aligned prediction earns the larger pool share, the misaligned one
// gets stake only, the non-revealer zero.
func TestComputePayoutOrdering(t *testing.T) {
	topic := finalizedTopic(400_000_000, 145_000_000)
	commitments := []domain.Commitment{
		{Participant: ident(1), StakeAmount: 100_000_000, SubmitOrder: 0, PredictionValue: 140_000_000, Revealed: true},
		{Participant: ident(2), StakeAmount: 100_000_000, SubmitOrder: 1, PredictionValue: 145_000_000, Revealed: true},
		{Participant: ident(3), StakeAmount: 100_000_000, SubmitOrder: 2, PredictionValue: 160_000_000, Revealed: true},
		{Participant: ident(4), StakeAmount: 100_000_000, SubmitOrder: 3, Revealed: false},
	}

	res, err := Compute(topic, commitments, testReserve)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// consensus = (140 + 145 + 160) / 3 = 148.333333, truth below it.
	if res.Consensus != 148_333_333 {
		t.Errorf("consensus = %d, want 148333333", res.Consensus)
	}

	exact := res.Payouts[1].Amount // revealed truth exactly, aligned
	rough := res.Payouts[0].Amount // aligned but 5.00 off
	wrong := res.Payouts[2].Amount // deviated the wrong way
	if exact <= rough {
		t.Errorf("exact predictor (%d) must outrank rough predictor (%d)", exact, rough)
	}
	if rough <= wrong {
		t.Errorf("aligned predictor (%d) must outrank misaligned predictor (%d)", rough, wrong)
	}
	if wrong != 100_000_000 {
		t.Errorf("misaligned payout = %d, want exactly stake", wrong)
	}
	if res.Payouts[3].Amount != 0 {
		t.Errorf("non-revealer payout = %d, want 0", res.Payouts[3].Amount)
	}

	checkConservation(t, res, topic.TotalStake, testReserve)
}

// truth == consensus, so nobody is directionally aligned. The forfeited pool
// falls back to stake-proportional distribution instead of being stranded.
func TestComputeNoAlignmentFallsBackToStakeShare(t *testing.T) {
	topic := finalizedTopic(300_000_000, 150_000_000)
	commitments := []domain.Commitment{
		{Participant: ident(1), StakeAmount: 100_000_000, SubmitOrder: 0, PredictionValue: 140_000_000, Revealed: true},
		{Participant: ident(2), StakeAmount: 100_000_000, SubmitOrder: 1, PredictionValue: 160_000_000, Revealed: true},
		{Participant: ident(3), StakeAmount: 100_000_000, SubmitOrder: 2, Revealed: false},
	}

	res, err := Compute(topic, commitments, testReserve)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.TruthEdge != 0 {
		t.Fatalf("truth edge = %d, want 0", res.TruthEdge)
	}

	// pool = 300M - reserve - 200M, split evenly between the equal stakes.
	want := uint64(100_000_000 + 49_554_560)
	if res.Payouts[0].Amount != want {
		t.Errorf("payout[0] = %d, want %d", res.Payouts[0].Amount, want)
	}
	if res.Payouts[1].Amount != want {
		t.Errorf("payout[1] = %d, want %d", res.Payouts[1].Amount, want)
	}

	checkConservation(t, res, topic.TotalStake, testReserve)
}

// Nobody revealed: stakes come back pro rata minus the reserve, and any
// truncation remainder lands on the earliest committer.
func TestComputeDegenerateNoReveals(t *testing.T) {
	topic := finalizedTopic(3_000_001, 0)
	commitments := []domain.Commitment{
		{Participant: ident(1), StakeAmount: 1_000_000, SubmitOrder: 0},
		{Participant: ident(2), StakeAmount: 1_000_000, SubmitOrder: 1},
		{Participant: ident(3), StakeAmount: 1_000_001, SubmitOrder: 2},
	}

	res, err := Compute(topic, commitments, testReserve)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Consensus != 0 || res.TruthEdge != 0 {
		t.Error("degenerate settle must not compute consensus")
	}
	if res.LoserPool != topic.TotalStake {
		t.Errorf("loser pool = %d, want the full stake %d", res.LoserPool, topic.TotalStake)
	}

	// distributable = 3000001 - 890880 = 2109121; each share truncates to
	// 703040, leaving 1 unit for the lowest submit order.
	if res.Payouts[0].Amount != 703_041 {
		t.Errorf("payout[0] = %d, want 703041 (share + remainder)", res.Payouts[0].Amount)
	}
	if res.Payouts[1].Amount != 703_040 {
		t.Errorf("payout[1] = %d, want 703040", res.Payouts[1].Amount)
	}
	if res.Payouts[2].Amount != 703_040 {
		t.Errorf("payout[2] = %d, want 703040", res.Payouts[2].Amount)
	}

	checkConservation(t, res, topic.TotalStake, testReserve)
}

// A single committer who reveals the truth exactly: there is no loser pool,
// so the payout is the stake minus only the platform reserve.
func TestComputeSinglePerfectPredictor(t *testing.T) {
	topic := finalizedTopic(10_000_000, 42_000_000)
	commitments := []domain.Commitment{
		{Participant: ident(1), StakeAmount: 10_000_000, SubmitOrder: 0, PredictionValue: 42_000_000, Revealed: true},
	}

	res, err := Compute(topic, commitments, testReserve)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := topic.TotalStake - testReserve
	if res.Payouts[0].Amount != want {
		t.Errorf("payout = %d, want stake minus reserve = %d", res.Payouts[0].Amount, want)
	}

	checkConservation(t, res, topic.TotalStake, testReserve)
}

func TestComputeRejectsPartialCommitmentSet(t *testing.T) {
	topic := finalizedTopic(200_000_000, 0)
	commitments := []domain.Commitment{
		{Participant: ident(1), StakeAmount: 100_000_000, SubmitOrder: 0, Revealed: true},
	}

	_, err := Compute(topic, commitments, testReserve)
	if !errors.Is(err, domain.ErrPartialSettlement) {
		t.Fatalf("err = %v, want ErrPartialSettlement", err)
	}
}

func TestComputeStakeSumOverflow(t *testing.T) {
	topic := finalizedTopic(math.MaxUint64, 0)
	commitments := []domain.Commitment{
		{Participant: ident(1), StakeAmount: math.MaxUint64, SubmitOrder: 0},
		{Participant: ident(2), StakeAmount: 1, SubmitOrder: 1},
	}

	_, err := Compute(topic, commitments, testReserve)
	if !errors.Is(err, domain.ErrArithmeticOverflow) {
		t.Fatalf("err = %v, want ErrArithmeticOverflow", err)
	}
}

// Payouts come back sorted by submit order regardless of input order.
func TestComputePayoutsSortedBySubmitOrder(t *testing.T) {
	topic := finalizedTopic(3_000_000, 0)
	commitments := []domain.Commitment{
		{Participant: ident(3), StakeAmount: 1_000_000, SubmitOrder: 2},
		{Participant: ident(1), StakeAmount: 1_000_000, SubmitOrder: 0},
		{Participant: ident(2), StakeAmount: 1_000_000, SubmitOrder: 1},
	}

	res, err := Compute(topic, commitments, testReserve)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for i, want := range []domain.Identity{ident(1), ident(2), ident(3)} {
		if res.Payouts[i].Participant != want {
			t.Errorf("payout[%d] participant = %v, want %v", i, res.Payouts[i].Participant, want)
		}
	}
}
