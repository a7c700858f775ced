// Package settle implements the settlement engine: the deterministic payout
// distribution computed once a topic is finalized. Participants who never
// revealed forfeit their stake into the loser pool; every revealer recovers
// their stake and competes for the pool with a score that combines
// prediction accuracy and submission timing, gated by directional agreement
// with the realized outcome relative to the stake-weighted consensus.
//
// The computation is pure integer arithmetic over fixed-point values so
// every observer derives bit-identical payouts.
package settle

import (
	"math/big"
	"sort"

	"github.com/worthlabs/worthhub/internal/domain"
	"github.com/worthlabs/worthhub/internal/fixed"
)

// maxPct caps percentage deviations from consensus at 100x (10000%) so the
// alignment product cannot overflow.
const maxPct = 100 * fixed.Precision

// Result is the full settlement outcome for a topic. Payouts are ordered by
// submit order and cover every commitment, revealed or not. TotalPaid
// always equals Distributable, so TotalPaid + reserve recovers exactly the
// staked value.
type Result struct {
	Consensus     int64
	TruthEdge     int64
	LoserPool     uint64
	Distributable uint64
	TotalPaid     uint64
	Payouts       []domain.Payout
}

// Compute partitions the topic's total stake back to participants. The
// commitment set must be exhaustive: its stakes have to sum to the topic's
// recorded total, otherwise ErrPartialSettlement is returned. reserve is
// the platform minimum retained in escrow after settlement.
func Compute(topic domain.Topic, commitments []domain.Commitment, reserve uint64) (Result, error) {
	ordered := make([]domain.Commitment, len(commitments))
	copy(ordered, commitments)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SubmitOrder < ordered[j].SubmitOrder
	})

	var stakeSum uint64
	var revealedStake uint64
	var loserPool uint64
	consensusNum := new(big.Int)
	for _, c := range ordered {
		next := stakeSum + c.StakeAmount
		if next < stakeSum {
			return Result{}, domain.ErrArithmeticOverflow
		}
		stakeSum = next

		if c.Revealed {
			revealedStake += c.StakeAmount
			term := new(big.Int).Mul(
				big.NewInt(c.PredictionValue),
				new(big.Int).SetUint64(c.StakeAmount),
			)
			consensusNum.Add(consensusNum, term)
		} else {
			loserPool += c.StakeAmount
		}
	}
	if stakeSum != topic.TotalStake {
		return Result{}, domain.ErrPartialSettlement
	}

	distributable := topic.TotalStake
	if reserve < distributable {
		distributable -= reserve
	} else {
		distributable = 0
	}

	res := Result{
		LoserPool:     loserPool,
		Distributable: distributable,
		Payouts:       make([]domain.Payout, 0, len(ordered)),
	}

	// Degenerate settle: nobody revealed, so the distributable value goes
	// back to stakers pro rata and no scores are computed.
	if revealedStake == 0 {
		var paid uint64
		for _, c := range ordered {
			amount := uint64(0)
			if topic.TotalStake > 0 {
				amount = fixed.MulDiv(distributable, c.StakeAmount, topic.TotalStake)
			}
			paid += amount
			res.Payouts = append(res.Payouts, domain.Payout{
				Participant: c.Participant,
				Amount:      amount,
			})
		}
		if rem := distributable - paid; rem > 0 && len(res.Payouts) > 0 {
			res.Payouts[0].Amount += rem
			paid += rem
		}
		res.TotalPaid = paid
		return res, nil
	}

	// Stake-weighted consensus over revealed predictions, truncating.
	consensus := new(big.Int).Quo(consensusNum, new(big.Int).SetUint64(revealedStake)).Int64()
	truthEdge := topic.TruthValue - consensus
	res.Consensus = consensus
	res.TruthEdge = truthEdge

	// Score each revealer with the consensus-deviation-weighted formula:
	// the percentage deviation from consensus times the truth's percentage
	// deviation gates and scales the bonus, so only predictions that
	// deviated the same way the truth did earn anything, and bold correct
	// deviations earn more. Accuracy and time decay set the rest of the
	// magnitude. Intermediates exceed 64 bits, hence big.Int.
	absConsensus := new(big.Int).Abs(big.NewInt(consensus))
	if absConsensus.Sign() == 0 {
		absConsensus.SetInt64(1)
	}
	truthEdgePct := deviationPct(big.NewInt(topic.TruthValue), big.NewInt(consensus), absConsensus)

	totalScore := new(big.Int)
	scores := make([]*big.Int, len(ordered))
	for i, c := range ordered {
		if !c.Revealed {
			continue
		}
		edgePct := deviationPct(big.NewInt(c.PredictionValue), big.NewInt(consensus), absConsensus)
		alignment := edgePct * truthEdgePct
		if alignment <= 0 {
			continue
		}
		scores[i] = score(alignment, topic.TruthValue, c.PredictionValue, c.SubmitOrder)
		totalScore.Add(totalScore, scores[i])
	}

	firstRevealed := -1
	for i, c := range ordered {
		if c.Revealed {
			firstRevealed = i
			break
		}
	}

	var paid uint64
	payoutAmounts := make([]uint64, len(ordered))
	if distributable >= revealedStake {
		// Forfeited stake funds the bonus pool after the reserve is taken
		// out. When no revealer is directionally aligned the pool falls
		// back to stake-proportional distribution so it is never stranded.
		pool := distributable - revealedStake
		for i, c := range ordered {
			if !c.Revealed {
				continue
			}
			bonus := uint64(0)
			if pool > 0 {
				if totalScore.Sign() > 0 {
					if scores[i] != nil {
						b := new(big.Int).Mul(new(big.Int).SetUint64(pool), scores[i])
						b.Quo(b, totalScore)
						bonus = b.Uint64()
					}
				} else {
					bonus = fixed.MulDiv(pool, c.StakeAmount, revealedStake)
				}
			}
			payoutAmounts[i] = c.StakeAmount + bonus
			paid += payoutAmounts[i]
		}
		// Truncating division leaks at most a few units; hand the
		// remainder to the earliest revealer so no value is stranded.
		if rem := distributable - paid; rem > 0 {
			payoutAmounts[firstRevealed] += rem
			paid += rem
		}
	} else {
		// The reserve exceeds the forfeited stake, so the shortfall comes
		// out of revealer stakes pro rata.
		deficit := revealedStake - distributable
		for i, c := range ordered {
			if !c.Revealed {
				continue
			}
			cut := fixed.MulDiv(deficit, c.StakeAmount, revealedStake)
			payoutAmounts[i] = c.StakeAmount - cut
			paid += payoutAmounts[i]
		}
		if extra := paid - distributable; extra > 0 {
			if payoutAmounts[firstRevealed] < extra {
				return Result{}, domain.ErrArithmeticOverflow
			}
			payoutAmounts[firstRevealed] -= extra
			paid -= extra
		}
	}

	for i, c := range ordered {
		res.Payouts = append(res.Payouts, domain.Payout{
			Participant: c.Participant,
			Amount:      payoutAmounts[i],
			Revealed:    c.Revealed,
		})
	}
	res.TotalPaid = paid
	if paid != distributable {
		return Result{}, domain.ErrArithmeticOverflow
	}
	return res, nil
}

// deviationPct returns (v - consensus) * Precision / |consensus|, clamped to
// [-maxPct, maxPct]. The clamp keeps the alignment product within int64.
func deviationPct(v, consensus, absConsensus *big.Int) int64 {
	n := new(big.Int).Sub(v, consensus)
	n.Mul(n, big.NewInt(fixed.Precision))
	n.Quo(n, absConsensus)
	if !n.IsInt64() {
		if n.Sign() > 0 {
			return maxPct
		}
		return -maxPct
	}
	pct := n.Int64()
	if pct > maxPct {
		return maxPct
	}
	if pct < -maxPct {
		return -maxPct
	}
	return pct
}

// score scales the positive alignment product by the accuracy weight
// W_e = P²/(|truth-pred|+1) and the time-decay weight T_f = P²/ln(order+e):
//
//	score = alignment × W_e / P × T_f / P
func score(alignment, truth, prediction int64, submitOrder uint32) *big.Int {
	errAbs := new(big.Int).SetUint64(fixed.AbsDiff(truth, prediction))
	errAbs.Add(errAbs, big.NewInt(1))

	p := big.NewInt(fixed.Precision)
	p2 := new(big.Int).Mul(p, p)

	we := new(big.Int).Quo(p2, errAbs)
	tf := new(big.Int).Quo(p2, new(big.Int).SetUint64(fixed.Ln(submitOrder)))

	s := big.NewInt(alignment)
	s.Mul(s, we)
	s.Quo(s, p)
	s.Mul(s, tf)
	s.Quo(s, p)
	return s
}
