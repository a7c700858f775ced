package domain

import "time"

// Payout is one participant's settlement outcome: the amount withdrawn from
// escrow on their behalf.
type Payout struct {
	Participant Identity `json:"participant"`
	Amount      uint64   `json:"amount"`
	Revealed    bool     `json:"revealed"`
}

// Settlement records the outcome of the one-shot settlement of a topic.
// Consensus and TruthEdge are fixed-point (scale 1e6). The conservation
// invariant TotalPaid + Reserve == Topic.TotalStake holds for every row.
type Settlement struct {
	TopicID       uint64    `json:"topic_id"`
	Consensus     int64     `json:"consensus"`
	TruthEdge     int64     `json:"truth_edge"`
	LoserPool     uint64    `json:"loser_pool"`
	Distributable uint64    `json:"distributable"`
	TotalPaid     uint64    `json:"total_paid"`
	Reserve       uint64    `json:"reserve"`
	SettledAt     time.Time `json:"settled_at"`
}
