package domain

import "time"

// TopicStatus represents the lifecycle state of a topic. Transitions are
// strictly linear: Open -> Revealing -> Finalized -> Settled.
type TopicStatus uint8

const (
	TopicStatusOpen TopicStatus = iota
	TopicStatusRevealing
	TopicStatusFinalized
	TopicStatusSettled
)

// String returns the lowercase name used in logs and API responses.
func (s TopicStatus) String() string {
	switch s {
	case TopicStatusOpen:
		return "open"
	case TopicStatusRevealing:
		return "revealing"
	case TopicStatusFinalized:
		return "finalized"
	case TopicStatusSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s TopicStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status from its name.
func (s *TopicStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "open":
		*s = TopicStatusOpen
	case "revealing":
		*s = TopicStatusRevealing
	case "finalized":
		*s = TopicStatusFinalized
	case "settled":
		*s = TopicStatusSettled
	default:
		return ErrInvalidTopicState
	}
	return nil
}

// Length bounds enforced at topic creation.
const (
	MaxDescriptionLen = 256
	MaxSymbolLen      = 32
)

// Topic is one prediction question. Participants commit hidden predictions
// with a stake while the topic is Open, reveal them during the reveal
// window, and the truth authority finalizes the realized value after the
// reveal deadline. All deadlines are unix seconds compared against the
// clock at call time. TruthValue is fixed-point (scale 1e6) and is only
// meaningful once the topic is Finalized.
type Topic struct {
	TopicID         uint64      `json:"topic_id"`
	Creator         Identity    `json:"creator"`
	TruthAuthority  Identity    `json:"truth_authority"`
	Description     string      `json:"description"`
	Symbol          string      `json:"symbol"`
	CommitDeadline  int64       `json:"commit_deadline"`
	RevealDeadline  int64       `json:"reveal_deadline"`
	MinStake        uint64      `json:"min_stake"`
	Status          TopicStatus `json:"status"`
	TruthValue      int64       `json:"truth_value"`
	TotalStake      uint64      `json:"total_stake"`
	CommitmentCount uint32      `json:"commitment_count"`
	RevealCount     uint32      `json:"reveal_count"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Address returns the topic's deterministic record address.
func (t *Topic) Address() Address {
	return TopicAddress(t.TopicID)
}
