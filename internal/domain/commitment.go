package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Hash is a 32-byte opaque value (commitment hashes and salts) that
// round-trips through JSON as 0x-prefixed hex.
type Hash [32]byte

// HashFromHex parses a hex-encoded 32-byte hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Hash{}, fmt.Errorf("domain: parse hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return Hash{}, fmt.Errorf("domain: hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// IsZero reports whether the hash is the all-zero value.
func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalText encodes the hash as 0x-prefixed hex.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

// UnmarshalText decodes a hex hash.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Commitment is one participant's hash-locked pledge on a topic. It is
// created at commit time, mutated once at reveal (prediction value, salt,
// revealed flag) and once at settlement (payout, settled flag), and never
// deleted. SubmitOrder is the zero-based position among all commitments for
// the topic, assigned from the topic's commitment count before increment.
type Commitment struct {
	TopicID         uint64    `json:"topic_id"`
	TopicRef        Address   `json:"topic_ref"`
	Participant     Identity  `json:"participant"`
	CommitmentHash  Hash      `json:"commitment_hash"`
	StakeAmount     uint64    `json:"stake_amount"`
	SubmitOrder     uint32    `json:"submit_order"`
	PredictionValue int64     `json:"prediction_value"`
	Revealed        bool      `json:"revealed"`
	Salt            Hash      `json:"salt"`
	Settled         bool      `json:"settled"`
	PayoutAmount    uint64    `json:"payout_amount"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Address returns the commitment's deterministic record address.
func (c *Commitment) Address() Address {
	return CommitmentAddress(c.TopicRef, c.Participant)
}
