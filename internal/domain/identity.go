package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Identity is a 32-byte participant or authority key, the ledger-level
// account identifier for every actor interacting with a topic.
type Identity [32]byte

// Address is a 32-byte deterministic record address. Topics, escrows, and
// commitments each derive their address from fixed seeds, so record
// uniqueness (one commitment per participant per topic) follows from
// address uniqueness rather than a separate index.
type Address [32]byte

// IdentityFromHex parses a hex-encoded identity, with or without the 0x
// prefix.
func IdentityFromHex(s string) (Identity, error) {
	var id Identity
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Identity{}, fmt.Errorf("domain: parse identity %q: %w", s, err)
	}
	if len(b) != len(id) {
		return Identity{}, fmt.Errorf("domain: identity must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Hex returns the 0x-prefixed hex encoding of the identity.
func (id Identity) Hex() string { return "0x" + hex.EncodeToString(id[:]) }

// String implements fmt.Stringer.
func (id Identity) String() string { return id.Hex() }

// IsZero reports whether the identity is the all-zero value.
func (id Identity) IsZero() bool { return id == Identity{} }

// MarshalText encodes the identity as 0x-prefixed hex for JSON and map keys.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText decodes a hex identity.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := IdentityFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Hex returns the 0x-prefixed hex encoding of the address.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// MarshalText encodes the address as 0x-prefixed hex.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText decodes a hex address.
func (a *Address) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil || len(b) != len(a) {
		return fmt.Errorf("domain: invalid address %q", string(text))
	}
	copy(a[:], b)
	return nil
}

// Seed prefixes for deterministic record addressing.
var (
	topicSeed      = []byte("topic")
	vaultSeed      = []byte("vault")
	commitmentSeed = []byte("commitment")
)

// TopicAddress derives the address of a topic from its numeric ID:
// keccak256("topic" || topic_id as 8 little-endian bytes).
func TopicAddress(topicID uint64) Address {
	var idBytes [8]byte
	binary.LittleEndian.PutUint64(idBytes[:], topicID)

	var addr Address
	copy(addr[:], ethcrypto.Keccak256(topicSeed, idBytes[:]))
	return addr
}

// EscrowAddress derives the escrow address paired with a topic:
// keccak256("vault" || topic_address).
func EscrowAddress(topic Address) Address {
	var addr Address
	copy(addr[:], ethcrypto.Keccak256(vaultSeed, topic[:]))
	return addr
}

// CommitmentAddress derives the address of a participant's commitment:
// keccak256("commitment" || topic_address || participant).
func CommitmentAddress(topic Address, participant Identity) Address {
	var addr Address
	copy(addr[:], ethcrypto.Keccak256(commitmentSeed, topic[:], participant[:]))
	return addr
}
