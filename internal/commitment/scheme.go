// Package commitment implements the binding, hiding commitment scheme that
// hides predictions until reveal. A commitment is
//
//	keccak256(prediction_value as 8 little-endian bytes || salt || participant)
//
// with a 32-byte salt. The scheme only stores the hash at commit time;
// reveal recomputes it from the disclosed prediction and salt and compares.
// Losing the salt makes the commitment unrevealable, which is equivalent to
// forfeiting the stake.
package commitment

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/worthlabs/worthhub/internal/domain"
)

// Compute returns the commitment hash binding the prediction, salt, and
// participant identity.
func Compute(prediction int64, salt domain.Hash, participant domain.Identity) domain.Hash {
	var predBytes [8]byte
	binary.LittleEndian.PutUint64(predBytes[:], uint64(prediction))

	var h domain.Hash
	copy(h[:], ethcrypto.Keccak256(predBytes[:], salt[:], participant[:]))
	return h
}

// Verify recomputes the commitment hash from the revealed values and
// compares it against the stored hash in constant time.
func Verify(stored domain.Hash, prediction int64, salt domain.Hash, participant domain.Identity) bool {
	computed := Compute(prediction, salt, participant)
	return subtle.ConstantTimeCompare(stored[:], computed[:]) == 1
}

// NewSalt draws a fresh 32-byte salt from the system entropy source. The
// salt is generated and retained off-core by the participant; this helper
// exists for clients and tests.
func NewSalt() (domain.Hash, error) {
	var salt domain.Hash
	if _, err := rand.Read(salt[:]); err != nil {
		return domain.Hash{}, fmt.Errorf("commitment: generate salt: %w", err)
	}
	return salt, nil
}
