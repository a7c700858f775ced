package commitment

import (
	"testing"

	"github.com/worthlabs/worthhub/internal/domain"
)

func TestComputeVerifyRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	participant := domain.Identity{0xAB, 0xCD}

	hash := Compute(151_000_000, salt, participant)
	if hash.IsZero() {
		t.Fatal("commitment hash should not be zero")
	}
	if !Verify(hash, 151_000_000, salt, participant) {
		t.Error("verify should succeed for the committed values")
	}
}

func TestVerifyRejectsWrongPrediction(t *testing.T) {
	salt, _ := NewSalt()
	participant := domain.Identity{1}

	hash := Compute(150_000_000, salt, participant)
	if Verify(hash, 150_000_001, salt, participant) {
		t.Error("verify should fail for a different prediction")
	}
}

func TestVerifyRejectsSaltBitFlip(t *testing.T) {
	salt, _ := NewSalt()
	participant := domain.Identity{2}

	hash := Compute(-5_000_000, salt, participant)

	flipped := salt
	flipped[0] ^= 0x01
	if Verify(hash, -5_000_000, flipped, participant) {
		t.Error("verify should fail when a salt bit is flipped")
	}
}

func TestVerifyRejectsWrongParticipant(t *testing.T) {
	salt, _ := NewSalt()

	hash := Compute(42, salt, domain.Identity{3})
	if Verify(hash, 42, salt, domain.Identity{4}) {
		t.Error("commitment must be bound to the participant identity")
	}
}

func TestComputeDeterministic(t *testing.T) {
	salt := domain.Hash{9, 9, 9}
	participant := domain.Identity{7}

	a := Compute(1_000_000, salt, participant)
	b := Compute(1_000_000, salt, participant)
	if a != b {
		t.Error("compute must be deterministic for identical inputs")
	}
}

func TestNewSaltDistinct(t *testing.T) {
	a, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	b, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	if a == b {
		t.Error("two fresh salts should not collide")
	}
}
