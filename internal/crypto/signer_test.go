package crypto

import (
	"errors"
	"testing"

	"github.com/worthlabs/worthhub/internal/domain"
)

func TestSignRecoverRoundTrip(t *testing.T) {
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}

	body := []byte(`{"participant":"0xabc","stake_amount":100}`)
	sig, err := signer.Sign("commit", 42, body)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	digest := InstructionDigest("commit", 42, body)
	recovered, err := RecoverIdentity(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != signer.Identity() {
		t.Errorf("recovered identity %s != signer identity %s", recovered.Hex(), signer.Identity().Hex())
	}
}

func TestRecoverRejectsTamperedBody(t *testing.T) {
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}

	sig, err := signer.Sign("reveal", 7, []byte(`{"prediction_value":151000000}`))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// A digest over different content recovers a different identity.
	tampered := InstructionDigest("reveal", 7, []byte(`{"prediction_value":999000000}`))
	recovered, err := RecoverIdentity(tampered, sig)
	if err == nil && recovered == signer.Identity() {
		t.Error("tampered body must not recover the signer's identity")
	}
}

func TestRecoverRejectsMalformedSignature(t *testing.T) {
	digest := InstructionDigest("finalize", 1, nil)

	for _, sig := range []string{"", "0x1234", "not-hex", "0x" + string(make([]byte, 130))} {
		if _, err := RecoverIdentity(digest, sig); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("RecoverIdentity(%q) err = %v, want ErrInvalidSignature", sig, err)
		}
	}
}

func TestInstructionDigestBindsMethodAndTopic(t *testing.T) {
	body := []byte(`{}`)

	base := InstructionDigest("commit", 1, body)
	if base == InstructionDigest("reveal", 1, body) {
		t.Error("digest must differ per method")
	}
	if base == InstructionDigest("commit", 2, body) {
		t.Error("digest must differ per topic")
	}
	if base != InstructionDigest("commit", 1, []byte(`{}`)) {
		t.Error("digest must be deterministic")
	}
}

func TestNewSignerFromHex(t *testing.T) {
	gen, err := GenerateSigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}
	sig, err := gen.Sign("settle", 3, nil)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	recovered, err := RecoverIdentity(InstructionDigest("settle", 3, nil), sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != gen.Identity() {
		t.Error("identity mismatch after round trip")
	}

	if _, err := NewSigner("zz-not-a-key"); err == nil {
		t.Error("NewSigner should reject a non-hex key")
	}
}
