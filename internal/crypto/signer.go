package crypto

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/worthlabs/worthhub/internal/domain"
)

// instructionPrefix domain-separates instruction digests from any other
// message a participant key might sign.
var instructionPrefix = []byte("worthhub/instruction/v1")

// Signer signs instruction payloads with a secp256k1 key. A participant's
// identity is the Keccak-256 hash of their uncompressed public key, so a
// recovered signature binds the payload to exactly one identity.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	identity   domain.Identity
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		identity:   IdentityFromPub(&pk.PublicKey),
	}, nil
}

// GenerateSigner creates a Signer with a fresh random key.
func GenerateSigner() (*Signer, error) {
	pk, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		identity:   IdentityFromPub(&pk.PublicKey),
	}, nil
}

// Identity returns the identity derived from the signer's public key.
func (s *Signer) Identity() domain.Identity {
	return s.identity
}

// Sign signs an instruction body for the given method and topic, returning
// the hex-encoded 65-byte signature (r || s || v).
func (s *Signer) Sign(method string, topicID uint64, body []byte) (string, error) {
	digest := InstructionDigest(method, topicID, body)
	sig, err := ethcrypto.Sign(digest[:], s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto: sign instruction: %w", err)
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// InstructionDigest computes the 32-byte digest a participant signs:
//
//	keccak256(prefix || method || topicID_le || keccak256(body))
//
// Hashing the body keeps the digest fixed-size regardless of payload length.
func InstructionDigest(method string, topicID uint64, body []byte) domain.Hash {
	var idBuf [8]byte
	binary.LittleEndian.PutUint64(idBuf[:], topicID)

	bodyHash := ethcrypto.Keccak256(body)

	var digest domain.Hash
	copy(digest[:], ethcrypto.Keccak256(instructionPrefix, []byte(method), idBuf[:], bodyHash))
	return digest
}

// RecoverIdentity recovers the signing identity from a digest and a
// hex-encoded 65-byte signature. It returns domain.ErrInvalidSignature when
// the signature is malformed or does not recover a valid public key.
func RecoverIdentity(digest domain.Hash, signatureHex string) (domain.Identity, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signatureHex, "0x"))
	if err != nil || len(sig) != 65 {
		return domain.Identity{}, domain.ErrInvalidSignature
	}

	// Normalise v from {27,28} to {0,1} if the client added the offset.
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return domain.Identity{}, domain.ErrInvalidSignature
	}
	return IdentityFromPub(pub), nil
}

// IdentityFromPub derives a participant identity from a secp256k1 public
// key: keccak256 over the 64-byte uncompressed point (without the 0x04 tag).
func IdentityFromPub(pub *ecdsa.PublicKey) domain.Identity {
	raw := ethcrypto.FromECDSAPub(pub)

	var id domain.Identity
	copy(id[:], ethcrypto.Keccak256(raw[1:]))
	return id
}
