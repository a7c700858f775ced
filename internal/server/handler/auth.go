package handler

import (
	"io"
	"net/http"

	"github.com/worthlabs/worthhub/internal/crypto"
	"github.com/worthlabs/worthhub/internal/domain"
)

// signatureHeader carries the hex-encoded secp256k1 signature over the
// instruction digest for the request.
const signatureHeader = "X-Worth-Signature"

// maxBodySize bounds instruction request bodies.
const maxBodySize = 1 << 20

// readBody reads and returns the request body, bounded by maxBodySize.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodySize))
}

// verifyCaller enforces that the declared instruction caller matches the
// request signature. The signature covers the instruction method name, the
// topic ID, and the raw request body. When requireSig is false and no
// signature header is present, the declared identity is trusted as-is.
func verifyCaller(r *http.Request, requireSig bool, method string, topicID uint64, body []byte, declared domain.Identity) error {
	sig := r.Header.Get(signatureHeader)
	if sig == "" {
		if requireSig {
			return domain.ErrInvalidSignature
		}
		return nil
	}

	digest := crypto.InstructionDigest(method, topicID, body)
	recovered, err := crypto.RecoverIdentity(digest, sig)
	if err != nil {
		return err
	}
	if recovered != declared {
		return domain.ErrInvalidSignature
	}
	return nil
}
