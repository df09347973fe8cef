package auth

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// CredentialHasher derives the stored credential digest from an identity and
// secret. The digest is recomputed on every login, so the same inputs and salt
// list must always produce the same output.
type CredentialHasher struct {
	salts [][]byte
}

// NewCredentialHasher validates salts up front so Hash cannot fail.
func NewCredentialHasher(salts []string) (*CredentialHasher, error) {
	keys := make([][]byte, 0, len(salts))
	for i, salt := range salts {
		if len(salt) > blake2b.Size {
			return nil, fmt.Errorf("salt %d exceeds %d bytes", i, blake2b.Size)
		}
		keys = append(keys, []byte(salt))
	}
	return &CredentialHasher{salts: keys}, nil
}

// Hash returns the hex digest for identity and secret. Salts are applied in
// configured order, each keying a pass over the previous digest.
func (h *CredentialHasher) Hash(identity, secret string) string {
	first := blake2b.Sum256([]byte(secret + identity))
	digest := hex.EncodeToString(first[:])

	for _, salt := range h.salts {
		mac, err := blake2b.New256(salt)
		if err != nil {
			// unreachable: salt length checked in NewCredentialHasher
			panic(err)
		}
		mac.Write([]byte(digest))
		digest = hex.EncodeToString(mac.Sum(nil))
	}
	return digest
}

// Matches compares a stored digest with the digest of the supplied secret.
func (h *CredentialHasher) Matches(stored, identity, secret string) bool {
	computed := h.Hash(identity, secret)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(computed)) == 1
}
