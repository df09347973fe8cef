package events

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// SignatureHeader carries the signed token on outbound webhook deliveries.
const SignatureHeader = "X-Queue-Signature"

// Signer issues HS256 tokens binding an event to the exact body delivered.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSigner builds a new signer.
func NewSigner(secret, issuer string) *Signer {
	return &Signer{secret: []byte(secret), issuer: issuer, ttl: 5 * time.Minute}
}

// SignatureClaims describes the JWT payload.
type SignatureClaims struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	BodySHA256 string    `json:"body_sha256"`
	jwt.RegisteredClaims
}

// Sign returns a token for event whose body is the serialized delivery.
func (s *Signer) Sign(event Event, body []byte) (string, error) {
	now := time.Now()
	claims := &SignatureClaims{
		EventID:    event.ID,
		EventType:  event.Type,
		BodySHA256: bodyDigest(body),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates a token and checks that it was issued for body.
func (s *Signer) Verify(token string, body []byte) (*SignatureClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SignatureClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*SignatureClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid signature claims")
	}
	if claims.BodySHA256 != bodyDigest(body) {
		return nil, errors.New("signature does not match body")
	}
	return claims, nil
}

func bodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
