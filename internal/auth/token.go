package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
)

// header of every token; HS256 is the only accepted algorithm
var tokenHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

var errMalformedToken = errors.New("malformed token")

// Claims carried by an access token
type Claims struct {
	Subject         string   `json:"sub"`
	Email           string   `json:"email,omitempty"`
	ID              string   `json:"jti"`
	Issuer          string   `json:"iss"`
	Audience        string   `json:"aud"`
	IssuedAt        int64    `json:"iat"`
	ExpiresAt       int64    `json:"exp"`
	Roles           []string `json:"roles,omitempty"`
	AllowedChargers []string `json:"allowedChargers"`
}

// HasRole reports whether the claims carry role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Expiry expiration time in UTC
func (c *Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0).UTC()
}

// Signer signs and verifies HMAC-SHA256 access tokens
type Signer struct {
	key      []byte
	issuer   string
	audience string
	lifetime time.Duration
	now      func() time.Time
}

// NewSigner creates a signer
func NewSigner(key, issuer, audience string, lifetime time.Duration) *Signer {
	return &Signer{
		key:      []byte(key),
		issuer:   issuer,
		audience: audience,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Lifetime token lifetime
func (s *Signer) Lifetime() time.Duration {
	return s.lifetime
}

// Sign fills iss, aud, iat, exp and jti and returns the compact token
func (s *Signer) Sign(claims Claims) (string, *Claims, error) {
	now := s.now().UTC()
	claims.Issuer = s.issuer
	claims.Audience = s.audience
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(s.lifetime).Unix()
	claims.ID = uuid.NewString()
	if claims.AllowedChargers == nil {
		claims.AllowedChargers = []string{}
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", nil, fmt.Errorf("encode claims: %w", err)
	}

	unsigned := tokenHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	return unsigned + "." + s.signature(unsigned), &claims, nil
}

// Verify checks signature, issuer, audience and expiry
func (s *Signer) Verify(token string) (*Claims, error) {
	claims, err := s.verify(token)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindAuthentication, Message: "invalid access token", Err: err}
	}
	return claims, nil
}

func (s *Signer) verify(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errMalformedToken
	}
	if parts[0] != tokenHeader {
		return nil, errors.New("unsupported token header")
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, errMalformedToken
	}
	expected, _ := base64.RawURLEncoding.DecodeString(s.signature(parts[0] + "." + parts[1]))
	if !hmac.Equal(sig, expected) {
		return nil, errors.New("signature mismatch")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errMalformedToken
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errMalformedToken
	}

	switch {
	case claims.Issuer != s.issuer:
		return nil, errors.New("issuer mismatch")
	case claims.Audience != s.audience:
		return nil, errors.New("audience mismatch")
	case claims.Subject == "":
		return nil, errors.New("missing subject")
	case !s.now().Before(claims.Expiry()):
		return nil, errors.New("token expired")
	}
	return &claims, nil
}

func (s *Signer) signature(unsigned string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(unsigned))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
