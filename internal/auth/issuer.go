package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

const invalidCredentials = "invalid credentials"

// IdentityStore user lookup; returns nil, nil when the email is unknown
type IdentityStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// KeyLookup API key lookup; returns nil, nil when the key is unknown
type KeyLookup interface {
	Lookup(ctx context.Context, key, clientID string) (*models.ApiKeyEntry, error)
}

// Credentials proof of identity presented to the issuer
type Credentials interface {
	identify(ctx context.Context, i *Issuer) (*principal, error)
}

type principal struct {
	subject string
	email   string
	roles   []string
}

// PasswordCredentials email and password of a registered user
type PasswordCredentials struct {
	Email    string
	Password string
}

func (c PasswordCredentials) identify(ctx context.Context, i *Issuer) (*principal, error) {
	email := strings.TrimSpace(c.Email)
	if email == "" || c.Password == "" {
		return nil, apperr.Authentication("email and password are required")
	}
	if i.users == nil {
		return nil, apperr.Dependency("identity store not configured", nil)
	}

	user, err := i.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Dependency("look up user", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, apperr.Authentication(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)); err != nil {
		return nil, apperr.Authentication(invalidCredentials)
	}
	return &principal{subject: user.ID, email: user.Email, roles: user.Roles}, nil
}

// APIKeyCredentials a service client's API key
type APIKeyCredentials struct {
	Key      string
	ClientID string
}

func (c APIKeyCredentials) identify(ctx context.Context, i *Issuer) (*principal, error) {
	if c.Key == "" {
		return nil, apperr.Authentication("api key is required")
	}
	entry, err := i.keys.Lookup(ctx, c.Key, c.ClientID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperr.Authentication("invalid api key")
	}
	subject := entry.ClientID
	if subject == "" {
		subject = "api-client"
	}
	return &principal{subject: subject}, nil
}

// Result outcome of an issue request. Authentication failures are reported
// here with a nil error.
type Result struct {
	Success         bool
	Token           string
	ExpiresIn       time.Duration
	ExpiresAt       time.Time
	Subject         string
	AllowedChargers []string
	ErrorMessage    string
}

// Issuer mints access tokens
type Issuer struct {
	signer *Signer
	users  IdentityStore
	keys   KeyLookup
	logger *zap.Logger
}

// NewIssuer creates an issuer
func NewIssuer(signer *Signer, users IdentityStore, keys KeyLookup, logger *zap.Logger) *Issuer {
	return &Issuer{signer: signer, users: users, keys: keys, logger: logger}
}

// Issue authenticates creds and returns a token scoped to chargerIDs.
// The requested charger list is trusted as given.
func (i *Issuer) Issue(ctx context.Context, creds Credentials, chargerIDs []string) (*Result, error) {
	p, err := creds.identify(ctx, i)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind == apperr.KindAuthentication {
			i.logger.Warn("Token request rejected", zap.String("reason", ae.Message))
			return &Result{ErrorMessage: ae.Message}, nil
		}
		return nil, err
	}

	token, claims, err := i.signer.Sign(Claims{
		Subject:         p.subject,
		Email:           p.email,
		Roles:           p.roles,
		AllowedChargers: normalizeChargerIDs(chargerIDs),
	})
	if err != nil {
		return nil, err
	}

	i.logger.Info("Token issued",
		zap.String("subject", claims.Subject),
		zap.String("jti", claims.ID),
		zap.Int("chargers", len(claims.AllowedChargers)))

	return &Result{
		Success:         true,
		Token:           token,
		ExpiresIn:       i.signer.Lifetime(),
		ExpiresAt:       claims.Expiry(),
		Subject:         claims.Subject,
		AllowedChargers: claims.AllowedChargers,
	}, nil
}

func normalizeChargerIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
