package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

// Default cache lifetimes
const (
	DefaultApiKeyTTL        = 5 * time.Minute
	DefaultWebhookSecretTTL = time.Hour
)

// SecretStore external secret store, returns the latest version of a secret
type SecretStore interface {
	AccessSecret(ctx context.Context, id string) ([]byte, error)
}

// FileSecretStore reads secrets from <dir>/<id>
type FileSecretStore struct {
	Dir string
}

// AccessSecret implements SecretStore
func (s FileSecretStore) AccessSecret(_ context.Context, id string) ([]byte, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid secret id %q", id)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, id))
	if err != nil {
		return nil, fmt.Errorf("read secret %s: %w", id, err)
	}
	return data, nil
}

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Cached value fetched lazily and kept for ttl. Concurrent refreshes are
// collapsed into one fetch; a stale value is served when a refresh fails.
type Cached[T any] struct {
	name   string
	ttl    time.Duration
	fetch  func(ctx context.Context) (T, error)
	now    func() time.Time
	logger *zap.Logger

	mu    sync.RWMutex
	entry *cacheEntry[T]
	group singleflight.Group
}

// NewCached creates a cache around fetch
func NewCached[T any](name string, ttl time.Duration, logger *zap.Logger, fetch func(ctx context.Context) (T, error)) *Cached[T] {
	return &Cached[T]{
		name:   name,
		ttl:    ttl,
		fetch:  fetch,
		now:    time.Now,
		logger: logger,
	}
}

func (c *Cached[T]) fresh() (*cacheEntry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return nil, false
	}
	return c.entry, c.now().Sub(c.entry.fetchedAt) < c.ttl
}

// Get returns the cached value, refreshing it when expired
func (c *Cached[T]) Get(ctx context.Context) (T, error) {
	if e, ok := c.fresh(); ok {
		return e.value, nil
	}

	v, err, _ := c.group.Do(c.name, func() (any, error) {
		if e, ok := c.fresh(); ok {
			return e.value, nil
		}

		value, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entry = &cacheEntry[T]{value: value, fetchedAt: c.now()}
		c.mu.Unlock()

		c.logger.Info("Secret refreshed", zap.String("secret", c.name))
		return value, nil
	})
	if err != nil {
		if e, _ := c.fresh(); e != nil {
			c.logger.Warn("Secret refresh failed, serving stale value", zap.String("secret", c.name), zap.Error(err))
			return e.value, nil
		}
		var zero T
		return zero, apperr.Dependency("load secret "+c.name, err)
	}
	return v.(T), nil
}

// WebhookSecretProvider shared secret of the push webhook
type WebhookSecretProvider struct {
	cache *Cached[string]
}

// NewWebhookSecretProvider creates the provider for secret id
func NewWebhookSecretProvider(store SecretStore, secretID string, ttl time.Duration, logger *zap.Logger) *WebhookSecretProvider {
	return &WebhookSecretProvider{
		cache: NewCached("webhook-secret", ttl, logger, func(ctx context.Context) (string, error) {
			data, err := store.AccessSecret(ctx, secretID)
			if err != nil {
				return "", err
			}
			secret := strings.TrimSpace(string(data))
			if secret == "" {
				return "", fmt.Errorf("secret %s is empty", secretID)
			}
			return secret, nil
		}),
	}
}

// Secret current webhook secret
func (p *WebhookSecretProvider) Secret(ctx context.Context) (string, error) {
	return p.cache.Get(ctx)
}

// Verify checks an Authorization header against "Bearer <secret>".
// The comparison is exact and case-sensitive, scheme included.
func (p *WebhookSecretProvider) Verify(ctx context.Context, authHeader string) (bool, error) {
	secret, err := p.Secret(ctx)
	if err != nil {
		return false, err
	}
	if authHeader == "" {
		return false, nil
	}
	return constantTimeEqual(authHeader, "Bearer "+secret), nil
}

// ApiKeyProvider valid API keys
type ApiKeyProvider struct {
	cache *Cached[[]models.ApiKeyEntry]
}

// NewApiKeyProvider creates the provider for secret id
func NewApiKeyProvider(store SecretStore, secretID string, ttl time.Duration, logger *zap.Logger) *ApiKeyProvider {
	return &ApiKeyProvider{
		cache: NewCached("api-keys", ttl, logger, func(ctx context.Context) ([]models.ApiKeyEntry, error) {
			data, err := store.AccessSecret(ctx, secretID)
			if err != nil {
				return nil, err
			}
			return ParseApiKeys(data)
		}),
	}
}

// ParseApiKeys accepts {"validKeys":[{clientId,apiKey}]}, a bare list of
// entries or a bare list of key strings.
func ParseApiKeys(data []byte) ([]models.ApiKeyEntry, error) {
	var cfg models.ApiKeyConfig
	if err := json.Unmarshal(data, &cfg); err == nil && len(cfg.ValidKeys) > 0 {
		return cfg.ValidKeys, nil
	}

	var entries []models.ApiKeyEntry
	if err := json.Unmarshal(data, &entries); err == nil && len(entries) > 0 && entries[0].ApiKey != "" {
		return entries, nil
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err == nil && len(keys) > 0 {
		out := make([]models.ApiKeyEntry, 0, len(keys))
		for _, k := range keys {
			out = append(out, models.ApiKeyEntry{ApiKey: k})
		}
		return out, nil
	}

	return nil, fmt.Errorf("api key secret has no valid keys")
}

// Keys current key list
func (p *ApiKeyProvider) Keys(ctx context.Context) ([]models.ApiKeyEntry, error) {
	return p.cache.Get(ctx)
}

// Lookup finds the entry for key. When clientID is set it must match the
// entry's client. Returns nil when nothing matches.
func (p *ApiKeyProvider) Lookup(ctx context.Context, key, clientID string) (*models.ApiKeyEntry, error) {
	if key == "" {
		return nil, nil
	}
	keys, err := p.Keys(ctx)
	if err != nil {
		return nil, err
	}

	var match *models.ApiKeyEntry
	for i := range keys {
		if constantTimeEqual(keys[i].ApiKey, key) && match == nil {
			match = &keys[i]
		}
	}
	if match == nil {
		return nil, nil
	}
	if clientID != "" && match.ClientID != "" && match.ClientID != clientID {
		return nil, nil
	}
	return match, nil
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Redact keeps the first four characters of a secret for logs
func Redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
