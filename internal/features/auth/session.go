package auth

import (
	"context"
	"sync"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/config"
	"estate-cms/internal/features/user"
	"estate-cms/pkg/utils"
)

// TokenVerifier is the identity-provider seam: cryptographic verification of
// an opaque session token. Satisfied by utils.TokenService in production and
// by fakes in tests.
type TokenVerifier interface {
	Verify(token string) (*utils.SessionClaims, error)
}

// SessionCache stores validated principal snapshots keyed by session token.
// Entries are immutable once written; revalidation writes a new entry. The
// cache is constructed once and injected, never a package global.
type SessionCache interface {
	Get(token string) (*models.User, bool)
	Set(token string, user *models.User)
	DeleteToken(token string)
	InvalidateUser(userID string)
	Sweep()
}

type cacheEntry struct {
	user      *models.User
	userID    string
	expiresAt time.Time
}

// MemorySessionCache is the in-process SessionCache used in production and
// tests alike.
type MemorySessionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func NewMemorySessionCache(ttl time.Duration) *MemorySessionCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemorySessionCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *MemorySessionCache) Get(token string) (*models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[token]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.user, true
}

func (c *MemorySessionCache) Set(token string, user *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[token] = cacheEntry{
		user:      user,
		userID:    user.ID.Hex(),
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *MemorySessionCache) DeleteToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
}

// InvalidateUser evicts every cached session of the user, forcing the next
// request to revalidate against the identity provider and a fresh record.
func (c *MemorySessionCache) InvalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for token, entry := range c.entries {
		if entry.userID == userID {
			delete(c.entries, token)
		}
	}
}

// Sweep drops expired entries. Invoked by the maintenance scheduler.
func (c *MemorySessionCache) Sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for token, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, token)
		}
	}
}

// SessionService validates session tokens, serving repeat validations from
// the cache within the TTL. Session verification happens on nearly every
// authenticated request and the cryptographic step dominates its cost, so the
// cache is the highest-leverage latency optimization in the system; the price
// is that role or permission changes may take up to one TTL to be seen, which
// InvalidateUser shortens for mutations made through this process.
type SessionService interface {
	Validate(ctx context.Context, token string) (*models.User, error)
	Invalidate(token string)
	InvalidateUser(userID string)
}

type SessionServiceImpl struct {
	Verifier TokenVerifier
	Cache    SessionCache
	Users    user.UserRepository
}

func NewSessionService(verifier TokenVerifier, cache SessionCache, users user.UserRepository) SessionService {
	return &SessionServiceImpl{
		Verifier: verifier,
		Cache:    cache,
		Users:    users,
	}
}

// Validate resolves a token to a principal snapshot. Every failure mode fails
// closed and is never cached.
func (s *SessionServiceImpl) Validate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, models.ErrInvalidSession
	}

	if cached, ok := s.Cache.Get(token); ok {
		return cached, nil
	}

	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return nil, models.ErrInvalidSession
	}

	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	u, err := s.Users.FindByID(loadCtx, claims.UserID)
	if err != nil {
		return nil, models.ErrProfileNotFound
	}

	if u.Status != models.StatusActive {
		return nil, models.ErrAccountInactive
	}
	if u.Locked(time.Now()) {
		return nil, models.ErrAccountLocked
	}

	s.Cache.Set(token, u)
	return u, nil
}

func (s *SessionServiceImpl) Invalidate(token string) {
	s.Cache.DeleteToken(token)
}

func (s *SessionServiceImpl) InvalidateUser(userID string) {
	s.Cache.InvalidateUser(userID)
}

// NewTokenService builds the production token verifier from config.
func NewTokenService(cfg *config.Config) *utils.TokenService {
	return utils.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
}

// NewSessionCache builds the shared in-memory cache from config.
func NewSessionCache(cfg *config.Config) SessionCache {
	return NewMemorySessionCache(cfg.SessionCacheTTL)
}
