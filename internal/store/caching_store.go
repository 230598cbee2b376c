package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/isdelr/ender-accounts/internal/cache"
	"github.com/isdelr/ender-accounts/internal/models"
	"github.com/rs/zerolog/log"
)

// AllUsersKey caches the FindAll result.
const AllUsersKey = "users:all"

// IDKey and UsernameKey name the per-user cache entries.
func IDKey(id int64) string             { return "user:id:" + strconv.FormatInt(id, 10) }
func UsernameKey(username string) string { return "user:username:" + username }

// CachingUserStore serves reads by id, username and the full list from a
// cache, and invalidates the affected keys after every successful write
// before returning.
//
// A load that overlaps a write is returned but not cached: writers bump
// generation under mu before invalidating, and loaders only fill the cache
// while holding mu.RLock with the generation they started from.
type CachingUserStore struct {
	next  UserStore
	cache cache.Cache
	ttl   time.Duration

	mu         sync.RWMutex
	generation uint64
}

func NewCachingUserStore(next UserStore, c cache.Cache, ttl time.Duration) *CachingUserStore {
	return &CachingUserStore{next: next, cache: c, ttl: ttl}
}

// cachedUser keeps the password hash, which models.User hides from JSON.
type cachedUser struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"fullName"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toCached(u *models.User) cachedUser {
	return cachedUser{
		ID: u.ID, FullName: u.FullName, Username: u.Username, Email: u.Email,
		PasswordHash: u.PasswordHash, Roles: u.Roles, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (c cachedUser) model() models.User {
	return models.User{
		ID: c.ID, FullName: c.FullName, Username: c.Username, Email: c.Email,
		PasswordHash: c.PasswordHash, Roles: c.Roles, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

func (s *CachingUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.cachedOne(ctx, UsernameKey(username), func() (*models.User, error) {
		return s.next.FindByUsername(ctx, username)
	})
}

func (s *CachingUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return s.cachedOne(ctx, IDKey(id), func() (*models.User, error) {
		return s.next.FindByID(ctx, id)
	})
}

// FindByEmail is only used for uniqueness checks and is not cached.
func (s *CachingUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.next.FindByEmail(ctx, email)
}

func (s *CachingUserStore) FindAll(ctx context.Context) ([]models.User, error) {
	var cached []cachedUser
	if s.read(ctx, AllUsersKey, &cached) {
		users := make([]models.User, len(cached))
		for i, c := range cached {
			users[i] = c.model()
		}
		return users, nil
	}

	gen := s.currentGeneration()
	users, err := s.next.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]cachedUser, len(users))
	for i := range users {
		list[i] = toCached(&users[i])
	}
	s.fill(ctx, gen, AllUsersKey, list)
	return users, nil
}

func (s *CachingUserStore) cachedOne(ctx context.Context, key string, load func() (*models.User, error)) (*models.User, error) {
	var c cachedUser
	if s.read(ctx, key, &c) {
		u := c.model()
		return &u, nil
	}

	gen := s.currentGeneration()
	u, err := load()
	if err != nil {
		return nil, err
	}
	s.fill(ctx, gen, key, toCached(u))
	return u, nil
}

func (s *CachingUserStore) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// fill caches v unless a write has completed since gen was taken.
func (s *CachingUserStore) fill(ctx context.Context, gen uint64, key string, v any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generation != gen {
		log.Debug().Str("key", key).Msg("Skipping cache fill after concurrent write")
		return
	}
	s.write(ctx, key, v)
}

// invalidate marks in-flight loads stale, then drops keys.
func (s *CachingUserStore) invalidate(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
	return s.cache.Invalidate(ctx, keys...)
}

// read reports a hit. Cache faults are logged and treated as misses.
func (s *CachingUserStore) read(ctx context.Context, key string, dst any) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false
	}
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		_ = s.cache.Invalidate(ctx, key)
		return false
	}
	return true
}

func (s *CachingUserStore) write(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Save writes through and invalidates the id, the old and new usernames
// and the list.
func (s *CachingUserStore) Save(ctx context.Context, user *models.User) (*models.User, error) {
	keys := []string{AllUsersKey, UsernameKey(user.Username)}
	if user.ID != 0 {
		keys = append(keys, IDKey(user.ID))
		prev, err := s.next.FindByID(ctx, user.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if prev != nil && prev.Username != user.Username {
			keys = append(keys, UsernameKey(prev.Username))
		}
	}

	saved, err := s.next.Save(ctx, user)
	if err != nil {
		return nil, err
	}
	keys = append(keys, IDKey(saved.ID))
	if err := s.invalidate(ctx, keys...); err != nil {
		return saved, fmt.Errorf("invalidate cache after save: %w", err)
	}
	return saved, nil
}

func (s *CachingUserStore) Delete(ctx context.Context, user *models.User) error {
	if err := s.next.Delete(ctx, user); err != nil {
		return err
	}
	keys := []string{AllUsersKey, IDKey(user.ID), UsernameKey(user.Username)}
	if err := s.invalidate(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate cache after delete: %w", err)
	}
	return nil
}
