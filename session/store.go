package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrCorrupt is returned when a stored credential record cannot be decoded.
var ErrCorrupt = errors.New("credential record corrupt")

// ErrUnsupportedSchema is returned for records written by a newer or unknown schema.
var ErrUnsupportedSchema = errors.New("unsupported credential schema version")

// CredentialStore persists the long-lived credential cookies between process runs.
//
// Load returns no cookies and a nil error when nothing is stored. Save with an empty slice
// behaves like Clear.
type CredentialStore interface {
	Load(ctx context.Context) ([]Cookie, error)
	Save(ctx context.Context, cookies []Cookie) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credential for the lifetime of the process.
type MemoryStore struct {
	mu      sync.Mutex
	cookies []Cookie
	now     func() time.Time
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Load implements [CredentialStore].
func (s *MemoryStore) Load(context.Context) ([]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return live(s.cookies, s.now()), nil
}

// Save implements [CredentialStore].
func (s *MemoryStore) Save(_ context.Context, cookies []Cookie) error {
	s.mu.Lock()
	s.cookies = slices.Clone(cookies)
	s.mu.Unlock()
	return nil
}

// Clear implements [CredentialStore].
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.cookies = nil
	s.mu.Unlock()
	return nil
}

// RedisStore keeps the credential under a single Redis key that expires together with the
// longest-lived cookie. Useful when several processes share one login.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a [RedisStore]. prefix namespaces the key; empty means "acc".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "acc"
	}
	return &RedisStore{redis: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key() string {
	return s.prefix + ":credential"
}

// Load implements [CredentialStore].
func (s *RedisStore) Load(ctx context.Context) ([]Cookie, error) {
	data, err := s.redis.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	cookies, err := decode(data)
	if err != nil {
		return nil, err
	}
	return live(cookies, s.now()), nil
}

// Save implements [CredentialStore]. Cookies without an expiry keep the key until Clear.
func (s *RedisStore) Save(ctx context.Context, cookies []Cookie) error {
	now := s.now()
	cookies = live(cookies, now)
	if len(cookies) == 0 {
		return s.Clear(ctx)
	}

	var ttl time.Duration
	if latest := latestExpiry(cookies); !latest.IsZero() {
		ttl = latest.Sub(now)
	}

	data, err := encode(cookies)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Clear implements [CredentialStore].
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

// FileStore keeps the credential in a JSON file readable only by the owner.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore returns a [FileStore] writing to path. The directory is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the credential file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements [CredentialStore].
func (s *FileStore) Load(context.Context) ([]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	cookies, err := decode(data)
	if err != nil {
		return nil, err
	}
	return live(cookies, s.now()), nil
}

// Save implements [CredentialStore]. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, cookies []Cookie) error {
	cookies = live(cookies, s.now())
	if len(cookies) == 0 {
		return s.Clear(ctx)
	}
	data, err := encode(cookies)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("create credential file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credential file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

// Clear implements [CredentialStore].
func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
