package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultPersistTimeout bounds one store write made from SetCookies.
const DefaultPersistTimeout = 5 * time.Second

// Jar is an [http.CookieJar] that mirrors the cookies of one origin into a [CredentialStore].
//
// Matching follows net/http/cookiejar. Writes to the store happen inside SetCookies, which has
// no error return; failures are logged and reported by [Jar.Err]. Store I/O runs outside the
// cookie lock, so lookups never wait on Redis or the disk.
type Jar struct {
	mu      sync.Mutex
	origin  *url.URL
	store   CredentialStore
	jar     *cookiejar.Jar
	cookies map[string]Cookie
	logger  *slog.Logger
	now     func() time.Time
	lastErr error
	version uint64

	// saveMu orders store writes; saved is the newest version written or cleared.
	saveMu         sync.Mutex
	saved          uint64
	persistTimeout time.Duration
}

// JarOption configures a [Jar].
type JarOption func(*Jar)

// WithPersistTimeout bounds each store write made from SetCookies. Non-positive values keep
// [DefaultPersistTimeout].
func WithPersistTimeout(d time.Duration) JarOption {
	return func(j *Jar) {
		if d > 0 {
			j.persistTimeout = d
		}
	}
}

// NewJar creates a jar for origin (the API base URL) backed by store.
func NewJar(origin string, store CredentialStore, logger *slog.Logger, opts ...JarOption) (*Jar, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, errors.New("jar origin must have a host")
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &Jar{
		origin:         u,
		store:          store,
		jar:            inner,
		cookies:        map[string]Cookie{},
		logger:         logger,
		now:            time.Now,
		persistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// SetCookies implements [http.CookieJar].
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	j.jar.SetCookies(u, cookies)
	if !strings.EqualFold(u.Hostname(), j.origin.Hostname()) {
		j.mu.Unlock()
		return
	}

	now := j.now()
	for _, hc := range cookies {
		c := FromHTTP(hc, now)
		if c.Expired(now) {
			delete(j.cookies, c.key())
			continue
		}
		j.cookies[c.key()] = c
	}
	j.version++
	version, snapshot := j.version, j.snapshotLocked()
	j.mu.Unlock()

	j.persist(version, snapshot)
}

// Cookies implements [http.CookieJar].
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Restore loads stored cookies into the jar and reports whether any were found.
func (j *Jar) Restore(ctx context.Context) (bool, error) {
	cookies, err := j.store.Load(ctx)
	if err != nil {
		return false, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	batch := make([]*http.Cookie, 0, len(cookies))
	for _, c := range live(cookies, now) {
		j.cookies[c.key()] = c
		batch = append(batch, c.HTTP())
	}
	if len(batch) > 0 {
		j.jar.SetCookies(j.origin, batch)
	}
	return len(batch) > 0, nil
}

// Clear forgets every cookie in memory and in the store.
func (j *Jar) Clear(ctx context.Context) error {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.jar = inner
	j.cookies = map[string]Cookie{}
	j.lastErr = nil
	j.version++
	version := j.version
	j.mu.Unlock()

	j.saveMu.Lock()
	defer j.saveMu.Unlock()
	j.saved = max(j.saved, version)
	return j.store.Clear(ctx)
}

// Snapshot returns the live cookies for the origin, sorted by name.
func (j *Jar) Snapshot() []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

// Err returns the last persistence failure, if any.
func (j *Jar) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}

func (j *Jar) snapshotLocked() []Cookie {
	out := live(mapValues(j.cookies), j.now())
	slices.SortFunc(out, func(a, b Cookie) int { return strings.Compare(a.key(), b.key()) })
	return out
}

// persist writes snapshot unless a newer version was already written or cleared.
func (j *Jar) persist(version uint64, snapshot []Cookie) {
	j.saveMu.Lock()
	defer j.saveMu.Unlock()
	if version <= j.saved {
		return
	}
	j.saved = version

	ctx, cancel := context.WithTimeout(context.Background(), j.persistTimeout)
	defer cancel()
	err := j.store.Save(ctx, snapshot)

	j.mu.Lock()
	j.lastErr = err
	j.mu.Unlock()
	if err != nil {
		j.logger.Warn("credential persist failed", slog.Any("error", err))
	}
}

func mapValues(m map[string]Cookie) []Cookie {
	out := make([]Cookie, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}
