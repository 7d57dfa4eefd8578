package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func loginServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh", Value: "r-42", Path: "/api/v1", MaxAge: 3600, HttpOnly: true})
	})
	mux.HandleFunc("/api/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh", Value: "", Path: "/api/v1", MaxAge: -1})
	})
	mux.HandleFunc("/api/v1/token", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("refresh")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(c.Value))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, c *http.Client, u string) *http.Response {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("get %s: %v", u, err)
	}
	resp.Body.Close()
	return resp
}

func TestJarPersistsAndRestores(t *testing.T) {
	srv := loginServer(t)
	base := srv.URL + "/api/v1"
	store := NewMemoryStore()

	jar, err := NewJar(base, store, nil)
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	get(t, &http.Client{Jar: jar}, base+"/login")

	stored, _ := store.Load(context.Background())
	if len(stored) != 1 || stored[0].Value != "r-42" || stored[0].Expires.IsZero() {
		t.Fatalf("expected persisted credential, got %+v", stored)
	}

	fresh, err := NewJar(base, store, nil)
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	found, err := fresh.Restore(context.Background())
	if err != nil || !found {
		t.Fatalf("restore: found=%v err=%v", found, err)
	}
	if resp := get(t, &http.Client{Jar: fresh}, base+"/token"); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected restored cookie to authorize, got %d", resp.StatusCode)
	}
}

func TestJarExpiredCookieRemovesCredential(t *testing.T) {
	srv := loginServer(t)
	base := srv.URL + "/api/v1"
	store := NewMemoryStore()
	jar, _ := NewJar(base, store, nil)
	client := &http.Client{Jar: jar}

	get(t, client, base+"/login")
	get(t, client, base+"/logout")

	if stored, _ := store.Load(context.Background()); len(stored) != 0 {
		t.Fatalf("expected store emptied, got %+v", stored)
	}
	if resp := get(t, client, base+"/token"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestJarClear(t *testing.T) {
	srv := loginServer(t)
	base := srv.URL + "/api/v1"
	store := NewMemoryStore()
	jar, _ := NewJar(base, store, nil)
	client := &http.Client{Jar: jar}

	get(t, client, base+"/login")
	if err := jar.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	u, _ := url.Parse(base + "/token")
	if got := jar.Cookies(u); len(got) != 0 {
		t.Fatalf("expected no cookies after clear, got %v", got)
	}
	if len(jar.Snapshot()) != 0 {
		t.Fatalf("expected empty snapshot")
	}
	if found, _ := jar.Restore(context.Background()); found {
		t.Fatalf("expected nothing to restore")
	}
}

func TestJarIgnoresForeignHostsForPersistence(t *testing.T) {
	store := NewMemoryStore()
	jar, _ := NewJar("http://api.example.com/api/v1", store, nil)
	other, _ := url.Parse("http://tracker.example.net/")
	jar.SetCookies(other, []*http.Cookie{{Name: "t", Value: "x", MaxAge: 60}})

	if stored, _ := store.Load(context.Background()); len(stored) != 0 {
		t.Fatalf("expected foreign cookie not persisted, got %+v", stored)
	}
}

func TestNewJarRequiresHost(t *testing.T) {
	if _, err := NewJar("/relative", nil, nil); err == nil {
		t.Fatalf("expected error for origin without host")
	}
}

// hangingStore blocks every Save until its context ends.
type hangingStore struct {
	*MemoryStore
	saving chan struct{}
}

func (s hangingStore) Save(ctx context.Context, _ []Cookie) error {
	s.saving <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestJarPersistIsBoundedAndUnlocked(t *testing.T) {
	store := hangingStore{MemoryStore: NewMemoryStore(), saving: make(chan struct{}, 1)}
	jar, _ := NewJar("http://api.example.com/api/v1", store, nil, WithPersistTimeout(50*time.Millisecond))
	origin, _ := url.Parse("http://api.example.com/api/v1")

	done := make(chan struct{})
	go func() {
		jar.SetCookies(origin, []*http.Cookie{{Name: "refresh", Value: "r-1", Path: "/api/v1", MaxAge: 60}})
		close(done)
	}()

	select {
	case <-store.saving:
	case <-time.After(time.Second):
		t.Fatalf("store save never started")
	}
	if got := jar.Cookies(origin); len(got) != 1 {
		t.Fatalf("lookups must not wait for the store, got %v", got)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("SetCookies must give up after the persist timeout")
	}
	if err := jar.Err(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestJarClearWinsOverOlderPersist(t *testing.T) {
	store := NewMemoryStore()
	jar, _ := NewJar("http://api.example.com/api/v1", store, nil)
	origin, _ := url.Parse("http://api.example.com/api/v1")
	jar.SetCookies(origin, []*http.Cookie{{Name: "refresh", Value: "r-1", Path: "/api/v1", MaxAge: 60}})

	jar.mu.Lock()
	stale, snapshot := jar.version, jar.snapshotLocked()
	jar.mu.Unlock()

	if err := jar.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	jar.persist(stale, snapshot)

	if stored, _ := store.Load(context.Background()); len(stored) != 0 {
		t.Fatalf("older snapshot must not resurrect the credential, got %+v", stored)
	}
}
