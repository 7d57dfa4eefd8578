package goAuthClient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/session"
)

const (
	testCredentialCookie = "credential"
	testSecret           = "engine-test-secret"
)

type fakeUser struct {
	api.User
	Password   string
	Permission string
	Role       string
}

// fakeService is an in-process account service. The credential cookie carries the email.
type fakeService struct {
	t     *testing.T
	srv   *httptest.Server
	mint  *jwt.Manager
	clock func() time.Time

	mu         sync.Mutex
	users      map[int64]*fakeUser
	ttl        time.Duration
	failToken  bool
	failLogout bool
	roles      []string
	lastQuery  string
	// tokenGate, when set, holds token requests until it is closed. tokenSeen is signalled
	// once per held request.
	tokenGate chan struct{}
	tokenSeen chan struct{}

	tokenCalls  atomic.Int32
	logoutCalls atomic.Int32
	deleteCalls atomic.Int32
	userCalls   atomic.Int32
	roleCalls   atomic.Int32
	updateCalls atomic.Int32

	registerCalls atomic.Int32
}

func newFakeService(t *testing.T, clock func() time.Time) *fakeService {
	t.Helper()
	mint, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(testSecret),
	})
	if err != nil {
		t.Fatalf("mint manager: %v", err)
	}
	f := &fakeService{
		t:     t,
		mint:  mint,
		clock: clock,
		ttl:   60 * time.Second,
		roles: []string{"admin", "user"},
		users: map[int64]*fakeUser{
			7: {
				User:       api.User{ID: 7, Email: "ada@example.com", ContactData: api.ContactData{Name: "Ada", City: "Berlin"}},
				Password:   "Secret123",
				Permission: "users.read users.write",
				Role:       "user",
			},
			1: {
				User:       api.User{ID: 1, Email: "root@example.com", ContactData: api.ContactData{Name: "Root"}},
				Password:   "Admin1234",
				Permission: "*",
				Role:       "admin",
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/login", f.login)
	mux.HandleFunc("GET /api/v1/token", f.token)
	mux.HandleFunc("POST /api/v1/users/{id}/logout", f.logout)
	mux.HandleFunc("GET /api/v1/users/{id}", f.user)
	mux.HandleFunc("PUT /api/v1/users/{id}", f.update)
	mux.HandleFunc("PUT /api/v1/users/{id}/role", f.update)
	mux.HandleFunc("PUT /api/v1/users/{id}/password", f.update)
	mux.HandleFunc("DELETE /api/v1/users/{id}", f.delete)
	mux.HandleFunc("GET /api/v1/users", f.search)
	mux.HandleFunc("GET /api/v1/role", f.listRoles)
	mux.HandleFunc("POST /api/v1/register", func(w http.ResponseWriter, r *http.Request) {
		f.registerCalls.Add(1)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /api/v1/users/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		writeCode(w, api.CodeAlreadyVerified)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) baseURL() string {
	return f.srv.URL + "/api/v1"
}

func (f *fakeService) set(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeService) userByEmail(email string) *fakeUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeCode(w http.ResponseWriter, code int) {
	writeJSON(w, http.StatusBadRequest, map[string]int{"errorCode": code})
}

func (f *fakeService) authorized(r *http.Request) bool {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) {
		return false
	}
	_, err := f.mint.Decode(h[len(prefix):])
	return err == nil
}

func (f *fakeService) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	u := f.userByEmail(in.Email)
	switch {
	case u == nil:
		writeCode(w, api.CodeNoSuchUser)
	case u.Password != in.Password:
		writeCode(w, api.CodeWrongPassword)
	default:
		http.SetCookie(w, &http.Cookie{Name: testCredentialCookie, Value: url.QueryEscape(u.Email), Path: "/", MaxAge: 3600, HttpOnly: true})
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeService) token(w http.ResponseWriter, r *http.Request) {
	f.tokenCalls.Add(1)
	f.mu.Lock()
	gate, seen, fail, ttl := f.tokenGate, f.tokenSeen, f.failToken, f.ttl
	f.mu.Unlock()
	if gate != nil {
		if seen != nil {
			seen <- struct{}{}
		}
		<-gate
	}
	if fail {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	c, err := r.Cookie(testCredentialCookie)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	email, _ := url.QueryUnescape(c.Value)
	u := f.userByEmail(email)
	if u == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	tok, err := f.mint.CreateAccessWithExpiry(u.ID, u.Permission, u.Role, f.clock().Add(ttl))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": tok})
}

func (f *fakeService) logout(w http.ResponseWriter, r *http.Request) {
	f.logoutCalls.Add(1)
	f.mu.Lock()
	fail := f.failLogout
	f.mu.Unlock()
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: testCredentialCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusOK)
}

func (f *fakeService) pathUser(w http.ResponseWriter, r *http.Request) *fakeUser {
	if !f.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return nil
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return nil
	}
	f.mu.Lock()
	u := f.users[id]
	f.mu.Unlock()
	if u == nil {
		writeCode(w, api.CodeNoSuchUser)
		return nil
	}
	return u
}

func (f *fakeService) user(w http.ResponseWriter, r *http.Request) {
	f.userCalls.Add(1)
	u := f.pathUser(w, r)
	if u == nil {
		return
	}
	f.mu.Lock()
	out := u.User
	f.mu.Unlock()
	out.ID = 0
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeService) update(w http.ResponseWriter, r *http.Request) {
	f.updateCalls.Add(1)
	u := f.pathUser(w, r)
	if u == nil {
		return
	}
	var patch api.ContactDataPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err == nil {
		f.mu.Lock()
		u.ContactData = patch.Apply(u.ContactData)
		f.mu.Unlock()
	}
	w.WriteHeader(http.StatusOK)
}

func (f *fakeService) delete(w http.ResponseWriter, r *http.Request) {
	f.deleteCalls.Add(1)
	u := f.pathUser(w, r)
	if u == nil {
		return
	}
	f.mu.Lock()
	delete(f.users, u.ID)
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeService) search(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	f.lastQuery = r.URL.RawQuery
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, []api.User{})
}

func (f *fakeService) listRoles(w http.ResponseWriter, r *http.Request) {
	f.roleCalls.Add(1)
	if !f.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	roles := f.roles
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, roles)
}

type testEngine struct {
	*Engine
	svc   *fakeService
	sched *refresh.ManualScheduler
	store *session.MemoryStore
}

// newTestEngine builds an Engine against a fresh fake service on a manual clock.
func newTestEngine(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *testEngine {
	t.Helper()
	sched := refresh.NewManualScheduler(time.Now().Truncate(time.Second))
	svc := newFakeService(t, sched.Now)
	return newEngineFor(t, svc, sched, session.NewMemoryStore(), mutate, opts...)
}

func newEngineFor(
	t *testing.T,
	svc *fakeService,
	sched *refresh.ManualScheduler,
	store *session.MemoryStore,
	mutate func(*Config),
	opts ...func(*Builder),
) *testEngine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.API.BaseURL = svc.baseURL()
	cfg.API.Timeout = 5 * time.Second
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	b := New().
		WithConfig(cfg).
		WithScheduler(sched).
		WithCredentialStore(store)
	for _, opt := range opts {
		opt(b)
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(e.Close)
	return &testEngine{Engine: e, svc: svc, sched: sched, store: store}
}
