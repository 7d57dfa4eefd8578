package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	registered atomic.Int32
	lastBody   map[string]any
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/register", func(w http.ResponseWriter, r *http.Request) {
		f.registered.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /api/v1/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("POST /api/v1/users/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorCode":210}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("ACCOUNT_API_URL", srv.URL+"/api/v1")
	t.Setenv("ACCOUNT_CREDENTIAL_BACKEND", "memory")
	t.Setenv("LANG", "en")
	t.Setenv("LOG_LEVEL", "error")
	return f
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	code, out, _ := runCLI(t, "", "help")
	assert.Equal(t, 0, code)
	for _, name := range commandOrder {
		assert.Contains(t, out, name)
	}
	assert.Len(t, commandOrder, len(commands))
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)
}

func TestRegister(t *testing.T) {
	f := newFakeAPI(t)

	code, out, errOut := runCLI(t, "Hopper1906\nHopper1906\n",
		"register", "-email", "grace@example.com", "-name", "Grace Hopper",
		"-postcode", "10115", "-city", "Berlin", "-phone", "+49 30 1234567")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "registered")
	assert.Equal(t, int32(1), f.registered.Load())
	assert.Equal(t, "grace@example.com", f.lastBody["email"])
}

func TestRegisterRejectsMismatchedRepeat(t *testing.T) {
	f := newFakeAPI(t)

	code, _, errOut := runCLI(t, "Hopper1906\nHopper1907\n",
		"register", "-email", "grace@example.com", "-name", "Grace Hopper",
		"-postcode", "10115", "-city", "Berlin", "-phone", "+49 30 1234567")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "passwordRepeat:")
	assert.Zero(t, f.registered.Load())
}

func TestVerifyAlreadyVerified(t *testing.T) {
	newFakeAPI(t)

	code, _, _ := runCLI(t, "", "verify", "-id", "7", "-code", "123456")
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "", "verify", "-code", "123456")
	assert.Equal(t, 2, code)
}

func TestWhoamiWithoutSession(t *testing.T) {
	newFakeAPI(t)

	code, out, errOut := runCLI(t, "", "whoami")
	require.Equal(t, 0, code, errOut)

	var got struct {
		Session struct {
			Authenticated bool `json:"authenticated"`
		} `json:"session"`
		Profile any `json:"profile"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.Session.Authenticated)
	assert.Nil(t, got.Profile)
}

func TestSessionCommandsNeedLogin(t *testing.T) {
	newFakeAPI(t)

	code, _, errOut := runCLI(t, "", "search", "-city", "Berlin")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not logged in")
}
