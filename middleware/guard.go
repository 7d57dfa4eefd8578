package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// StatusSource reports the current session. *goAuthClient.Engine implements it.
type StatusSource interface {
	Status() goAuthClient.Status
}

type statusContextKey struct{}

// StatusFromContext returns the session snapshot a guard took for this request.
func StatusFromContext(ctx context.Context) (goAuthClient.Status, bool) {
	st, ok := ctx.Value(statusContextKey{}).(goAuthClient.Status)
	return st, ok
}

// Policy describes which routes need a session. Protected and AdminOnly hold path prefixes;
// a prefix matches the path itself and everything below it.
type Policy struct {
	LoginPath string
	Protected []string
	AdminOnly []string
}

func (p Policy) protected(path string) bool {
	return matchAny(p.Protected, path) || p.adminOnly(path)
}

func (p Policy) adminOnly(path string) bool {
	return matchAny(p.AdminOnly, path)
}

func matchAny(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" || path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Guard enforces policy for every request. Unprotected routes pass through untouched.
func Guard(source StatusSource, policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy.protected(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			enforce(source, policy.LoginPath, policy.adminOnly(r.URL.Path), next, w, r)
		})
	}
}

func enforce(source StatusSource, loginPath string, admin bool, next http.Handler, w http.ResponseWriter, r *http.Request) {
	if source == nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	st := source.Status()
	if !st.Authenticated {
		redirectToLogin(w, r, loginPath)
		return
	}
	if admin && !st.Admin {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	ctx := context.WithValue(r.Context(), statusContextKey{}, st)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// redirectToLogin sends a 303 to loginPath carrying the original request URI in the redirect
// query parameter.
func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	if loginPath == "" {
		loginPath = "/login"
	}
	target := loginPath + "?" + url.Values{"redirect": {r.URL.RequestURI()}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}
