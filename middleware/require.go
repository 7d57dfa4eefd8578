package middleware

import "net/http"

// RequireAuthenticated lets a request through only while source holds a valid session and
// redirects it to loginPath otherwise.
func RequireAuthenticated(source StatusSource, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enforce(source, loginPath, false, next, w, r)
		})
	}
}

// RequireAdmin is RequireAuthenticated plus the admin scope. Signed-in users without it get
// 403.
func RequireAdmin(source StatusSource, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enforce(source, loginPath, true, next, w, r)
		})
	}
}
