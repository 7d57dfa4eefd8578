// Package middleware gates HTTP routes of a front end on the session held by a
// goAuthClient.Engine.
//
// # Guards
//
//   - [RequireAuthenticated] redirects anonymous requests to the login route.
//   - [RequireAdmin] additionally answers 403 when the session lacks the admin scope.
//   - [Guard] applies a [Policy] of protected and admin-only path prefixes to a whole mux.
//
// Each guard takes one session snapshot per request and stores it in the request context,
// see [StatusFromContext].
//
// # What this package must NOT do
//
//   - Decode tokens or call the account service (the Engine owns the session).
//   - Renew or clear the session on behalf of a request.
package middleware
