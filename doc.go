// Package goAuthClient is the client-side session manager for the account service: it signs a
// user in, keeps the short-lived access token renewed ahead of expiry and runs the account
// operations (profile, email, password, roles, search, verification) on their behalf.
//
// Engine methods are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Session model
//
// The service sets a long-lived credential cookie on login; the access token is exchanged for
// it at GET /token. The Engine keeps the token in one of three states ([TokenUnknown],
// [TokenAbsent], [TokenPresent]) and decodes its claims on every query, so identity, admin
// scope and expiry always reflect the token actually held.
//
// At most one renewal task is armed at a time. Every logout or clear starts a new session
// generation; token responses and renewal callbacks from an older generation are discarded.
//
// # Architecture boundaries
//
// goAuthClient is the public surface. It exposes [Engine], [Builder], [Config] and value types
// (Status, MetricsSnapshot). HTTP encoding lives in package api, the credential cookie in
// package session, flow orchestration and audit dispatch under internal/.
//
// # What this package must NOT do
//
//   - Hold the state lock across a network call.
//   - Return transport errors from LoginSilently or FetchAccessToken; their outcome is the
//     session state.
//   - Import any sub-package that re-imports goAuthClient (no import cycles).
package goAuthClient
