// Package api is the HTTP client for the account service.
//
// Every operation of the service has one method on [Client]. Methods take plain data plus, where
// the endpoint is protected, the caller's access token, and return either the decoded payload or
// one error from a fixed taxonomy:
//
//   - [*InvalidFieldsError] (matches [ErrInvalidFields]) with per-field message keys
//   - [ErrNoSuchUser] and [ErrWrongPassword] (both match [ErrInvalidCredentials])
//   - [ErrAlreadyVerified], [ErrInvalidSearch], [ErrNotAuthenticated]
//   - [ErrConnection] for transport failures and anything the service did not classify
//
// The long-lived credential set by POST /login travels as a cookie; give the client a cookie jar
// (see the session package) to keep it between calls.
//
// # What this package must NOT do
//
//   - Hold or renew access tokens (the session engine does).
//   - Retry requests.
//   - Import goAuthClient.
package api
