// Package permission interprets the permission claim of an access token and keeps the set of
// role names known to the account service.
//
// # Scopes
//
// The permission claim is a list of scopes separated by spaces or commas, e.g.
// "users:read users:write". A scope ending in "*" grants every scope sharing its prefix, so
// "users:*" grants "users:read" and a bare "*" grants everything. The administrative wildcard
// checked by the session is configurable and defaults to [Wildcard].
//
// # What this package must NOT do
//
//   - Access the network or hold session state.
//   - Import goAuthClient, api, or session.
package permission
