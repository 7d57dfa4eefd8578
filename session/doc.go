// Package session persists the long-lived login credential of the account service.
//
// POST /login answers with a cookie that later buys access tokens from GET /token. [Jar] holds
// that cookie for the API client and mirrors it into a [CredentialStore] so a new process can
// log in silently.
//
// # Stores
//
//   - [MemoryStore]: process lifetime only.
//   - [RedisStore]: one key per prefix, expiring with the longest-lived cookie.
//   - [FileStore]: a JSON file with mode 0600.
//
// Records are JSON with a schema version. Unknown versions fail with [ErrUnsupportedSchema].
//
// # What this package must NOT do
//
//   - Import goAuthClient, api, or jwt (no upward imports).
//   - Store access tokens. Only the credential cookie is persisted.
package session
