// Package jwt decodes access-token claims for the client session and, when signing keys are
// configured, verifies or mints tokens.
//
// # Decoding vs verifying
//
// A client usually holds no verification key: [Unverified] reads the claims without checking the
// signature, which is enough to learn the subject, expiry and permission scopes of a token the
// server just handed out. When a verify key is available, [Manager] checks the signature and the
// configured issuer/audience before returning claims.
//
// Expiry is never enforced here. An expired token still decodes so the session can schedule an
// immediate renewal instead of treating the token as garbage.
//
// # What this package must NOT do
//
//   - Perform I/O or hold session state.
//   - Import goAuthClient, api, or session.
package jwt
