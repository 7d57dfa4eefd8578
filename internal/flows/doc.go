// Package flows contains stateless orchestrators for the Engine operations.
//
// Each flow function (RunLogin, RunFetchToken, RunRenewal, RunLogout, RunAccountOp, ...)
// takes a dependency struct of function fields and returns results without side effects
// beyond those dependencies, so every branch can be driven from tests.
//
// # Architecture boundaries
//
// Flows sequence calls to the API client, the token decoder, the session state held by the
// Engine, audit and metrics. They own none of these; the Engine does.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAuthClient (to avoid import cycles).
//   - Perform I/O directly. All I/O goes through dependency functions.
package flows
