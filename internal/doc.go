// Package internal groups the engine's private building blocks.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: the login, token, renewal, logout and account orchestration behind every Engine
//     method
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthClient API other than through aliases.
//   - Be imported by any package outside the goAuthClient module.
package internal
