// Package validate checks account form input before it is sent to the service.
//
// A [Rule] returns nil or a [Violation] holding a message key in the same format the service
// uses for invalidProperties ("validationErrorMessages.minLength.8"), so client-side and
// server-side rejections can be rendered by one [Translator].
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import any other package of this module.
package validate
