package goAuthClient

import (
	"errors"

	"github.com/MrEthical07/goAuthClient/api"
)

var (
	// ErrAlreadyAuthenticated is returned by Login and LoginSilently while a token is held.
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	// ErrNotAuthenticated is returned when an operation needs a session token and there is none,
	// and by Login when the credentials were accepted but no token could be obtained.
	ErrNotAuthenticated = api.ErrNotAuthenticated
	// ErrForbidden is returned by admin-only operations when the session is not an admin.
	ErrForbidden = errors.New("admin scope required")
	// ErrUnknownRole is returned by UpdateRole for a role the service did not list.
	ErrUnknownRole = errors.New("unknown role")
	// ErrEngineNotReady is returned when the Engine was not built by [Builder.Build].
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrEngineClosed is returned by operations after Close.
	ErrEngineClosed = errors.New("engine closed")
	// ErrTokenInvalid wraps decode failures of a token returned by the service.
	ErrTokenInvalid = errors.New("access token invalid")
)

// Service errors, re-exported from the api package.
var (
	ErrInvalidCredentials = api.ErrInvalidCredentials
	ErrNoSuchUser         = api.ErrNoSuchUser
	ErrWrongPassword      = api.ErrWrongPassword
	ErrInvalidFields      = api.ErrInvalidFields
	ErrInvalidSearch      = api.ErrInvalidSearch
	ErrAlreadyVerified    = api.ErrAlreadyVerified
	ErrConnection         = api.ErrConnection
)

// InvalidFieldsError carries per-field message keys. It matches [ErrInvalidFields].
type InvalidFieldsError = api.InvalidFieldsError
