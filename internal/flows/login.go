package flows

import (
	"context"
	"strconv"
)

// LoginMetrics carries metric IDs used by the login flows.
type LoginMetrics struct {
	LoginSuccess       int
	LoginFailure       int
	SilentLoginSuccess int
	SilentLoginFailure int
}

// LoginEvents carries audit event names used by the login flows.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
	SilentLogin  string
}

// LoginErrors carries host-level sentinel errors used by the login flows.
type LoginErrors struct {
	EngineNotReady       error
	AlreadyAuthenticated error
	NotAuthenticated     error
}

// LoginDeps captures interactive login dependencies.
type LoginDeps struct {
	IsAuthenticated func() bool
	CurrentUserID   func() (int64, bool)
	// APILogin asks the service to set the credential cookie.
	APILogin func(ctx context.Context, email, password string) error
	// FetchToken commits a fresh access token and reports success.
	FetchToken func(ctx context.Context) bool

	MetricInc func(int)
	EmitAudit AuditFunc
	Info      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin logs in with credentials and then fetches the first access token.
// State is untouched when the session is already authenticated.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Info == nil {
		deps.Info = noopLog
	}
	if deps.IsAuthenticated == nil || deps.APILogin == nil || deps.FetchToken == nil {
		return deps.Errors.EngineNotReady
	}

	if deps.IsAuthenticated() {
		return deps.Errors.AlreadyAuthenticated
	}

	if err := deps.APILogin(ctx, email, password); err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, 0, err, func() map[string]string {
			return map[string]string{"reason": "credentials_rejected"}
		})
		return err
	}

	if !deps.FetchToken(ctx) {
		err := deps.Errors.NotAuthenticated
		reason := "token_fetch_failed"
		if ctxErr := ctx.Err(); ctxErr != nil {
			err, reason = ctxErr, "canceled"
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, 0, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	var userID int64
	if deps.CurrentUserID != nil {
		userID, _ = deps.CurrentUserID()
	}
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, userID, nil, nil)
	deps.Info("login succeeded", "user_id", userID)
	return nil
}

// SilentLoginDeps captures dependencies of the silent login.
type SilentLoginDeps struct {
	IsAuthenticated func() bool
	CurrentUserID   func() (int64, bool)
	// RestoreCredential loads a persisted credential cookie, if any.
	RestoreCredential func(ctx context.Context) (bool, error)
	FetchToken        func(ctx context.Context) bool

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLoginSilently tries to obtain a token from a credential left by an earlier login.
// Failures are never returned; the caller observes the outcome through the session state.
func RunLoginSilently(ctx context.Context, deps SilentLoginDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopLog
	}
	if deps.IsAuthenticated == nil || deps.FetchToken == nil {
		return deps.Errors.EngineNotReady
	}

	if deps.IsAuthenticated() {
		return deps.Errors.AlreadyAuthenticated
	}

	restored := false
	if deps.RestoreCredential != nil {
		var err error
		restored, err = deps.RestoreCredential(ctx)
		if err != nil {
			deps.Warn("credential restore failed", "error", err)
		}
	}

	if !deps.FetchToken(ctx) {
		deps.MetricInc(deps.Metrics.SilentLoginFailure)
		deps.EmitAudit(ctx, deps.Events.SilentLogin, false, 0, nil, func() map[string]string {
			return map[string]string{"credential_restored": strconv.FormatBool(restored)}
		})
		return nil
	}

	var userID int64
	if deps.CurrentUserID != nil {
		userID, _ = deps.CurrentUserID()
	}
	deps.MetricInc(deps.Metrics.SilentLoginSuccess)
	deps.EmitAudit(ctx, deps.Events.SilentLogin, true, userID, nil, nil)
	return nil
}
