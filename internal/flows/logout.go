package flows

import (
	"context"
)

// LogoutMetrics carries metric IDs used by the logout flow.
type LogoutMetrics struct {
	Logout              int
	LogoutRemoteFailure int
}

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	Logout             string
	LogoutRemoteFailed string
}

// LogoutErrors carries host-level sentinel errors used by the logout flow.
type LogoutErrors struct {
	EngineNotReady   error
	NotAuthenticated error
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	// Detach cancels the pending renewal, starts a new session generation and clears the
	// token and cached profile. It returns what the session held before.
	Detach func() (token string, userID int64, ok bool)
	// APILogout invalidates the credential on the service.
	APILogout func(ctx context.Context, userID int64, token string) error
	// ClearCredential forgets the persisted credential cookie.
	ClearCredential func(ctx context.Context) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Info      func(string, ...any)
	Warn      func(string, ...any)

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunLogout ends the session locally and, best effort, on the service.
// Remote failures are reported through audit and logs only.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Info == nil {
		deps.Info = noopLog
	}
	if deps.Warn == nil {
		deps.Warn = noopLog
	}
	if deps.Detach == nil {
		return deps.Errors.EngineNotReady
	}

	token, userID, ok := deps.Detach()
	if !ok {
		return deps.Errors.NotAuthenticated
	}

	if deps.APILogout != nil {
		if err := deps.APILogout(ctx, userID, token); err != nil {
			deps.MetricInc(deps.Metrics.LogoutRemoteFailure)
			deps.EmitAudit(ctx, deps.Events.LogoutRemoteFailed, false, userID, err, nil)
			deps.Warn("remote logout failed", "user_id", userID, "error", err)
		}
	}

	if deps.ClearCredential != nil {
		if err := deps.ClearCredential(ctx); err != nil {
			deps.Warn("credential clear failed", "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, userID, nil, nil)
	deps.Info("logged out", "user_id", userID)
	return nil
}
