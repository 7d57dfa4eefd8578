package flows

import (
	"context"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/validate"
)

// AccountOp describes one account call.
type AccountOp struct {
	// Event is the audit event name; empty emits nothing.
	Event string
	// Target is the user the call acts on; 0 when it does not address a user.
	Target int64
	// Rules and Values are validated before anything is sent.
	Rules  validate.Set
	Values map[string]any
	// Protected calls need the session token.
	Protected bool
	// AdminOnly calls are refused locally unless the session is an admin.
	AdminOnly bool
	Call      func(ctx context.Context, token string) error
}

// AccountMetrics carries metric IDs used by the account flows.
type AccountMetrics struct {
	AccountUpdate      int
	ValidationRejected int
	AccountDeleted     int
}

// AccountErrors carries host-level sentinel errors used by the account flows.
type AccountErrors struct {
	EngineNotReady   error
	NotAuthenticated error
	Forbidden        error
}

// AccountDeps captures account operation dependencies.
type AccountDeps struct {
	Token         func() (string, bool)
	CurrentUserID func() (int64, bool)
	IsAdmin       func() bool
	// InvalidateProfile drops the cached self profile.
	InvalidateProfile func()

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics AccountMetrics
	Errors  AccountErrors
}

// RunAccountOp validates op, runs it and records the outcome. A successful call that targets
// the session user invalidates the cached profile.
func RunAccountOp(ctx context.Context, op AccountOp, deps AccountDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if op.Call == nil {
		return deps.Errors.EngineNotReady
	}

	if op.Rules != nil {
		if err := api.NewInvalidFieldsError(op.Rules.Validate(op.Values)); err != nil {
			deps.MetricInc(deps.Metrics.ValidationRejected)
			return err
		}
	}

	var token string
	if op.Protected {
		if deps.Token == nil {
			return deps.Errors.EngineNotReady
		}
		var ok bool
		if token, ok = deps.Token(); !ok {
			return deps.Errors.NotAuthenticated
		}
	}
	if op.AdminOnly && (deps.IsAdmin == nil || !deps.IsAdmin()) {
		return deps.Errors.Forbidden
	}

	err := op.Call(ctx, token)
	if op.Event != "" {
		deps.EmitAudit(ctx, op.Event, err == nil, op.Target, err, nil)
	}
	if err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.AccountUpdate)
	if isSelf(op.Target, deps.CurrentUserID) && deps.InvalidateProfile != nil {
		deps.InvalidateProfile()
	}
	return nil
}

// DeleteEvents carries audit event names used by the delete flow.
type DeleteEvents struct {
	AccountDeleted string
}

// DeleteDeps captures account deletion dependencies.
type DeleteDeps struct {
	Account AccountDeps
	// APIDelete deletes the user on the service.
	APIDelete func(ctx context.Context, userID int64, token string) error
	// ClearLocal ends the session without contacting the service.
	ClearLocal func(ctx context.Context)

	Events DeleteEvents
}

// RunDeleteUser deletes userID. Deleting the session user ends the session locally.
func RunDeleteUser(ctx context.Context, userID int64, deps DeleteDeps) error {
	if deps.APIDelete == nil || deps.ClearLocal == nil {
		return deps.Account.Errors.EngineNotReady
	}
	self := isSelf(userID, deps.Account.CurrentUserID)

	err := RunAccountOp(ctx, AccountOp{
		Event:     deps.Events.AccountDeleted,
		Target:    userID,
		Protected: true,
		Call: func(ctx context.Context, token string) error {
			return deps.APIDelete(ctx, userID, token)
		},
	}, deps.Account)
	if err != nil {
		return err
	}

	if deps.Account.MetricInc != nil {
		deps.Account.MetricInc(deps.Account.Metrics.AccountDeleted)
	}
	if self {
		deps.ClearLocal(ctx)
	}
	return nil
}

func isSelf(target int64, current func() (int64, bool)) bool {
	if target == 0 || current == nil {
		return false
	}
	id, ok := current()
	return ok && id == target
}
