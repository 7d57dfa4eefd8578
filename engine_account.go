package goAuthClient

import (
	"context"
	"strconv"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/validate"
)

func (e *Engine) runAccount(ctx context.Context, op flows.AccountOp) error {
	if err := e.ready(); err != nil {
		return err
	}
	return flows.RunAccountOp(ctx, op, e.flowDeps.Account)
}

func (e *Engine) invalidateProfile() {
	e.mu.Lock()
	e.profile = nil
	e.mu.Unlock()
}

// Register creates an account. It needs no session and does not log in.
func (e *Engine) Register(ctx context.Context, in api.Registration) error {
	rules := validate.Fields(nil).Only(
		validate.FieldEmail,
		validate.FieldPassword,
		validate.FieldName,
		validate.FieldPostcode,
		validate.FieldCity,
		validate.FieldPhone,
	)
	return e.runAccount(ctx, flows.AccountOp{
		Event: auditEventRegistered,
		Rules: rules,
		Values: map[string]any{
			validate.FieldEmail:    in.Email,
			validate.FieldPassword: in.Password,
			validate.FieldName:     in.Name,
			validate.FieldPostcode: in.Postcode,
			validate.FieldCity:     in.City,
			validate.FieldPhone:    in.Phone,
		},
		Call: func(ctx context.Context, _ string) error {
			return e.client.Register(ctx, in)
		},
	})
}

// Profile returns the signed-in user's record, cached until the next self-update or logout
// when Session.CacheProfile is set.
func (e *Engine) Profile(ctx context.Context) (*api.User, error) {
	id, ok := e.CurrentUserID()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if e.config.Session.CacheProfile {
		e.mu.Lock()
		cached := e.profile
		e.mu.Unlock()
		if cached != nil && cached.ID == id {
			u := *cached
			return &u, nil
		}
	}

	epoch := e.currentEpoch()
	u, err := e.User(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.config.Session.CacheProfile {
		e.mu.Lock()
		if epoch == e.epoch {
			cp := *u
			e.profile = &cp
		}
		e.mu.Unlock()
	}
	return u, nil
}

// User fetches any user's record.
func (e *Engine) User(ctx context.Context, userID int64) (*api.User, error) {
	var out *api.User
	err := e.runAccount(ctx, flows.AccountOp{
		Protected: true,
		Call: func(ctx context.Context, token string) error {
			u, err := e.client.User(ctx, userID, token)
			out = u
			return err
		},
	})
	return out, err
}

// UpdateContactData sends the non-nil fields of patch.
func (e *Engine) UpdateContactData(ctx context.Context, userID int64, patch api.ContactDataPatch) error {
	values := map[string]any{}
	if patch.Name != nil {
		values[validate.FieldName] = *patch.Name
	}
	if patch.Postcode != nil {
		values[validate.FieldPostcode] = *patch.Postcode
	}
	if patch.City != nil {
		values[validate.FieldCity] = *patch.City
	}
	if patch.Phone != nil {
		values[validate.FieldPhone] = *patch.Phone
	}
	return e.runAccount(ctx, flows.AccountOp{
		Event:     auditEventProfileUpdated,
		Target:    userID,
		Rules:     validate.Fields(nil),
		Values:    values,
		Protected: true,
		Call: func(ctx context.Context, token string) error {
			return e.client.UpdateContactData(ctx, userID, patch, token)
		},
	})
}

// UpdateEmail starts an email change; the new address is confirmed with VerifyEmailChange.
func (e *Engine) UpdateEmail(ctx context.Context, userID int64, email string) error {
	return e.runAccount(ctx, emailOp(userID, email, func(ctx context.Context, token string) error {
		return e.client.UpdateEmail(ctx, userID, email, token)
	}))
}

// UpdateEmailPrivileged changes the email without verification. Admin only.
func (e *Engine) UpdateEmailPrivileged(ctx context.Context, userID int64, email string) error {
	op := emailOp(userID, email, func(ctx context.Context, token string) error {
		return e.client.UpdateEmailPrivileged(ctx, userID, email, token)
	})
	op.AdminOnly = true
	return e.runAccount(ctx, op)
}

func emailOp(userID int64, email string, call func(context.Context, string) error) flows.AccountOp {
	return flows.AccountOp{
		Event:     auditEventEmailChangeRequest,
		Target:    userID,
		Rules:     validate.Fields(nil).Only(validate.FieldEmail),
		Values:    map[string]any{validate.FieldEmail: email},
		Protected: true,
		Call:      call,
	}
}

// UpdatePassword changes the password after checking the old one on the service.
// repeat must equal newPassword.
func (e *Engine) UpdatePassword(ctx context.Context, userID int64, oldPassword, newPassword, repeat string) error {
	return e.runAccount(ctx, flows.AccountOp{
		Event:  auditEventPasswordChanged,
		Target: userID,
		Rules: validate.Fields(&newPassword).Only(
			validate.FieldOldPassword,
			validate.FieldPassword,
			validate.FieldPasswordRepeat,
		),
		Values: map[string]any{
			validate.FieldOldPassword:    oldPassword,
			validate.FieldPassword:       newPassword,
			validate.FieldPasswordRepeat: repeat,
		},
		Protected: true,
		Call: func(ctx context.Context, token string) error {
			return e.client.UpdatePassword(ctx, userID, oldPassword, newPassword, token)
		},
	})
}

// UpdatePasswordPrivileged sets a password without the old one. Admin only.
func (e *Engine) UpdatePasswordPrivileged(ctx context.Context, userID int64, newPassword, repeat string) error {
	return e.runAccount(ctx, flows.AccountOp{
		Event:  auditEventPasswordChanged,
		Target: userID,
		Rules: validate.Fields(&newPassword).Only(
			validate.FieldPassword,
			validate.FieldPasswordRepeat,
		),
		Values: map[string]any{
			validate.FieldPassword:       newPassword,
			validate.FieldPasswordRepeat: repeat,
		},
		Protected: true,
		AdminOnly: true,
		Call: func(ctx context.Context, token string) error {
			return e.client.UpdatePasswordPrivileged(ctx, userID, newPassword, token)
		},
	})
}

// UpdateRole assigns role to userID. Admin only; once Roles has loaded the role list, role
// must be one of them.
func (e *Engine) UpdateRole(ctx context.Context, userID int64, role string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.roles.Allows(role) {
		return ErrUnknownRole
	}
	return e.runAccount(ctx, flows.AccountOp{
		Event:     auditEventRoleUpdated,
		Target:    userID,
		Protected: true,
		AdminOnly: true,
		Call: func(ctx context.Context, token string) error {
			return e.client.UpdateRole(ctx, userID, role, token)
		},
	})
}

// Roles fetches the assignable roles and remembers them for UpdateRole.
func (e *Engine) Roles(ctx context.Context) ([]string, error) {
	var names []string
	err := e.runAccount(ctx, flows.AccountOp{
		Protected: true,
		Call: func(ctx context.Context, token string) error {
			var err error
			names, err = e.client.Roles(ctx, token)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	if err := e.roles.Load(names); err != nil {
		e.logger.Warn("role list rejected", "error", err)
	}
	return names, nil
}

// KnownRoles returns the role list loaded by the last Roles call.
func (e *Engine) KnownRoles() []string {
	if e == nil || e.roles == nil {
		return nil
	}
	return e.roles.Names()
}

// Search lists users matching q after normalizing its paging and sorting.
func (e *Engine) Search(ctx context.Context, q api.SearchQuery) ([]api.User, error) {
	q = q.Normalize()
	var out []api.User
	err := e.runAccount(ctx, flows.AccountOp{
		Protected: true,
		Call: func(ctx context.Context, token string) error {
			var err error
			out, err = e.client.Search(ctx, q, token)
			return err
		},
	})
	return out, err
}

// SearchCount returns how many users match the filters of q.
func (e *Engine) SearchCount(ctx context.Context, q api.SearchQuery) (int, error) {
	q = q.Normalize()
	var n int
	err := e.runAccount(ctx, flows.AccountOp{
		Protected: true,
		Call: func(ctx context.Context, token string) error {
			var err error
			n, err = e.client.SearchCount(ctx, q, token)
			return err
		},
	})
	return n, err
}

// VerifyUser confirms a new account with the code sent by mail. No session is needed.
func (e *Engine) VerifyUser(ctx context.Context, userID int64, code int) error {
	return e.runAccount(ctx, codeOp(auditEventUserVerified, userID, code, e.client.VerifyUser))
}

// VerifyEmailChange confirms a pending email change. No session is needed.
func (e *Engine) VerifyEmailChange(ctx context.Context, userID int64, code int) error {
	return e.runAccount(ctx, codeOp(auditEventEmailChangeVerified, userID, code, e.client.VerifyEmailChange))
}

func codeOp(event string, userID int64, code int, call func(context.Context, int64, int) error) flows.AccountOp {
	return flows.AccountOp{
		Event:  event,
		Target: userID,
		Rules:  validate.Set{"code": {validate.Required, validate.Number}},
		Values: map[string]any{"code": strconv.Itoa(code)},
		Call: func(ctx context.Context, _ string) error {
			return call(ctx, userID, code)
		},
	}
}
