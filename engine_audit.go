package goAuthClient

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventSilentLogin         = "silent_login"
	auditEventTokenRefreshed      = "token_refreshed"
	auditEventTokenRefreshFailed  = "token_refresh_failed"
	auditEventSessionExpired      = "session_expired"
	auditEventLogout              = "logout"
	auditEventLogoutRemoteFailed  = "logout_remote_failed"
	auditEventAccountDeleted      = "account_deleted"
	auditEventProfileUpdated      = "profile_updated"
	auditEventPasswordChanged     = "password_changed"
	auditEventEmailChangeRequest  = "email_change_requested"
	auditEventRoleUpdated         = "role_updated"
	auditEventUserVerified        = "user_verified"
	auditEventEmailChangeVerified = "email_change_verified"
	auditEventRegistered          = "registered"
)

// AuditErrorCode is the coarse error class recorded in audit events.
type AuditErrorCode string

const (
	auditErrNotAuthenticated AuditErrorCode = "not_authenticated"
	auditErrForbidden        AuditErrorCode = "forbidden"
	auditErrNoSuchUser       AuditErrorCode = "no_such_user"
	auditErrWrongPassword    AuditErrorCode = "wrong_password"
	auditErrInvalidFields    AuditErrorCode = "invalid_fields"
	auditErrInvalidSearch    AuditErrorCode = "invalid_search"
	auditErrAlreadyVerified  AuditErrorCode = "already_verified"
	auditErrUnknownRole      AuditErrorCode = "unknown_role"
	auditErrConnection       AuditErrorCode = "connection"
	auditErrMalformedToken   AuditErrorCode = "malformed_token"
	auditErrCanceled         AuditErrorCode = "canceled"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil || eventType == "" {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	requestID, _ := api.RequestIDFromContext(ctx)

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		RequestID: requestID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrNoSuchUser):
		return auditErrNoSuchUser
	case errors.Is(err, ErrWrongPassword):
		return auditErrWrongPassword
	case errors.Is(err, ErrInvalidFields):
		return auditErrInvalidFields
	case errors.Is(err, ErrInvalidSearch):
		return auditErrInvalidSearch
	case errors.Is(err, ErrAlreadyVerified):
		return auditErrAlreadyVerified
	case errors.Is(err, ErrUnknownRole):
		return auditErrUnknownRole
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	case errors.Is(err, ErrConnection):
		return auditErrConnection
	case errors.Is(err, ErrTokenInvalid):
		return auditErrMalformedToken
	default:
		return auditErrInternal
	}
}
