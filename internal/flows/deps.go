package flows

import "context"

// Deps groups flow dependency sets. The root engine builds this once and delegates
// its methods to the matching flow.
type Deps struct {
	Login   LoginDeps
	Silent  SilentLoginDeps
	Token   TokenDeps
	Renewal RenewalDeps
	Logout  LogoutDeps
	Account AccountDeps
	Delete  DeleteDeps
}

// AuditFunc emits one audit event. userID is 0 when unknown.
type AuditFunc func(ctx context.Context, event string, success bool, userID int64, err error, metadata func() map[string]string)

func noopAudit(context.Context, string, bool, int64, error, func() map[string]string) {}

func noopMetric(int) {}

func noopLog(string, ...any) {}
