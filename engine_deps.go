package goAuthClient

import (
	"context"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/jwt"
)

func (e *Engine) initFlowDeps() {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	emitAudit := func(ctx context.Context, event string, success bool, userID int64, err error, metadata func() map[string]string) {
		e.emitAudit(ctx, event, success, userID, err, metadata)
	}

	loginMetrics := flows.LoginMetrics{
		LoginSuccess:       int(MetricLoginSuccess),
		LoginFailure:       int(MetricLoginFailure),
		SilentLoginSuccess: int(MetricSilentLoginSuccess),
		SilentLoginFailure: int(MetricSilentLoginFailure),
	}
	loginEvents := flows.LoginEvents{
		LoginSuccess: auditEventLoginSuccess,
		LoginFailure: auditEventLoginFailure,
		SilentLogin:  auditEventSilentLogin,
	}
	loginErrors := flows.LoginErrors{
		EngineNotReady:       ErrEngineNotReady,
		AlreadyAuthenticated: ErrAlreadyAuthenticated,
		NotAuthenticated:     ErrNotAuthenticated,
	}
	fetch := func(ctx context.Context) bool { return e.FetchAccessToken(ctx) }

	e.flowDeps.Login = flows.LoginDeps{
		IsAuthenticated: e.IsAuthenticated,
		CurrentUserID:   e.CurrentUserID,
		APILogin:        e.client.Login,
		FetchToken:      fetch,
		MetricInc:       metricInc,
		EmitAudit:       emitAudit,
		Info:            e.logger.Info,
		Metrics:         loginMetrics,
		Events:          loginEvents,
		Errors:          loginErrors,
	}

	e.flowDeps.Silent = flows.SilentLoginDeps{
		IsAuthenticated:   e.IsAuthenticated,
		CurrentUserID:     e.CurrentUserID,
		RestoreCredential: e.jar.Restore,
		FetchToken:        fetch,
		MetricInc:         metricInc,
		EmitAudit:         emitAudit,
		Warn:              e.logger.Warn,
		Metrics:           loginMetrics,
		Events:            loginEvents,
		Errors:            loginErrors,
	}

	e.flowDeps.Token = flows.TokenDeps{
		Epoch:        e.currentEpoch,
		RequestToken: e.client.Token,
		Decode: func(token string) (*jwt.AccessClaims, error) {
			return e.decode(token)
		},
		Commit:          e.commitToken,
		ScheduleRenewal: e.ScheduleRenewal,
		Now:             e.now,
		MetricInc:       metricInc,
		Observe: func(id int, d time.Duration) {
			e.metrics.Observe(MetricID(id), d)
		},
		EmitAudit: emitAudit,
		Debug:     e.logger.Debug,
		Metrics: flows.TokenMetrics{
			FetchSuccess: int(MetricTokenFetchSuccess),
			FetchFailure: int(MetricTokenFetchFailure),
			FetchStale:   int(MetricTokenFetchStale),
			FetchLatency: int(MetricTokenFetchLatency),
		},
		Events: flows.TokenEvents{
			Refreshed:     auditEventTokenRefreshed,
			RefreshFailed: auditEventTokenRefreshFailed,
		},
	}

	e.flowDeps.Renewal = flows.RenewalDeps{
		Retries:    e.config.Session.RenewalRetries,
		RetryDelay: e.config.Session.RenewalRetryDelay,
		Fetch:      e.fetchToken,
		MetricInc:  metricInc,
		EmitAudit:  emitAudit,
		Warn:       e.logger.Warn,
		Metrics: flows.RenewalMetrics{
			RenewalRetry:   int(MetricRenewalRetry),
			SessionExpired: int(MetricSessionExpired),
		},
		Events: flows.RenewalEvents{
			SessionExpired: auditEventSessionExpired,
		},
	}

	e.flowDeps.Logout = flows.LogoutDeps{
		Detach:          e.detach,
		APILogout:       e.client.Logout,
		ClearCredential: e.jar.Clear,
		MetricInc:       metricInc,
		EmitAudit:       emitAudit,
		Info:            e.logger.Info,
		Warn:            e.logger.Warn,
		Metrics: flows.LogoutMetrics{
			Logout:              int(MetricLogout),
			LogoutRemoteFailure: int(MetricLogoutRemoteFailure),
		},
		Events: flows.LogoutEvents{
			Logout:             auditEventLogout,
			LogoutRemoteFailed: auditEventLogoutRemoteFailed,
		},
		Errors: flows.LogoutErrors{
			EngineNotReady:   ErrEngineNotReady,
			NotAuthenticated: ErrNotAuthenticated,
		},
	}

	e.flowDeps.Account = flows.AccountDeps{
		Token: func() (string, bool) {
			if !e.IsAuthenticated() {
				return "", false
			}
			token := e.AccessToken()
			return token, token != ""
		},
		CurrentUserID:     e.CurrentUserID,
		IsAdmin:           e.IsAdmin,
		InvalidateProfile: e.invalidateProfile,
		MetricInc:         metricInc,
		EmitAudit:         emitAudit,
		Metrics: flows.AccountMetrics{
			AccountUpdate:      int(MetricAccountUpdate),
			ValidationRejected: int(MetricValidationRejected),
			AccountDeleted:     int(MetricAccountDeleted),
		},
		Errors: flows.AccountErrors{
			EngineNotReady:   ErrEngineNotReady,
			NotAuthenticated: ErrNotAuthenticated,
			Forbidden:        ErrForbidden,
		},
	}

	e.flowDeps.Delete = flows.DeleteDeps{
		Account:    e.flowDeps.Account,
		APIDelete:  e.client.DeleteUser,
		ClearLocal: e.clearLocal,
		Events: flows.DeleteEvents{
			AccountDeleted: auditEventAccountDeleted,
		},
	}
}
