package flows

import (
	"context"
	"strconv"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
)

// FetchOutcome classifies one token request.
type FetchOutcome uint8

const (
	// FetchFailed means the service refused or the token was unusable.
	FetchFailed FetchOutcome = iota
	// FetchCommitted means the token is now the session token.
	FetchCommitted
	// FetchStale means the session changed generation while the request was in flight;
	// the response was discarded.
	FetchStale
	// FetchAbandoned means the caller stopped waiting for a shared request. The request
	// itself decides the session state.
	FetchAbandoned
)

// FetchResult is the outcome of [RunFetchToken] together with the generation it ran in.
type FetchResult struct {
	Outcome FetchOutcome
	Epoch   uint64
	Claims  *jwt.AccessClaims
	Err     error
}

// TokenMetrics carries metric IDs used by the token flow.
type TokenMetrics struct {
	FetchSuccess int
	FetchFailure int
	FetchStale   int
	FetchLatency int
}

// TokenEvents carries audit event names used by the token flow.
type TokenEvents struct {
	Refreshed     string
	RefreshFailed string
}

// TokenDeps captures token fetch dependencies.
type TokenDeps struct {
	// Epoch returns the current session generation.
	Epoch func() uint64
	// RequestToken exchanges the credential cookie for an access token.
	RequestToken func(ctx context.Context) (string, error)
	Decode       func(token string) (*jwt.AccessClaims, error)
	// Commit stores token if epoch is still current and reports whether it did.
	Commit func(epoch uint64, token string) bool
	// ScheduleRenewal arms the next renewal for the committed token.
	ScheduleRenewal func()
	Now             func() time.Time

	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit AuditFunc
	Debug     func(string, ...any)

	Metrics TokenMetrics
	Events  TokenEvents
}

// RunFetchToken requests a token and commits it when the session generation did not change.
// It never clears state; the caller decides what a failure means.
func RunFetchToken(ctx context.Context, deps TokenDeps) FetchResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.Observe == nil {
		deps.Observe = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Debug == nil {
		deps.Debug = noopLog
	}

	epoch := deps.Epoch()
	start := deps.Now()
	token, err := deps.RequestToken(ctx)
	deps.Observe(deps.Metrics.FetchLatency, deps.Now().Sub(start))

	var claims *jwt.AccessClaims
	if err == nil {
		claims, err = deps.Decode(token)
	}
	if err != nil {
		deps.MetricInc(deps.Metrics.FetchFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailed, false, 0, err, nil)
		deps.Debug("token fetch failed", "error", err)
		return FetchResult{Outcome: FetchFailed, Epoch: epoch, Err: err}
	}

	if !deps.Commit(epoch, token) {
		deps.MetricInc(deps.Metrics.FetchStale)
		deps.Debug("token fetch discarded", "epoch", epoch)
		return FetchResult{Outcome: FetchStale, Epoch: epoch, Claims: claims}
	}

	if deps.ScheduleRenewal != nil {
		deps.ScheduleRenewal()
	}
	deps.MetricInc(deps.Metrics.FetchSuccess)
	deps.EmitAudit(ctx, deps.Events.Refreshed, true, claims.UserID, nil, func() map[string]string {
		return map[string]string{"expires_at": claims.Expiry().UTC().Format(time.RFC3339)}
	})
	return FetchResult{Outcome: FetchCommitted, Epoch: epoch, Claims: claims}
}

// RenewalMetrics carries metric IDs used by the renewal flow.
type RenewalMetrics struct {
	RenewalRetry   int
	SessionExpired int
}

// RenewalEvents carries audit event names used by the renewal flow.
type RenewalEvents struct {
	SessionExpired string
}

// RenewalDeps captures dependencies of one renewal attempt.
type RenewalDeps struct {
	Retries    int
	RetryDelay time.Duration

	Fetch func(ctx context.Context) FetchResult
	// ScheduleRetry arms attempt after delay, but only while epoch is current.
	ScheduleRetry func(epoch uint64, attempt int, delay time.Duration)
	// Expire clears the session if epoch is still current and reports whether it did.
	Expire func(epoch uint64) bool

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics RenewalMetrics
	Events  RenewalEvents
}

// RunRenewal performs renewal attempt number attempt (0 for the scheduled one). A failed
// attempt is retried up to Retries times before the session is cleared.
func RunRenewal(ctx context.Context, attempt int, deps RenewalDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopLog
	}

	res := deps.Fetch(ctx)
	// Committed, stale and abandoned fetches leave the chain to whoever owns the session now.
	if res.Outcome != FetchFailed {
		return
	}

	if attempt < deps.Retries && deps.ScheduleRetry != nil {
		deps.MetricInc(deps.Metrics.RenewalRetry)
		deps.ScheduleRetry(res.Epoch, attempt+1, deps.RetryDelay)
		return
	}

	if deps.Expire(res.Epoch) {
		deps.MetricInc(deps.Metrics.SessionExpired)
		deps.EmitAudit(ctx, deps.Events.SessionExpired, false, 0, res.Err, func() map[string]string {
			return map[string]string{"attempts": strconv.Itoa(attempt + 1)}
		})
		deps.Warn("session renewal gave up", "attempts", attempt+1, "error", res.Err)
	}
}
