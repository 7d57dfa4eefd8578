package goAuthClient

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/session"
	"golang.org/x/sync/singleflight"
)

// Engine is the session manager of one signed-in client.
//
// It holds the access token, derives identity from its claims on every query and keeps a
// single renewal task armed ahead of expiry. Methods are safe for concurrent use; network
// calls never run under the state lock.
type Engine struct {
	config    Config
	client    *api.Client
	jar       *session.Jar
	store     session.CredentialStore
	decoder   jwt.Decoder
	scheduler refresh.Scheduler
	now       func() time.Time
	roles     *permission.Roles
	logger    *slog.Logger
	audit     *audit.Dispatcher
	metrics   *Metrics
	flowDeps  flows.Deps

	// opMu serializes Login, LoginSilently and Logout.
	opMu sync.Mutex

	mu      sync.Mutex
	state   TokenState
	token   string
	epoch   uint64
	pending refresh.Handle
	// renewSeq identifies the armed renewal task; a callback whose seq is stale does nothing.
	renewSeq uint64
	profile  *api.User
	closed   bool

	fetches singleflight.Group
}

// Close cancels the renewal chain and drains the audit dispatcher. The token is kept so
// queries still answer; operations return ErrEngineClosed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.closed = true
	e.cancelPendingLocked()
	e.mu.Unlock()

	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live counters for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// Client returns the underlying API client.
func (e *Engine) Client() *api.Client {
	return e.client
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
LOGIN / LOGOUT
====================================
*/

// LoginSilently tries to resume a session from the credential cookie kept by an earlier
// login. The outcome is observed through IsAuthenticated; only precondition errors are
// returned.
func (e *Engine) LoginSilently(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return flows.RunLoginSilently(ctx, e.flowDeps.Silent)
}

// Login exchanges credentials for the credential cookie and fetches the first token.
// It returns ErrNotAuthenticated when the credentials were accepted but no token followed.
func (e *Engine) Login(ctx context.Context, email, password string) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return flows.RunLogin(ctx, email, password, e.flowDeps.Login)
}

// Logout ends the session. The renewal chain is stopped before the service is contacted;
// a failed remote logout is logged and audited but the local session is cleared regardless.
func (e *Engine) Logout(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return flows.RunLogout(ctx, e.flowDeps.Logout)
}

/*
====================================
TOKEN
====================================
*/

// FetchAccessToken asks the service for a fresh access token. On success the token is
// committed and renewal is rescheduled; when the service refuses the session is cleared.
// Concurrent calls in the same session generation share one request. A caller whose ctx
// ends first gets false but leaves the session to the shared request.
func (e *Engine) FetchAccessToken(ctx context.Context) bool {
	if e.ready() != nil {
		return false
	}
	res := e.fetchToken(ctx)
	switch res.Outcome {
	case flows.FetchCommitted:
		return true
	case flows.FetchFailed:
		e.clearIfEpoch(res.Epoch)
	}
	return false
}

func (e *Engine) fetchToken(ctx context.Context) flows.FetchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	key := strconv.FormatUint(e.currentEpoch(), 10)
	ch := e.fetches.DoChan(key, func() (any, error) {
		// The shared request outlives any single caller.
		fctx := context.WithoutCancel(ctx)
		if t := e.config.API.Timeout; t > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, t)
			defer cancel()
		}
		return flows.RunFetchToken(fctx, e.flowDeps.Token), nil
	})

	select {
	case r := <-ch:
		return r.Val.(flows.FetchResult)
	case <-ctx.Done():
		return flows.FetchResult{
			Outcome: flows.FetchAbandoned,
			Epoch:   e.currentEpoch(),
			Err:     ctx.Err(),
		}
	}
}

// ScheduleRenewal arms the renewal of the current token RenewBefore ahead of its expiry,
// replacing any armed renewal. It does nothing without a token.
func (e *Engine) ScheduleRenewal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduleRenewalLocked()
}

func (e *Engine) scheduleRenewalLocked() {
	if e.closed || e.state != TokenPresent {
		return
	}
	claims, err := e.decode(e.token)
	if err != nil {
		return
	}
	delay := refresh.Delay(claims.Expiry(), e.now(), e.config.Session.RenewBefore)
	e.armLocked(delay, 0)
	e.metricInc(MetricRenewalScheduled)
	e.logger.Debug("renewal scheduled", "user_id", claims.UserID, "delay", delay)
}

// armLocked replaces the pending renewal with attempt after delay.
func (e *Engine) armLocked(delay time.Duration, attempt int) {
	e.cancelPendingLocked()
	e.renewSeq++
	epoch, seq := e.epoch, e.renewSeq
	e.pending = e.scheduler.Schedule(delay, func() {
		e.renew(epoch, seq, attempt)
	})
}

func (e *Engine) cancelPendingLocked() {
	if e.pending != nil {
		e.pending.Cancel()
		e.pending = nil
	}
}

func (e *Engine) renew(epoch, seq uint64, attempt int) {
	e.mu.Lock()
	if e.closed || epoch != e.epoch || seq != e.renewSeq {
		e.mu.Unlock()
		return
	}
	e.pending = nil
	e.mu.Unlock()

	e.logger.Debug("renewing access token", "attempt", attempt)
	deps := e.flowDeps.Renewal
	deps.ScheduleRetry = func(epoch uint64, attempt int, delay time.Duration) {
		e.scheduleRetry(epoch, seq, attempt, delay)
	}
	deps.Expire = func(epoch uint64) bool {
		return e.expireRenewal(epoch, seq)
	}
	flows.RunRenewal(context.Background(), attempt, deps)
}

// scheduleRetry arms a retry only while no other renewal was armed since seq.
func (e *Engine) scheduleRetry(epoch, seq uint64, attempt int, delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || epoch != e.epoch || seq != e.renewSeq {
		return
	}
	e.armLocked(delay, attempt)
}

/*
====================================
SESSION STATE
====================================
*/

func (e *Engine) currentEpoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

func (e *Engine) commitToken(epoch uint64, token string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || epoch != e.epoch {
		return false
	}
	if e.state != TokenPresent {
		e.profile = nil
	}
	e.token = token
	e.state = TokenPresent
	return true
}

// clearLocked cancels renewal, starts a new generation and forgets the token and profile.
func (e *Engine) clearLocked() {
	e.cancelPendingLocked()
	e.epoch++
	e.token = ""
	e.state = TokenAbsent
	e.profile = nil
}

func (e *Engine) clearIfEpoch(epoch uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch {
		return false
	}
	e.clearLocked()
	return true
}

// expireRenewal clears the session for a renewal chain that gave up, unless a newer renewal
// was armed meanwhile.
func (e *Engine) expireRenewal(epoch, seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch || seq != e.renewSeq {
		return false
	}
	e.clearLocked()
	return true
}

func (e *Engine) detach() (string, int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != TokenPresent {
		return "", 0, false
	}
	token := e.token
	var userID int64
	if claims, err := e.decode(token); err == nil {
		userID = claims.UserID
	}
	e.clearLocked()
	return token, userID, true
}

// clearLocal ends the session without contacting the service.
func (e *Engine) clearLocal(ctx context.Context) {
	e.mu.Lock()
	e.clearLocked()
	e.mu.Unlock()
	if err := e.jar.Clear(ctx); err != nil {
		e.logger.Warn("credential clear failed", "error", err)
	}
}

func (e *Engine) decode(token string) (*jwt.AccessClaims, error) {
	claims, err := e.decoder.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return claims, nil
}

func (e *Engine) ready() error {
	if e == nil || e.client == nil || e.decoder == nil || e.scheduler == nil {
		return ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return nil
}

/*
====================================
DERIVED QUERIES
====================================
*/

// Claims decodes the current token. It reports false without a decodable token.
func (e *Engine) Claims() (*jwt.AccessClaims, bool) {
	if e == nil || e.decoder == nil {
		return nil, false
	}
	e.mu.Lock()
	state, token := e.state, e.token
	e.mu.Unlock()
	if state != TokenPresent {
		return nil, false
	}
	claims, err := e.decode(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// IsAuthenticated reports whether a decodable token is held. Expiry is not checked;
// renewal replaces the token before it lapses.
func (e *Engine) IsAuthenticated() bool {
	_, ok := e.Claims()
	return ok
}

// IsAdmin reports whether the permission claim contains the configured admin scope.
func (e *Engine) IsAdmin() bool {
	claims, ok := e.Claims()
	if !ok {
		return false
	}
	return permission.Parse(claims.Permission).Contains(e.config.Session.AdminScope)
}

func (e *Engine) CurrentUserID() (int64, bool) {
	claims, ok := e.Claims()
	if !ok {
		return 0, false
	}
	return claims.UserID, true
}

func (e *Engine) Expiry() (time.Time, bool) {
	claims, ok := e.Claims()
	if !ok {
		return time.Time{}, false
	}
	return claims.Expiry(), true
}

func (e *Engine) TokenState() TokenState {
	if e == nil {
		return TokenUnknown
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// AccessToken returns the raw token, or "" without one.
func (e *Engine) AccessToken() string {
	if e == nil {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// RenewalPending reports whether a renewal task is armed.
func (e *Engine) RenewalPending() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending != nil
}

// Status returns a consistent snapshot of the session.
func (e *Engine) Status() Status {
	if e == nil {
		return Status{}
	}
	e.mu.Lock()
	st := Status{
		State:          e.state,
		RenewalPending: e.pending != nil,
		Epoch:          e.epoch,
	}
	token := e.token
	e.mu.Unlock()

	if st.State != TokenPresent {
		return st
	}
	claims, err := e.decode(token)
	if err != nil {
		return st
	}
	scopes := permission.Parse(claims.Permission)
	st.Authenticated = true
	st.Admin = scopes.Contains(e.config.Session.AdminScope)
	st.UserID = claims.UserID
	st.Role = claims.Role
	st.Scopes = scopes.Scopes()
	st.ExpiresAt = claims.Expiry()
	return st
}

/*
====================================
ACCOUNT DELETION
====================================
*/

// DeleteUser deletes userID on the service. Deleting the signed-in user ends the session
// locally without a remote logout.
func (e *Engine) DeleteUser(ctx context.Context, userID int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	return flows.RunDeleteUser(ctx, userID, e.flowDeps.Delete)
}

// DeleteSelf deletes the signed-in user.
func (e *Engine) DeleteSelf(ctx context.Context) error {
	id, ok := e.CurrentUserID()
	if !ok {
		return ErrNotAuthenticated
	}
	return e.DeleteUser(ctx, id)
}
