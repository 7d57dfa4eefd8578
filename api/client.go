package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is where the account service listens in development.
const DefaultBaseURL = "http://localhost:3000/api/v1"

// Config configures a [Client]. Zero values fall back to defaults.
type Config struct {
	BaseURL   string        `env:"URL" envDefault:"http://localhost:3000/api/v1"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"15s"`
	UserAgent string        `env:"USER_AGENT" envDefault:"goAuthClient"`
	// RateLimit caps outbound requests per second; 0 disables the limiter.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"RATE_BURST" envDefault:"10"`
}

// Option customizes a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Its Jar is kept unless
// [WithCookieJar] is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.http = &cp
		}
	}
}

// WithCookieJar sets the jar that holds the long-lived login credential.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLimiter sets the outbound request limiter, overriding Config.RateLimit.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// Client talks to the account service. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	jar       http.CookieJar
	limiter   *rate.Limiter
	logger    *slog.Logger
	userAgent string
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("base url must be http or https")
	}
	if base.Host == "" {
		return nil, errors.New("base url must have a host")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("timeout must not be negative")
	}
	if cfg.RateLimit < 0 {
		return nil, errors.New("rate limit must not be negative")
	}

	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    slog.New(slog.DiscardHandler),
		userAgent: cfg.UserAgent,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.jar != nil {
		c.http.Jar = c.jar
	}
	if c.http.Timeout == 0 && cfg.Timeout > 0 {
		c.http.Timeout = cfg.Timeout
	}
	return c, nil
}

// BaseURL returns the service root all paths are resolved against.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Register creates an unverified account.
func (c *Client) Register(ctx context.Context, in Registration) error {
	return c.do(ctx, http.MethodPost, "/register", nil, "", false, in, nil)
}

// Login exchanges credentials for the long-lived credential cookie. It does not return an access token.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/login", nil, "", false, credentialsRequest{Email: email, Password: password}, nil)
}

// Token exchanges the credential cookie for a short-lived access token.
func (c *Client) Token(ctx context.Context) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodGet, "/token", nil, "", false, nil, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrConnection)
	}
	return out.AccessToken, nil
}

// Logout invalidates the credential cookie of userID on the service.
func (c *Client) Logout(ctx context.Context, userID int64, token string) error {
	return c.do(ctx, http.MethodPost, userPath(userID, "logout"), nil, token, true, struct{}{}, nil)
}

// User fetches one public user record.
func (c *Client) User(ctx context.Context, userID int64, token string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, userPath(userID, ""), nil, token, true, nil, &out); err != nil {
		return nil, err
	}
	out.ID = userID
	return &out, nil
}

// UpdateContactData changes the non-nil fields of patch.
func (c *Client) UpdateContactData(ctx context.Context, userID int64, patch ContactDataPatch, token string) error {
	return c.do(ctx, http.MethodPut, userPath(userID, ""), nil, token, true, patch, nil)
}

// UpdateEmail starts an email change that must be confirmed with [Client.VerifyEmailChange].
func (c *Client) UpdateEmail(ctx context.Context, userID int64, email, token string) error {
	return c.do(ctx, http.MethodPost, userPath(userID, "email-change"), nil, token, true, emailRequest{Email: email}, nil)
}

// UpdateEmailPrivileged changes the email without verification.
func (c *Client) UpdateEmailPrivileged(ctx context.Context, userID int64, email, token string) error {
	return c.do(ctx, http.MethodPost, userPath(userID, "email-change-privileged"), nil, token, true, emailRequest{Email: email}, nil)
}

// UpdateRole assigns role to userID.
func (c *Client) UpdateRole(ctx context.Context, userID int64, role, token string) error {
	return c.do(ctx, http.MethodPut, userPath(userID, "role"), nil, token, true, roleRequest{Role: role}, nil)
}

// UpdatePassword changes the password after checking oldPassword.
func (c *Client) UpdatePassword(ctx context.Context, userID int64, oldPassword, newPassword, token string) error {
	body := passwordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	return c.do(ctx, http.MethodPut, userPath(userID, "password"), nil, token, true, body, nil)
}

// UpdatePasswordPrivileged changes the password without the old one.
func (c *Client) UpdatePasswordPrivileged(ctx context.Context, userID int64, newPassword, token string) error {
	body := passwordRequest{NewPassword: newPassword}
	return c.do(ctx, http.MethodPut, userPath(userID, "password-privileged-change"), nil, token, true, body, nil)
}

// DeleteUser permanently deletes userID.
func (c *Client) DeleteUser(ctx context.Context, userID int64, token string) error {
	return c.do(ctx, http.MethodDelete, userPath(userID, ""), nil, token, true, nil, nil)
}

// Search returns one page of users matching q. q is sent as given.
func (c *Client) Search(ctx context.Context, q SearchQuery, token string) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, "/users", q.Values(), token, true, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

// SearchCount returns how many users match the filters of q.
func (c *Client) SearchCount(ctx context.Context, q SearchQuery, token string) (int, error) {
	var out lengthResponse
	if err := c.do(ctx, http.MethodGet, "/users/length", q.filterValues(), token, true, nil, &out); err != nil {
		return 0, err
	}
	return out.Length, nil
}

// VerifyEmailChange confirms a pending email change with the mailed code.
func (c *Client) VerifyEmailChange(ctx context.Context, userID int64, code int) error {
	return c.do(ctx, http.MethodPost, userPath(userID, "email-change-verify"), nil, "", false, codeRequest{Code: code}, nil)
}

// VerifyUser confirms a registration with the mailed code.
func (c *Client) VerifyUser(ctx context.Context, userID int64, code int) error {
	return c.do(ctx, http.MethodPost, userPath(userID, "verify"), nil, "", false, codeRequest{Code: code}, nil)
}

// Roles lists the role names the service accepts.
func (c *Client) Roles(ctx context.Context, token string) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/role", nil, token, true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func userPath(userID int64, action string) string {
	p := "/users/" + strconv.FormatInt(userID, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

func bearer(token string) (string, error) {
	if token == "" {
		return "", ErrNotAuthenticated
	}
	return "Bearer " + token, nil
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	token string,
	protected bool,
	in, out any,
) error {
	var auth string
	if protected {
		var err error
		if auth, err = bearer(token); err != nil {
			return err
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	id := requestID(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, id)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", id),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", id),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrConnection, method, path, err)
	}
	return nil
}
