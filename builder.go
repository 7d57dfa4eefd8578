package goAuthClient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	httpClient *http.Client
	limiter    *rate.Limiter
	store      session.CredentialStore
	scheduler  refresh.Scheduler
	clock      func() time.Time
	decoder    jwt.Decoder
	auditSink  AuditSink
	logger     *slog.Logger

	built bool
}

// New returns a Builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by the redis credential backend. Without it Build dials
// Config.Credential.RedisAddr.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the transport used for API calls. The client is copied; its Jar is
// replaced by the credential jar.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithLimiter sets the outbound request limiter, overriding Config.API.RateLimit.
func (b *Builder) WithLimiter(l *rate.Limiter) *Builder {
	b.limiter = l
	return b
}

// WithCredentialStore overrides the store selected by Config.Credential.Backend.
func (b *Builder) WithCredentialStore(store session.CredentialStore) *Builder {
	b.store = store
	return b
}

// WithScheduler sets the renewal scheduler. A [refresh.ManualScheduler] also becomes the
// session clock unless WithClock is given.
func (b *Builder) WithScheduler(s refresh.Scheduler) *Builder {
	b.scheduler = s
	return b
}

func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithDecoder overrides the token decoder selected by Config.JWT.
func (b *Builder) WithDecoder(d jwt.Decoder) *Builder {
	b.decoder = d
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine in the [TokenUnknown] state.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := b.credentialStore(cfg)
	if err != nil {
		return nil, err
	}
	jar, err := session.NewJar(cfg.API.BaseURL, store, logger, session.WithPersistTimeout(cfg.API.Timeout))
	if err != nil {
		return nil, fmt.Errorf("credential jar: %w", err)
	}

	opts := []api.Option{api.WithCookieJar(jar), api.WithLogger(logger)}
	if b.httpClient != nil {
		opts = append(opts, api.WithHTTPClient(b.httpClient))
	}
	if b.limiter != nil {
		opts = append(opts, api.WithLimiter(b.limiter))
	}
	client, err := api.NewClient(cfg.API, opts...)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}

	decoder := b.decoder
	if decoder == nil {
		decoder, err = newDecoder(cfg.JWT)
		if err != nil {
			return nil, err
		}
	}

	scheduler := b.scheduler
	if scheduler == nil {
		scheduler = refresh.TimerScheduler{}
	}
	clock := b.clock
	if clock == nil {
		if c, ok := scheduler.(interface{ Now() time.Time }); ok {
			clock = c.Now
		} else {
			clock = time.Now
		}
	}

	e := &Engine{
		config:    cfg,
		client:    client,
		jar:       jar,
		store:     store,
		decoder:   decoder,
		scheduler: scheduler,
		now:       clock,
		roles:     permission.NewRoles(),
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		state: TokenUnknown,
	}
	e.initFlowDeps()

	b.built = true
	return e, nil
}

func (b *Builder) credentialStore(cfg Config) (session.CredentialStore, error) {
	if b.store != nil {
		return b.store, nil
	}
	switch cfg.Credential.Backend {
	case CredentialFile:
		return session.NewFileStore(cfg.Credential.File), nil
	case CredentialRedis:
		client := b.redis
		if client == nil {
			client = redis.NewClient(&redis.Options{Addr: cfg.Credential.RedisAddr})
		}
		return session.NewRedisStore(client, cfg.Credential.RedisPrefix), nil
	default:
		return session.NewMemoryStore(), nil
	}
}

func newDecoder(cfg JWTConfig) (jwt.Decoder, error) {
	if !cfg.VerifySignature {
		return jwt.Unverified{}, nil
	}
	jcfg := jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.SigningMethod),
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
	}
	switch jcfg.SigningMethod {
	case jwt.MethodHS256:
		jcfg.PrivateKey = []byte(cfg.Secret)
	default:
		jcfg.PublicKey = []byte(cfg.PublicKey)
	}
	m, err := jwt.NewManager(jcfg)
	if err != nil {
		return nil, fmt.Errorf("token verifier: %w", err)
	}
	return m, nil
}
