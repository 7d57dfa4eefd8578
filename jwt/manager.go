package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when a token cannot be split or decoded.
	ErrMalformed = errors.New("malformed access token")
	// ErrMissingExpiry is returned when a token carries no exp claim.
	ErrMissingExpiry = errors.New("access token has no expiry")
	// ErrMissingSubject is returned when a token carries no user id claim.
	ErrMissingSubject = errors.New("access token has no subject")
	// ErrUnknownKey is returned when a token names a key id the Manager does not hold.
	ErrUnknownKey = errors.New("unknown signing key")
	// ErrCannotSign is returned by CreateAccess on a verify-only Manager.
	ErrCannotSign = errors.New("manager holds no signing key")
)

// SigningMethod selects the token algorithm used by [Manager].
type SigningMethod string

const (
	// MethodEd25519 signs and verifies with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs and verifies with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
)

// Config configures a [Manager].
//
// For Ed25519, keys are raw bytes or PEM. A Manager without PrivateKey can verify but not
// mint tokens. VerifyKeys, when set, selects the verify key by the kid header.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	VerifyKeys    map[string][]byte
}

// AccessClaims is the claim set carried by an access token.
type AccessClaims struct {
	UserID     int64  `json:"id"`
	Permission string `json:"permission,omitempty"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim as a time, or the zero time when absent.
func (c *AccessClaims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Decoder turns a raw token string into claims.
type Decoder interface {
	Decode(token string) (*AccessClaims, error)
}

// Unverified decodes claims without checking the signature.
type Unverified struct{}

// Decode reads the claims of token without signature or time validation.
// The token must still carry an exp and a non-zero id claim.
func (Unverified) Decode(token string) (*AccessClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformed
	}
	claims := &AccessClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := checkRequired(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Manager verifies and mints access tokens. Keys are parsed once by [NewManager]; the
// Manager is immutable and safe for concurrent use.
type Manager struct {
	ttl      time.Duration
	method   jwt.SigningMethod
	issuer   string
	audience string
	keyID    string

	signKey    any
	verifyKey  any
	verifyKeys map[string]any
}

// NewManager validates cfg, parses its keys and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	m := &Manager{
		ttl:      cfg.AccessTTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		keyID:    strings.TrimSpace(cfg.KeyID),
	}
	if m.ttl == 0 {
		m.ttl = 15 * time.Minute
	}

	var err error
	switch cfg.SigningMethod {
	case MethodHS256:
		err = m.loadHMAC(cfg)
	case MethodEd25519:
		err = m.loadEd25519(cfg)
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}
	if err != nil {
		return nil, err
	}

	if m.keyID != "" && len(m.verifyKeys) > 0 {
		if _, ok := m.verifyKeys[m.keyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}
	return m, nil
}

func (m *Manager) loadHMAC(cfg Config) error {
	if len(cfg.PrivateKey) == 0 {
		return errors.New("hs256 requires a secret")
	}
	m.method = jwt.SigningMethodHS256
	m.signKey = cfg.PrivateKey
	m.verifyKey = cfg.PrivateKey
	if len(cfg.VerifyKeys) > 0 {
		m.verifyKeys = make(map[string]any, len(cfg.VerifyKeys))
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return errors.New("verify key map contains empty kid")
			}
			m.verifyKeys[kid] = key
		}
	}
	return nil
}

func (m *Manager) loadEd25519(cfg Config) error {
	m.method = jwt.SigningMethodEdDSA
	if len(cfg.PrivateKey) > 0 {
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return err
		}
		m.signKey = priv
	}
	if len(cfg.PublicKey) > 0 {
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return err
		}
		m.verifyKey = pub
	}
	if len(cfg.VerifyKeys) > 0 {
		m.verifyKeys = make(map[string]any, len(cfg.VerifyKeys))
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return errors.New("verify key map contains empty kid")
			}
			pub, err := parseEdPublicKey(key)
			if err != nil {
				return fmt.Errorf("verify key %q: %w", kid, err)
			}
			m.verifyKeys[kid] = pub
		}
	}
	if m.verifyKey == nil && len(m.verifyKeys) == 0 {
		return errors.New("ed25519 requires a public key or verify keys")
	}
	return nil
}

// CreateAccess mints a token for userID that expires after the configured AccessTTL.
func (m *Manager) CreateAccess(userID int64, permission, role string) (string, error) {
	return m.CreateAccessWithExpiry(userID, permission, role, time.Now().Add(m.ttl))
}

// CreateAccessWithExpiry mints a token with an explicit exp claim. Past expiries are allowed.
func (m *Manager) CreateAccessWithExpiry(userID int64, permission, role string, expiresAt time.Time) (string, error) {
	if m.signKey == nil {
		return "", ErrCannotSign
	}
	claims := AccessClaims{
		UserID:     userID,
		Permission: permission,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    m.issuer,
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.keyID != "" {
		token.Header["kid"] = m.keyID
	}
	return token.SignedString(m.signKey)
}

// Decode verifies the signature, issuer and audience of token and returns its claims.
// Expiry is not enforced.
func (m *Manager) Decode(token string) (*AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, &AccessClaims{}, m.keyFor)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return nil, jwt.ErrTokenInvalidIssuer
	}
	if m.audience != "" && !slices.Contains(claims.Audience, m.audience) {
		return nil, jwt.ErrTokenInvalidAudience
	}
	if err := checkRequired(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// keyFor picks the verify key for t: by kid when VerifyKeys is set, otherwise the single key,
// which must match KeyID when one is configured.
func (m *Manager) keyFor(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if len(m.verifyKeys) > 0 {
		key, ok := m.verifyKeys[kid]
		if !ok {
			return nil, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
		}
		return key, nil
	}
	if m.keyID != "" && kid != m.keyID {
		return nil, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
	}
	if m.verifyKey == nil {
		return nil, ErrUnknownKey
	}
	return m.verifyKey, nil
}

func checkRequired(claims *AccessClaims) error {
	if claims.ExpiresAt == nil {
		return ErrMissingExpiry
	}
	if claims.UserID == 0 {
		return ErrMissingSubject
	}
	return nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
