package jwtmanager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/projpool/projpool/internal/models"
)

const (
	DefaultAccessTTL  = 3 * time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour

	defaultSigningMethod = "HS256"
	bearerPrefix         = "Bearer "
)

var (
	ErrNoToken        = errors.New("request does not contain token")
	ErrWrongTokenType = errors.New("wrong token type")
)

type AdditionalClaims struct {
	IsAdmin bool `json:"is_admin"`
}

type Claims struct {
	jwt.RegisteredClaims
	AdditionalClaims

	Type  string `json:"type"`
	Fresh bool   `json:"fresh"`
}

// Identity is the subject the token was issued for
func (c *Claims) Identity() string {
	return c.Subject
}

// Response rendered to the client when token is rejected
type Response struct {
	Status int
	Body   any
}

// Hooks decide authentication policy. The manager calls them, never the other way around.
type Hooks interface {
	// Extra claims stored in every token issued for identity
	AdditionalClaims(identity string) AdditionalClaims

	// Whether the token was revoked
	TokenInBlocklist(ctx context.Context, claims *Claims) (bool, error)

	// Responses for every rejection kind
	RevokedToken(claims *Claims) Response
	ExpiredToken(claims *Claims) Response
	InvalidToken(err error) Response
	Unauthorized(err error) Response
}

var hookNames = []string{
	"additional_claims",
	"token_in_blocklist",
	"revoked_token",
	"expired_token",
	"invalid_token",
	"unauthorized",
}

// Rejection returned by Verify when request has to be answered with the hook response
type Rejection struct {
	Response Response
	Err      error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("token rejected: %v", r.Err)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

type Config struct {
	// Secret key to sign tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Manager struct {
	key        []byte
	alg        jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	hooks      Hooks
	parser     *jwt.Parser

	// Replaced in tests
	now func() time.Time
}

func New(cfg Config, hooks Hooks) (*Manager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if hooks == nil {
		return nil, errors.New("hooks must not be nil")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method %q", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, DefaultAccessTTL)
	setDefaultDuration(&cfg.RefreshTTL, DefaultRefreshTTL)

	m := &Manager{
		key:        []byte(cfg.SecretKey),
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		hooks:      hooks,
		now:        time.Now,
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)

	return m, nil
}

// Names of the hooks the manager calls, in the order they are consulted
func (m *Manager) HookNames() []string {
	names := make([]string, len(hookNames))
	copy(names, hookNames)
	return names
}

func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *Manager) CreateAccessToken(identity string, fresh bool) (models.IssuedToken, error) {
	return m.create(identity, models.TokenTypeAccess, fresh, m.accessTTL)
}

func (m *Manager) CreateRefreshToken(identity string) (models.IssuedToken, error) {
	return m.create(identity, models.TokenTypeRefresh, false, m.refreshTTL)
}

func (m *Manager) create(identity string, tokenType string, fresh bool, ttl time.Duration) (models.IssuedToken, error) {
	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()

	token := jwt.NewWithClaims(m.alg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AdditionalClaims: m.hooks.AdditionalClaims(identity),
		Type:             tokenType,
		Fresh:            fresh,
	})

	value, err := token.SignedString(m.key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing %s token. Err: %w", tokenType, err)
	}

	return models.IssuedToken{Value: value, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Decode parses token and validates signature and time based claims.
// On expired token the claims are returned together with the error.
func (m *Manager) Decode(value string) (*Claims, error) {
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	return claims, err
}

// Verify authenticates request with 'Authorization: Bearer <token>' header.
// Returns *Rejection when the request has to be rejected with hook response.
// Any other error means verification could not be completed.
func (m *Manager) Verify(ctx context.Context, r *http.Request, tokenType string) (*Claims, error) {
	value, err := extractBearer(r)
	if err != nil {
		return nil, &Rejection{Response: m.hooks.Unauthorized(err), Err: err}
	}

	// Signature is checked before time claims, so expired error means the token is genuine
	claims, err := m.Decode(value)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, &Rejection{Response: m.hooks.ExpiredToken(claims), Err: err}
	case err != nil:
		return nil, &Rejection{Response: m.hooks.InvalidToken(err), Err: err}
	}

	if claims.Type != tokenType {
		err := fmt.Errorf("%w: expected %s, got %q", ErrWrongTokenType, tokenType, claims.Type)
		return nil, &Rejection{Response: m.hooks.InvalidToken(err), Err: err}
	}

	revoked, err := m.hooks.TokenInBlocklist(ctx, claims)
	if err != nil {
		return nil, fmt.Errorf("error while checking token blocklist. Err: %w", err)
	}
	if revoked {
		return nil, &Rejection{Response: m.hooks.RevokedToken(claims), Err: errors.New("token revoked")}
	}

	return claims, nil
}

func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}

	value, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: expected 'Authorization: Bearer <JWT>'", ErrNoToken)
	}

	return strings.TrimSpace(value), nil
}
