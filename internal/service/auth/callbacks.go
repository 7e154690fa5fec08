package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/projpool/projpool/internal/repository"
	"github.com/projpool/projpool/internal/service/auth/jwtmanager"
)

// Machine readable codes of rejected requests
const (
	ErrorTokenRevoked          = "token_revoked"
	ErrorTokenExpired          = "token_expired"
	ErrorInvalidToken          = "invalid_token"
	ErrorAuthorizationRequired = "authorization_required"
	ErrorFreshTokenRequired    = "fresh_token_required"
	ErrorAdminRequired         = "admin_required"
)

// Identity with admin rights until roles are stored with users
const AdminIdentity = "1"

type revokedBody struct {
	Description string `json:"description"`
	// Misspelled key is what existing clients read
	LegacyDescription string `json:"decsription"`
	Error             string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type descriptionBody struct {
	Description string `json:"description"`
	Error       string `json:"error"`
}

type rejectionRecorder interface {
	AuthRejected(code string)
}

type noopRecorder struct{}

func (noopRecorder) AuthRejected(string) {}

// Callbacks is the default authentication policy
type Callbacks struct {
	blocklist repository.BlocklistRepo
	metrics   rejectionRecorder
}

var _ jwtmanager.Hooks = (*Callbacks)(nil)

func NewCallbacks(blocklist repository.BlocklistRepo, metrics rejectionRecorder) *Callbacks {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Callbacks{blocklist: blocklist, metrics: metrics}
}

func (c *Callbacks) AdditionalClaims(identity string) jwtmanager.AdditionalClaims {
	return jwtmanager.AdditionalClaims{IsAdmin: identity == AdminIdentity}
}

func (c *Callbacks) TokenInBlocklist(ctx context.Context, claims *jwtmanager.Claims) (bool, error) {
	found, err := c.blocklist.Contains(ctx, claims.ID)
	if err != nil {
		return false, fmt.Errorf("error while looking up revoked token. Err: %w", err)
	}
	return found, nil
}

func (c *Callbacks) RevokedToken(*jwtmanager.Claims) jwtmanager.Response {
	return c.reject(ErrorTokenRevoked, revokedBody{
		Description:       "Token has been revoked",
		LegacyDescription: "Token has been revoked",
		Error:             ErrorTokenRevoked,
	})
}

func (c *Callbacks) ExpiredToken(*jwtmanager.Claims) jwtmanager.Response {
	return c.reject(ErrorTokenExpired, messageBody{Message: "Token has expired", Error: ErrorTokenExpired})
}

func (c *Callbacks) InvalidToken(error) jwtmanager.Response {
	return c.reject(ErrorInvalidToken, messageBody{Message: "Signature verification failed", Error: ErrorInvalidToken})
}

func (c *Callbacks) Unauthorized(error) jwtmanager.Response {
	return c.reject(ErrorAuthorizationRequired, descriptionBody{
		Description: "Request does not contain access token",
		Error:       ErrorAuthorizationRequired,
	})
}

func (c *Callbacks) FreshRequired(*jwtmanager.Claims) jwtmanager.Response {
	return c.reject(ErrorFreshTokenRequired, descriptionBody{
		Description: "Fresh token required",
		Error:       ErrorFreshTokenRequired,
	})
}

func (c *Callbacks) AdminRequired(*jwtmanager.Claims) jwtmanager.Response {
	return c.reject(ErrorAdminRequired, descriptionBody{
		Description: "Admin privilege required",
		Error:       ErrorAdminRequired,
	})
}

func (c *Callbacks) reject(code string, body any) jwtmanager.Response {
	c.metrics.AuthRejected(code)
	return jwtmanager.Response{Status: http.StatusUnauthorized, Body: body}
}
