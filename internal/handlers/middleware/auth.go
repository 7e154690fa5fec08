package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/projpool/projpool/internal/handlers/claimsctx"
	"github.com/projpool/projpool/internal/handlers/render"
	"github.com/projpool/projpool/internal/models"
	"github.com/projpool/projpool/internal/service/auth/jwtmanager"
)

// Level of authentication a route requires
type Level int

const (
	Public Level = iota
	Access
	Fresh
	Admin
	Refresh
)

func (l Level) String() string {
	switch l {
	case Public:
		return "public"
	case Access:
		return "access"
	case Fresh:
		return "fresh"
	case Admin:
		return "admin"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

type verifier interface {
	Verify(ctx context.Context, r *http.Request, tokenType string) (*jwtmanager.Claims, error)
}

// Responses for valid tokens that still are not enough for the route
type policy interface {
	FreshRequired(claims *jwtmanager.Claims) jwtmanager.Response
	AdminRequired(claims *jwtmanager.Claims) jwtmanager.Response
}

type errorLogger interface {
	Error(msg string, args ...any)
}

type Authenticator struct {
	verifier verifier
	policy   policy
	logger   errorLogger
}

func NewAuth(v verifier, p policy, l errorLogger) *Authenticator {
	return &Authenticator{verifier: v, policy: p, logger: l}
}

// Require returns middleware that lets request through only with token good for level.
// Claims of the accepted token are stored in request context.
func (a *Authenticator) Require(level Level) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if level == Public {
			return next
		}

		tokenType := models.TokenTypeAccess
		if level == Refresh {
			tokenType = models.TokenTypeRefresh
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.verifier.Verify(r.Context(), r, tokenType)
			if err != nil {
				var rejection *jwtmanager.Rejection
				if errors.As(err, &rejection) {
					render.JSONStatus(w, rejection.Response.Body, rejection.Response.Status)
					return
				}

				a.logger.Error("token verification failed", "error", err, "uri", r.RequestURI)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			switch {
			case level == Fresh && !claims.Fresh:
				resp := a.policy.FreshRequired(claims)
				render.JSONStatus(w, resp.Body, resp.Status)
				return
			case level == Admin && !claims.IsAdmin:
				resp := a.policy.AdminRequired(claims)
				render.JSONStatus(w, resp.Body, resp.Status)
				return
			}

			next.ServeHTTP(w, r.WithContext(claimsctx.New(r.Context(), claims)))
		})
	}
}
