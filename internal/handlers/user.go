package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/projpool/projpool/internal/handlers/claimsctx"
	"github.com/projpool/projpool/internal/handlers/middleware"
	"github.com/projpool/projpool/internal/handlers/render"
	"github.com/projpool/projpool/internal/logger"
	"github.com/projpool/projpool/internal/models"
	"github.com/projpool/projpool/internal/service/auth/jwtmanager"
)

type userService interface {
	// Register user with username and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, username string, password string) (models.User, error)

	// Login user with username and password
	// Has to return apperrors.ErrInvalidCredentials if user not found or password is wrong
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Issue new access token for refresh token claims
	Refresh(ctx context.Context, claims *jwtmanager.Claims) (models.IssuedToken, error)

	// Revoke the token claims belong to and refresh token if it is not empty
	// Has to return apperrors.ErrInvalidRefreshToken if refresh token is not of the same user
	Logout(ctx context.Context, claims *jwtmanager.Claims, refreshToken string) error

	GetUser(ctx context.Context, userID int64) (models.User, error)
	DeleteUser(ctx context.Context, userID int64) error
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Refresh token to revoke together with access token
type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty" validate:"omitempty,jwt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

func UserBlueprint(users userService, l logger.Logger) Blueprint {
	return Blueprint{
		Name:        "user",
		Description: "Registration, tokens and user accounts",
		Routes: []Route{
			{
				Method: http.MethodPost, Path: "/register", Summary: "Register user",
				Request: credentialsRequest{}, Response: userResponse{}, Status: http.StatusCreated,
				Handler: handleRegister(users, l),
			},
			{
				Method: http.MethodPost, Path: "/login", Summary: "Get fresh access token and refresh token",
				Request: credentialsRequest{}, Response: tokenPairResponse{},
				Handler: handleLogin(users, l),
			},
			{
				Method: http.MethodPost, Path: "/refresh", Summary: "Get new access token", Auth: middleware.Refresh,
				Response: accessTokenResponse{},
				Handler:  handleRefresh(users, l),
			},
			{
				Method: http.MethodPost, Path: "/logout", Summary: "Revoke access token and optionally refresh token",
				Auth: middleware.Access, Request: logoutRequest{}, OptionalBody: true, Response: messageResponse{},
				Handler: handleLogout(users, l),
			},
			{
				Method: http.MethodPost, Path: "/logout/refresh", Summary: "Revoke refresh token", Auth: middleware.Refresh,
				Response: messageResponse{},
				Handler:  handleLogoutRefresh(users, l),
			},
			{
				Method: http.MethodGet, Path: "/user/{id}", Summary: "Get user", Auth: middleware.Access,
				Response: userResponse{},
				Handler:  handleGetUser(users, l),
			},
			{
				Method: http.MethodDelete, Path: "/user/{id}", Summary: "Delete user", Auth: middleware.Admin,
				Status:  http.StatusNoContent,
				Handler: handleDeleteUser(users, l),
			},
		},
	}
}

func handleRegister(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[credentialsRequest](w, r)
		if err != nil {
			return
		}

		user, err := users.Register(r.Context(), data.Username, data.Password)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSONStatus(w, newUserResponse(user), http.StatusCreated)
	})
}

func handleLogin(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[credentialsRequest](w, r)
		if err != nil {
			return
		}

		pair, err := users.Login(r.Context(), data.Username, data.Password)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, tokenPairResponse{AccessToken: pair.Access.Value, RefreshToken: pair.Refresh.Value})
	})
}

func handleRefresh(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsctx.FromContext(r.Context())

		access, err := users.Refresh(r.Context(), claims)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, accessTokenResponse{AccessToken: access.Value})
	})
}

func handleLogout(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindOptional[logoutRequest](w, r)
		if err != nil {
			return
		}
		claims, _ := claimsctx.FromContext(r.Context())

		if err := users.Logout(r.Context(), claims, data.RefreshToken); err != nil {
			renderError(w, r, l, err)
			return
		}

		message := "Access token revoked"
		if data.RefreshToken != "" {
			message = "Access and refresh tokens revoked"
		}
		render.JSON(w, messageResponse{Message: message})
	})
}

func handleLogoutRefresh(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsctx.FromContext(r.Context())

		if err := users.Logout(r.Context(), claims, ""); err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, messageResponse{Message: "Refresh token revoked"})
	})
}

func handleGetUser(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		user, err := users.GetUser(r.Context(), id)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, newUserResponse(user))
	})
}

func handleDeleteUser(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		if err := users.DeleteUser(r.Context(), id); err != nil {
			renderError(w, r, l, err)
			return
		}

		render.NoContent(w)
	})
}
