package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/projpool/projpool/internal/apperrors"
	"github.com/projpool/projpool/internal/handlers/claimsctx"
	"github.com/projpool/projpool/internal/handlers/render"
	"github.com/projpool/projpool/internal/logger"
)

// Render error of the service layer. Unknown errors are logged and hidden from client.
func renderError(w http.ResponseWriter, r *http.Request, l logger.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		render.ServiceError(w, "User already exists", http.StatusConflict)
	case errors.Is(err, apperrors.ErrInvalidRefreshToken):
		render.ServiceError(w, "Invalid refresh token", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		render.ServiceError(w, "Invalid username or password", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrUserNotFound):
		render.ServiceError(w, "User not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrProjectNotFound):
		render.ServiceError(w, "Project not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrLabelNotFound):
		render.ServiceError(w, "Label not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrImageNotFound):
		render.ServiceError(w, "Image not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrJobNotFound):
		render.ServiceError(w, "Job not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrJobAlreadyRunning):
		render.ServiceError(w, "Job is already running", http.StatusConflict)
	case errors.Is(err, apperrors.ErrAssistNotConfigured):
		render.ServiceError(w, "AI assist is not configured", http.StatusServiceUnavailable)
	default:
		l.Error("request failed", "error", err, "method", r.Method, "uri", r.RequestURI)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Integer path variable. Writes 400 response if it is not a positive number.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		render.ServiceError(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// ID of the user the request token was issued for
func currentUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := claimsctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}

	id, err := strconv.ParseInt(claims.Identity(), 10, 64)
	if err != nil {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

// Whether token holder is admin
func isAdmin(r *http.Request) bool {
	claims, ok := claimsctx.FromContext(r.Context())
	return ok && claims.IsAdmin
}
