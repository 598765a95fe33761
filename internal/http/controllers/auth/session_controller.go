package auth

import (
	"net/http"

	dto "github.com/kovacsdavid/obvia/internal/http/dto/auth"
	httperrors "github.com/kovacsdavid/obvia/internal/http/errors"
	"github.com/kovacsdavid/obvia/internal/http/helpers"
	"github.com/kovacsdavid/obvia/internal/http/middlewares"
	svc "github.com/kovacsdavid/obvia/internal/http/services/auth"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// SessionController maneja refresh y logout sobre la cookie del refresh token.
type SessionController struct {
	refresh svc.RefreshService
	logout  svc.LogoutService
	cookie  CookieConfig
}

// NewSessionController crea un nuevo SessionController.
func NewSessionController(refresh svc.RefreshService, logout svc.LogoutService, cookie CookieConfig) *SessionController {
	return &SessionController{refresh: refresh, logout: logout, cookie: cookie}
}

// Refresh maneja POST /api/auth/refresh.
func (c *SessionController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SessionController.Refresh"))

	token := c.cookie.read(r)
	if token == "" {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrUnauthorized)
		return
	}

	pair, err := c.refresh.Refresh(ctx, token, svc.ClientInfo{
		IP:        middlewares.GetClientIP(ctx),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		log.Debug("refresh rejected", logger.Err(err))
		c.cookie.clear(w)
		httperrors.WriteErrorCtx(ctx, w, mapAuthError(err))
		return
	}

	c.cookie.set(w, pair.RefreshToken, pair.RefreshClaims.ExpiresAt.Time)
	helpers.WriteSuccess(w, http.StatusOK, dto.NewTokenResponse(pair.AccessToken, pair.AccessClaims))
}

// Logout maneja POST /api/auth/logout. Sin cookie responde 200.
func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SessionController.Logout"))

	err := c.logout.Logout(ctx, c.cookie.read(r))
	c.cookie.clear(w)
	if err != nil {
		log.Debug("logout rejected", logger.Err(err))
		httperrors.WriteErrorCtx(ctx, w, mapAuthError(err))
		return
	}
	helpers.WriteSuccess(w, http.StatusOK, map[string]bool{"logged_out": true})
}
