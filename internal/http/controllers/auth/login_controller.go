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

// LoginController maneja POST /api/auth/login.
type LoginController struct {
	service svc.LoginService
	cookie  CookieConfig
}

// NewLoginController crea un nuevo LoginController.
func NewLoginController(service svc.LoginService, cookie CookieConfig) *LoginController {
	return &LoginController{service: service, cookie: cookie}
}

func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	var req dto.LoginRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteErrorCtx(ctx, w, err)
		return
	}
	if fields := req.Validate(); fields != nil {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrValidation.WithFields(fields))
		return
	}

	res, err := c.service.Login(ctx, svc.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Client: svc.ClientInfo{
			IP:        middlewares.GetClientIP(ctx),
			UserAgent: r.UserAgent(),
		},
	})
	if err != nil {
		log.Debug("login rejected", logger.Err(err))
		httperrors.WriteErrorCtx(ctx, w, mapAuthError(err))
		return
	}

	c.cookie.set(w, res.Tokens.RefreshToken, res.Tokens.RefreshClaims.ExpiresAt.Time)

	resp := dto.NewTokenResponse(res.Tokens.AccessToken, res.Tokens.AccessClaims)
	user := dto.NewUserResponse(res.User)
	resp.User = &user
	helpers.WriteSuccess(w, http.StatusOK, resp)
}
