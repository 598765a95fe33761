package middlewares

import (
	"net/http"
	"strings"

	"github.com/kovacsdavid/obvia/internal/http/errors"
	"github.com/kovacsdavid/obvia/internal/jwt"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// AccessTokenParser valida un access token. *jwt.Codec lo implementa.
type AccessTokenParser interface {
	ParseAccess(token string) (*jwt.Claims, error)
}

// RequireAuth exige "Authorization: Bearer <access token>" válido y deja las
// claims en el contexto (GetClaims).
func RequireAuth(parser AccessTokenParser) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				errors.WriteErrorCtx(r.Context(), w, errors.ErrUnauthorized)
				return
			}

			claims, err := parser.ParseAccess(raw)
			if err != nil {
				logger.From(r.Context()).Debug("access token rejected", logger.Err(err))
				errors.WriteErrorCtx(r.Context(), w, errors.ErrUnauthorized)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			log := logger.From(ctx).With(logger.UserID(claims.UserID()))
			if t := claims.TenantID(); t != "" {
				log = log.With(logger.TenantID(t))
			}
			ctx = logger.ToContext(ctx, log)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}
