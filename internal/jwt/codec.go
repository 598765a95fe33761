package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken agrupa cualquier fallo de firma, formato o claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired: firma válida pero exp vencido.
	ErrTokenExpired = errors.New("token expired")
	// ErrMissingClaim: falta un claim obligatorio.
	ErrMissingClaim = errors.New("missing required claim")
)

// Codec firma y valida tokens con un secreto HS256 compartido.
type Codec struct {
	secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration

	now func() time.Time
}

// NewCodec valida el secreto (>= 32 bytes) y aplica TTLs por defecto (15m / 7d).
func NewCodec(secret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt: secret must be at least 32 bytes, got %d", len(secret))
	}
	if issuer == "" || audience == "" {
		return nil, fmt.Errorf("jwt: issuer and audience are required")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Codec{
		secret:     append([]byte(nil), secret...),
		Issuer:     issuer,
		Audience:   audience,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock reemplaza el reloj (tests).
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

func (c *Codec) AccessAudience() string  { return c.Audience + AccessAudienceSuffix }
func (c *Codec) RefreshAudience() string { return c.Audience + RefreshAudienceSuffix }

func (c *Codec) registered(subject, audience string, exp time.Time) jwtv5.RegisteredClaims {
	now := c.now().UTC().Truncate(time.Second)
	return jwtv5.RegisteredClaims{
		Subject:   subject,
		Issuer:    c.Issuer,
		Audience:  jwtv5.ClaimStrings{audience},
		ExpiresAt: jwtv5.NewNumericDate(exp),
		IssuedAt:  jwtv5.NewNumericDate(now),
		NotBefore: jwtv5.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
}

// NewAccessClaims arma un access token para userID con AccessTTL.
func (c *Codec) NewAccessClaims(userID string, activeTenant *string) *Claims {
	exp := c.now().Add(c.AccessTTL)
	return &Claims{
		RegisteredClaims: c.registered(userID, c.AccessAudience(), exp),
		ActiveTenant:     activeTenant,
	}
}

// NewRefreshClaims arma un refresh token de la familia dada.
// exp es explícito: en una rotación se hereda del token anterior.
func (c *Codec) NewRefreshClaims(userID, familyID string, exp time.Time, activeTenant *string) *Claims {
	return &Claims{
		RegisteredClaims: c.registered(userID, c.RefreshAudience(), exp),
		FamilyID:         familyID,
		ActiveTenant:     activeTenant,
	}
}

// RefreshExpiry es el exp de un refresh token de una familia nueva.
func (c *Codec) RefreshExpiry() time.Time {
	return c.now().Add(c.RefreshTTL)
}

// WithActiveTenant deriva de claims un token nuevo (jti, iat y nbf nuevos) con
// el mismo subject, issuer, audience y exp, y active_tenant = tenantID.
func (c *Codec) WithActiveTenant(claims *Claims, tenantID string) *Claims {
	out := claims.clone()
	now := c.now().UTC().Truncate(time.Second)
	out.ID = uuid.NewString()
	out.IssuedAt = jwtv5.NewNumericDate(now)
	out.NotBefore = jwtv5.NewNumericDate(now)
	out.ActiveTenant = &tenantID
	return out
}

// Sign serializa y firma claims con HS256.
func (c *Codec) Sign(claims *Claims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

func (c *Codec) keyfunc(t *jwtv5.Token) (any, error) {
	return c.secret, nil
}

// ParseAccess valida firma, exp, nbf, iss y audience "-api".
func (c *Codec) ParseAccess(token string) (*Claims, error) {
	return c.parse(token, c.AccessAudience())
}

// ParseRefresh valida firma, exp, nbf, iss y audience "-auth".
// family_id no se exige aquí; el llamador decide cómo reportar su ausencia.
func (c *Codec) ParseRefresh(token string) (*Claims, error) {
	return c.parse(token, c.RefreshAudience())
}

func (c *Codec) parse(token, audience string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtv5.ParseWithClaims(token, claims, c.keyfunc,
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(c.Issuer),
		jwtv5.WithAudience(audience),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuedAt(),
		jwtv5.WithLeeway(c.Leeway),
		jwtv5.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func requireClaims(c *Claims) error {
	switch {
	case c.Subject == "":
		return fmt.Errorf("%w: sub", ErrMissingClaim)
	case c.ID == "":
		return fmt.Errorf("%w: jti", ErrMissingClaim)
	case c.IssuedAt == nil:
		return fmt.Errorf("%w: iat", ErrMissingClaim)
	case c.NotBefore == nil:
		return fmt.Errorf("%w: nbf", ErrMissingClaim)
	}
	return nil
}

// DangerouslyDecodeExpired verifica sólo la firma y el algoritmo, ignorando
// exp/nbf/iss/aud. Existe para recuperar sub/family_id de un token rechazado
// y registrarlo en auditoría. NUNCA usar para autorizar.
func (c *Codec) DangerouslyDecodeExpired(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtv5.ParseWithClaims(token, claims, c.keyfunc,
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
