package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/admin"
	"github.com/vistavoyage/voyage/core/user"
)

// token scopes
const (
	ScopeUser  = "user"
	ScopeAdmin = "admin"

	blocklistPrefix = "jti:"
	tokenType       = "bearer"
)

var (
	contextUserKey  = "user"
	contextAdminKey = "admin"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Scope    string `json:"scope"`
	Refresh  bool   `json:"refresh,omitempty"`
}

func (c Claims) principal() core.Principal {
	return core.Principal{ID: c.Subject, Username: c.Username, Email: c.Email}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// tokenIssuer signs, checks and revokes the tokens of one scope.
// Revoked token IDs are kept in the cache until the token expires.
type tokenIssuer struct {
	scope      string
	config     middleware.JWTConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
	cache      core.Cache
}

func newTokenIssuer(scope, secret string, accessTTL, refreshTTL time.Duration, cache core.Cache) *tokenIssuer {
	return &tokenIssuer{
		scope: scope,
		config: middleware.JWTConfig{
			SigningKey:    []byte(secret),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    scope + "Token",
			Claims:        new(Claims),
		},
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		cache:      cache,
	}
}

func (ti *tokenIssuer) newClaims(p core.Principal, role string, refresh bool) *Claims {
	now := core.NowFunc()
	ttl := ti.accessTTL
	if refresh {
		ttl = ti.refreshTTL
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Subject:   p.ID,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:    p.Email,
		Username: p.Username,
		Role:     role,
		Scope:    ti.scope,
		Refresh:  refresh,
	}
}

// sign generates a signed JWT token string representing the claims.
func (ti *tokenIssuer) sign(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(ti.config.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(ti.config.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Issue returns a new access and refresh token pair for p.
func (ti *tokenIssuer) Issue(p core.Principal, role string) (TokenPair, error) {
	access, err := ti.sign(ti.newClaims(p, role, false))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := ti.sign(ti.newClaims(p, role, true))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenType,
		ExpiresIn:    int64(ti.accessTTL / time.Second),
	}, nil
}

// parse verifies the signature, expiry, scope and revocation of a token string.
func (ti *tokenIssuer) parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != ti.config.SigningMethod {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return ti.config.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.Scope != ti.scope || ti.isRevoked(claims.Id) {
		return nil, errInvalidToken
	}
	return claims, nil
}

func (ti *tokenIssuer) revoke(claims *Claims) {
	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl <= 0 || claims.Id == "" {
		return
	}
	ti.cache.SetWithTTL(blocklistPrefix+claims.Id, true, ttl)
}

func (ti *tokenIssuer) isRevoked(jti string) bool {
	_, revoked := ti.cache.Get(blocklistPrefix + jti)
	return revoked
}

// middleware authenticates access tokens of the issuer's scope.
func (ti *tokenIssuer) middleware() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{middleware.JWTWithConfig(ti.config), ti.guard}
}

// guard rejects refresh tokens, tokens of another scope and revoked tokens.
func (ti *tokenIssuer) guard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := ti.contextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.Refresh || claims.Scope != ti.scope || ti.isRevoked(claims.Id) {
			return errInvalidToken
		}
		return next(ctx)
	}
}

func (ti *tokenIssuer) contextClaims(ctx echo.Context) (*Claims, error) {
	if token, ok := ctx.Get(ti.config.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return claims, nil
		}
	}
	return nil, errUnauthorized
}

// getContextPrincipal returns whoever is authenticated on the request, if any.
func (s *server) getContextPrincipal(ctx echo.Context) (core.Principal, bool) {
	for _, ti := range []*tokenIssuer{s.users, s.admins} {
		if claims, err := ti.contextClaims(ctx); err == nil {
			return claims.principal(), true
		}
	}
	return core.Principal{}, false
}

func (s *server) getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	claims, err := s.users.contextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, user.ErrAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func (s *server) getContextAdmin(ctx echo.Context) (admin.Admin, error) {
	if adm, ok := ctx.Get(contextAdminKey).(admin.Admin); ok {
		return adm, nil
	}
	claims, err := s.admins.contextClaims(ctx)
	if err != nil {
		return admin.Admin{}, err
	}
	adm, err := s.deps.AdminSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return admin.Admin{}, errUnauthorized
		}
		return admin.Admin{}, errors.Wrap(err, "finding admin by ID")
	}
	if !adm.IsActive {
		return admin.Admin{}, admin.ErrAccountDeactivated
	}
	ctx.Set(contextAdminKey, adm)
	return adm, nil
}

// rotate checks a refresh token, revokes it and returns a fresh pair.
// check loads the subject and fails if it may no longer log in.
func (ti *tokenIssuer) rotate(refreshToken string, check func(sub string) (core.Principal, string, error)) (TokenPair, error) {
	claims, err := ti.parse(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if !claims.Refresh {
		return TokenPair{}, errInvalidToken
	}
	p, role, err := check(claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}
	ti.revoke(claims)
	return ti.Issue(p, role)
}

// logout revokes the access token of the request and refreshToken when it is one of ours.
func (ti *tokenIssuer) logout(ctx echo.Context, refreshToken string) error {
	claims, err := ti.contextClaims(ctx)
	if err != nil {
		return err
	}
	ti.revoke(claims)
	if refreshToken != "" {
		if rc, err := ti.parse(refreshToken); err == nil && rc.Refresh && rc.Subject == claims.Subject {
			ti.revoke(rc)
		}
	}
	return nil
}

type (
	RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	LogoutRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)
