package echoapi

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
)

const (
	tokenContextKey = "accountToken"
	tokenAudience   = "Homeroom"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// Actor returns the account the token was issued to.
func (c Claims) Actor() core.Actor {
	return core.Actor{AccountID: c.Subject, Email: c.Email, Name: c.Name, IsAdmin: c.IsAdmin}
}

func (c Claims) hasAnyRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	sorted := append([]string(nil), c.Roles...)
	sort.Strings(sorted)
	for _, role := range roles {
		if i := sort.SearchStrings(sorted, role); i < len(sorted) && sorted[i] == role {
			return true
		}
	}
	return false
}

// tokenIssuer signs and refreshes access tokens.
type tokenIssuer struct {
	key        []byte
	issuer     string
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func newTokenIssuer(conf *core.Config) *tokenIssuer {
	return &tokenIssuer{
		key:        []byte(conf.SecretKey),
		issuer:     conf.AppName,
		ttl:        conf.Server.JWTExpirationDelta,
		refreshTTL: conf.Server.JWTRefreshExpirationDelta,
		now:        time.Now,
	}
}

// middleware verifies the bearer token and stores it in the context.
func (ti *tokenIssuer) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    ti.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	})
}

func (ti *tokenIssuer) claims(acc account.Account, origIat ...int64) *Claims {
	now := ti.now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.issuer,
			Subject:   acc.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ti.ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: oriat,
		Name:         acc.Name,
		Email:        acc.Email,
		IsAdmin:      acc.IsAdmin(),
		Roles:        acc.Roles,
	}
}

// generate signs claims into a token string.
func (ti *tokenIssuer) generate(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// refresh issues a new token for acc, keeping the original issue time.
func (ti *tokenIssuer) refresh(acc account.Account, claims Claims) (string, error) {
	if !acc.IsActive {
		return "", errAccountDeactivated
	}
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ti.refreshTTL)
	if ti.now().After(expTime) {
		return "", errRefreshExpired
	}
	return ti.generate(ti.claims(acc, claims.OrigIssuedAt))
}

// NewToken returns a signed access token for acc.
func NewToken(conf *core.Config, acc account.Account) (string, error) {
	ti := newTokenIssuer(conf)
	return ti.generate(ti.claims(acc))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextActor(ctx echo.Context) (core.Actor, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Actor{}, err
	}
	return claims.Actor(), nil
}
