package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
)

type (
	CodeRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	VerifyRequest struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,len=6,numeric"`
	}
)

func (r *CodeRequest) Clean() { r.Email = core.CleanString(r.Email, true /* lower */) }

func (r *VerifyRequest) Clean() {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Code = core.CleanString(r.Code)
}

type authAPI struct {
	svc      *account.Service
	tokens   *tokenIssuer
	validate *validator.Validate
	logger   core.Logger
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, tokens *tokenIssuer, deps Deps) {
	api := authAPI{svc: deps.Accounts, tokens: tokens, validate: deps.Validate, logger: deps.Logger}

	ag := g.Group("/auth")
	ag.POST("/code", api.requestCode)
	ag.POST("/verify", api.verify)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

func (api *authAPI) requestCode(ctx echo.Context) error {
	var data CodeRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	err := api.svc.RequestLoginCode(ctx.Request().Context(), data.Email)
	switch cause := errors.Cause(err); cause {
	case nil, account.ErrAccountDeactivated: // do not tell attackers
	case core.ErrTooManyRequests:
		return cause
	default:
		return errors.Wrap(err, "requesting login code")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied can sign in, a login code will arrive in your inbox shortly.",
	})
}

func (api *authAPI) verify(ctx echo.Context) error {
	var data VerifyRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	acc, err := api.svc.VerifyLoginCode(ctx.Request().Context(), data.Email, data.Code)
	if err != nil {
		if errors.Cause(err) == account.ErrInvalidCode {
			return core.NewValidationError(nil, core.FieldError{Field: "code", Error: account.ErrInvalidCode.Error()})
		}
		return errors.Wrap(err, "verifying login code")
	}
	token, err := api.tokens.generate(api.tokens.claims(acc))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *authAPI) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	acc, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return errUnauthorized
		}
		return errors.Wrap(err, "finding account by ID")
	}
	token, err := api.tokens.refresh(acc, claims)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

type accountAPI struct {
	svc      *account.Service
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := accountAPI{svc: deps.Accounts, validate: deps.Validate}

	ag := g.Group("/accounts", jwt)
	ag.GET("", api.query, adminMiddleware())
	ag.GET("/roles", api.queryRoles, adminMiddleware())
	ag.GET("/me", api.retrieveMe)
	ag.PUT("/me", api.updateMe)
}

func (api *accountAPI) me(ctx echo.Context) (account.Account, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "getting context claims")
	}
	acc, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "finding account by ID")
	}
	return acc, nil
}

func (api *accountAPI) retrieveMe(ctx echo.Context) error {
	acc, err := api.me(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountAPI) updateMe(ctx echo.Context) error {
	acc, err := api.me(ctx)
	if err != nil {
		return err
	}

	var data account.UpdateAccount
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	// `IsActive` and `Roles` can only be changed by admins
	if !acc.IsAdmin() && (data.IsActive != nil || data.Roles != nil) {
		return errHttpForbidden
	}

	if acc, err = api.svc.Update(ctx.Request().Context(), acc, data); err != nil {
		return errors.Wrap(err, "updating account")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountAPI) query(ctx echo.Context) error {
	var filter account.QueryFilter
	if err := bindFilter(ctx, &filter); err != nil {
		return err
	}
	accounts, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	return ctx.JSON(http.StatusOK, accounts)
}

func (api *accountAPI) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, account.Roles)
}
