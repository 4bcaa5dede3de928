package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/idcard"
)

type idCardAPI struct {
	svc      *idcard.Service
	validate *validator.Validate
}

func registerIDCardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := idCardAPI{svc: deps.IDCards, validate: deps.Validate}

	cg := g.Group("/id-cards", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/image", api.image)
	cg.DELETE("/:id", api.destroy)
}

func (api *idCardAPI) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var filter idcard.QueryFilter
	if err = bindFilter(ctx, &filter); err != nil {
		return err
	}
	cards, err := api.svc.Query(ctx.Request().Context(), actor, filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying id cards")
	}
	return ctx.JSON(http.StatusOK, cards)
}

func (api *idCardAPI) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data idcard.NewIDCard
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	card, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating id card")
	}
	return ctx.JSON(http.StatusCreated, card)
}

func (api *idCardAPI) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	card, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting id card")
	}
	return ctx.JSON(http.StatusOK, card)
}

func (api *idCardAPI) image(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	card, png, err := api.svc.Image(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting id card image")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+card.CardNumber+`.png"`)
	return ctx.Blob(http.StatusOK, "image/png", png)
}

func (api *idCardAPI) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting id card")
	}
	return ctx.NoContent(http.StatusNoContent)
}
