package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/workpermit"
)

type workPermitAPI struct {
	svc      *workpermit.Service
	validate *validator.Validate
}

func registerWorkPermitAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := workPermitAPI{svc: deps.WorkPermits, validate: deps.Validate}

	wg := g.Group("/work-permits", jwt)
	wg.GET("", api.query)
	wg.POST("", api.create)
	wg.GET("/:id", api.retrieve)
	wg.PUT("/:id", api.update)
	wg.DELETE("/:id", api.destroy)
	wg.POST("/:id/status", api.changeStatus)
}

func (api *workPermitAPI) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var filter workpermit.QueryFilter
	if err = bindFilter(ctx, &filter); err != nil {
		return err
	}
	permits, err := api.svc.Query(ctx.Request().Context(), actor, filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying work permits")
	}
	return ctx.JSON(http.StatusOK, permits)
}

func (api *workPermitAPI) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data workpermit.NewWorkPermit
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	wp, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating work permit")
	}
	return ctx.JSON(http.StatusCreated, wp)
}

func (api *workPermitAPI) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	wp, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting work permit")
	}
	return ctx.JSON(http.StatusOK, wp)
}

func (api *workPermitAPI) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data workpermit.UpdateWorkPermit
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	wp, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating work permit")
	}
	return ctx.JSON(http.StatusOK, wp)
}

func (api *workPermitAPI) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting work permit")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *workPermitAPI) changeStatus(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data workpermit.StatusChange
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	wp, err := api.svc.ChangeStatus(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "changing work permit status")
	}
	return ctx.JSON(http.StatusOK, wp)
}
