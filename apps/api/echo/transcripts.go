package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/transcript"
)

type transcriptAPI struct {
	svc      *transcript.Service
	validate *validator.Validate
}

func registerTranscriptAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := transcriptAPI{svc: deps.Transcripts, validate: deps.Validate}

	tg := g.Group("/transcripts/:id", jwt)
	tg.GET("", api.retrieve)
	tg.PUT("", api.update)
	tg.PATCH("/draft", api.saveDraft)
	tg.POST("/recalculate", api.recalculate)
	tg.POST("/courses", api.addCourse)
	tg.PUT("/courses/:courseID", api.updateCourse)
	tg.DELETE("/courses/:courseID", api.destroyCourse)
}

func (api *transcriptAPI) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	tr, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting transcript")
	}
	return ctx.JSON(http.StatusOK, tr)
}

func (api *transcriptAPI) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data transcript.UpdateTranscript
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	tr, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating transcript")
	}
	return ctx.JSON(http.StatusOK, tr)
}

// saveDraft accepts the form state; it is written once edits settle.
func (api *transcriptAPI) saveDraft(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data transcript.Draft
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if err = api.svc.SaveDraft(ctx.Request().Context(), actor, ctx.Param("id"), data); err != nil {
		return errors.Wrap(err, "saving draft")
	}
	return ctx.NoContent(http.StatusAccepted)
}

func (api *transcriptAPI) recalculate(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	tr, err := api.svc.Recalculate(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "recalculating transcript")
	}
	return ctx.JSON(http.StatusOK, tr)
}

func (api *transcriptAPI) addCourse(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data transcript.NewCourse
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	c, err := api.svc.AddCourse(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *transcriptAPI) updateCourse(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data transcript.UpdateCourse
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	c, err := api.svc.UpdateCourse(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("courseID"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *transcriptAPI) destroyCourse(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCourse(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("courseID")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
