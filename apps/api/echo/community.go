package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/community"
)

type communityAPI struct {
	svc      *community.Service
	validate *validator.Validate
}

func registerCommunityAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := communityAPI{svc: deps.Community, validate: deps.Validate}

	gg := g.Group("/groups", jwt)
	gg.GET("", api.queryGroups)
	gg.POST("", api.createGroup)
	gg.GET("/:id", api.retrieveGroup)
	gg.POST("/:id/members", api.join)
	gg.DELETE("/:id/members", api.leave)
	gg.GET("/:id/posts", api.posts)
	gg.POST("/:id/posts", api.createPost)

	pg := g.Group("/posts/:id", jwt)
	pg.POST("/answers", api.answer)
	pg.POST("/accept/:answerID", api.accept)
}

func (api *communityAPI) queryGroups(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var filter community.QueryFilter
	if err = bindFilter(ctx, &filter); err != nil {
		return err
	}
	groups, err := api.svc.QueryGroups(ctx.Request().Context(), actor, filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *communityAPI) createGroup(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data community.NewGroup
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	grp, err := api.svc.CreateGroup(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *communityAPI) retrieveGroup(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	grp, err := api.svc.GetGroup(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *communityAPI) join(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.Join(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "joining group")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *communityAPI) leave(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Leave(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "leaving group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *communityAPI) posts(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	posts, err := api.svc.Posts(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting posts")
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *communityAPI) createPost(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data community.NewPost
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	p, err := api.svc.CreatePost(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *communityAPI) answer(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data community.NewAnswer
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	p, err := api.svc.Answer(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "answering question")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *communityAPI) accept(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Accept(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("answerID"))
	if err != nil {
		return errors.Wrap(err, "accepting answer")
	}
	return ctx.JSON(http.StatusOK, p)
}
