package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/student"
)

type catalogAPI struct {
	svc      *catalog.Service
	students *student.Service
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := catalogAPI{svc: deps.Catalog, students: deps.Students, validate: deps.Validate}

	cg := g.Group("/platform-courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())
	cg.POST("/:id/enrollments/:studentID", api.enroll)
	cg.DELETE("/:id/enrollments/:studentID", api.unenroll)
}

func (api *catalogAPI) query(ctx echo.Context) error {
	var filter catalog.QueryFilter
	if err := bindFilter(ctx, &filter); err != nil {
		return err
	}
	courses, err := api.svc.QueryPlatformCourses(ctx.Request().Context(), filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying platform courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *catalogAPI) create(ctx echo.Context) error {
	var data catalog.NewCourse
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	c, err := api.svc.CreatePlatformCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating platform course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

// student returns the student of the route if the caller may manage it.
func (api *catalogAPI) student(ctx echo.Context) (student.Student, error) {
	actor, err := getContextActor(ctx)
	if err != nil {
		return student.Student{}, err
	}
	st, err := api.students.Get(ctx.Request().Context(), actor, ctx.Param("studentID"))
	return st, errors.Wrap(err, "getting student")
}

func (api *catalogAPI) enroll(ctx echo.Context) error {
	st, err := api.student(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"), st.ID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *catalogAPI) unenroll(ctx echo.Context) error {
	st, err := api.student(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Unenroll(ctx.Request().Context(), ctx.Param("id"), st.ID); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
