package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
)

type studentAPI struct {
	svc         *student.Service
	catalog     *catalog.Service
	transcripts *transcript.Service
	validate    *validator.Validate
}

// StudentCourses lists the external courses of a student.
type StudentCourses struct {
	Enrolled []catalog.PlatformCourse `json:"enrolled"`
	Own      []catalog.UserCourse     `json:"own"`
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := studentAPI{
		svc:         deps.Students,
		catalog:     deps.Catalog,
		transcripts: deps.Transcripts,
		validate:    deps.Validate,
	}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/grade-levels", api.queryGradeLevels)

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/transcript", api.transcript)
	dg.POST("/transcript/sync", api.sync)
	dg.GET("/courses", api.courses)
	dg.POST("/courses", api.createCourse)

	g.DELETE("/user-courses/:id", api.destroyCourse, jwt)
}

func (api *studentAPI) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var filter student.QueryFilter
	if err = bindFilter(ctx, &filter); err != nil {
		return err
	}
	students, err := api.svc.Query(ctx.Request().Context(), actor, filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentAPI) queryGradeLevels(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, student.GradeLevels)
}

func (api *studentAPI) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data student.NewStudent
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	st, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentAPI) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	st, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentAPI) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data student.UpdateStudent
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	st, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentAPI) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentAPI) transcript(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	tr, err := api.transcripts.GetForStudent(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting transcript")
	}
	return ctx.JSON(http.StatusOK, tr)
}

// sync imports the student's courses. With ?dry_run=true it returns the resulting transcript without writing it.
func (api *studentAPI) sync(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	if dryRun, _ := strconv.ParseBool(ctx.QueryParam("dry_run")); dryRun {
		plan, err := api.transcripts.PlanSync(reqCtx, actor, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "planning sync")
		}
		return ctx.JSON(http.StatusOK, plan.Result())
	}

	tr, err := api.transcripts.Sync(reqCtx, actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "syncing transcript")
	}
	return ctx.JSON(http.StatusOK, tr)
}

func (api *studentAPI) courses(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	st, err := api.svc.Get(reqCtx, actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}

	var res StudentCourses
	if res.Enrolled, err = api.catalog.EnrolledCourses(reqCtx, st.ID); err != nil {
		return errors.Wrap(err, "getting enrolled courses")
	}
	if res.Own, err = api.catalog.UserCourses(reqCtx, st.ID); err != nil {
		return errors.Wrap(err, "getting user courses")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentAPI) createCourse(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.NewCourse
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	st, err := api.svc.Get(reqCtx, actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	c, err := api.catalog.CreateUserCourse(reqCtx, actor, st.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating user course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *studentAPI) destroyCourse(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.catalog.DeleteUserCourse(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
