package echoapi

import (
	"net/http"
	"reflect"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/community"
	"github.com/trezcool/homeroom/core/idcard"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
	"github.com/trezcool/homeroom/core/workpermit"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "account not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainStatus maps domain sentinels to the HTTP status they are reported with.
var domainStatus = map[error]int{
	account.ErrNotFound:           http.StatusNotFound,
	student.ErrNotFound:           http.StatusNotFound,
	catalog.ErrNotFound:           http.StatusNotFound,
	transcript.ErrNotFound:        http.StatusNotFound,
	transcript.ErrCourseNotFound:  http.StatusNotFound,
	community.ErrNotFound:         http.StatusNotFound,
	workpermit.ErrNotFound:        http.StatusNotFound,
	idcard.ErrNotFound:            http.StatusNotFound,
	transcript.ErrSyncInProgress:  http.StatusConflict,
	catalog.ErrAlreadyEnrolled:    http.StatusConflict,
	idcard.ErrDuplicateNumber:     http.StatusConflict,
	transcript.ErrDraftsClosed:    http.StatusServiceUnavailable,
	account.ErrAccountDeactivated: http.StatusForbidden,
	community.ErrNotMember:        http.StatusForbidden,
	core.ErrPermissionDenied:      http.StatusForbidden,
	core.ErrTooManyRequests:       http.StatusTooManyRequests,
	account.ErrInvalidCode:        http.StatusBadRequest,
}

// statusOf looks up a domain sentinel. Uncomparable errors (slices, maps) are never sentinels.
func statusOf(err error) (int, bool) {
	if t := reflect.TypeOf(err); t == nil || !t.Comparable() {
		return 0, false
	}
	status, ok := domainStatus[err]
	return status, ok
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if status, ok := statusOf(cause); ok {
				code = status
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if actor, aErr := getContextActor(ctx); aErr == nil {
				args = append(args, actor)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
