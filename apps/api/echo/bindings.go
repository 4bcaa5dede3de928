package echoapi

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads "?ordering=name,-created_at" style parameters.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

func bindOrdering(ctx echo.Context) []core.DBOrdering {
	ord := new(Ordering)
	ord.Bind(ctx)
	return ord.Orderings
}

type cleaner interface {
	Clean()
}

// bindAndValidate binds the request body into data, cleans it when possible and validates it.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrapf(err, "binding to %T", data)
	}
	if c, ok := data.(cleaner); ok {
		c.Clean()
	}
	return validate.Struct(data)
}

// bindFilter binds query parameters into filter. Malformed filters are reported as 400.
func bindFilter(ctx echo.Context, filter interface{}) error {
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	if c, ok := filter.(cleaner); ok {
		c.Clean()
	}
	return nil
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}
)
