package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindList binds the query params of a list request: filter (optional), page and ordering.
// The services clamp the page.
func bindList(ctx echo.Context, filter interface{}) (core.Page, []core.DBOrdering, error) {
	if filter != nil {
		if err := ctx.Bind(filter); err != nil {
			return core.Page{}, nil, errors.Wrap(err, "binding query filter")
		}
	}
	var page core.Page
	if err := ctx.Bind(&page); err != nil {
		return core.Page{}, nil, errors.Wrap(err, "binding page")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	return page, ordering.Orderings, nil
}

// queryInt returns the int query param `name`, or 0 when it is missing or malformed.
func queryInt(ctx echo.Context, name string) int {
	n, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}

// bindBody binds a JSON body into data. A missing body binds nothing.
func bindBody(ctx echo.Context, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrapf(err, "binding to %T", data)
	}
	return nil
}
