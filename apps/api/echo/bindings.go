package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/ada/core"
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
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// intParam parses the query param `name` as a non-negative integer, `def` if absent.
func intParam(ctx echo.Context, name string, def int) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a non-negative integer"})
	}
	return n, nil
}

// timeParam parses the query param `name` as a "2006-01-02" date or an RFC3339 timestamp.
func timeParam(ctx echo.Context, name string) (time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}, nil
	}
	var d core.Date
	if err := d.UnmarshalJSON([]byte(val)); err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: name, Error: "invalid date"})
	}
	return d.Time, nil
}
