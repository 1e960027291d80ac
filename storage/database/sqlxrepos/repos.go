package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core"
)

const uniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err is a unique violation of `constraint` (any if empty).
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// where accumulates conditions and their positional arguments.
type where struct {
	conds []string
	args  []interface{}
}

// add appends a condition; every "?" in `cond` is bound to the next arg.
func (w *where) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders `ordering` restricted to the `allowed` columns, or `fallback` if nothing remains.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			list = append(list, ord.String())
		}
	}
	if len(list) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

func paginate(page core.Page) string {
	var s string
	if page.Limit > 0 {
		s += fmt.Sprintf(" LIMIT %d", page.Limit)
	}
	if page.Offset > 0 {
		s += fmt.Sprintf(" OFFSET %d", page.Offset)
	}
	return s
}

func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(search) + "%"
}
