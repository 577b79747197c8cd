package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/enrollment/core"
)

const orderingParam = "ordering"

// fields each admin list can be ordered by
var (
	userOrderFields       = []string{"id", "username", "role", "first_name", "last_name"}
	courseOrderFields     = []string{"id", "name", "time", "capacity", "teacher", "enrolled"}
	enrollmentOrderFields = []string{"id", "student", "course", "grade", "enrolled_date"}
)

// Ordering holds the `?ordering=name,-capacity` query param.
type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the ordering param, keeping the first occurrence of each field in `allowed`.
// Blank and unknown fields are dropped.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	seen := make(map[string]bool)
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || seen[field] || !isAllowed(field, allowed) {
			continue
		}
		seen[field] = true
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func isAllowed(field string, allowed []string) bool {
	for _, f := range allowed {
		if f == field {
			return true
		}
	}
	return false
}
