// Package sqlxrepos implements the repositories on postgres with sqlx and squirrel.
package sqlxrepos

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/enrollment/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// orderBy maps orderings on API field names to SQL ORDER BY clauses; unknown fields are ignored.
func orderBy(ordering []core.DBOrdering, columns map[string]string, fallback ...string) []string {
	clauses := make([]string, 0, len(ordering)+len(fallback))
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	return append(clauses, fallback...)
}

// ilike matches `search` anywhere in one of `columns`, case-insensitively.
func ilike(search string, columns ...string) sq.Or {
	val := "%" + strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(search) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, sq.ILike{col: val})
	}
	return or
}
