package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/enrollment/core"
)

func TestOrdering_Bind(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []core.DBOrdering
	}{
		{name: "none", query: ""},
		{name: "empty", query: "?ordering="},
		{
			name:  "fields",
			query: "?ordering=name,-capacity",
			want:  []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "capacity", Ascending: false}},
		},
		{
			name:  "trailing comma and spaces",
			query: "?ordering=-name,%20,time,",
			want:  []core.DBOrdering{{Field: "name", Ascending: false}, {Field: "time", Ascending: true}},
		},
		{
			name:  "unknown and repeated fields",
			query: "?ordering=password_hash,teacher,-teacher,-",
			want:  []core.DBOrdering{{Field: "teacher", Ascending: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/courses"+tt.query, nil)
			ctx := echo.New().NewContext(req, httptest.NewRecorder())

			ordering := new(Ordering)
			ordering.Bind(ctx, courseOrderFields...)
			assert.Equal(t, tt.want, ordering.Orderings)
		})
	}
}
