package core

import (
	"context"
)

// Transactor runs fn inside a storage transaction carried by the context passed to fn.
// Repositories called with that context join the transaction.
// The transaction is committed when fn returns nil and rolled back otherwise (or if fn panics).
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Choice is an (id, label) option offered by the admin console forms.
type Choice struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}
