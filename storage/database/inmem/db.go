// Package inmemdb is an in-process storage engine with the same semantics as the postgres one:
// unique and foreign key constraints are enforced and transactions are serialized.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
)

type (
	DB struct {
		mutex sync.Mutex
		data  tables
	}

	tables struct {
		users       map[int]user.User
		courses     map[int]course.Course
		enrollments map[int]enrollment.Enrollment
		userSeq     int
		courseSeq   int
		enrSeq      int
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{data: newTables()}
}

func newTables() tables {
	return tables{
		users:       make(map[int]user.User),
		courses:     make(map[int]course.Course),
		enrollments: make(map[int]enrollment.Enrollment),
	}
}

func (t tables) clone() tables {
	c := t
	c.users = make(map[int]user.User, len(t.users))
	for k, v := range t.users {
		c.users[k] = v
	}
	c.courses = make(map[int]course.Course, len(t.courses))
	for k, v := range t.courses {
		c.courses[k] = v
	}
	c.enrollments = make(map[int]enrollment.Enrollment, len(t.enrollments))
	for k, v := range t.enrollments {
		c.enrollments[k] = v
	}
	return c
}

// Reset drops all data.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.data = newTables()
}

func (db *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*DB)
	return owner == db
}

// lock locks the DB unless ctx carries a transaction of this DB, which already holds the lock.
func (db *DB) lock(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mutex.Lock()
	return db.mutex.Unlock
}

// WithinTx holds the DB lock while fn runs; the data is restored from a snapshot if fn fails or panics.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if db.inTx(ctx) {
		return fn(ctx)
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	snapshot := db.data.clone()
	defer func() {
		if p := recover(); p != nil {
			db.data = snapshot
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.data = snapshot
	}
	return err
}
