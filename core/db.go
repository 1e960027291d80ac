package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

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

// Page limits a query to `Limit` rows starting at `Offset`. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// PageFrom converts a 1-based page number and a page size to a Page.
func PageFrom(page, limit int) Page {
	if limit <= 0 {
		return Page{}
	}
	if page < 1 {
		page = 1
	}
	return Page{Limit: limit, Offset: (page - 1) * limit}
}
