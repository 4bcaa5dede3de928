package core

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"
)

type (
	// DBExecutor is implemented by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext

		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
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

// RunInTx runs fn inside a transaction, rolling back if it fails.
func RunInTx(ctx context.Context, db DB, fn func(tx DBExecutor) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
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

// OrderingFields whitelists the columns a listing may be ordered by.
// Both the snake_case column and its camelCase alias are accepted.
type OrderingFields map[string]string // {alias: column}

func NewOrderingFields(columns ...string) OrderingFields {
	of := make(OrderingFields, len(columns)*2)
	for _, col := range columns {
		of[col] = col
		of[strmangle.CamelCase(col)] = col
	}
	return of
}

// OrderBy builds an "ORDER BY" clause from the allowed orderings, falling back to def.
// Unknown fields are ignored.
func (of OrderingFields) OrderBy(orderings []DBOrdering, def ...DBOrdering) string {
	clauses := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := of[ord.Field]; ok {
			clauses = append(clauses, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(clauses) == 0 {
		for _, ord := range def {
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
