// Package sqlxrepos implements the domain repositories with jmoiron/sqlx.
// Queries are written with "?" placeholders and rebound for the driver in use.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/homeroom/core"
)

// table enumerates every column of a table. Row structs carry matching db tags.
type table struct {
	name    string
	columns []string
}

func (t table) selectQuery() string {
	return "SELECT " + strings.Join(t.columns, ", ") + " FROM " + t.name
}

func (t table) insertQuery() string {
	return "INSERT INTO " + t.name + " (" + strings.Join(t.columns, ", ") + ") VALUES (:" + strings.Join(t.columns, ", :") + ")"
}

// updateQuery sets every column but the keys.
func (t table) updateQuery(keys ...string) string {
	isKey := make(map[string]bool, len(keys))
	where := make([]string, 0, len(keys))
	for _, k := range keys {
		isKey[k] = true
		where = append(where, k+" = :"+k)
	}
	sets := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		if !isKey[col] {
			sets = append(sets, col+" = :"+col)
		}
	}
	return "UPDATE " + t.name + " SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(where, " AND ")
}

// where collects filter clauses and their arguments.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// search matches needle (already lowercased) against any of the columns.
func (w *where) search(needle string, columns ...string) {
	if needle == "" {
		return
	}
	ors := make([]string, 0, len(columns))
	for _, col := range columns {
		ors = append(ors, "LOWER("+col+") LIKE ?")
		w.args = append(w.args, "%"+needle+"%")
	}
	w.clauses = append(w.clauses, "("+strings.Join(ors, " OR ")+")")
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func newID() string {
	return uuid.New().String()
}

// trapNoRowsErr maps "no rows" to the domain's notFound error.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when res touched no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func exists(ctx context.Context, db core.DBExecutor, query string, args ...interface{}) (bool, error) {
	var n int
	if err := db.GetContext(ctx, &n, db.Rebind("SELECT COUNT(*) FROM ("+query+") q"), args...); err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

func nullTimePtr(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
