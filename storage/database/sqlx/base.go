// Package sqlxrepos implements the core repositories with sqlx over PostgreSQL or SQLite.
//
// Queries are written with `?` placeholders and rebound to the executor's driver.
// List queries wrap their base SELECT in a subquery so that filters and orderings
// can use joined columns without qualifying them.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
)

type repo struct {
	exec core.DBExecutor
}

func (r repo) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return r.exec
}

// get scans one row into dest, returning notFound when there is none.
func get(ctx context.Context, exec core.DBExecutor, notFound error, dest interface{}, query string, args ...interface{}) error {
	err := exec.GetContext(ctx, dest, exec.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}

func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return exec.SelectContext(ctx, dest, exec.Rebind(query), args...)
}

// execOne runs a write that must affect one row, returning notFound otherwise.
func execOne(ctx context.Context, exec core.DBExecutor, notFound error, query string, args ...interface{}) error {
	res, err := exec.ExecContext(ctx, exec.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func namedExec(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) error {
	_, err := sqlx.NamedExecContext(ctx, exec, query, arg)
	return err
}

// in expands a `?` bound to a slice, then rebinds.
func in(exec core.DBExecutor, query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return exec.Rebind(q), a, nil
}

func exists(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (bool, error) {
	var n int
	if err := exec.GetContext(ctx, &n, exec.Rebind("SELECT COUNT(*) FROM ("+query+") AS t"), args...); err != nil {
		return false, err
	}
	return n > 0, nil
}

// queryPage returns one page of `base` filtered by `where`, and the total count of matching rows.
func queryPage[T any](
	ctx context.Context,
	exec core.DBExecutor,
	base string,
	where *core.Where,
	ordering []core.DBOrdering,
	allowed map[string]bool,
	defaultOrder string,
	page core.Page,
) ([]T, int, error) {
	from := fmt.Sprintf("FROM (%s) AS t%s", base, where.String())

	var total int
	if err := exec.GetContext(ctx, &total, exec.Rebind("SELECT COUNT(*) "+from), where.Args()...); err != nil {
		return nil, 0, errors.Wrap(err, "counting rows")
	}
	items := make([]T, 0, page.Limit)
	if total == 0 {
		return items, 0, nil
	}

	var sb strings.Builder
	sb.WriteString("SELECT * ")
	sb.WriteString(from)
	sb.WriteString(core.OrderBy(ordering, allowed, defaultOrder))
	args := where.Args()
	if page.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, page.Limit, page.Offset())
	}
	if err := exec.SelectContext(ctx, &items, exec.Rebind(sb.String()), args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting rows")
	}
	return items, total, nil
}

func fields(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
