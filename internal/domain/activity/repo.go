package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/anc/internal/platform/db"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
	// DeleteBefore drops entries older than cutoff and reports how many.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, user_id, user_name, action, resource, resource_id, method, path,
	status_code, ip_address, request_id, created_at`

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO activity_log (id, user_id, user_name, action, resource, resource_id, method, path,
			status_code, ip_address, request_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at`,
		e.ID, e.UserID, e.UserName, e.Action, e.Resource, e.ResourceID, e.Method, e.Path,
		e.StatusCode, e.IPAddress, e.RequestID,
	).Scan(&e.CreatedAt)
}

// whereClause builds the WHERE fragment for f with positional args
// starting at $1.
func whereClause(f Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.Resource != "" {
		add("resource = $%d", f.Resource)
	}
	if f.Since != nil {
		add("created_at >= $%d", *f.Since)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	where, args := whereClause(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM activity_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+entryCols+` FROM activity_log%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, n+1, n+2),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Action, &e.Resource, &e.ResourceID, &e.Method, &e.Path,
			&e.StatusCode, &e.IPAddress, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM activity_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return tag.RowsAffected(), nil
}
