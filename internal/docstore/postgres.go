package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Postgres keeps each collection in a table of JSONB documents.
type Postgres struct {
	db *sql.DB

	mu    sync.Mutex
	ready map[string]bool
}

// NewPostgres opens a pgx backed pool. Like NewMongo, the handle is returned together
// with the initial ping error.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	p := &Postgres{db: db, ready: make(map[string]bool)}
	return p, p.Ping(ctx)
}

// EnsureCollections creates the tables backing names when missing.
func (p *Postgres) EnsureCollections(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := p.ensure(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// ensure creates the table for name once per process. A failed attempt is retried on
// the next call, so a database that comes up after the server still gets its tables.
func (p *Postgres) ensure(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready[name] {
		return nil
	}
	if !tableName.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	if _, err := p.db.ExecContext(ctx, createTableSQL(quoteTable(name))); err != nil {
		return pgErr("create table", err)
	}
	p.ready[name] = true
	return nil
}

// Collection returns the named collection. Its table is created on first use.
func (p *Postgres) Collection(name string) Collection {
	return &PostgresCollection{store: p, name: name, db: p.db, table: quoteTable(name)}
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return pgErr("ping", err)
	}
	return nil
}

// Close closes the pool.
func (p *Postgres) Close(context.Context) error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// PostgresCollection stores documents as rows (seq, id, doc).
type PostgresCollection struct {
	store *Postgres
	name  string
	db    *sql.DB
	table string
}

// Insert stores doc under a new UUID.
func (c *PostgresCollection) Insert(ctx context.Context, doc Document) (InsertResult, error) {
	if err := c.store.ensure(ctx, c.name); err != nil {
		return InsertResult{}, err
	}
	id := uuid.NewString()
	stored := withoutID(doc)
	stored[IDField] = id
	body, err := json.Marshal(stored)
	if err != nil {
		return InsertResult{}, fmt.Errorf("encode document: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO `+c.table+` (id, doc) VALUES ($1, $2::jsonb)`, id, body)
	if err != nil {
		return InsertResult{}, pgErr("insert", err)
	}
	return InsertResult{Acknowledged: true, InsertedID: id}, nil
}

// FindOne returns the document with id.
func (c *PostgresCollection) FindOne(ctx context.Context, id string) (Document, error) {
	if err := c.store.ensure(ctx, c.name); err != nil {
		return nil, err
	}
	var body []byte
	err := c.db.QueryRowContext(ctx, `SELECT doc FROM `+c.table+` WHERE id = $1`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, pgErr("find one", err)
	}
	return decodeDocument(body)
}

// Find returns matching documents in insertion order.
func (c *PostgresCollection) Find(ctx context.Context, q Query) ([]Document, error) {
	if err := c.store.ensure(ctx, c.name); err != nil {
		return nil, err
	}
	query, args, err := findSQL(c.table, q)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pgErr("find", err)
	}
	defer rows.Close()
	var res []Document
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, pgErr("scan", err)
		}
		doc, err := decodeDocument(body)
		if err != nil {
			return nil, err
		}
		res = append(res, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr("find", err)
	}
	return res, nil
}

// SetFields merges fields into the document with id. The row is always written;
// ModifiedCount reports whether the stored document changed.
func (c *PostgresCollection) SetFields(ctx context.Context, id string, fields Document, upsert bool) (UpdateResult, error) {
	if err := c.store.ensure(ctx, c.name); err != nil {
		return UpdateResult{}, err
	}
	body, err := json.Marshal(withoutID(fields))
	if err != nil {
		return UpdateResult{}, fmt.Errorf("encode fields: %w", err)
	}

	var modified bool
	err = c.db.QueryRowContext(ctx, updateSQL(c.table), id, body).Scan(&modified)
	switch {
	case err == nil:
		res := UpdateResult{Acknowledged: true, MatchedCount: 1}
		if modified {
			res.ModifiedCount = 1
		}
		return res, nil
	case !errors.Is(err, sql.ErrNoRows):
		return UpdateResult{}, pgErr("update", err)
	}
	if !upsert {
		return UpdateResult{Acknowledged: true}, nil
	}

	if _, err := c.db.ExecContext(ctx, upsertSQL(c.table), id, body); err != nil {
		return UpdateResult{}, pgErr("upsert", err)
	}
	return UpdateResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: &id}, nil
}

// Delete removes the document with id.
func (c *PostgresCollection) Delete(ctx context.Context, id string) (DeleteResult, error) {
	if err := c.store.ensure(ctx, c.name); err != nil {
		return DeleteResult{}, err
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM `+c.table+` WHERE id = $1`, id)
	if err != nil {
		return DeleteResult{}, pgErr("delete", err)
	}
	n, _ := res.RowsAffected()
	return DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

// EstimatedCount reads the planner estimate, falling back to an exact count for tables
// that have never been analyzed.
func (c *PostgresCollection) EstimatedCount(ctx context.Context) (int64, error) {
	if err := c.store.ensure(ctx, c.name); err != nil {
		return 0, err
	}
	var n int64
	err := c.db.QueryRowContext(ctx, `SELECT reltuples::bigint FROM pg_class WHERE oid = $1::regclass`,
		c.table).Scan(&n)
	if err != nil {
		return 0, pgErr("count", err)
	}
	if n >= 0 {
		return n, nil
	}
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM `+c.table).Scan(&n); err != nil {
		return 0, pgErr("count", err)
	}
	return n, nil
}

func quoteTable(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		seq BIGSERIAL,
		id  TEXT PRIMARY KEY,
		doc JSONB NOT NULL
	)`
}

// findSQL builds the listing query. Equality filters use JSONB containment, which
// matches top-level scalar fields exactly.
func findSQL(table string, q Query) (string, []any, error) {
	query := `SELECT doc FROM ` + table
	args := []any{}
	if len(q.Equals) > 0 {
		filter, err := json.Marshal(q.Equals)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		args = append(args, filter)
		query += ` WHERE doc @> $1::jsonb`
	}
	query += ` ORDER BY seq`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if q.Skip > 0 {
		args = append(args, q.Skip)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	return query, args, nil
}

// updateSQL merges $2 into row $1 and returns whether the document changed. No row
// comes back when $1 does not exist.
func updateSQL(table string) string {
	return `WITH prev AS (SELECT doc FROM ` + table + ` WHERE id = $1 FOR UPDATE)
		UPDATE ` + table + ` AS t SET doc = t.doc || $2::jsonb
		FROM prev WHERE t.id = $1
		RETURNING prev.doc IS DISTINCT FROM t.doc`
}

func upsertSQL(table string) string {
	return `INSERT INTO ` + table + ` (id, doc)
		VALUES ($1, jsonb_build_object('_id', $1::text) || $2::jsonb)
		ON CONFLICT (id) DO UPDATE SET doc = ` + table + `.doc || EXCLUDED.doc`
}

func decodeDocument(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func pgErr(op string, err error) error {
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: postgres %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("postgres %s: %w", op, err)
}
