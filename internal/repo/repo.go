// Package repo stores named performance sheet configurations. A record is a
// caller-chosen reference and an opaque JSON document.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for a reference with no record.
var ErrNotFound = errors.New("configuration not found")

type Record struct {
	ID        string          `json:"id"`
	Ref       string          `json:"ref"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type Repository interface {
	// Save creates the record or replaces its document.
	Save(ctx context.Context, ref string, doc json.RawMessage) (Record, error)
	Get(ctx context.Context, ref string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, ref string) error
	Close() error
}

// SQLRepository implements Repository over database/sql. Queries are written
// with ? placeholders and rebound for drivers that number them.
type SQLRepository struct {
	db       *sql.DB
	numbered bool
	now      func() time.Time
}

func (r *SQLRepository) q(query string) string {
	if !r.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func validRef(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return errors.New("reference is required")
	}
	return nil
}

func (r *SQLRepository) Save(ctx context.Context, ref string, doc json.RawMessage) (Record, error) {
	if err := validRef(ref); err != nil {
		return Record{}, err
	}
	if !json.Valid(doc) {
		return Record{}, errors.New("document is not valid JSON")
	}
	now := r.now().UnixMilli()
	query := r.q(`INSERT INTO configs (id, ref, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (ref) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), ref, string(doc), now, now); err != nil {
		return Record{}, fmt.Errorf("save %s: %w", ref, err)
	}
	return r.Get(ctx, ref)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		rec              Record
		doc              []byte
		created, updated int64
	)
	if err := s.Scan(&rec.ID, &rec.Ref, &doc, &created, &updated); err != nil {
		return Record{}, err
	}
	rec.Document = json.RawMessage(doc)
	rec.CreatedAt = time.UnixMilli(created).UTC()
	rec.UpdatedAt = time.UnixMilli(updated).UTC()
	return rec, nil
}

func (r *SQLRepository) Get(ctx context.Context, ref string) (Record, error) {
	row := r.db.QueryRowContext(ctx,
		r.q("SELECT id, ref, document, created_at, updated_at FROM configs WHERE ref = ?"), ref)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", ref, err)
	}
	return rec, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, ref, document, created_at, updated_at FROM configs ORDER BY ref")
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list configs: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLRepository) Delete(ctx context.Context, ref string) error {
	res, err := r.db.ExecContext(ctx, r.q("DELETE FROM configs WHERE ref = ?"), ref)
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return nil
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Open picks the store named by kind: "postgres" uses dsn, "sqlite" uses path.
func Open(ctx context.Context, kind, dsn, path string) (*SQLRepository, error) {
	switch kind {
	case "postgres":
		return OpenPostgres(ctx, dsn)
	case "sqlite", "":
		return OpenSQLite(ctx, path)
	}
	return nil, fmt.Errorf("unknown store %q", kind)
}
