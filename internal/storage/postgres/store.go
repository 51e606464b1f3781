package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-desk/internal/record"
	"github.com/xenking/restaurant-desk/internal/storage"
)

var (
	_ storage.Store  = (*Store)(nil)
	_ storage.Pinger = (*Store)(nil)
)

const positionColumn = "position"

// Store implements storage.Store on a schema created by RunMigrations. Each
// artifact is a table named after it with a position column followed by the
// artifact's columns; the artifacts table records which artifacts have been
// written.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Exists reports whether artifact has been written.
func (s *Store) Exists(ctx context.Context, artifact string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM artifacts WHERE name = $1)`, artifact,
	).Scan(&ok)
	if err != nil {
		return false, storage.Wrap(err, "exists", artifact)
	}
	return ok, nil
}

// Read returns the artifact's rows ordered by position, with every cell
// formatted back to text.
func (s *Store) Read(ctx context.Context, schema record.Schema) ([]record.Record, error) {
	ok, err := s.Exists(ctx, schema.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storage.Wrap(storage.ErrNotExist, "read", schema.Name)
	}

	query := "SELECT " + joinIdents(schema.ColumnNames()) +
		" FROM " + pgx.Identifier{schema.Name}.Sanitize() +
		" ORDER BY " + positionColumn
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, storage.Wrap(err, "read", schema.Name)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		dest := scanTargets(schema)
		if err := rows.Scan(dest...); err != nil {
			return nil, storage.Wrap(errors.Wrapf(err, "row %d", len(records)+1), "read", schema.Name)
		}
		records = append(records, toRecord(schema, dest))
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap(err, "read", schema.Name)
	}
	return records, nil
}

// Write replaces the artifact's rows in one transaction. Records are checked
// against the schema before anything is sent.
func (s *Store) Write(ctx context.Context, schema record.Schema, records []record.Record) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		values, err := schema.Values(r)
		if err != nil {
			return storage.Wrap(record.AtRow(err, schema.Name, i+1), "write", schema.Name)
		}
		rows[i] = append([]any{int32(i + 1)}, values...)
	}

	table := pgx.Identifier{schema.Name}
	columns := append([]string{positionColumn}, schema.ColumnNames()...)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table.Sanitize()); err != nil {
			return errors.Wrap(err, "delete rows")
		}
		if _, err := tx.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows)); err != nil {
			return errors.Wrap(err, "copy rows")
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO artifacts (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET written_at = now()`, schema.Name,
		); err != nil {
			return errors.Wrap(err, "register artifact")
		}
		return nil
	})
	if err != nil {
		return storage.Wrap(err, "write", schema.Name)
	}
	return nil
}

func joinIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = pgx.Identifier{name}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func scanTargets(schema record.Schema) []any {
	dest := make([]any, len(schema.Columns))
	for i, c := range schema.Columns {
		switch c.Type {
		case record.TypeNumber:
			dest[i] = new(decimal.Decimal)
		case record.TypeInt:
			dest[i] = new(int64)
		case record.TypeBool:
			dest[i] = new(bool)
		case record.TypeJSON:
			dest[i] = new([]byte)
		default:
			dest[i] = new(string)
		}
	}
	return dest
}

func toRecord(schema record.Schema, dest []any) record.Record {
	r := make(record.Record, len(schema.Columns))
	for i, c := range schema.Columns {
		var v string
		switch p := dest[i].(type) {
		case *decimal.Decimal:
			v = p.String()
		case *int64:
			v = strconv.FormatInt(*p, 10)
		case *bool:
			v = strconv.FormatBool(*p)
		case *[]byte:
			v = string(*p)
		case *string:
			v = *p
		}
		r[c.Name] = v
	}
	return r
}
