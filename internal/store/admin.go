package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/dotstake/indexer/internal/errs"
)

// ColumnInfo mirrors one row of PRAGMA table_info for administrative
// introspection.
type ColumnInfo struct {
	Name     string
	Type     string
	NotNull  bool
	Default  sql.NullString
	IsPK     bool
}

// ListTables returns every user table name, excluding sqlite's own
// bookkeeping tables.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name
	`)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "listing tables"))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errs.NewTransient(err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// TableSchema returns the column definitions for one table via
// PRAGMA table_info, rejecting names that are not known tables to avoid
// building a PRAGMA statement from unsanitized input.
func (s *Store) TableSchema(ctx context.Context, tableName string) ([]ColumnInfo, error) {
	if err := s.requireKnownTable(ctx, tableName); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(`+tableName+`)`)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "reading table schema"))
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var cid int
		var notNull, pk int
		var c ColumnInfo
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notNull, &c.Default, &pk); err != nil {
			return nil, errs.NewTransient(errors.Wrap(err, "scanning column info"))
		}
		c.NotNull = notNull != 0
		c.IsPK = pk != 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// SampleRows returns up to limit rows of one table, rendered as a
// go-pretty table string for the administrative UI.
func (s *Store) SampleRows(ctx context.Context, tableName string, limit int) (string, error) {
	if err := s.requireKnownTable(ctx, tableName); err != nil {
		return "", err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM `+tableName+` LIMIT ?`, limit)
	if err != nil {
		return "", errs.NewTransient(errors.Wrap(err, "sampling rows"))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", errs.NewTransient(err)
	}

	t := table.NewWriter()
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", errs.NewTransient(errors.Wrap(err, "scanning sample row"))
		}
		row := make(table.Row, len(cols))
		for i, v := range raw {
			row[i] = v
		}
		t.AppendRow(row)
	}
	if err := rows.Err(); err != nil {
		return "", errs.NewTransient(err)
	}
	return t.Render(), nil
}

func (s *Store) requireKnownTable(ctx context.Context, tableName string) error {
	names, err := s.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		if strings.EqualFold(n, tableName) {
			return nil
		}
	}
	return errors.Errorf("unknown table %q", tableName)
}
