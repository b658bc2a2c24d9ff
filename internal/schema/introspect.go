package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// Supported data-source drivers. The driver name selects the dialect of
// the catalog queries below.
const (
	DriverSQLite   = "sqlite3"
	DriverDuckDB   = "duckdb"
	DriverPostgres = "pgx"
)

// DBIntrospector reads table and column metadata from a database/sql
// handle. The handle is owned by the caller; the introspector never closes
// it.
type DBIntrospector struct {
	db     *sql.DB
	driver string
}

func NewDBIntrospector(db *sql.DB, driver string) (*DBIntrospector, error) {
	switch driver {
	case DriverSQLite, DriverDuckDB, DriverPostgres:
		return &DBIntrospector{db: db, driver: driver}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func (in *DBIntrospector) ListTables(ctx context.Context) ([]string, error) {
	query := ""
	switch in.driver {
	case DriverSQLite:
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	case DriverDuckDB:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`
	case DriverPostgres:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`
	}

	rows, err := in.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

func (in *DBIntrospector) TableColumns(ctx context.Context, table string) ([]Column, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch in.driver {
	case DriverSQLite:
		// PRAGMA does not accept bind parameters; the identifier is
		// quote-escaped instead.
		rows, err = in.db.QueryContext(ctx, fmt.Sprintf(`SELECT name, type FROM pragma_table_info(%s)`, quoteLiteral(table)))
	case DriverDuckDB:
		rows, err = in.db.QueryContext(ctx,
			`SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position`, table)
	case DriverPostgres:
		rows, err = in.db.QueryContext(ctx,
			`SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position`, table)
	}
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.Name, &column.DeclaredType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

func quoteLiteral(value string) string {
	escaped := ""
	for _, r := range value {
		if r == '\'' {
			escaped += "''"
			continue
		}
		escaped += string(r)
	}
	return "'" + escaped + "'"
}
