package schema

import (
	"context"
	"fmt"
	"strings"
)

// Column is one column of a relational table, with the type string the
// backend declared for it.
type Column struct {
	Name         string `json:"name"`
	DeclaredType string `json:"declared_type"`
}

// TableSchema is an ordered description of one table.
type TableSchema struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Description is an ordered snapshot of a data source's tables. It is
// built fresh per request and never cached: there is no invalidation
// logic, re-reading is always correct.
type Description []TableSchema

// Introspector is the schema-introspection contract of a data source.
type Introspector interface {
	ListTables(ctx context.Context) ([]string, error)
	TableColumns(ctx context.Context, table string) ([]Column, error)
}

// Describe reads a complete schema snapshot through the introspector.
func Describe(ctx context.Context, source Introspector) (Description, error) {
	tables, err := source.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	description := make(Description, 0, len(tables))
	for _, table := range tables {
		columns, err := source.TableColumns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("columns of %q: %w", table, err)
		}
		description = append(description, TableSchema{Name: table, Columns: columns})
	}
	return description, nil
}

// Render produces the textual form consumed by the prompt builder: one
// line per table with its columns and declared types.
func (d Description) Render() string {
	var b strings.Builder
	for _, table := range d {
		b.WriteString("Table ")
		b.WriteString(table.Name)
		b.WriteString(" (")
		for i, column := range table.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(column.Name)
			if column.DeclaredType != "" {
				b.WriteByte(' ')
				b.WriteString(column.DeclaredType)
			}
		}
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
