package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QueryResult is the tabular output of an administrative statement
type QueryResult struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// String renders the result as comma separated lines with a header
func (r *QueryResult) String() string {
	if len(r.Columns) == 0 {
		return "Executed successfully"
	}
	lines := make([]string, 0, len(r.Rows)+1)
	lines = append(lines, strings.Join(r.Columns, ", "))
	for _, row := range r.Rows {
		lines = append(lines, strings.Join(row, ", "))
	}
	return strings.Join(lines, "\n")
}

// Exec runs an arbitrary statement. Callers must check the administrator
// identity before calling it.
func (db *DB) Exec(ctx context.Context, statement string) (*QueryResult, error) {
	rows, err := db.conn.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := &QueryResult{Columns: cols}
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		result.Rows = append(result.Rows, row)
	}

	return result, rows.Err()
}

// DropTables removes both tables and recreates them empty. Callers must
// check the administrator identity before calling it.
func (db *DB) DropTables(ctx context.Context) error {
	for _, table := range []string{"raw_readings", "hourly_deltas"} {
		if _, err := db.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	if err := db.initSchema(); err != nil {
		return fmt.Errorf("recreating schema: %w", err)
	}
	return nil
}
