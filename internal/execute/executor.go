package execute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTimeout reports that the statement exceeded the configured wall-clock
// budget. The in-flight statement is cancelled; partial rows are never
// returned.
var ErrTimeout = errors.New("statement timed out")

// ExecError wraps a backend execution failure with the backend's error
// text unmodified.
type ExecError struct {
	SQL string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execute query: %v", e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Result holds materialized rows. Truncated is set when the executor had
// to cap the row set itself because the backend ignored the injected
// LIMIT clause.
type Result struct {
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	Truncated bool          `json:"truncated"`
	Duration  time.Duration `json:"-"`
}

// Executor runs accepted queries against a caller-owned database handle
// under a read-only contract. It never closes or reopens the handle.
type Executor struct {
	DB      *sql.DB
	MaxRows int
	Timeout time.Duration
}

// Execute runs exactly one statement and materializes its rows. Backend
// failures surface as *ExecError; exceeding the timeout surfaces as
// ErrTimeout.
func (e *Executor) Execute(ctx context.Context, sqlText string) (Result, error) {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return Result{}, &ExecError{SQL: sqlText, Err: fmt.Errorf("sql is required")}
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := e.DB.QueryContext(ctx, sqlText)
	if err != nil {
		return Result{}, e.classify(ctx, sqlText, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, e.classify(ctx, sqlText, err)
	}

	result := Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		// Defensive cap for backends that ignored the injected LIMIT.
		if e.MaxRows > 0 && len(result.Rows) >= e.MaxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return Result{}, e.classify(ctx, sqlText, err)
		}
		result.Rows = append(result.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, e.classify(ctx, sqlText, err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (e *Executor) classify(ctx context.Context, sqlText string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return &ExecError{SQL: sqlText, Err: err}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
