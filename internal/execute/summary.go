package execute

import (
	"fmt"
	"strings"
)

// Summarize renders a plain-text digest of a result set, showing at most
// maxRows rows. It is the non-LLM fallback narration for query results.
func (r Result) Summarize(maxRows int) string {
	if len(r.Rows) == 0 {
		return "The query returned no results."
	}
	if maxRows <= 0 {
		maxRows = 5
	}
	shown := r.Rows
	if len(shown) > maxRows {
		shown = shown[:maxRows]
	}

	var b strings.Builder
	plural := "s"
	if len(r.Rows) == 1 {
		plural = ""
	}
	fmt.Fprintf(&b, "Query returned %d row%s.\n", len(r.Rows), plural)
	fmt.Fprintf(&b, "Columns: %s\n\nResults:\n", strings.Join(r.Columns, ", "))
	for i, row := range shown {
		values := make([]string, 0, len(row))
		for _, v := range row {
			values = append(values, fmt.Sprint(v))
		}
		fmt.Fprintf(&b, "  %d. %s\n", i+1, strings.Join(values, " | "))
	}
	if len(r.Rows) > maxRows {
		fmt.Fprintf(&b, "  ... and %d more rows\n", len(r.Rows)-maxRows)
	}
	if r.Truncated {
		b.WriteString("  (result set was truncated by the row cap)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
