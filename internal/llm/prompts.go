package llm

import (
	"fmt"
	"strings"
)

const systemPreamble = "You are a professional SQL developer. Understand the question and return the most suitable query. " +
	"Answer with a single read-only SELECT statement. Return ONLY SQL. No markdown, no explanation."

// GenerationPrompt renders the first-attempt prompt from a schema
// description and a natural-language question.
func GenerationPrompt(schemaText, question string) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n### Database Tables Schema\n")
	b.WriteString(strings.TrimSpace(schemaText))
	b.WriteString("\n\n### Question\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nSQL query:")
	return b.String()
}

// RepairPrompt renders a follow-up prompt after a rejected attempt, feeding
// the failing query and the rejection reason back so the model can repair
// it.
func RepairPrompt(schemaText, question, failedQuery, reason string) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n### Database Tables Schema\n")
	b.WriteString(strings.TrimSpace(schemaText))
	b.WriteString("\n\n### Question\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\n### Previous Attempt\n")
	b.WriteString(strings.TrimSpace(failedQuery))
	b.WriteString("\n\n### Why It Was Rejected\n")
	b.WriteString(strings.TrimSpace(reason))
	b.WriteString("\n\nReturn a corrected SQL query that avoids this problem.\n\nSQL query:")
	return b.String()
}

// SummaryPrompt asks the model to narrate query results in plain language.
// At most maxRows rows are inlined to keep the prompt bounded.
func SummaryPrompt(question string, columns []string, rows [][]any, maxRows int) string {
	if maxRows <= 0 {
		maxRows = 5
	}
	shown := rows
	if len(shown) > maxRows {
		shown = shown[:maxRows]
	}

	var b strings.Builder
	b.WriteString("Based on the user's question and the SQL query results, provide a brief natural language summary.\n\n")
	fmt.Fprintf(&b, "User Question: %s\n\n", strings.TrimSpace(question))
	fmt.Fprintf(&b, "Column Names: %s\n\n", strings.Join(columns, ", "))
	fmt.Fprintf(&b, "Query Results (%d total rows):\n", len(rows))
	for i, row := range shown {
		values := make([]string, 0, len(row))
		for _, v := range row {
			values = append(values, fmt.Sprint(v))
		}
		fmt.Fprintf(&b, "  Row %d: %s\n", i+1, strings.Join(values, " | "))
	}
	if len(rows) > maxRows {
		fmt.Fprintf(&b, "  ... and %d more rows\n", len(rows)-maxRows)
	}
	b.WriteString("\nPlease provide a concise, human-readable summary of these results in 1-2 sentences.")
	return b.String()
}
