package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/querypilot/querypilot/internal/eval"
)

// WriteMarkdown emits a human-readable digest: per-model summary table,
// best-model breakdown, and the failed cases worth a closer look.
func WriteMarkdown(w io.Writer, result *eval.RunResult) error {
	var b strings.Builder

	b.WriteString("# SQL Generation Evaluation Report\n\n")
	fmt.Fprintf(&b, "Run `%s`, started %s, %d model(s).\n\n",
		result.RunID, result.StartedAt.Format("2006-01-02 15:04:05 UTC"), len(result.ModelOrder))

	b.WriteString("## Model Summary\n\n")
	b.WriteString("| Model | Tests | Valid % | Executed % | Exact | Token | BLEU | F1 | Semantic | Composite |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, model := range result.ModelOrder {
		summary := result.Summaries[model]
		fmt.Fprintf(&b, "| %s | %d | %.1f | %.1f | %.3f | %.3f | %.3f | %.3f | %.3f | %.3f |\n",
			model, summary.TotalTests, summary.ValidPct, summary.ExecutedPct,
			summary.MeanScores[eval.MetricExactMatch],
			summary.MeanScores[eval.MetricTokenMatch],
			summary.MeanScores[eval.MetricBLEU],
			summary.MeanScores[eval.MetricF1],
			summary.MeanScores[eval.MetricSemantic],
			summary.MeanScores[eval.MetricComposite])
	}

	b.WriteString("\n## Best Model by Metric\n\n")
	b.WriteString("| Metric | Model | Score |\n")
	b.WriteString("|---|---|---|\n")
	metrics := append(append([]string{}, eval.MetricNames...), eval.MetricComposite, "valid_pct", "executed_pct")
	for _, metric := range metrics {
		best, ok := result.Comparison.BestByMetric[metric]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %.3f |\n", metric, best.Model, best.Score)
	}

	failures := failedRows(result)
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		b.WriteString("| Model | Test | Question | Error |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, row := range failures {
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n",
				row.Model, row.TestID, escapeCell(row.Question), escapeCell(row.Error))
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}
	return nil
}

func failedRows(result *eval.RunResult) []Row {
	var failures []Row
	for _, row := range Flatten(result) {
		if !row.Valid || !row.ExecutionSuccess {
			failures = append(failures, row)
		}
	}
	return failures
}

// escapeCell keeps free-form text from breaking the table layout.
func escapeCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
