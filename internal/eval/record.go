package eval

// EvaluationRecord is the immutable outcome of one test case against one
// model. Times are wall-clock seconds.
type EvaluationRecord struct {
	TestID           int       `json:"test_id"`
	Question         string    `json:"question"`
	GeneratedQuery   string    `json:"generated_query"`
	ExpectedQuery    string    `json:"expected_query"`
	Valid            bool      `json:"valid"`
	ExecutionSuccess bool      `json:"execution_success"`
	Error            string    `json:"error,omitempty"`
	Scores           ScoreCard `json:"scores"`
	GenerationSec    float64   `json:"generation_time_sec"`
	ExecutionSec     float64   `json:"execution_time_sec"`
}

// ModelSummary aggregates one model's records. It is recomputed from the
// records, never mutated incrementally.
type ModelSummary struct {
	Model       string    `json:"model"`
	TotalTests  int       `json:"total_tests"`
	ValidPct    float64   `json:"valid_pct"`
	ExecutedPct float64   `json:"executed_pct"`
	MeanScores  ScoreCard `json:"mean_scores"`
}

// Summarize computes the per-model aggregate: the arithmetic mean of every
// metric plus validity and execution rates as percentages.
func Summarize(model string, records []EvaluationRecord) ModelSummary {
	summary := ModelSummary{Model: model, TotalTests: len(records), MeanScores: ScoreCard{}}
	if len(records) == 0 {
		return summary
	}

	valid := 0
	executed := 0
	totals := map[string]float64{}
	for _, record := range records {
		if record.Valid {
			valid++
		}
		if record.ExecutionSuccess {
			executed++
		}
		for _, name := range MetricNames {
			totals[name] += record.Scores[name]
		}
		totals[MetricComposite] += record.Scores[MetricComposite]
	}

	n := float64(len(records))
	summary.ValidPct = 100 * float64(valid) / n
	summary.ExecutedPct = 100 * float64(executed) / n
	for name, total := range totals {
		summary.MeanScores[name] = total / n
	}
	return summary
}

// BestModel names the winner of one metric across a comparison.
type BestModel struct {
	Model string  `json:"model"`
	Score float64 `json:"score"`
}

// Comparison ranks models per metric. Ties go to the model that appears
// first in the stable ordering.
type Comparison struct {
	Models       []string             `json:"models"`
	BestByMetric map[string]BestModel `json:"best_by_metric"`
}

func Compare(order []string, summaries map[string]ModelSummary) Comparison {
	comparison := Comparison{Models: order, BestByMetric: map[string]BestModel{}}

	metrics := append(append([]string{}, MetricNames...), MetricComposite)
	for _, metric := range metrics {
		best := BestModel{Score: -1}
		for _, model := range order {
			summary, ok := summaries[model]
			if !ok {
				continue
			}
			if score := summary.MeanScores[metric]; score > best.Score {
				best = BestModel{Model: model, Score: score}
			}
		}
		if best.Model != "" {
			comparison.BestByMetric[metric] = best
		}
	}

	bestValid := BestModel{Score: -1}
	bestExecuted := BestModel{Score: -1}
	for _, model := range order {
		summary, ok := summaries[model]
		if !ok {
			continue
		}
		if summary.ValidPct > bestValid.Score {
			bestValid = BestModel{Model: model, Score: summary.ValidPct}
		}
		if summary.ExecutedPct > bestExecuted.Score {
			bestExecuted = BestModel{Model: model, Score: summary.ExecutedPct}
		}
	}
	if bestValid.Model != "" {
		comparison.BestByMetric["valid_pct"] = bestValid
	}
	if bestExecuted.Model != "" {
		comparison.BestByMetric["executed_pct"] = bestExecuted
	}
	return comparison
}
