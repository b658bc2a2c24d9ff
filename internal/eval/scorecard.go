package eval

// Metric names. MetricNames fixes the reporting order; composite is
// derived and listed separately.
const (
	MetricExactMatch = "exact_match"
	MetricTokenMatch = "token_match"
	MetricBLEU       = "bleu"
	MetricF1         = "f1"
	MetricSemantic   = "semantic_similarity"
	MetricComposite  = "composite_score"
)

var MetricNames = []string{MetricExactMatch, MetricTokenMatch, MetricBLEU, MetricF1, MetricSemantic}

// Weights maps metric name to a non-negative weight. Weights need not sum
// to one; Normalized rescales them. Missing or all-zero weights fall back
// to uniform.
type Weights map[string]float64

func (w Weights) Normalized() Weights {
	total := 0.0
	for _, name := range MetricNames {
		if value := w[name]; value > 0 {
			total += value
		}
	}
	normalized := make(Weights, len(MetricNames))
	if total <= 0 {
		uniform := 1.0 / float64(len(MetricNames))
		for _, name := range MetricNames {
			normalized[name] = uniform
		}
		return normalized
	}
	for _, name := range MetricNames {
		if value := w[name]; value > 0 {
			normalized[name] = value / total
		}
	}
	return normalized
}

// ScoreCard is a tagged set of named scores in [0,1], including the
// derived composite. New metrics extend MetricNames and Score without
// touching aggregation or reporting code.
type ScoreCard map[string]float64

// Composite returns the weighted mean stored on the card.
func (s ScoreCard) Composite() float64 {
	return s[MetricComposite]
}

// Score computes the full metric bundle for one (generated, expected)
// query pair. Both queries are sanitized and normalized first so the
// metrics are insensitive to formatting.
func Score(generated, expected string, weights Weights) ScoreCard {
	normGen := normalizeQuery(generated)
	normExp := normalizeQuery(expected)

	card := ScoreCard{
		MetricExactMatch: exactMatch(normGen, normExp),
		MetricTokenMatch: tokenMatch(normGen, normExp),
		MetricBLEU:       bleu(normGen, normExp),
		MetricF1:         tokenF1(normGen, normExp),
		MetricSemantic:   semanticSimilarity(normGen, normExp),
	}

	composite := 0.0
	for name, weight := range weights.Normalized() {
		composite += weight * card[name]
	}
	card[MetricComposite] = clamp01(composite)
	return card
}

// zeroScores is the card assigned when generation never produced a query.
func zeroScores() ScoreCard {
	card := make(ScoreCard, len(MetricNames)+1)
	for _, name := range MetricNames {
		card[name] = 0
	}
	card[MetricComposite] = 0
	return card
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
