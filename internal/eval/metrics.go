package eval

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/querypilot/querypilot/internal/guard"
)

// sanitizer applies the same comment-stripping and whitespace collapse the
// safety guardrails use, so scoring sees the canonical form of a query.
var sanitizer = guard.DefaultPolicy()

func normalizeQuery(query string) string {
	return strings.ToLower(sanitizer.Sanitize(query))
}

func tokenize(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

func exactMatch(generated, expected string) float64 {
	if generated == expected {
		return 1.0
	}
	return 0.0
}

// tokenMatch is recall of the expected query's token set.
func tokenMatch(generated, expected string) float64 {
	expectedSet := tokenSet(tokenize(expected))
	if len(expectedSet) == 0 {
		return 0.0
	}
	generatedSet := tokenSet(tokenize(generated))
	matched := 0
	for token := range expectedSet {
		if _, ok := generatedSet[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(expectedSet))
}

// bleu is sentence-level BLEU with n-gram orders 1..4, geometric mean and
// a brevity penalty. Orders longer than either token sequence are skipped;
// a zero precision at any used order yields zero, the standard unsmoothed
// behavior.
func bleu(generated, expected string) float64 {
	genTokens := tokenize(generated)
	expTokens := tokenize(expected)
	if len(genTokens) == 0 || len(expTokens) == 0 {
		return 0.0
	}

	logSum := 0.0
	orders := 0
	for n := 1; n <= 4; n++ {
		if len(genTokens) < n || len(expTokens) < n {
			break
		}
		precision := ngramPrecision(genTokens, expTokens, n)
		if precision == 0 {
			return 0.0
		}
		logSum += math.Log(precision)
		orders++
	}
	if orders == 0 {
		return 0.0
	}

	score := math.Exp(logSum / float64(orders))
	if len(genTokens) < len(expTokens) {
		score *= math.Exp(1.0 - float64(len(expTokens))/float64(len(genTokens)))
	}
	return clamp01(score)
}

// ngramPrecision is clipped n-gram precision of generated against the
// expected reference.
func ngramPrecision(generated, expected []string, n int) float64 {
	refCounts := map[string]int{}
	for i := 0; i+n <= len(expected); i++ {
		refCounts[strings.Join(expected[i:i+n], " ")]++
	}

	total := 0
	matched := 0
	seen := map[string]int{}
	for i := 0; i+n <= len(generated); i++ {
		gram := strings.Join(generated[i:i+n], " ")
		total++
		if seen[gram] < refCounts[gram] {
			seen[gram]++
			matched++
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(matched) / float64(total)
}

// tokenF1 is the harmonic mean of set precision and recall. Two empty
// queries count as identical.
func tokenF1(generated, expected string) float64 {
	generatedSet := tokenSet(tokenize(generated))
	expectedSet := tokenSet(tokenize(expected))
	if len(generatedSet) == 0 && len(expectedSet) == 0 {
		return 1.0
	}
	if len(generatedSet) == 0 || len(expectedSet) == 0 {
		return 0.0
	}

	matched := 0
	for token := range expectedSet {
		if _, ok := generatedSet[token]; ok {
			matched++
		}
	}
	if matched == 0 {
		return 0.0
	}
	precision := float64(matched) / float64(len(generatedSet))
	recall := float64(matched) / float64(len(expectedSet))
	return 2 * precision * recall / (precision + recall)
}

var (
	selectListPattern = regexp.MustCompile(`(?s)select\s+(.*?)\s+from\s`)
	tablePattern      = regexp.MustCompile(`(?:from|join)\s+([a-z_][a-z0-9_]*)`)
	joinTypePattern   = regexp.MustCompile(`\b(inner|left|right|full|cross)?\s*join\b`)
	aggregatePattern  = regexp.MustCompile(`\b(count|sum|avg|min|max)\s*\(`)
	wherePattern      = regexp.MustCompile(`where\s+(.*?)(?:group\s+by|order\s+by|having|limit|$)`)
	clauseKeywords    = []string{"where", "group by", "order by", "having", "limit", "distinct"}
)

// semanticSimilarity is Jaccard overlap of structural features: selected
// columns, referenced tables, join types, aggregate functions, clause
// keywords, and WHERE-clause identifiers. It rewards structural
// equivalence despite lexical differences.
func semanticSimilarity(generated, expected string) float64 {
	genFeatures := structuralFeatures(generated)
	expFeatures := structuralFeatures(expected)
	if len(genFeatures) == 0 && len(expFeatures) == 0 {
		return 1.0
	}

	intersection := 0
	for feature := range expFeatures {
		if _, ok := genFeatures[feature]; ok {
			intersection++
		}
	}
	union := len(genFeatures) + len(expFeatures) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func structuralFeatures(query string) map[string]struct{} {
	features := map[string]struct{}{}

	if match := selectListPattern.FindStringSubmatch(query); match != nil {
		for _, column := range tokenize(match[1]) {
			features["select:"+column] = struct{}{}
		}
	}
	for _, match := range tablePattern.FindAllStringSubmatch(query, -1) {
		features["table:"+match[1]] = struct{}{}
	}
	for _, match := range joinTypePattern.FindAllStringSubmatch(query, -1) {
		joinType := match[1]
		if joinType == "" {
			joinType = "inner"
		}
		features["join:"+joinType] = struct{}{}
	}
	for _, match := range aggregatePattern.FindAllStringSubmatch(query, -1) {
		features["agg:"+match[1]] = struct{}{}
	}
	if match := wherePattern.FindStringSubmatch(query); match != nil {
		for _, token := range tokenize(match[1]) {
			features["where:"+token] = struct{}{}
		}
	}
	for _, keyword := range clauseKeywords {
		if strings.Contains(query, keyword) {
			features["kw:"+keyword] = struct{}{}
		}
	}
	return features
}
