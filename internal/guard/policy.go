package guard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const DefaultMaxResultRows = 10000

// Reason classifies why a candidate query was rejected.
type Reason string

const (
	ReasonSyntax            Reason = "syntax_error"
	ReasonForbiddenVerb     Reason = "forbidden_verb"
	ReasonStatementStacking Reason = "statement_stacking"
	ReasonInjectionPattern  Reason = "injection_pattern"
)

// Verdict is the outcome of a single validation stage. Suspicious marks
// queries that carried SQL comments before sanitization; they are not
// rejected for that alone, but the signal is surfaced to callers.
type Verdict struct {
	OK         bool
	Reason     Reason
	Detail     string
	Suspicious bool
}

func Valid() Verdict {
	return Verdict{OK: true}
}

func Invalid(reason Reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

var (
	forbiddenVerbPattern = regexp.MustCompile(`(?i)\b(DROP|DELETE|UPDATE|INSERT|ALTER|CREATE|TRUNCATE|REPLACE|EXEC|ATTACH|PRAGMA)\b`)

	lineCommentPattern  = regexp.MustCompile(`--[^\n]*`)
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)

	limitClausePattern = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)

	defaultInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bUNION\b(\s+ALL)?\s*\(?\s*SELECT\b`),
		regexp.MustCompile(`(?i)\bOR\s+\d+\s*=\s*\d+`),
		regexp.MustCompile(`(?i)'\s*OR\s*'`),
		regexp.MustCompile(`(?i)\bOR\s+'[^']*'\s*=\s*'[^']*'`),
		regexp.MustCompile(`(?i)\bOR\s+TRUE\b`),
		regexp.MustCompile(`(?i)\b(information_schema|sqlite_master|pg_catalog|duckdb_tables|duckdb_columns)\b`),
	}
)

// Policy owns the keyword list, injection regex set, and row limit applied
// to every generated query. Policies are immutable after construction and
// safe for concurrent use.
type Policy struct {
	maxResultRows int
	forbidden     *regexp.Regexp
	injection     []*regexp.Regexp
}

func NewPolicy(maxResultRows int) *Policy {
	if maxResultRows <= 0 {
		maxResultRows = DefaultMaxResultRows
	}
	return &Policy{
		maxResultRows: maxResultRows,
		forbidden:     forbiddenVerbPattern,
		injection:     defaultInjectionPatterns,
	}
}

func DefaultPolicy() *Policy {
	return NewPolicy(DefaultMaxResultRows)
}

func (p *Policy) MaxResultRows() int {
	return p.maxResultRows
}

// Sanitize removes SQL comments, collapses whitespace outside string
// literals, and strips a single trailing semicolon. It is deterministic and
// idempotent: sanitizing an already-sanitized query is a no-op.
func (p *Policy) Sanitize(query string) string {
	query = stripComments(query)
	query = CollapseWhitespace(query)
	query = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	return query
}

// Check runs the safety checks against the sanitized form of the query.
// Raw comment presence is reported through Verdict.Suspicious rather than
// causing rejection on its own.
func (p *Policy) Check(query string) Verdict {
	suspicious := containsComment(query)
	sanitized := p.Sanitize(query)

	if match := p.forbidden.FindString(sanitized); match != "" {
		v := Invalid(ReasonForbiddenVerb, fmt.Sprintf("statement contains forbidden keyword %s", strings.ToUpper(match)))
		v.Suspicious = suspicious
		return v
	}
	if n := countStatementSeparators(sanitized); n > 0 {
		v := Invalid(ReasonStatementStacking, "multiple statements are not allowed")
		v.Suspicious = suspicious
		return v
	}
	for _, pattern := range p.injection {
		if loc := pattern.FindString(sanitized); loc != "" {
			v := Invalid(ReasonInjectionPattern, fmt.Sprintf("statement matches injection pattern %q", loc))
			v.Suspicious = suspicious
			return v
		}
	}

	v := Valid()
	v.Suspicious = suspicious
	return v
}

// EnforceRowLimit appends a LIMIT clause when none is present, clamps an
// oversized one, and leaves compliant queries untouched. Applying it twice
// yields the same query.
func (p *Policy) EnforceRowLimit(query string) string {
	query = strings.TrimSpace(query)
	match := limitClausePattern.FindStringSubmatchIndex(query)
	if match == nil {
		return fmt.Sprintf("%s LIMIT %d", query, p.maxResultRows)
	}
	existing, err := strconv.Atoi(query[match[2]:match[3]])
	if err != nil || existing <= p.maxResultRows {
		return query
	}
	return query[:match[2]] + strconv.Itoa(p.maxResultRows) + query[match[3]:]
}

func containsComment(query string) bool {
	return strings.Contains(query, "--") || strings.Contains(query, "/*")
}

func stripComments(query string) string {
	query = blockCommentPattern.ReplaceAllString(query, " ")
	query = lineCommentPattern.ReplaceAllString(query, " ")
	return query
}

// CollapseWhitespace squeezes runs of whitespace into single spaces while
// preserving whitespace inside single-quoted string literals.
func CollapseWhitespace(query string) string {
	var out strings.Builder
	out.Grow(len(query))

	inString := false
	pendingSpace := false
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			out.WriteRune(r)
			if r == '\'' {
				// Doubled quote is an escaped quote, not a terminator.
				if i+1 < len(runes) && runes[i+1] == '\'' {
					out.WriteRune(runes[i+1])
					i++
					continue
				}
				inString = false
			}
			continue
		}
		switch {
		case r == '\'':
			if pendingSpace && out.Len() > 0 {
				out.WriteByte(' ')
			}
			pendingSpace = false
			inString = true
			out.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			pendingSpace = true
		default:
			if pendingSpace && out.Len() > 0 {
				out.WriteByte(' ')
			}
			pendingSpace = false
			out.WriteRune(r)
		}
	}
	return strings.TrimSpace(out.String())
}

// countStatementSeparators counts semicolons outside string literals. The
// caller sanitizes first, so a legal trailing semicolon is already gone.
func countStatementSeparators(query string) int {
	count := 0
	inString := false
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			if r == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}
		switch r {
		case '\'':
			inString = true
		case ';':
			count++
		}
	}
	return count
}
