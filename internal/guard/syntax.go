package guard

import (
	"fmt"
	"regexp"
	"strings"
)

var trailingCommaPattern = regexp.MustCompile(`(?i),\s*(FROM|WHERE|GROUP\s+BY|ORDER\s+BY|HAVING|LIMIT|\)|$)`)

// ValidateSyntax performs structural well-formedness checks on an extracted
// SQL statement. It deliberately overlaps with Policy.Check on the
// SELECT-only rule; the duplication is defense in depth.
func ValidateSyntax(query string) Verdict {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Invalid(ReasonSyntax, "statement is empty")
	}

	first := firstKeyword(trimmed)
	if !strings.EqualFold(first, "SELECT") {
		return Invalid(ReasonSyntax, fmt.Sprintf("statement must begin with SELECT, got %q", first))
	}

	if err := scanBalance(trimmed); err != nil {
		return Invalid(ReasonSyntax, err.Error())
	}

	if loc := trailingCommaPattern.FindString(trimmed); loc != "" {
		return Invalid(ReasonSyntax, fmt.Sprintf("dangling comma before clause boundary %q", strings.TrimSpace(loc)))
	}

	return Valid()
}

func firstKeyword(query string) string {
	for i, r := range query {
		if r == ' ' || r == '\t' || r == '\n' || r == '(' {
			return query[:i]
		}
	}
	return query
}

// scanBalance walks the statement once, tracking quote state and a paren
// depth counter. Parens inside string literals are ignored; a literal left
// open at end of input is an error.
func scanBalance(query string) error {
	depth := 0
	var quote rune
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			if r == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			quote = r
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses: unexpected ')'")
			}
		}
	}
	if quote == '\'' {
		return fmt.Errorf("unterminated single-quoted string literal")
	}
	if quote == '"' {
		return fmt.Errorf("unterminated double-quoted identifier")
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses: %d unclosed", depth)
	}
	return nil
}
