package sqlgen

import (
	"errors"
	"strings"

	"github.com/querypilot/querypilot/internal/guard"
)

// ErrNoStatement reports that no statement-shaped substring was found in a
// model response.
var ErrNoStatement = errors.New("no SQL statement found in model response")

var statementKeywords = []string{
	"SELECT", "WITH", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER", "TRUNCATE", "PRAGMA", "EXPLAIN",
}

// Extract isolates a single SQL statement from raw model output: code
// fences and surrounding prose are stripped, the statement is cut at the
// first closing semicolon outside string literals, internal whitespace is
// collapsed, and one trailing semicolon is removed. Destructive statements
// are extracted too; rejecting them is the validators' job.
func Extract(raw string) (string, error) {
	cleaned := stripFences(raw)

	start := statementStart(cleaned)
	if start < 0 {
		return "", ErrNoStatement
	}
	statement := cleaned[start:]
	statement = cutAtStatementEnd(statement)
	statement = guard.CollapseWhitespace(statement)
	statement = strings.TrimSuffix(statement, ";")
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return "", ErrNoStatement
	}
	return statement, nil
}

// stripFences returns the body of the first triple-backtick block when one
// exists, dropping an optional language tag; otherwise the input unchanged.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	open := strings.Index(trimmed, "```")
	if open < 0 {
		return trimmed
	}
	body := trimmed[open+3:]
	if rest, ok := strings.CutPrefix(body, "sql"); ok {
		body = rest
	}
	if close := strings.Index(body, "```"); close >= 0 {
		body = body[:close]
	}
	return strings.TrimSpace(body)
}

// statementStart finds the byte offset of the first line that begins with a
// recognized SQL keyword.
func statementStart(text string) int {
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		word := firstWord(strings.TrimSpace(line))
		for _, keyword := range statementKeywords {
			if strings.EqualFold(word, keyword) {
				return offset + leadingSpace(line)
			}
		}
		offset += len(line)
	}
	return -1
}

func firstWord(line string) string {
	for i, r := range line {
		if r == ' ' || r == '\t' || r == '(' || r == ';' {
			return line[:i]
		}
	}
	return line
}

func leadingSpace(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// cutAtStatementEnd truncates at the first semicolon outside string
// literals, keeping the semicolon for uniform trailing-semicolon handling.
func cutAtStatementEnd(statement string) string {
	inString := false
	runes := []rune(statement)
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
			return string(runes[:i+1])
		}
	}
	return statement
}
