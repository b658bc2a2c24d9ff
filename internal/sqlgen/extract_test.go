package sqlgen

import (
	"errors"
	"testing"
)

func TestExtractFromFencedBlock(t *testing.T) {
	raw := "```sql\nSELECT Name FROM Students WHERE Age > 18\n```"
	got, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "SELECT Name FROM Students WHERE Age > 18"
	if got != want {
		t.Fatalf("Extract() = %q, want %q", got, want)
	}
}

func TestExtractSkipsLeadingProse(t *testing.T) {
	raw := "Sure! Here is the query you asked for:\n\nSELECT Name\nFROM Students\nWHERE Age > 18;\n\nLet me know if you need anything else."
	got, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "SELECT Name FROM Students WHERE Age > 18"
	if got != want {
		t.Fatalf("Extract() = %q, want %q", got, want)
	}
}

func TestExtractStopsAtFirstSemicolon(t *testing.T) {
	got, err := Extract("SELECT 1; SELECT 2;")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "SELECT 1" {
		t.Fatalf("Extract() = %q, want %q", got, "SELECT 1")
	}
}

func TestExtractKeepsSemicolonInLiteral(t *testing.T) {
	got, err := Extract("SELECT Name FROM t WHERE Note = 'a;b';")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "SELECT Name FROM t WHERE Note = 'a;b'"
	if got != want {
		t.Fatalf("Extract() = %q, want %q", got, want)
	}
}

func TestExtractPreservesLiteralWhitespace(t *testing.T) {
	got, err := Extract("SELECT Name\n  FROM t\n  WHERE Note = 'two  spaces'")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "SELECT Name FROM t WHERE Note = 'two  spaces'"
	if got != want {
		t.Fatalf("Extract() = %q, want %q", got, want)
	}
}

func TestExtractReportsNoStatement(t *testing.T) {
	for _, raw := range []string{
		"",
		"I cannot answer that question.",
		"```\n\n```",
	} {
		if _, err := Extract(raw); !errors.Is(err, ErrNoStatement) {
			t.Fatalf("Extract(%q) error = %v, want ErrNoStatement", raw, err)
		}
	}
}

func TestExtractDoesNotFilterDestructiveStatements(t *testing.T) {
	got, err := Extract("DROP TABLE Students")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "DROP TABLE Students" {
		t.Fatalf("Extract() = %q", got)
	}
}
