package guard

import (
	"strings"
	"testing"
)

func TestCheckRejectsForbiddenVerbs(t *testing.T) {
	policy := DefaultPolicy()
	queries := []string{
		"DROP TABLE Students",
		"DELETE FROM Students WHERE id = 1",
		"INSERT INTO Students VALUES (1)",
		"SELECT * FROM Students; UPDATE Students SET Name = 'x'",
		"select name from t where 1=0 union select secret from admins; truncate logs",
		"ALTER TABLE Students ADD COLUMN x INT",
		"PRAGMA table_info(Students)",
	}
	for _, query := range queries {
		verdict := policy.Check(query)
		if verdict.OK {
			t.Fatalf("Check(%q) accepted a forbidden statement", query)
		}
	}
}

func TestCheckDoesNotMatchVerbsInsideIdentifiers(t *testing.T) {
	policy := DefaultPolicy()
	verdict := policy.Check("SELECT created_at, updates FROM audit_dropbox")
	if !verdict.OK {
		t.Fatalf("Check() rejected identifier-only query: %s", verdict.Detail)
	}
}

func TestCheckRejectsUnionProbe(t *testing.T) {
	policy := DefaultPolicy()
	verdict := policy.Check("SELECT * FROM Users WHERE id=1 UNION SELECT * FROM Admins")
	if verdict.OK {
		t.Fatal("Check() accepted UNION SELECT probe")
	}
	if verdict.Reason != ReasonInjectionPattern {
		t.Fatalf("Reason = %q, want %q", verdict.Reason, ReasonInjectionPattern)
	}
}

func TestCheckRejectsBooleanTautology(t *testing.T) {
	policy := DefaultPolicy()
	for _, query := range []string{
		"SELECT * FROM Users WHERE name = '' OR 1=1",
		"SELECT * FROM Users WHERE name = 'a' OR 'x'='x'",
	} {
		verdict := policy.Check(query)
		if verdict.OK {
			t.Fatalf("Check(%q) accepted tautology", query)
		}
	}
}

func TestCheckRejectsStatementStacking(t *testing.T) {
	policy := DefaultPolicy()
	verdict := policy.Check("SELECT 1; SELECT 2")
	if verdict.OK {
		t.Fatal("Check() accepted stacked statements")
	}
	if verdict.Reason != ReasonStatementStacking {
		t.Fatalf("Reason = %q, want %q", verdict.Reason, ReasonStatementStacking)
	}
}

func TestCheckAllowsSemicolonInsideLiteral(t *testing.T) {
	policy := DefaultPolicy()
	verdict := policy.Check("SELECT Name FROM Students WHERE Note = 'a;b'")
	if !verdict.OK {
		t.Fatalf("Check() rejected literal semicolon: %s", verdict.Detail)
	}
}

func TestCheckSanitizesCommentsAndAccepts(t *testing.T) {
	policy := DefaultPolicy()
	verdict := policy.Check("SELECT Name FROM Students -- all of them")
	if !verdict.OK {
		t.Fatalf("Check() rejected comment-only suspicious query: %s", verdict.Detail)
	}
	if !verdict.Suspicious {
		t.Fatal("Suspicious should be set when raw query carries comments")
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	policy := DefaultPolicy()
	raw := "SELECT  Name,\n Age /* cols */ FROM Students -- trailing\n;"
	once := policy.Sanitize(raw)
	twice := policy.Sanitize(once)
	if once != twice {
		t.Fatalf("Sanitize() not idempotent: %q vs %q", once, twice)
	}
	if strings.Contains(once, "--") || strings.Contains(once, "/*") {
		t.Fatalf("Sanitize() left comments behind: %q", once)
	}
	if strings.HasSuffix(once, ";") {
		t.Fatalf("Sanitize() left trailing semicolon: %q", once)
	}
}

func TestSanitizePreservesLiteralWhitespace(t *testing.T) {
	policy := DefaultPolicy()
	got := policy.Sanitize("SELECT  *   FROM t WHERE note = 'two  spaces'")
	want := "SELECT * FROM t WHERE note = 'two  spaces'"
	if got != want {
		t.Fatalf("Sanitize() = %q, want %q", got, want)
	}
}

func TestEnforceRowLimitAppendsWhenMissing(t *testing.T) {
	policy := NewPolicy(500)
	got := policy.EnforceRowLimit("SELECT Name FROM Students")
	want := "SELECT Name FROM Students LIMIT 500"
	if got != want {
		t.Fatalf("EnforceRowLimit() = %q, want %q", got, want)
	}
}

func TestEnforceRowLimitIsIdempotent(t *testing.T) {
	policy := NewPolicy(500)
	once := policy.EnforceRowLimit("SELECT Name FROM Students")
	twice := policy.EnforceRowLimit(once)
	if once != twice {
		t.Fatalf("EnforceRowLimit() not idempotent: %q vs %q", once, twice)
	}
	if strings.Count(twice, "LIMIT") != 1 {
		t.Fatalf("expected exactly one LIMIT clause, got %q", twice)
	}
}

func TestEnforceRowLimitClampsOversized(t *testing.T) {
	policy := NewPolicy(100)
	got := policy.EnforceRowLimit("SELECT Name FROM Students LIMIT 9999")
	want := "SELECT Name FROM Students LIMIT 100"
	if got != want {
		t.Fatalf("EnforceRowLimit() = %q, want %q", got, want)
	}
}

func TestEnforceRowLimitKeepsCompliantLimit(t *testing.T) {
	policy := NewPolicy(100)
	query := "SELECT Name FROM Students LIMIT 5"
	if got := policy.EnforceRowLimit(query); got != query {
		t.Fatalf("EnforceRowLimit() = %q, want unchanged %q", got, query)
	}
}
