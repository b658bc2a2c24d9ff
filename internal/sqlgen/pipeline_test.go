package sqlgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/querypilot/querypilot/internal/guard"
	"github.com/querypilot/querypilot/internal/llm"
)

func scriptedClient(t *testing.T, responses ...string) (llm.Client, *int) {
	t.Helper()
	calls := 0
	client := llm.GenerateFunc(func(_ context.Context, _ string) (string, error) {
		if calls >= len(responses) {
			t.Fatalf("unexpected generation call %d", calls+1)
		}
		response := responses[calls]
		calls++
		return response, nil
	})
	return client, &calls
}

func TestGenerateAcceptsFirstAttempt(t *testing.T) {
	client, calls := scriptedClient(t, "```sql\nSELECT Name FROM Students WHERE Age > 18\n```")
	pipeline := &Pipeline{
		Client:           client,
		Policy:           guard.DefaultPolicy(),
		MaxRetries:       3,
		EnableGuardrails: true,
	}

	outcome, err := pipeline.Generate(context.Background(), "Students(Name, Age)", "students over 18")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := "SELECT Name FROM Students WHERE Age > 18 LIMIT 10000"
	if outcome.SQL != want {
		t.Fatalf("SQL = %q, want %q", outcome.SQL, want)
	}
	if *calls != 1 {
		t.Fatalf("generation calls = %d, want 1", *calls)
	}
	if len(outcome.Attempts) != 1 || !outcome.Attempts[0].Verdict.OK {
		t.Fatalf("attempt history = %+v", outcome.Attempts)
	}
}

func TestGenerateRetriesWithRepairPrompt(t *testing.T) {
	var prompts []string
	responses := []string{
		"DROP TABLE Students",
		"SELECT Name FROM Students",
	}
	calls := 0
	client := llm.GenerateFunc(func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		response := responses[calls]
		calls++
		return response, nil
	})

	pipeline := &Pipeline{Client: client, MaxRetries: 3, EnableGuardrails: true}
	outcome, err := pipeline.Generate(context.Background(), "schema", "question")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("generation calls = %d, want 2", calls)
	}
	if !strings.Contains(prompts[1], "DROP TABLE Students") {
		t.Fatalf("second prompt should carry the failing query:\n%s", prompts[1])
	}
	if !strings.Contains(outcome.SQL, "SELECT Name FROM Students") {
		t.Fatalf("SQL = %q", outcome.SQL)
	}
	if outcome.Attempts[0].Verdict.OK {
		t.Fatal("first attempt should be rejected")
	}
}

func TestGenerateExhaustsAfterMaxRetries(t *testing.T) {
	client, calls := scriptedClient(t,
		"DELETE FROM Students",
		"DELETE FROM Students",
		"DELETE FROM Students",
	)
	pipeline := &Pipeline{Client: client, MaxRetries: 3, EnableGuardrails: true}

	_, err := pipeline.Generate(context.Background(), "schema", "question")
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	var pipeErr *PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("error type = %T", err)
	}
	if pipeErr.Kind != KindExhausted {
		t.Fatalf("Kind = %q, want %q", pipeErr.Kind, KindExhausted)
	}
	if pipeErr.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", pipeErr.Attempts)
	}
	if *calls != 3 {
		t.Fatalf("generation calls = %d, want exactly max retries", *calls)
	}
}

func TestGenerateBackendErrorDoesNotConsumeAttempt(t *testing.T) {
	client := llm.GenerateFunc(func(_ context.Context, _ string) (string, error) {
		return "", fmt.Errorf("connection refused")
	})
	pipeline := &Pipeline{Client: client, MaxRetries: 3, EnableGuardrails: true}

	_, err := pipeline.Generate(context.Background(), "schema", "question")
	var pipeErr *PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("error type = %T", err)
	}
	if pipeErr.Kind != KindBackend {
		t.Fatalf("Kind = %q, want %q", pipeErr.Kind, KindBackend)
	}
	if pipeErr.Attempts != 0 {
		t.Fatalf("Attempts = %d, want 0", pipeErr.Attempts)
	}
}

func TestGenerateExtractionFailureDrivesRetry(t *testing.T) {
	client, calls := scriptedClient(t,
		"I am not sure how to help with that.",
		"SELECT 1",
	)
	pipeline := &Pipeline{Client: client, MaxRetries: 2, EnableGuardrails: true}

	outcome, err := pipeline.Generate(context.Background(), "schema", "question")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if *calls != 2 {
		t.Fatalf("generation calls = %d, want 2", *calls)
	}
	if outcome.Attempts[0].Verdict.Reason != ReasonExtraction {
		t.Fatalf("first attempt reason = %q", outcome.Attempts[0].Verdict.Reason)
	}
}

func TestGenerateCancelledBetweenCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := llm.GenerateFunc(func(_ context.Context, _ string) (string, error) {
		cancel()
		return "DELETE FROM Students", nil
	})
	pipeline := &Pipeline{Client: client, MaxRetries: 5, EnableGuardrails: true}

	_, err := pipeline.Generate(ctx, "schema", "question")
	var pipeErr *PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("error type = %T", err)
	}
	if pipeErr.Kind != KindCancelled {
		t.Fatalf("Kind = %q, want %q", pipeErr.Kind, KindCancelled)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatal("error should unwrap to context.Canceled")
	}
}

func TestGenerateDeterministicClientReproducesVerdictSequence(t *testing.T) {
	script := []string{"DROP TABLE t", "SELECT 1"}
	run := func() []bool {
		calls := 0
		client := llm.GenerateFunc(func(_ context.Context, _ string) (string, error) {
			response := script[calls%len(script)]
			calls++
			return response, nil
		})
		pipeline := &Pipeline{Client: client, MaxRetries: 3, EnableGuardrails: true}
		outcome, err := pipeline.Generate(context.Background(), "schema", "question")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		verdicts := make([]bool, 0, len(outcome.Attempts))
		for _, attempt := range outcome.Attempts {
			verdicts = append(verdicts, attempt.Verdict.OK)
		}
		return verdicts
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("attempt counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("verdict sequence diverged at attempt %d", i+1)
		}
	}
}

func TestGenerateWithGuardrailsDisabledSkipsRowLimit(t *testing.T) {
	client, _ := scriptedClient(t, "SELECT Name FROM Students")
	pipeline := &Pipeline{Client: client, MaxRetries: 1, EnableGuardrails: false}

	outcome, err := pipeline.Generate(context.Background(), "schema", "question")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Contains(outcome.SQL, "LIMIT") {
		t.Fatalf("row limit should not be injected when guardrails are off: %q", outcome.SQL)
	}
}
