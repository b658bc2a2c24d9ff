package sqlgen

import (
	"context"
	"errors"
	"log/slog"

	"github.com/querypilot/querypilot/internal/guard"
	"github.com/querypilot/querypilot/internal/llm"
)

// state names the phases of a single generation request. Transitions are
// strictly sequential: pending → generating → extracting → validating →
// accepted, or back through rejected into another cycle until exhausted.
type state int

const (
	statePending state = iota
	stateGenerating
	stateExtracting
	stateValidating
	stateAccepted
	stateRejected
	stateExhausted
)

func (s state) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateGenerating:
		return "generating"
	case stateExtracting:
		return "extracting"
	case stateValidating:
		return "validating"
	case stateAccepted:
		return "accepted"
	case stateRejected:
		return "rejected"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Attempt records one generation/validation cycle. The full history is
// returned with the outcome so callers can display attempt progress.
type Attempt struct {
	Number      int           `json:"number"`
	RawResponse string        `json:"-"`
	SQL         string        `json:"sql,omitempty"`
	Verdict     guard.Verdict `json:"verdict"`
}

// Outcome is the terminal result of a generation request. SQL carries the
// guardrail-adjusted statement only when the request was accepted.
type Outcome struct {
	SQL      string
	Attempts []Attempt
}

// Pipeline drives generate → extract → validate → guard for one question,
// re-prompting with failure context up to MaxRetries times. A Pipeline is
// stateless across calls; each Generate call runs its attempts strictly
// sequentially because every repair prompt depends on the previous verdict.
type Pipeline struct {
	Client           llm.Client
	Policy           *guard.Policy
	MaxRetries       int
	EnableGuardrails bool
	Logger           *slog.Logger
}

func (p *Pipeline) maxRetries() int {
	if p.MaxRetries < 1 {
		return 1
	}
	if p.MaxRetries > 5 {
		return 5
	}
	return p.MaxRetries
}

func (p *Pipeline) policy() *guard.Policy {
	if p.Policy == nil {
		return guard.DefaultPolicy()
	}
	return p.Policy
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// Generate runs the retry loop for one question against one schema
// snapshot. It returns the accepted query plus the attempt history, or a
// *PipelineError when the backend fails, the context ends, or all attempts
// are rejected.
func (p *Pipeline) Generate(ctx context.Context, schemaText, question string) (Outcome, error) {
	policy := p.policy()
	logger := p.logger()
	limit := p.maxRetries()

	var attempts []Attempt
	machine := statePending

	for len(attempts) < limit {
		// Cooperative cancellation point between retry cycles.
		if err := ctx.Err(); err != nil {
			return Outcome{Attempts: attempts}, &PipelineError{
				Kind:     KindCancelled,
				Detail:   err.Error(),
				Attempts: len(attempts),
				Err:      err,
			}
		}

		prompt := llm.GenerationPrompt(schemaText, question)
		if last := lastAttempt(attempts); last != nil {
			prompt = llm.RepairPrompt(schemaText, question, last.SQL, last.Verdict.Detail)
		}

		machine = stateGenerating
		raw, err := p.Client.Generate(ctx, prompt)
		if err != nil {
			// Transport failure is not a rejection; it aborts the request
			// without consuming an attempt.
			return Outcome{Attempts: attempts}, &PipelineError{
				Kind:     KindBackend,
				Detail:   err.Error(),
				Attempts: len(attempts),
				Err:      err,
			}
		}

		attempt := Attempt{Number: len(attempts) + 1, RawResponse: raw}

		machine = stateExtracting
		sql, err := Extract(raw)
		if err != nil {
			if !errors.Is(err, ErrNoStatement) {
				return Outcome{Attempts: attempts}, err
			}
			attempt.Verdict = guard.Invalid(ReasonExtraction, "response contained no SQL statement")
			attempts = append(attempts, attempt)
			machine = stateRejected
			logRejection(ctx, logger, machine, attempt)
			continue
		}
		attempt.SQL = sql

		machine = stateValidating
		verdict := guard.ValidateSyntax(sql)
		if verdict.OK && p.EnableGuardrails {
			verdict = policy.Check(sql)
		}
		attempt.Verdict = verdict
		attempts = append(attempts, attempt)

		if !verdict.OK {
			machine = stateRejected
			logRejection(ctx, logger, machine, attempt)
			continue
		}

		machine = stateAccepted
		accepted := sql
		if p.EnableGuardrails {
			accepted = policy.EnforceRowLimit(policy.Sanitize(sql))
		}
		logger.InfoContext(ctx, "query_accepted",
			slog.String("state", machine.String()),
			slog.Int("attempts", attempt.Number),
			slog.Bool("suspicious", verdict.Suspicious))
		return Outcome{SQL: accepted, Attempts: attempts}, nil
	}

	machine = stateExhausted
	last := lastAttempt(attempts)
	detail := "all attempts rejected"
	if last != nil {
		detail = last.Verdict.Detail
	}
	logger.WarnContext(ctx, "generation_exhausted",
		slog.String("state", machine.String()),
		slog.Int("attempts", len(attempts)),
		slog.String("last_detail", detail))
	return Outcome{Attempts: attempts}, &PipelineError{
		Kind:     KindExhausted,
		Detail:   detail,
		Attempts: len(attempts),
	}
}

func logRejection(ctx context.Context, logger *slog.Logger, machine state, attempt Attempt) {
	logger.DebugContext(ctx, "attempt_rejected",
		slog.String("state", machine.String()),
		slog.Int("attempt", attempt.Number),
		slog.String("reason", string(attempt.Verdict.Reason)),
		slog.String("detail", attempt.Verdict.Detail))
}

func lastAttempt(attempts []Attempt) *Attempt {
	if len(attempts) == 0 {
		return nil
	}
	return &attempts[len(attempts)-1]
}
