package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/querypilot/querypilot/internal/execute"
	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/sqlgen"
)

type askRequest struct {
	Question  string `json:"question"`
	Summarize bool   `json:"summarize"`
}

type askResponse struct {
	SQL        string         `json:"sql"`
	Columns    []string       `json:"columns"`
	Rows       [][]any        `json:"rows"`
	Truncated  bool           `json:"truncated"`
	Attempts   int            `json:"attempts"`
	Suspicious bool           `json:"suspicious,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Stats      map[string]any `json:"stats"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil || deps.Executor == nil || deps.Introspector == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	description, err := schema.Describe(r.Context(), deps.Introspector)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_ERROR", "failed to read data source schema", true, map[string]any{"details": err.Error()})
		return
	}

	genStart := time.Now()
	outcome, err := deps.Pipeline.Generate(r.Context(), description.Render(), request.Question)
	genElapsed := time.Since(genStart)
	if err != nil {
		handleGenerationError(w, r, err, genElapsed)
		return
	}
	observability.ObserveGeneration(len(outcome.Attempts), genElapsed)
	recordRejections(outcome.Attempts)

	execStart := time.Now()
	result, err := deps.Executor.Execute(r.Context(), outcome.SQL)
	execElapsed := time.Since(execStart)
	if err != nil {
		handleExecutionError(w, r, outcome.SQL, err, execElapsed)
		return
	}
	observability.ObserveExecution(execElapsed, false)

	response := askResponse{
		SQL:        outcome.SQL,
		Columns:    result.Columns,
		Rows:       result.Rows,
		Truncated:  result.Truncated,
		Attempts:   len(outcome.Attempts),
		Suspicious: acceptedSuspicious(outcome),
		Stats: map[string]any{
			"generation_ms": genElapsed.Milliseconds(),
			"execution_ms":  execElapsed.Milliseconds(),
			"row_count":     len(result.Rows),
		},
	}
	if request.Summarize {
		response.Summary = summarizeResult(r.Context(), deps, request.Question, result)
	}
	writeJSON(w, http.StatusOK, response)
}

func handleGenerationError(w http.ResponseWriter, r *http.Request, err error, elapsed time.Duration) {
	var pipelineErr *sqlgen.PipelineError
	if !errors.As(err, &pipelineErr) {
		writeError(r.Context(), w, http.StatusInternalServerError, "GENERATION_ERROR", "query generation failed", true, map[string]any{"details": err.Error()})
		return
	}

	observability.IncrementGenerationFailure(string(pipelineErr.Kind))
	switch pipelineErr.Kind {
	case sqlgen.KindCancelled:
		// The client went away; there is nobody left to answer.
		writeError(r.Context(), w, http.StatusRequestTimeout, "REQUEST_CANCELLED", "request was cancelled", false, nil)
	case sqlgen.KindBackend:
		writeError(r.Context(), w, http.StatusBadGateway, "GENERATION_BACKEND_ERROR", "generation backend is unavailable", true, map[string]any{"details": pipelineErr.Detail})
	default:
		observability.ObserveGeneration(pipelineErr.Attempts, elapsed)
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "GENERATION_FAILED", "no valid query could be generated", false, map[string]any{
			"attempts":    pipelineErr.Attempts,
			"last_reason": pipelineErr.Detail,
		})
	}
}

func handleExecutionError(w http.ResponseWriter, r *http.Request, sqlText string, err error, elapsed time.Duration) {
	if errors.Is(err, execute.ErrTimeout) {
		observability.ObserveExecution(elapsed, true)
		writeError(r.Context(), w, http.StatusGatewayTimeout, "EXECUTION_TIMEOUT", "query execution timed out", true, map[string]any{"sql": sqlText})
		return
	}
	observability.ObserveExecution(elapsed, false)
	writeError(r.Context(), w, http.StatusBadRequest, "EXECUTION_FAILED", "query execution failed", false, map[string]any{
		"sql":     sqlText,
		"details": err.Error(),
	})
}

func recordRejections(attempts []sqlgen.Attempt) {
	for _, attempt := range attempts {
		if !attempt.Verdict.OK {
			observability.IncrementRejection(string(attempt.Verdict.Reason))
		}
	}
}

func acceptedSuspicious(outcome sqlgen.Outcome) bool {
	if len(outcome.Attempts) == 0 {
		return false
	}
	last := outcome.Attempts[len(outcome.Attempts)-1]
	return last.Verdict.OK && last.Verdict.Suspicious
}

// summarizeResult narrates the rows for the caller. A summarizer failure is
// not fatal: the structured result already answers the question, so we fall
// back to the plain-text digest.
func summarizeResult(ctx context.Context, deps Dependencies, question string, result execute.Result) string {
	maxRows := deps.SummaryMaxRows
	if maxRows <= 0 {
		maxRows = 5
	}
	if deps.Summarizer == nil {
		return result.Summarize(maxRows)
	}
	summary, err := deps.Summarizer.Generate(ctx, llm.SummaryPrompt(question, result.Columns, result.Rows, maxRows))
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.WarnContext(ctx, "summary_generation_failed", slog.String("error", err.Error()))
		}
		return result.Summarize(maxRows)
	}
	return strings.TrimSpace(summary)
}
