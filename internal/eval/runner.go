package eval

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/querypilot/querypilot/internal/execute"
	"github.com/querypilot/querypilot/internal/guard"
	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/sqlgen"
)

// Runner drives a multi-model evaluation: for every model it runs the full
// generation pipeline and read-only execution per test case, scores each
// pair, and aggregates per-model summaries plus a cross-model comparison.
type Runner struct {
	DB               *sql.DB
	Source           schema.Introspector
	Policy           *guard.Policy
	MaxRetries       int
	EnableGuardrails bool
	MaxRows          int
	StatementTimeout time.Duration
	Weights          Weights
	Logger           *slog.Logger
}

// RunResult is the complete outcome of one evaluation run. All report
// serializations derive from this value alone.
type RunResult struct {
	RunID      string                        `json:"run_id"`
	StartedAt  time.Time                     `json:"started_at"`
	Duration   time.Duration                 `json:"-"`
	ModelOrder []string                      `json:"model_order"`
	Records    map[string][]EvaluationRecord `json:"records"`
	Summaries  map[string]ModelSummary       `json:"summaries"`
	Comparison Comparison                    `json:"comparison"`
}

// Run evaluates every model in order against the test cases. Models run in
// parallel; within one model, cases run strictly sequentially because each
// request's retry loop is sequential by contract.
func (r *Runner) Run(ctx context.Context, clients map[string]llm.Client, order []string, cases []TestCase) (*RunResult, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("no models to evaluate")
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no test cases to evaluate")
	}
	for _, model := range order {
		if clients[model] == nil {
			return nil, fmt.Errorf("no client configured for model %q", model)
		}
	}

	description, err := schema.Describe(ctx, r.Source)
	if err != nil {
		return nil, fmt.Errorf("describe schema: %w", err)
	}
	schemaText := description.Render()

	start := time.Now()
	perModel := make([][]EvaluationRecord, len(order))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, model := range order {
		group.Go(func() error {
			perModel[i] = r.evaluateModel(groupCtx, model, clients[model], schemaText, cases)
			return groupCtx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("evaluation run: %w", err)
	}

	result := &RunResult{
		RunID:      uuid.NewString(),
		StartedAt:  start.UTC(),
		Duration:   time.Since(start),
		ModelOrder: order,
		Records:    make(map[string][]EvaluationRecord, len(order)),
		Summaries:  make(map[string]ModelSummary, len(order)),
	}
	for i, model := range order {
		result.Records[model] = perModel[i]
		result.Summaries[model] = Summarize(model, perModel[i])
	}
	result.Comparison = Compare(order, result.Summaries)
	return result, nil
}

func (r *Runner) evaluateModel(ctx context.Context, model string, client llm.Client, schemaText string, cases []TestCase) []EvaluationRecord {
	logger := r.logger().With(slog.String("model", model))
	pipeline := &sqlgen.Pipeline{
		Client:           client,
		Policy:           r.Policy,
		MaxRetries:       r.MaxRetries,
		EnableGuardrails: r.EnableGuardrails,
		Logger:           logger,
	}
	executor := &execute.Executor{DB: r.DB, MaxRows: r.MaxRows, Timeout: r.StatementTimeout}

	records := make([]EvaluationRecord, 0, len(cases))
	for _, testCase := range cases {
		if ctx.Err() != nil {
			return records
		}
		records = append(records, r.evaluateCase(ctx, pipeline, executor, schemaText, testCase))
		logger.Debug("case_evaluated", slog.Int("test_id", testCase.ID))
	}
	return records
}

func (r *Runner) evaluateCase(ctx context.Context, pipeline *sqlgen.Pipeline, executor *execute.Executor, schemaText string, testCase TestCase) EvaluationRecord {
	record := EvaluationRecord{
		TestID:        testCase.ID,
		Question:      testCase.Question,
		ExpectedQuery: testCase.ExpectedQuery,
	}

	genStart := time.Now()
	outcome, err := pipeline.Generate(ctx, schemaText, testCase.Question)
	record.GenerationSec = time.Since(genStart).Seconds()
	if err != nil {
		record.Error = err.Error()
		record.Scores = zeroScores()
		return record
	}
	record.Valid = true
	record.GeneratedQuery = outcome.SQL
	record.Scores = Score(outcome.SQL, testCase.ExpectedQuery, r.Weights)

	execStart := time.Now()
	if _, err := executor.Execute(ctx, outcome.SQL); err != nil {
		record.Error = err.Error()
	} else {
		record.ExecutionSuccess = true
	}
	record.ExecutionSec = time.Since(execStart).Seconds()
	return record
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
