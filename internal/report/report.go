package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/querypilot/querypilot/internal/eval"
)

// Row is one model/test-case pair flattened for tabular serializations.
// CSV and parquet both derive from the same rows, and the JSON document
// embeds the records they are built from, so the three forms always agree.
type Row struct {
	Model            string  `parquet:"model"`
	TestID           int64   `parquet:"test_id"`
	Question         string  `parquet:"question"`
	GeneratedQuery   string  `parquet:"generated_query"`
	ExpectedQuery    string  `parquet:"expected_query"`
	Valid            bool    `parquet:"valid"`
	ExecutionSuccess bool    `parquet:"execution_success"`
	Error            string  `parquet:"error"`
	ExactMatch       float64 `parquet:"exact_match"`
	TokenMatch       float64 `parquet:"token_match"`
	BLEU             float64 `parquet:"bleu"`
	F1               float64 `parquet:"f1"`
	Semantic         float64 `parquet:"semantic_similarity"`
	Composite        float64 `parquet:"composite_score"`
	GenerationSec    float64 `parquet:"generation_time_sec"`
	ExecutionSec     float64 `parquet:"execution_time_sec"`
}

// Flatten expands a run into one row per model and test case, in the run's
// stable model order.
func Flatten(result *eval.RunResult) []Row {
	var rows []Row
	for _, model := range result.ModelOrder {
		for _, record := range result.Records[model] {
			rows = append(rows, Row{
				Model:            model,
				TestID:           int64(record.TestID),
				Question:         record.Question,
				GeneratedQuery:   record.GeneratedQuery,
				ExpectedQuery:    record.ExpectedQuery,
				Valid:            record.Valid,
				ExecutionSuccess: record.ExecutionSuccess,
				Error:            record.Error,
				ExactMatch:       record.Scores[eval.MetricExactMatch],
				TokenMatch:       record.Scores[eval.MetricTokenMatch],
				BLEU:             record.Scores[eval.MetricBLEU],
				F1:               record.Scores[eval.MetricF1],
				Semantic:         record.Scores[eval.MetricSemantic],
				Composite:        record.Scores[eval.MetricComposite],
				GenerationSec:    record.GenerationSec,
				ExecutionSec:     record.ExecutionSec,
			})
		}
	}
	return rows
}

type jsonDocument struct {
	RunID       string                             `json:"run_id"`
	GeneratedAt time.Time                          `json:"generated_at"`
	StartedAt   time.Time                          `json:"started_at"`
	DurationSec float64                            `json:"duration_sec"`
	ModelOrder  []string                           `json:"model_order"`
	Summaries   map[string]eval.ModelSummary       `json:"summaries"`
	Comparison  eval.Comparison                    `json:"comparison"`
	Records     map[string][]eval.EvaluationRecord `json:"records"`
}

// WriteJSON emits the complete run as an indented JSON document.
func WriteJSON(w io.Writer, result *eval.RunResult) error {
	document := jsonDocument{
		RunID:       result.RunID,
		GeneratedAt: time.Now().UTC(),
		StartedAt:   result.StartedAt,
		DurationSec: result.Duration.Seconds(),
		ModelOrder:  result.ModelOrder,
		Summaries:   result.Summaries,
		Comparison:  result.Comparison,
		Records:     result.Records,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(document); err != nil {
		return fmt.Errorf("encode report json: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"model", "test_id", "question", "generated_query", "expected_query",
	"valid", "execution_success", "error",
	"exact_match", "token_match", "bleu", "f1", "semantic_similarity", "composite_score",
	"generation_time_sec", "execution_time_sec",
}

// WriteCSV emits the flat row form with a fixed header.
func WriteCSV(w io.Writer, result *eval.RunResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range Flatten(result) {
		record := []string{
			row.Model,
			strconv.FormatInt(row.TestID, 10),
			row.Question,
			row.GeneratedQuery,
			row.ExpectedQuery,
			strconv.FormatBool(row.Valid),
			strconv.FormatBool(row.ExecutionSuccess),
			row.Error,
			formatScore(row.ExactMatch),
			formatScore(row.TokenMatch),
			formatScore(row.BLEU),
			formatScore(row.F1),
			formatScore(row.Semantic),
			formatScore(row.Composite),
			strconv.FormatFloat(row.GenerationSec, 'f', 3, 64),
			strconv.FormatFloat(row.ExecutionSec, 'f', 3, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', 4, 64)
}

// Artifact filenames shared by disk output and the object-store archive.
const (
	FileJSON     = "report.json"
	FileMarkdown = "report.md"
	FileCSV      = "report.csv"
	FileParquet  = "report.parquet"
)

// WriteFiles renders every serialization of the run into dir, creating it
// if needed. It returns the paths it wrote.
func WriteFiles(dir string, result *eval.RunResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	written := make([]string, 0, 4)
	write := func(name string, render func(io.Writer, *eval.RunResult) error) error {
		path := filepath.Join(dir, name)
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if err := render(file, result); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("close %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write(FileJSON, WriteJSON); err != nil {
		return nil, err
	}
	if err := write(FileMarkdown, WriteMarkdown); err != nil {
		return nil, err
	}
	if err := write(FileCSV, WriteCSV); err != nil {
		return nil, err
	}

	data, err := EncodeParquet(result)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, FileParquet)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", FileParquet, err)
	}
	written = append(written, path)
	return written, nil
}
