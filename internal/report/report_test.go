package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/querypilot/querypilot/internal/eval"
)

func fixtureRun() *eval.RunResult {
	records := map[string][]eval.EvaluationRecord{
		"codellama": {
			{
				TestID: 1, Question: "All student names.",
				GeneratedQuery: "SELECT Name FROM Students LIMIT 10000",
				ExpectedQuery:  "SELECT Name FROM Students",
				Valid:          true, ExecutionSuccess: true,
				Scores: eval.ScoreCard{
					eval.MetricExactMatch: 0, eval.MetricTokenMatch: 1, eval.MetricBLEU: 0.8,
					eval.MetricF1: 0.9, eval.MetricSemantic: 1, eval.MetricComposite: 0.74,
				},
				GenerationSec: 1.25, ExecutionSec: 0.01,
			},
			{
				TestID: 2, Question: "Count | adults.",
				ExpectedQuery: "SELECT COUNT(*) FROM Students WHERE Age > 18",
				Error:         "generation_failed: forbidden verb DROP",
				Scores: eval.ScoreCard{
					eval.MetricExactMatch: 0, eval.MetricTokenMatch: 0, eval.MetricBLEU: 0,
					eval.MetricF1: 0, eval.MetricSemantic: 0, eval.MetricComposite: 0,
				},
				GenerationSec: 3.5,
			},
		},
		"sqlcoder": {
			{
				TestID: 1, Question: "All student names.",
				GeneratedQuery: "SELECT Name FROM Students LIMIT 10000",
				ExpectedQuery:  "SELECT Name FROM Students",
				Valid:          true, ExecutionSuccess: true,
				Scores: eval.ScoreCard{
					eval.MetricExactMatch: 0, eval.MetricTokenMatch: 1, eval.MetricBLEU: 0.8,
					eval.MetricF1: 0.9, eval.MetricSemantic: 1, eval.MetricComposite: 0.74,
				},
				GenerationSec: 0.9, ExecutionSec: 0.02,
			},
			{
				TestID: 2, Question: "Count | adults.",
				GeneratedQuery: "SELECT COUNT(*) FROM Students WHERE Age > 18 LIMIT 10000",
				ExpectedQuery:  "SELECT COUNT(*) FROM Students WHERE Age > 18",
				Valid:          true, ExecutionSuccess: true,
				Scores: eval.ScoreCard{
					eval.MetricExactMatch: 0, eval.MetricTokenMatch: 1, eval.MetricBLEU: 0.85,
					eval.MetricF1: 0.92, eval.MetricSemantic: 1, eval.MetricComposite: 0.75,
				},
				GenerationSec: 1.1, ExecutionSec: 0.01,
			},
		},
	}

	order := []string{"codellama", "sqlcoder"}
	summaries := map[string]eval.ModelSummary{}
	for _, model := range order {
		summaries[model] = eval.Summarize(model, records[model])
	}
	return &eval.RunResult{
		RunID:      "run-fixture-1",
		StartedAt:  time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC),
		Duration:   7 * time.Second,
		ModelOrder: order,
		Records:    records,
		Summaries:  summaries,
		Comparison: eval.Compare(order, summaries),
	}
}

func TestFlattenPreservesModelOrder(t *testing.T) {
	rows := Flatten(fixtureRun())
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0].Model != "codellama" || rows[2].Model != "sqlcoder" {
		t.Fatalf("model order not preserved: %s, %s", rows[0].Model, rows[2].Model)
	}
	if rows[1].Error == "" || rows[1].Valid {
		t.Fatalf("failed record not carried through: %+v", rows[1])
	}
}

func TestSerializationsAgree(t *testing.T) {
	result := fixtureRun()

	var jsonBuf bytes.Buffer
	if err := WriteJSON(&jsonBuf, result); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded struct {
		RunID      string                             `json:"run_id"`
		ModelOrder []string                           `json:"model_order"`
		Records    map[string][]eval.EvaluationRecord `json:"records"`
	}
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json report: %v", err)
	}
	if decoded.RunID != result.RunID {
		t.Errorf("json run_id = %q", decoded.RunID)
	}

	var csvBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, result); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	csvRows, err := csv.NewReader(&csvBuf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv report: %v", err)
	}

	jsonRecords := 0
	for _, records := range decoded.Records {
		jsonRecords += len(records)
	}
	if len(csvRows)-1 != jsonRecords {
		t.Errorf("csv has %d data rows, json has %d records", len(csvRows)-1, jsonRecords)
	}

	parquetData, err := EncodeParquet(result)
	if err != nil {
		t.Fatalf("EncodeParquet: %v", err)
	}
	reader := parquet.NewGenericReader[Row](bytes.NewReader(parquetData))
	defer func() { _ = reader.Close() }()
	parquetRows := make([]Row, jsonRecords+1)
	count, err := reader.Read(parquetRows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("read parquet report: %v", err)
	}
	if count != jsonRecords {
		t.Errorf("parquet has %d rows, json has %d records", count, jsonRecords)
	}
}

func TestWriteCSVHeaderAndScores(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, fixtureRun()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if rows[0][0] != "model" || rows[0][len(rows[0])-1] != "execution_time_sec" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	// codellama test 1: token_match column.
	if rows[1][9] != "1.0000" {
		t.Errorf("token_match cell = %q, want 1.0000", rows[1][9])
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, fixtureRun()); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	body := buf.String()

	for _, want := range []string{
		"# SQL Generation Evaluation Report",
		"run-fixture-1",
		"## Model Summary",
		"| codellama |",
		"| sqlcoder |",
		"## Best Model by Metric",
		"## Failures",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	// Pipe characters in free-form text must not break table cells.
	if !strings.Contains(body, `Count \| adults.`) {
		t.Error("pipe character not escaped in failure table")
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	written, err := WriteFiles(dir, fixtureRun())
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	if len(written) != 4 {
		t.Fatalf("wrote %d files, want 4", len(written))
	}
	for _, path := range written {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

func TestEncodeParquetEmptyRun(t *testing.T) {
	result := &eval.RunResult{RunID: "empty", ModelOrder: []string{"m"}, Records: map[string][]eval.EvaluationRecord{}}
	if _, err := EncodeParquet(result); err == nil {
		t.Fatal("expected error for run without records")
	}
}
