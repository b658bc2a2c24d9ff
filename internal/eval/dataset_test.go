package eval

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	content := `[
  {"id": 1, "question": "How many students?", "expected_query": "SELECT COUNT(*) FROM Students", "expected_columns": ["COUNT(*)"]},
  {"id": 2, "question": "All names.", "expected_query": "SELECT Name FROM Students"}
]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cases, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(cases))
	}
	if cases[0].ID != 1 || cases[0].ExpectedQuery != "SELECT COUNT(*) FROM Students" {
		t.Errorf("unexpected first case: %+v", cases[0])
	}
	if len(cases[0].ExpectedColumns) != 1 {
		t.Errorf("expected_columns not parsed: %+v", cases[0])
	}
}

func TestLoadDatasetEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDataset(path); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestLoadSuite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	content := `
dataset: testdata/dataset.json
output_dir: reports
models:
  - name: codellama
    provider: ollama
    enabled: true
  - name: sqlcoder
    provider: openai
    model: sqlcoder-7b
    base_url: http://localhost:8080
    enabled: true
  - name: disabled-model
    provider: ollama
    enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	suite, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite: %v", err)
	}
	if suite.Dataset != "testdata/dataset.json" {
		t.Errorf("Dataset = %q", suite.Dataset)
	}
	if len(suite.Models) != 2 {
		t.Fatalf("got %d enabled models, want 2", len(suite.Models))
	}
	if suite.Models[0].Model != "codellama" {
		t.Errorf("model name not defaulted from suite name: %+v", suite.Models[0])
	}
	if suite.Models[1].Model != "sqlcoder-7b" || suite.Models[1].BaseURL != "http://localhost:8080" {
		t.Errorf("unexpected second model: %+v", suite.Models[1])
	}
}

func TestLoadSuiteNoEnabledModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	content := "models:\n  - name: off\n    enabled: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSuite(path); err == nil {
		t.Fatal("expected error when no models are enabled")
	}
}

func TestSampleDataset(t *testing.T) {
	cases := SampleDataset()
	if len(cases) == 0 {
		t.Fatal("sample dataset is empty")
	}
	for _, testCase := range cases {
		if testCase.Question == "" || testCase.ExpectedQuery == "" {
			t.Errorf("incomplete sample case: %+v", testCase)
		}
	}
}
