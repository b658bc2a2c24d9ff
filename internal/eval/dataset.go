package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TestCase is one entry of an evaluation dataset.
type TestCase struct {
	ID              int      `json:"id"`
	Question        string   `json:"question"`
	ExpectedQuery   string   `json:"expected_query"`
	ExpectedColumns []string `json:"expected_columns,omitempty"`
}

// LoadDataset reads a JSON array of test cases.
func LoadDataset(path string) ([]TestCase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var cases []TestCase
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("dataset %q is empty", path)
	}
	return cases, nil
}

// SampleDataset is a small built-in suite for smoke-testing an evaluation
// setup without a dataset file.
func SampleDataset() []TestCase {
	return []TestCase{
		{
			ID:              1,
			Question:        "Show me all students with their math marks.",
			ExpectedQuery:   "SELECT s.Name, m.Math FROM Students s JOIN Marks m ON s.StudentID = m.StudentID",
			ExpectedColumns: []string{"Name", "Math"},
		},
		{
			ID:              2,
			Question:        "How many students are older than 18?",
			ExpectedQuery:   "SELECT COUNT(*) FROM Students WHERE Age > 18",
			ExpectedColumns: []string{"COUNT(*)"},
		},
	}
}

// SuiteModel configures one model under evaluation.
type SuiteModel struct {
	Name     string  `yaml:"name"`
	Provider string  `yaml:"provider"`
	Model    string  `yaml:"model"`
	BaseURL  string  `yaml:"base_url"`
	APIKey   string  `yaml:"api_key"`
	Enabled  bool    `yaml:"enabled"`
	Temp     float64 `yaml:"temperature"`
}

// Suite is the YAML evaluation configuration: which models to run against
// which dataset.
type Suite struct {
	Dataset   string       `yaml:"dataset"`
	OutputDir string       `yaml:"output_dir"`
	Models    []SuiteModel `yaml:"models"`
}

// LoadSuite reads and validates a suite file. Disabled models are dropped.
func LoadSuite(path string) (Suite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("read suite: %w", err)
	}
	var suite Suite
	if err := yaml.Unmarshal(raw, &suite); err != nil {
		return Suite{}, fmt.Errorf("decode suite: %w", err)
	}

	enabled := make([]SuiteModel, 0, len(suite.Models))
	for _, model := range suite.Models {
		if !model.Enabled {
			continue
		}
		if strings.TrimSpace(model.Name) == "" {
			return Suite{}, fmt.Errorf("suite model missing name")
		}
		if strings.TrimSpace(model.Model) == "" {
			model.Model = model.Name
		}
		enabled = append(enabled, model)
	}
	if len(enabled) == 0 {
		return Suite{}, fmt.Errorf("suite %q has no enabled models", path)
	}
	suite.Models = enabled
	return suite, nil
}
