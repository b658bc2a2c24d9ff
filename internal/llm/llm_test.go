package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("Authorization = %q", got)
		}
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Model != "test-model" {
			t.Fatalf("model = %q", payload.Model)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "SELECT 1"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "key-1", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	got, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "SELECT 1" {
		t.Fatalf("Generate() = %q", got)
	}
}

func TestOpenAIClientGenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, Model: "missing"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	if _, err := client.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestOllamaClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/generate":
			var payload struct {
				Stream bool `json:"stream"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			if payload.Stream {
				t.Fatal("stream should be disabled")
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"response": "SELECT Name FROM Students"})
		default:
			t.Fatalf("path = %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "phi"})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}
	if !client.Available(context.Background()) {
		t.Fatal("Available() = false")
	}
	got, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "SELECT Name FROM Students" {
		t.Fatalf("Generate() = %q", got)
	}
}

func TestGenerationPromptContainsSchemaAndQuestion(t *testing.T) {
	prompt := GenerationPrompt("Students(StudentID, Name)", "How many students are there?")
	for _, want := range []string{"Students(StudentID, Name)", "How many students are there?", "SQL query:"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestRepairPromptCarriesFailureContext(t *testing.T) {
	prompt := RepairPrompt("schema", "question", "SELECT Name, FROM Students", "dangling comma before clause boundary")
	for _, want := range []string{"SELECT Name, FROM Students", "dangling comma"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("repair prompt missing %q", want)
		}
	}
}

func TestSummaryPromptTruncatesRows(t *testing.T) {
	rows := [][]any{{"a"}, {"b"}, {"c"}, {"d"}}
	prompt := SummaryPrompt("who?", []string{"Name"}, rows, 2)
	if !strings.Contains(prompt, "and 2 more rows") {
		t.Fatalf("prompt should note truncation:\n%s", prompt)
	}
	if strings.Contains(prompt, "Row 3") {
		t.Fatal("prompt should not include rows beyond the cap")
	}
}
