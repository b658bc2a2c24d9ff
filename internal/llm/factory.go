package llm

import (
	"fmt"
	"time"
)

// Settings selects and configures a generation backend by provider name.
type Settings struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// New builds the Client for the configured provider.
func New(settings Settings) (Client, error) {
	switch settings.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL:     settings.BaseURL,
			APIKey:      settings.APIKey,
			Model:       settings.Model,
			Temperature: settings.Temperature,
			Timeout:     settings.Timeout,
		})
	case "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL:     settings.BaseURL,
			Model:       settings.Model,
			Temperature: settings.Temperature,
			Timeout:     settings.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", settings.Provider)
	}
}
