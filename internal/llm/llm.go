package llm

import "context"

// Client is the text-generation contract consumed by the pipeline: full
// prompt in, raw completion text out. Implementations are impure; callers
// must not assume deterministic output.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerateFunc adapts a function to the Client interface.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

func (f GenerateFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
