package llm

import "context"

type Provider interface {
	// Generate makes a single request and returns the full response text.
	// No retries; transport failures propagate to the caller.
	Generate(ctx context.Context, system, prompt string) (string, error)
	Close() error
}
