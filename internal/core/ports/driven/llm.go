package driven

import "context"

// LLMService provides generative model completions for answer synthesis.
//
// Implementations may include:
//   - Gemini (gemini-2.0-flash)
//   - OpenAI-compatible inference servers
type LLMService interface {
	// Generate produces a text completion from a prompt. Any provider
	// failure (timeout, transport, provider error payload) is returned
	// as an error; callers decide per-question degradation.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup and by the status endpoint.
	Ping(ctx context.Context) error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// TopP is the nucleus sampling probability mass.
	TopP float64

	// TopK limits sampling to the K most likely tokens. Zero leaves
	// the provider default.
	TopK int
}
