// Package llm defines the Provider interface for Large Language Model backends.
//
// CutForge uses an LLM for exactly one job: marking disfluent word spans in a
// transcript with <cut> tags. That needs a single blocking chat completion
// with a system prompt, so the interface stays deliberately small — no tool
// calling, no streaming.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Usage holds token accounting information returned by the LLM backend.
// Counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages
	// and system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some providers return
	// it directly rather than computing it from the parts.
	TotalTokens int
}

// Request carries everything the LLM needs to produce a response. A
// zero-value request is invalid; at minimum Prompt must be non-empty.
type Request struct {
	// SystemPrompt is a high-priority instruction injected before the user
	// prompt. Providers without a dedicated system slot prepend it as a
	// "system"-role message.
	SystemPrompt string

	// Prompt is the user-role message driving the response.
	Prompt string

	// Temperature controls output randomness. Zero requests the provider
	// default; the cut selector passes a low value for near-deterministic
	// markup.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may
	// generate. Zero means use the provider default.
	MaxTokens int
}

// Response is the full, non-streamed model reply.
type Response struct {
	// Content is the text of the assistant's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Complete sends req to the model and waits for the full response. It must
// propagate context cancellation promptly and return an error if the request
// fails or ctx is cancelled before the completion arrives.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
