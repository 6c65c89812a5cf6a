// Package llm provides LLM provider abstractions.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Structured output strategy (native JSON schema vs schema-in-prompt)

package llm

import (
	"context"
)

// StructuredCompleter produces a typed JSON response for a prompt.
type StructuredCompleter interface {
	// CompleteStructured sends the messages, constrains the response to
	// the given format, and unmarshals the result into out.
	CompleteStructured(ctx context.Context, messages []ChatMessage, format *ResponseFormat, out any) error
}

// ImageDescriber produces a text description of an image.
type ImageDescriber interface {
	// DescribeImage sends the image at imageURL to a vision model with
	// the given instruction and returns the description text.
	DescribeImage(ctx context.Context, imageURL, instruction string) (string, error)
}

// Provider defines the abstract interface for LLM providers.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	StructuredCompleter
	ImageDescriber
}
