package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when a provider answers with no usable text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrSchemaViolation is returned when the answer does not satisfy the schema.
	ErrSchemaViolation = errors.New("llm: response does not match schema")
	// ErrUnknownSchema is returned by the mock when it has no fixture for a schema.
	ErrUnknownSchema = errors.New("llm: unknown schema")
)

// Schema names a structured output and describes its JSON shape for the prompt.
type Schema struct {
	Name  string
	Shape string
}

// Generator turns a prompt into a structured object conforming to schema.
// out must be a pointer to a struct carrying validate tags; on success it
// has been decoded and validated.
type Generator interface {
	Generate(ctx context.Context, schema Schema, prompt string, out any) error
}

// Client is a raw text completion provider.
type Client interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
}
