package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/example/draft-agent/internal/validation"
)

// LiveGenerator asks a text Client for JSON and validates the answer.
type LiveGenerator struct {
	client Client
}

func NewLiveGenerator(client Client) *LiveGenerator {
	return &LiveGenerator{client: client}
}

// Provider names the underlying client.
func (g *LiveGenerator) Provider() string { return g.client.Name() }

func (g *LiveGenerator) Generate(ctx context.Context, schema Schema, prompt string, out any) error {
	text, err := g.client.GenerateText(ctx, structuredPrompt(schema, prompt))
	if err != nil {
		return fmt.Errorf("%s generate %s: %w", g.client.Name(), schema.Name, err)
	}
	return decodeStructured(text, out)
}

// Close releases the client if it holds resources.
func (g *LiveGenerator) Close() error {
	if c, ok := g.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func structuredPrompt(schema Schema, prompt string) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nIMPORTANT: Respond with ONLY a JSON object, no prose and no code fences.")
	if schema.Shape != "" {
		b.WriteString(" The object must match this shape:\n")
		b.WriteString(schema.Shape)
	}
	return b.String()
}

func decodeStructured(text string, out any) error {
	raw := extractJSONObject(normalizeJSONText(text))
	if raw == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if err := validation.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

// normalizeJSONText strips a surrounding markdown code fence.
func normalizeJSONText(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if idx := strings.IndexByte(t, '\n'); idx != -1 {
			t = t[idx+1:]
		}
		if j := strings.LastIndex(t, "```"); j != -1 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	return t
}

// extractJSONObject returns the first balanced top-level {...} in s,
// skipping braces inside string literals.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
