package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/draft-agent/internal/validation"
)

// MockGenerator answers every schema with a canned fixture after a delay.
type MockGenerator struct {
	fixtures map[string]any
	delay    time.Duration
}

// NewMockGenerator returns a generator serving fixtures keyed by schema name.
func NewMockGenerator(fixtures map[string]any, delay time.Duration) *MockGenerator {
	return &MockGenerator{fixtures: fixtures, delay: delay}
}

func (m *MockGenerator) Provider() string { return "mock" }

func (m *MockGenerator) Generate(ctx context.Context, schema Schema, _ string, out any) error {
	if err := sleep(ctx, m.delay); err != nil {
		return err
	}
	fixture, ok := m.fixtures[schema.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schema.Name)
	}
	b, err := json.Marshal(fixture)
	if err != nil {
		return fmt.Errorf("mock fixture %s: %w", schema.Name, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if err := validation.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
