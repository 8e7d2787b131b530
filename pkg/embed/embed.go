// Package embed computes vector embeddings of class source text.
package embed

import (
	"context"
	"errors"
	"fmt"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Func adapts a function to Embedder.
type Func func(ctx context.Context, text string) ([]float64, error)

// Embed implements Embedder.
func (f Func) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}

// ErrEmptyVector is returned when a provider answers with no data.
var ErrEmptyVector = errors.New("embedding provider returned an empty vector")

// ExhaustedError is the typed failure of an embedding whose retry budget
// ran out. It is distinct from any vector value, including the zero vector.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Outcome is the result of embedding one item: exactly one of Vector and
// Err is set.
type Outcome struct {
	Vector []float64
	Err    error
}

// OK reports whether the embedding succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}
