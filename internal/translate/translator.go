package translate

import (
	"context"
	"fmt"

	"github.com/askmongo/askmongo/internal/query"
	"github.com/askmongo/askmongo/internal/schema"
)

// Translator converts one natural-language question into a structured query,
// given the fields the question may reference.
//
// Implementations are untrusted: output must go through query.Validate before
// it reaches the store.
type Translator interface {
	Translate(ctx context.Context, question string, fields schema.FieldSchema) (query.StructuredQuery, error)
}

// TranslateFunc adapts a function to the Translator interface.
type TranslateFunc func(ctx context.Context, question string, fields schema.FieldSchema) (query.StructuredQuery, error)

func (f TranslateFunc) Translate(ctx context.Context, question string, fields schema.FieldSchema) (query.StructuredQuery, error) {
	return f(ctx, question, fields)
}

// TranslationError reports that the AI call failed or returned output that
// could not be parsed into a structured query.
type TranslationError struct {
	Cause error
}

func (e *TranslationError) Error() string {
	if e == nil || e.Cause == nil {
		return "translation failed"
	}
	return fmt.Sprintf("translation failed: %v", e.Cause)
}

func (e *TranslationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// TransientError marks a translation failure as retryable.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
