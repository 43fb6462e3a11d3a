package service

import (
	"errors"
	"fmt"

	"groundedkb/internal/rag"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration is returned when the process or tenant is not set up to answer.
	ErrConfiguration = errors.New("configuration error")
	// ErrExternalService is returned when an external service call fails.
	ErrExternalService = errors.New("external service error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets callers match validation failures with ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// CodeError classifies an answer error code. Success, refusals and empty
// answers are regular outcomes and yield nil.
func CodeError(code rag.ErrorCode) error {
	switch code {
	case "", rag.CodeKBEmpty, rag.CodeLowRelevance, rag.CodeLowConfidence, rag.CodeEmptyAnswer:
		return nil
	case rag.CodeEmptyQuery:
		return fmt.Errorf("%w: %s", ErrInvalidInput, code)
	case rag.CodeMissingEmbeddingModel, rag.CodeMissingChatModel, rag.CodeMissingAccessToken:
		return fmt.Errorf("%w: %s", ErrConfiguration, code)
	case rag.CodeEmbeddingFailed, rag.CodeCompletionFailed:
		return fmt.Errorf("%w: %s", ErrExternalService, code)
	}
	return fmt.Errorf("answer failed: %s", code)
}
