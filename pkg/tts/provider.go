package tts

import (
	"context"
	"io"

	"tourgen/pkg/model"
)

const (
	// MinAudioSize is the minimum size of a synthesized audio stream (1KB).
	// Anything smaller is likely a failed synthesis attempt.
	MinAudioSize = 1024
)

// Provider defines the interface for Text-To-Speech engines.
type Provider interface {
	// Synthesize generates mp3 audio from text. The returned stream is
	// consumed directly into object storage; the caller must close it.
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)

	// Info reports voice provenance for generated artifacts.
	Info() model.ModelInfo
}

// FatalError represents a synthesis error that retrying cannot fix.
// Examples: auth failures (401/403), malformed input (400).
type FatalError struct {
	StatusCode int
	Message    string
}

func (e *FatalError) Error() string {
	return e.Message
}

// NewFatalError creates a new FatalError with the given status code and message.
func NewFatalError(statusCode int, message string) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: message}
}

// IsFatalError checks if an error is a non-retryable synthesis error.
func IsFatalError(err error) bool {
	_, ok := err.(*FatalError)
	return ok
}
