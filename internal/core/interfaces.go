// Package core defines the interfaces the audiobook pipeline depends on,
// so synthesis and storage backends can be swapped in tests.
package core

import (
	"context"

	"github.com/book-expert/audiobook-studio/internal/synthesis"
)

// Synthesizer defines the interface to the external text-to-speech service.
// Implementations return complete WAV audio for one line of text; any error
// is treated by callers as a per-line failure, never as process-fatal.
type Synthesizer interface {
	GenerateSpeech(ctx context.Context, req synthesis.Request) ([]byte, error)
	HealthCheck(ctx context.Context) error
}

// ObjectStore defines the interface for the blob store that delivers merged
// audiobooks to clients.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}
