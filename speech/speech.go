// Package speech declares the capture and playback devices the client can
// use for dictated memories and read-back. Implementations are supplied by
// the embedder; the client only needs these two interfaces.
package speech

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by the stub devices installed when the
// embedder has not supplied real ones.
var ErrUnavailable = errors.New("speech device not available")

// Recognizer captures one utterance and returns its transcript.
type Recognizer interface {
	Transcribe(ctx context.Context) (string, error)
}

// Synthesizer speaks the given text.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Unavailable implements both interfaces and always fails with
// ErrUnavailable.
type Unavailable struct{}

func (Unavailable) Transcribe(context.Context) (string, error) { return "", ErrUnavailable }
func (Unavailable) Speak(context.Context, string) error        { return ErrUnavailable }
