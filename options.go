package gajni

// This file defines functional options that configure the Client during
// construction. Keeping them in a standalone file avoids cluttering
// client.go and makes it easy to discover all available knobs at a glance.

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gajni/gajni-go/speech"
)

// Option configures a Client during construction in New. Options must be
// deterministic and side-effect free.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client Timeout used for all
// backend requests. The value must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithDebugLogging wraps the client's transport so each request/response is
// dumped to the log when enabled is true. Do not enable in production.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			c.http.Transport = &debugTransport{base: c.httpTransport()}
		}
		return nil
	}
}

// WithLogger replaces the client's zerolog logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = log
		return nil
	}
}

// WithRecognizer installs the speech-to-text device used by DictateMemory.
func WithRecognizer(r speech.Recognizer) Option {
	return func(c *Client) error {
		if r == nil {
			return fmt.Errorf("recognizer must not be nil")
		}
		c.recognizer = r
		return nil
	}
}

// WithSynthesizer installs the text-to-speech device used by ReadMemoryAloud.
func WithSynthesizer(s speech.Synthesizer) Option {
	return func(c *Client) error {
		if s == nil {
			return fmt.Errorf("synthesizer must not be nil")
		}
		c.synth = s
		return nil
	}
}

// WithClock overrides the time source for record timestamps. Test seam.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		c.now = now
		return nil
	}
}
