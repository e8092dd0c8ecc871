// Package llm defines the streaming completion collaborator used by the
// chat session. Implementations live in subpackages.
package llm

import (
	"context"
	"errors"

	"github.com/cortex-ai/cortex/model"
)

// ErrUnavailable indicates the collaborator cannot be used at all,
// typically because no API credential is configured.
var ErrUnavailable = errors.New("completion service unavailable")

// Client produces streaming completions for the dashboard assistant.
type Client interface {
	// StreamMessage opens one completion stream seeded with the prior
	// message history plus the new user message. Chunk order from the
	// stream is the sole ordering authority; concatenating every chunk
	// yields the full response.
	StreamMessage(ctx context.Context, history []*model.ChatMessage, message string) (Stream, error)
}

// Stream is a lazy, finite, non-restartable sequence of text fragments.
type Stream interface {
	// Recv returns the next fragment, io.EOF when the stream is
	// exhausted, or any other error on mid-stream failure.
	Recv() (string, error)
	Close() error
}
