// Package store defines the persistence contract for Cortex.
//
// Durable state lives in two independent collections, chat messages and
// containers, each keyed by the record's own id. There is no
// cross-collection atomicity; callers sort results themselves (the
// implementations return them in each collection's defined order).
package store

import (
	"errors"

	"github.com/cortex-ai/cortex/model"
)

var (
	// ErrDuplicateKey is returned by insert-only writes when a record
	// with the same id already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned when a get misses. Deletes never return it.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable wraps failures of the underlying storage
	// medium. Readers are expected to degrade to an empty view.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Store is the durable two-collection key-value store.
//
// Every write is durable before the method returns.
type Store interface {
	// AddChatMessage inserts a new message. Insert-only: an existing id
	// fails with ErrDuplicateKey.
	AddChatMessage(msg *model.ChatMessage) error

	// UpsertChatMessage inserts the message or overwrites the stored
	// record in full. Used for finalized assistant messages, whose id
	// was assigned while the placeholder lived only in memory.
	UpsertChatMessage(msg *model.ChatMessage) error

	// ListChatMessages returns all messages ascending by creation time.
	ListChatMessages() ([]*model.ChatMessage, error)

	// SaveContainer inserts the container or overwrites the stored
	// record in full. All container writes go through here.
	SaveContainer(c *model.Container) error

	// GetContainer retrieves a container by id.
	GetContainer(id string) (*model.Container, error)

	// ListContainers returns all containers descending by creation time.
	ListContainers() ([]*model.Container, error)

	// DeleteContainer removes a container. Idempotent: deleting a
	// missing id is not an error.
	DeleteContainer(id string) error

	Close() error
}
