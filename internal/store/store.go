package store

import (
	"errors"

	"matter-go-home/internal/event"
)

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	// Node operations
	SaveNode(node *Node) error
	GetNode(id uint64) (*Node, error)
	DeleteNode(id uint64) error
	ListNodes() ([]*Node, error)

	// UpdateNode atomically reads, modifies, and saves a node in a single
	// transaction. Returns ErrNotFound if the node does not exist.
	UpdateNode(id uint64, fn func(node *Node) error) error

	// Event journal
	AppendEvent(rep event.Report) (uint64, error)
	ScanEvents(q JournalQuery, fn func(JournalEntry) bool) error
	PruneEvents(keep int) (int, error)

	// Close the store
	Close() error
}
