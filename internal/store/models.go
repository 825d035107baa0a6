package store

import (
	"time"

	"matter-go-home/internal/event"
)

// Node is a Matter node the controller has heard from.
type Node struct {
	ID        uint64    `json:"id"`
	Label     string    `json:"label,omitempty"`
	Endpoints []uint16  `json:"endpoints,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	// LastEventNumber is the highest event number journaled for the node.
	LastEventNumber uint64 `json:"last_event_number"`
	EventCount      uint64 `json:"event_count"`
}

// HasEndpoint reports whether ep is in the node's endpoint list.
func (n *Node) HasEndpoint(ep uint16) bool {
	for _, e := range n.Endpoints {
		if e == ep {
			return true
		}
	}
	return false
}

// JournalEntry is one journaled event report with its journal sequence.
type JournalEntry struct {
	Seq    uint64       `json:"seq"`
	Report event.Report `json:"report"`
}

// JournalQuery selects journal entries. Zero values mean no bound.
type JournalQuery struct {
	// After and Before are exclusive sequence bounds.
	After  uint64
	Before uint64
	Node   uint64
	// Reverse scans newest first.
	Reverse bool
}
