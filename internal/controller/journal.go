package controller

import (
	"errors"
	"fmt"

	"matter-go-home/internal/event"
	"matter-go-home/internal/filter"
	"matter-go-home/internal/store"
)

// MatterEvent is the payload of a matter_event bus event.
type MatterEvent struct {
	Seq    uint64        `json:"seq"`
	Record *event.Record `json:"event"`
}

// handleReport decodes a link event report, journals it and publishes it.
func (c *Controller) handleReport(rep event.Report) {
	now := c.now()
	if rep.TimestampUs == 0 {
		rep.TimestampUs = now.UnixMicro()
	}

	rec, err := event.Decode(c.schema, rep)
	if err != nil {
		c.logger.Warn("event report rejected", "node", FormatNodeID(rep.Node),
			"cluster", fmt.Sprintf("0x%04X", rep.Cluster), "event", rep.Event, "err", err)
		return
	}

	node, stale, err := c.touchNode(rep)
	if err != nil {
		c.logger.Error("update node", "node", FormatNodeID(rep.Node), "err", err)
	}
	if stale {
		c.logger.Debug("stale event dropped", "node", FormatNodeID(rep.Node), "number", rep.Number,
			"last", node.LastEventNumber)
		return
	}

	seq, err := c.store.AppendEvent(rep)
	if err != nil {
		c.logger.Error("journal event", "type", rec.TypeName(), "err", err)
	}
	if c.config.JournalLimit > 0 && c.appended.Add(1)%pruneEvery == 0 {
		if n, err := c.store.PruneEvents(c.config.JournalLimit); err != nil {
			c.logger.Error("prune journal", "err", err)
		} else if n > 0 {
			c.logger.Debug("journal pruned", "deleted", n)
		}
	}

	c.logger.Debug("matter event", "type", rec.TypeName(), "node", FormatNodeID(rep.Node),
		"endpoint", rep.Endpoint, "number", rep.Number)
	c.events.Emit(Event{Type: EventMatterEvent, Data: MatterEvent{Seq: seq, Record: rec.Clone()}})
}

// touchNode records that a node was heard from. stale is set when the
// report should be dropped as already seen.
func (c *Controller) touchNode(rep event.Report) (*store.Node, bool, error) {
	c.nodeMu.Lock()
	defer c.nodeMu.Unlock()

	now := c.now()
	node, err := c.store.GetNode(rep.Node)
	if errors.Is(err, store.ErrNotFound) {
		node = &store.Node{ID: rep.Node, FirstSeen: now}
		c.logger.Info("new node", "node", FormatNodeID(rep.Node))
	} else if err != nil {
		return nil, false, err
	}

	if c.config.DropStaleEvents && node.EventCount > 0 && rep.Number <= node.LastEventNumber {
		return node, true, nil
	}

	node.LastSeen = now
	node.EventCount++
	if rep.Number > node.LastEventNumber {
		node.LastEventNumber = rep.Number
	}
	if !node.HasEndpoint(rep.Endpoint) {
		node.Endpoints = append(node.Endpoints, rep.Endpoint)
	}
	if err := c.store.SaveNode(node); err != nil {
		return node, false, err
	}
	c.events.Emit(Event{Type: EventNodeUpdate, Data: *node})
	return node, false, nil
}

// EventQuery selects journaled events.
type EventQuery struct {
	After  uint64
	Before uint64
	Node   uint64
	// Filter is an expression over the event, see package filter.
	Filter string
	// Limit caps the result; zero means 100.
	Limit int
	// Newest returns the most recent events first.
	Newest bool
}

const defaultEventLimit = 100

// Events reads the journal back as records. Entries that no longer decode
// against the current schema are skipped.
func (c *Controller) Events(q EventQuery) ([]MatterEvent, error) {
	f, err := filter.Compile(q.Filter)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}

	out := make([]MatterEvent, 0, min(limit, 64))
	err = c.store.ScanEvents(store.JournalQuery{
		After:   q.After,
		Before:  q.Before,
		Node:    q.Node,
		Reverse: q.Newest,
	}, func(e store.JournalEntry) bool {
		rec, err := event.Decode(c.schema, e.Report)
		if err != nil {
			c.logger.Debug("journal entry skipped", "seq", e.Seq, "err", err)
			return true
		}
		if !f.Match(rec) {
			return true
		}
		out = append(out, MatterEvent{Seq: e.Seq, Record: rec})
		return len(out) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}

// Nodes lists the known nodes.
func (c *Controller) Nodes() ([]*store.Node, error) {
	return c.store.ListNodes()
}

// SetNodeLabel sets the user label of a node.
func (c *Controller) SetNodeLabel(id uint64, label string) (*store.Node, error) {
	c.nodeMu.Lock()
	defer c.nodeMu.Unlock()

	var updated store.Node
	err := c.store.UpdateNode(id, func(n *store.Node) error {
		n.Label = label
		updated = *n
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.events.Emit(Event{Type: EventNodeUpdate, Data: updated})
	return &updated, nil
}

// ForgetNode removes a node from the node table. Its journaled events stay.
func (c *Controller) ForgetNode(id uint64) error {
	c.nodeMu.Lock()
	defer c.nodeMu.Unlock()
	node, err := c.store.GetNode(id)
	if err != nil {
		return err
	}
	if err := c.store.DeleteNode(id); err != nil {
		return err
	}
	c.logger.Info("node forgotten", "node", FormatNodeID(id))
	c.events.Emit(Event{Type: EventNodeRemoved, Data: *node})
	return nil
}
