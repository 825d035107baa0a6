package schema

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds all known cluster definitions.
type Registry struct {
	mu       sync.RWMutex
	clusters map[uint32]*ClusterDef
	byName   map[string]uint32
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clusters: make(map[uint32]*ClusterDef),
		byName:   make(map[string]uint32),
		logger:   logger,
	}
}

// Register adds a cluster definition to the registry. A definition with an
// already known ID is merged into the existing one.
func (r *Registry) Register(c ClusterDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clusters[c.ID]; ok {
		existing.Merge(&c)
		r.byName[NormalizeName(existing.Name)] = c.ID
		r.logger.Debug("cluster merged", "id", fmt.Sprintf("0x%04X", c.ID), "name", existing.Name)
	} else {
		r.clusters[c.ID] = c.DeepCopy()
		r.byName[NormalizeName(c.Name)] = c.ID
		r.logger.Debug("cluster registered", "id", fmt.Sprintf("0x%04X", c.ID), "name", c.Name)
	}
}

// Get returns a cluster definition by ID, or nil if not found.
// The returned value is a deep copy; callers may modify it safely.
func (r *Registry) Get(id uint32) *ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.clusters[id]
	if c == nil {
		return nil
	}
	return c.DeepCopy()
}

// ByName returns a cluster definition by name, or nil if not found.
// Matching ignores case and punctuation, so "onOff" finds "OnOff".
func (r *Registry) ByName(name string) *ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[NormalizeName(name)]
	if !ok {
		return nil
	}
	return r.clusters[id].DeepCopy()
}

// Event returns the cluster and event definitions for a cluster/event ID pair.
func (r *Registry) Event(clusterID, eventID uint32) (*ClusterDef, *EventDef) {
	c := r.Get(clusterID)
	if c == nil {
		return nil, nil
	}
	ev := c.FindEvent(eventID)
	if ev == nil {
		return c, nil
	}
	return c, ev
}

// All returns all registered cluster definitions sorted by ID.
// Each entry is a deep copy; callers may modify them safely.
func (r *Registry) All() []ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ClusterDef, 0, len(r.clusters))
	for _, c := range r.clusters {
		result = append(result, *c.DeepCopy())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Len returns the number of registered clusters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clusters)
}
