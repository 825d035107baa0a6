package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"matter-go-home/internal/schema"
)

type clusterEntry struct {
	name     string
	id       uint32
	def      *schema.ClusterDef // nil for clusters declared only by bindings
	writable map[string]*Descriptor
	readOnly map[string]struct{}
}

// Registry maps cluster and attribute names to write descriptors. It is
// immutable after Build and safe for concurrent use without locking.
// Names are matched ignoring case and punctuation, so "onOff", "OnOff"
// and "on_off" are the same cluster.
type Registry struct {
	clusters map[string]*clusterEntry
	names    []string
}

// Lookup returns the descriptor for a writable attribute. The error wraps
// ErrUnknownCluster, ErrUnknownAttribute or ErrNotWritable.
func (r *Registry) Lookup(cluster, attribute string) (*Descriptor, error) {
	c, ok := r.clusters[schema.NormalizeName(cluster)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCluster, cluster)
	}
	key := schema.NormalizeName(attribute)
	if d, ok := c.writable[key]; ok {
		return d, nil
	}
	if _, ok := c.readOnly[key]; ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotWritable, c.name, attribute)
	}
	return nil, fmt.Errorf("%w %q in cluster %s", ErrUnknownAttribute, attribute, c.name)
}

// Writable returns the descriptors of a cluster ordered by attribute ID.
// A known cluster without writable attributes yields an empty slice and no
// error; only an unknown cluster is an error.
func (r *Registry) Writable(cluster string) ([]*Descriptor, error) {
	c, ok := r.clusters[schema.NormalizeName(cluster)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCluster, cluster)
	}
	out := make([]*Descriptor, 0, len(c.writable))
	for _, d := range c.writable {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AttributeID != out[j].AttributeID {
			return out[i].AttributeID < out[j].AttributeID
		}
		return out[i].Attribute < out[j].Attribute
	})
	return out, nil
}

// Clusters returns the names of all known clusters, sorted.
func (r *Registry) Clusters() []string {
	return append([]string(nil), r.names...)
}

// Builder collects cluster declarations and bindings. It is not safe for
// concurrent use; build once at startup.
type Builder struct {
	clusters map[string]*clusterEntry
	pending  []Descriptor
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{clusters: make(map[string]*clusterEntry)}
}

// Cluster declares a cluster from its schema definition. Its read-only
// attributes become known so that Lookup can report ErrNotWritable, and
// bindings added for it are checked against the declared types.
func (b *Builder) Cluster(def schema.ClusterDef) *Builder {
	key := schema.NormalizeName(def.Name)
	def2 := def.DeepCopy()
	e := &clusterEntry{
		name:     schema.LowerCamel(def.Name),
		id:       def.ID,
		def:      def2,
		writable: make(map[string]*Descriptor),
		readOnly: make(map[string]struct{}),
	}
	for _, a := range def2.Attributes {
		if !a.IsWritable() {
			e.readOnly[schema.NormalizeName(a.Name)] = struct{}{}
		}
	}
	b.clusters[key] = e
	return b
}

// Add queues descriptors. A descriptor for an attribute that already has
// one replaces it, so typed bindings can override schema-derived ones.
func (b *Builder) Add(ds ...Descriptor) *Builder {
	b.pending = append(b.pending, ds...)
	return b
}

// Build checks every queued descriptor and returns the registry.
func (b *Builder) Build() (*Registry, error) {
	var errs []error
	for i := range b.pending {
		d := b.pending[i]
		if d.bindErr != nil {
			errs = append(errs, d.bindErr)
			continue
		}
		key := schema.NormalizeName(d.Cluster)
		e, ok := b.clusters[key]
		if !ok {
			e = &clusterEntry{
				name:     d.Cluster,
				writable: make(map[string]*Descriptor),
				readOnly: make(map[string]struct{}),
			}
			b.clusters[key] = e
		}
		if err := e.attach(&d); err != nil {
			errs = append(errs, err)
			continue
		}
		e.writable[schema.NormalizeName(d.Attribute)] = &d
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	r := &Registry{clusters: b.clusters}
	for _, e := range b.clusters {
		r.names = append(r.names, e.name)
	}
	sort.Strings(r.names)
	b.clusters = make(map[string]*clusterEntry)
	b.pending = nil
	return r, nil
}

// attach fills schema data into d and checks it against the declared cluster.
func (e *clusterEntry) attach(d *Descriptor) error {
	d.Cluster = e.name
	if e.def == nil {
		return nil
	}
	d.ClusterID = e.id
	d.structs = e.def.FindStruct
	attr := e.def.AttributeByName(d.Attribute)
	if attr == nil {
		return fmt.Errorf("dispatch: %s has no attribute %q", e.name, d.Attribute)
	}
	if !attr.IsWritable() {
		return fmt.Errorf("dispatch: %s.%s is read-only", e.name, attr.Name)
	}
	if len(d.Params) != 1 || d.Params[0].Ref != attr.TypeRef {
		return fmt.Errorf("dispatch: %s.%s binding type differs from schema (%s)", e.name, attr.Name, attr.Describe())
	}
	if attr.IsTimed() && d.TimedTimeout == 0 {
		return fmt.Errorf("dispatch: %s.%s needs a timed write binding", e.name, attr.Name)
	}
	d.Attribute = schema.LowerCamel(attr.Name)
	d.AttributeID = attr.ID
	return nil
}
