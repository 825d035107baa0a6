package schema

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DefaultTimedTimeout is used for timed-write attributes that do not declare
// their own authorization window.
const DefaultTimedTimeout = 10 * time.Second

// Access is an attribute access bitmask.
type Access uint8

// Access flags
const (
	AccessRead   Access = 0x01
	AccessWrite  Access = 0x02
	AccessReport Access = 0x04
	AccessTimed  Access = 0x08 // write needs a timed interaction
)

var accessNames = []struct {
	flag Access
	name string
}{
	{AccessRead, "read"},
	{AccessWrite, "write"},
	{AccessReport, "report"},
	{AccessTimed, "timed"},
}

// MarshalText encodes the access mask as a comma separated flag list.
func (a Access) MarshalText() ([]byte, error) {
	var parts []string
	for _, n := range accessNames {
		if a&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return []byte(strings.Join(parts, ",")), nil
}

// UnmarshalText decodes "read,write,..." flag lists.
func (a *Access) UnmarshalText(b []byte) error {
	var out Access
	for _, p := range strings.Split(string(b), ",") {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		found := false
		for _, n := range accessNames {
			if n.name == p {
				out |= n.flag
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("schema: unknown access flag %q", p)
		}
	}
	*a = out
	return nil
}

// Priority is the event priority level.
type Priority uint8

const (
	PriorityDebug    Priority = 0
	PriorityInfo     Priority = 1
	PriorityCritical Priority = 2
)

var priorityNames = map[Priority]string{
	PriorityDebug:    "debug",
	PriorityInfo:     "info",
	PriorityCritical: "critical",
}

func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("priority(%d)", uint8(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for k, v := range priorityNames {
		if v == s {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("schema: unknown priority %q", s)
}

// TypeRef describes the declared type of a field or attribute.
type TypeRef struct {
	Type     DataType `json:"type" yaml:"type"`
	Elem     DataType `json:"elem,omitempty" yaml:"elem,omitempty"`     // element type of a list
	Struct   string   `json:"struct,omitempty" yaml:"struct,omitempty"` // struct name for struct types, or list of struct
	Nullable bool     `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// ElemRef returns the reference describing a list element.
func (r TypeRef) ElemRef() TypeRef {
	return TypeRef{Type: r.Elem, Struct: r.Struct}
}

// Describe returns a human readable description of the declared type.
func (r TypeRef) Describe() string {
	var s string
	switch r.Type {
	case TypeList:
		s = "list of " + r.ElemRef().Describe()
	case TypeStruct:
		s = r.Struct + " structure"
	default:
		s = r.Type.Describe()
	}
	if r.Nullable {
		s = "nullable " + s
	}
	return s
}

// FieldDef is one field of an event or structure.
type FieldDef struct {
	ID       uint32 `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	TypeRef  `yaml:",inline"`
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// StructDef is a named structure used by events and attributes.
type StructDef struct {
	Name   string     `json:"name" yaml:"name"`
	Fields []FieldDef `json:"fields" yaml:"fields"`
}

// FindField returns a field by name.
func (s *StructDef) FindField(name string) *FieldDef {
	return findField(s.Fields, name)
}

// EventDef defines a cluster event.
type EventDef struct {
	ID       uint32     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	Priority Priority   `json:"priority" yaml:"priority"`
	Fields   []FieldDef `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// FindField returns a field by name.
func (e *EventDef) FindField(name string) *FieldDef {
	return findField(e.Fields, name)
}

func findField(fields []FieldDef, name string) *FieldDef {
	key := NormalizeName(name)
	for i := range fields {
		if NormalizeName(fields[i].Name) == key {
			return &fields[i]
		}
	}
	return nil
}

// AttributeDef defines a cluster attribute.
type AttributeDef struct {
	ID      uint32 `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	TypeRef `yaml:",inline"`
	Access  Access `json:"access" yaml:"access"`
	// TimedTimeoutMs overrides DefaultTimedTimeout for timed attributes.
	TimedTimeoutMs uint32 `json:"timed_timeout_ms,omitempty" yaml:"timed_timeout_ms,omitempty"`
}

// IsReadable returns true if the attribute can be read.
func (a *AttributeDef) IsReadable() bool {
	return a.Access&AccessRead != 0
}

// IsWritable returns true if the attribute can be written.
func (a *AttributeDef) IsWritable() bool {
	return a.Access&AccessWrite != 0
}

// IsReportable returns true if the attribute supports reporting.
func (a *AttributeDef) IsReportable() bool {
	return a.Access&AccessReport != 0
}

// IsTimed returns true if writes must be sent as a timed interaction.
func (a *AttributeDef) IsTimed() bool {
	return a.Access&AccessTimed != 0
}

// WriteTimeout returns the authorization window for timed writes, zero otherwise.
func (a *AttributeDef) WriteTimeout() time.Duration {
	if !a.IsTimed() {
		return 0
	}
	if a.TimedTimeoutMs > 0 {
		return time.Duration(a.TimedTimeoutMs) * time.Millisecond
	}
	return DefaultTimedTimeout
}

// CommandDirection indicates the direction of a cluster command.
type CommandDirection string

const (
	DirectionToServer CommandDirection = "toServer"
	DirectionToClient CommandDirection = "toClient"
)

// CommandDef defines a cluster-specific command.
type CommandDef struct {
	ID        uint32           `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	Direction CommandDirection `json:"direction" yaml:"direction"`
}

// ClusterDef defines a cluster with its attributes, commands, events and structures.
type ClusterDef struct {
	ID         uint32         `json:"id" yaml:"id"`
	Name       string         `json:"name" yaml:"name"`
	Attributes []AttributeDef `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Commands   []CommandDef   `json:"commands,omitempty" yaml:"commands,omitempty"`
	Events     []EventDef     `json:"events,omitempty" yaml:"events,omitempty"`
	Structs    []StructDef    `json:"structs,omitempty" yaml:"structs,omitempty"`
}

// FindAttribute looks up an attribute by ID.
func (c *ClusterDef) FindAttribute(id uint32) *AttributeDef {
	for i := range c.Attributes {
		if c.Attributes[i].ID == id {
			return &c.Attributes[i]
		}
	}
	return nil
}

// AttributeByName looks up an attribute by name, ignoring case.
func (c *ClusterDef) AttributeByName(name string) *AttributeDef {
	key := NormalizeName(name)
	for i := range c.Attributes {
		if NormalizeName(c.Attributes[i].Name) == key {
			return &c.Attributes[i]
		}
	}
	return nil
}

// FindCommand looks up a command by ID and direction.
func (c *ClusterDef) FindCommand(id uint32, dir CommandDirection) *CommandDef {
	for i := range c.Commands {
		if c.Commands[i].ID == id && c.Commands[i].Direction == dir {
			return &c.Commands[i]
		}
	}
	return nil
}

// FindEvent looks up an event by ID.
func (c *ClusterDef) FindEvent(id uint32) *EventDef {
	for i := range c.Events {
		if c.Events[i].ID == id {
			return &c.Events[i]
		}
	}
	return nil
}

// EventByName looks up an event by name, ignoring case.
func (c *ClusterDef) EventByName(name string) *EventDef {
	key := NormalizeName(name)
	for i := range c.Events {
		if NormalizeName(c.Events[i].Name) == key {
			return &c.Events[i]
		}
	}
	return nil
}

// FindStruct looks up a structure by name.
func (c *ClusterDef) FindStruct(name string) *StructDef {
	for i := range c.Structs {
		if c.Structs[i].Name == name {
			return &c.Structs[i]
		}
	}
	return nil
}

// DeepCopy returns a deep copy of the cluster definition.
func (c *ClusterDef) DeepCopy() *ClusterDef {
	cp := *c
	if c.Attributes != nil {
		cp.Attributes = make([]AttributeDef, len(c.Attributes))
		copy(cp.Attributes, c.Attributes)
	}
	if c.Commands != nil {
		cp.Commands = make([]CommandDef, len(c.Commands))
		copy(cp.Commands, c.Commands)
	}
	if c.Events != nil {
		cp.Events = make([]EventDef, len(c.Events))
		for i, e := range c.Events {
			e.Fields = copyFields(e.Fields)
			cp.Events[i] = e
		}
	}
	if c.Structs != nil {
		cp.Structs = make([]StructDef, len(c.Structs))
		for i, s := range c.Structs {
			s.Fields = copyFields(s.Fields)
			cp.Structs[i] = s
		}
	}
	return &cp
}

func copyFields(f []FieldDef) []FieldDef {
	if f == nil {
		return nil
	}
	out := make([]FieldDef, len(f))
	copy(out, f)
	return out
}

// Merge adds attributes, commands, events and structures from another
// definition (schema overlay files).
func (c *ClusterDef) Merge(other *ClusterDef) {
	if c.Name == "" {
		c.Name = other.Name
	}
	for _, attr := range other.Attributes {
		if c.FindAttribute(attr.ID) == nil {
			c.Attributes = append(c.Attributes, attr)
		}
	}
	for _, cmd := range other.Commands {
		if c.FindCommand(cmd.ID, cmd.Direction) == nil {
			c.Commands = append(c.Commands, cmd)
		}
	}
	for _, ev := range other.Events {
		if c.FindEvent(ev.ID) == nil {
			ev.Fields = copyFields(ev.Fields)
			c.Events = append(c.Events, ev)
		}
	}
	for _, st := range other.Structs {
		if c.FindStruct(st.Name) == nil {
			st.Fields = copyFields(st.Fields)
			c.Structs = append(c.Structs, st)
		}
	}
}

// Validate checks that every struct reference resolves and that list
// and struct types carry the information needed to decode them.
func (c *ClusterDef) Validate() error {
	check := func(where string, r TypeRef) error {
		if _, ok := typeTable[r.Type]; !ok {
			return fmt.Errorf("%s: unknown type %d", where, r.Type)
		}
		if r.Type == TypeList {
			if r.Elem == TypeUnknown || r.Elem == TypeList {
				return fmt.Errorf("%s: list needs a scalar or struct element type", where)
			}
		}
		if r.Type == TypeStruct || (r.Type == TypeList && r.Elem == TypeStruct) {
			if c.FindStruct(r.Struct) == nil {
				return fmt.Errorf("%s: unknown struct %q", where, r.Struct)
			}
		}
		return nil
	}
	for _, a := range c.Attributes {
		if err := check(c.Name+"."+a.Name, a.TypeRef); err != nil {
			return err
		}
	}
	for _, e := range c.Events {
		for _, f := range e.Fields {
			if err := check(c.Name+"."+e.Name+"."+f.Name, f.TypeRef); err != nil {
				return err
			}
		}
	}
	for _, s := range c.Structs {
		for _, f := range s.Fields {
			if err := check(c.Name+"."+s.Name+"."+f.Name, f.TypeRef); err != nil {
				return err
			}
		}
	}
	return nil
}

// NormalizeName folds a cluster, attribute, event or field name for
// lookups: "OnOff", "onOff", "On/Off" and "on_off" are all equal.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// LowerCamel returns the lower camel case form of a schema name, e.g.
// "OnTime" becomes "onTime" and "LevelControl" becomes "levelControl".
func LowerCamel(s string) string {
	var b strings.Builder
	upper := false
	first := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = !first
			continue
		}
		switch {
		case first:
			b.WriteRune(unicode.ToLower(r))
			first = false
		case upper:
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
		upper = false
	}
	return b.String()
}

// Scalar returns a reference to a non-nullable scalar type.
func Scalar(dt DataType) TypeRef {
	return TypeRef{Type: dt}
}

// NullableScalar returns a reference to a nullable scalar type.
func NullableScalar(dt DataType) TypeRef {
	return TypeRef{Type: dt, Nullable: true}
}

// ListOf returns a reference to a list of scalars.
func ListOf(elem DataType) TypeRef {
	return TypeRef{Type: TypeList, Elem: elem}
}

// StructRef returns a reference to a named structure.
func StructRef(name string) TypeRef {
	return TypeRef{Type: TypeStruct, Struct: name}
}

// ListOfStruct returns a reference to a list of named structures.
func ListOfStruct(name string) TypeRef {
	return TypeRef{Type: TypeList, Elem: TypeStruct, Struct: name}
}

// OrNull returns a nullable copy of r.
func (r TypeRef) OrNull() TypeRef {
	r.Nullable = true
	return r
}
