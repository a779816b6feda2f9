package fsbridge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Jeffail/gabs/v2"
)

// ResourceType tags a decorated payload with the kind of FamilySearch
// resource it holds. Accessors are registered per type.
type ResourceType string

const (
	ResourceRaw                     ResourceType = "raw"
	ResourcePerson                  ResourceType = "person"
	ResourceUser                    ResourceType = "user"
	ResourceAncestry                ResourceType = "ancestry"
	ResourceRelationship            ResourceType = "relationship"
	ResourcePersonWithRelationships ResourceType = "personWithRelationships"
)

// Accessor derives a value from a decorated payload. It returns false when
// the value is absent. Accessors must only read from d.
type Accessor func(d *Decorated) (any, bool)

// Registry holds the accessors of every resource type. Decorated values look
// their accessors up here on each call, so registering an accessor makes it
// available on values that were decorated before the registration.
type Registry struct {
	mu        sync.RWMutex
	accessors map[ResourceType]map[string]Accessor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{accessors: make(map[ResourceType]map[string]Accessor)}
}

// NewDefaultRegistry returns a registry preloaded with the built-in
// accessors for persons, users, ancestries and relationships.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerBuiltinAccessors(r)
	return r
}

// Register adds or replaces the accessor called name for resource type t.
// A nil accessor removes it.
func (r *Registry) Register(t ResourceType, name string, acc Accessor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if acc == nil {
		delete(r.accessors[t], name)
		return
	}
	byName, ok := r.accessors[t]
	if !ok {
		byName = make(map[string]Accessor)
		r.accessors[t] = byName
	}
	byName[name] = acc
}

// RegisterRule is shorthand for Register(t, name, Value(rule)).
func (r *Registry) RegisterRule(t ResourceType, name string, rule Rule) {
	r.Register(t, name, Value(rule))
}

// Lookup returns the accessor called name for t.
func (r *Registry) Lookup(t ResourceType, name string) (Accessor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accessors[t][name]
	return acc, ok
}

// Names lists the accessors registered for t in sorted order.
func (r *Registry) Names(t ResourceType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.accessors[t]))
	for name := range r.accessors[t] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decorate parses data and wraps it as a t. An empty body decorates as an
// empty object.
func (r *Registry) Decorate(t ResourceType, data []byte) (*Decorated, error) {
	if len(data) == 0 {
		return r.Wrap(t, gabs.New()), nil
	}
	parsed, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return r.Wrap(t, parsed), nil
}

// Wrap decorates an already parsed container.
func (r *Registry) Wrap(t ResourceType, c *gabs.Container) *Decorated {
	if c == nil {
		c = gabs.New()
	}
	return &Decorated{kind: t, raw: c, registry: r}
}

// Decorated is a raw payload plus the accessors of its resource type. The
// payload is kept as parsed; callers may read or extend it through Raw.
type Decorated struct {
	kind     ResourceType
	raw      *gabs.Container
	registry *Registry
}

// Kind returns the resource type the payload was decorated as.
func (d *Decorated) Kind() ResourceType { return d.kind }

// Raw returns the underlying JSON container.
func (d *Decorated) Raw() *gabs.Container { return d.raw }

// Bytes re-encodes the payload.
func (d *Decorated) Bytes() []byte { return d.raw.Bytes() }

// Registry returns the registry d resolves accessors from.
func (d *Decorated) Registry() *Registry { return d.registry }

// Wrap decorates a part of d's payload as another resource type, sharing d's
// registry.
func (d *Decorated) Wrap(t ResourceType, c *gabs.Container) *Decorated {
	return d.registry.Wrap(t, c)
}

// Accessors lists the accessor names currently available on d.
func (d *Decorated) Accessors() []string {
	return d.registry.Names(d.kind)
}

// Has reports whether an accessor called name is registered for d's type.
func (d *Decorated) Has(name string) bool {
	_, ok := d.registry.Lookup(d.kind, name)
	return ok
}

// Get evaluates the accessor called name. Unknown accessors, missing data
// and accessors that panic on unexpected shapes all report absence.
func (d *Decorated) Get(name string) (value any, ok bool) {
	acc, found := d.registry.Lookup(d.kind, name)
	if !found {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			value, ok = nil, false
		}
	}()
	return acc(d)
}

// Call is Get with an error for accessors that are not registered. Absence
// of the value itself is still reported through the bool.
func (d *Decorated) Call(name string) (any, bool, error) {
	if !d.Has(name) {
		return nil, false, fmt.Errorf("%w: %s has no accessor %q", ErrUnknownAccessor, d.kind, name)
	}
	v, ok := d.Get(name)
	return v, ok, nil
}

// String evaluates name and returns it when it is a string.
func (d *Decorated) String(name string) (string, bool) {
	v, ok := d.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool evaluates name and returns it when it is a bool.
func (d *Decorated) Bool(name string) (bool, bool) {
	v, ok := d.Get(name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// List evaluates name and returns it when it is a list of decorated values.
func (d *Decorated) List(name string) ([]*Decorated, bool) {
	v, ok := d.Get(name)
	if !ok {
		return nil, false
	}
	list, ok := v.([]*Decorated)
	return list, ok
}
