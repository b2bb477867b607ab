package gwallet

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Capability is a single operation a resource type permits.
type Capability uint8

const (
	CapCreate Capability = 1 << iota
	CapRead
	CapUpdate
	CapList
	CapMessage
	CapDisable

	// CapAll is the default capability set of a registered resource.
	CapAll = CapCreate | CapRead | CapUpdate | CapList | CapMessage | CapDisable
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapCreate, "create"},
	{CapRead, "read"},
	{CapUpdate, "update"},
	{CapList, "list"},
	{CapMessage, "message"},
	{CapDisable, "disable"},
}

// Has reports whether all capabilities in o are set in c.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

// String returns the capability names joined by "|".
func (c Capability) String() string {
	var names []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ListFilter selects the query parameter a listing is scoped by.
type ListFilter int

const (
	// ListByIssuer lists class-shaped resources by issuerId.
	ListByIssuer ListFilter = iota
	// ListByClass lists object-shaped resources by classId.
	ListByClass
	// ListUnfiltered lists a singleton-like resource without filter or paging.
	ListUnfiltered
)

// ResourceConfig declares a resource type. Zero values get defaults on
// registration: URLPart is the lower-camel name, Plural is URLPart with an
// "s" (or "es") suffix, IDField is "id" and all capabilities except Deny are
// granted.
type ResourceConfig struct {
	Name    string
	URLPart string
	Plural  string
	IDField string
	// Deny removes capabilities from CapAll.
	Deny       Capability
	ListFilter ListFilter
	// New returns an empty instance of the resource's model.
	New func() Resource
}

// RegistryEntry is the immutable metadata of one registered resource type.
type RegistryEntry struct {
	Name         string
	URLPart      string
	Plural       string
	IDField      string
	Capabilities Capability
	ListFilter   ListFilter
	New          func() Resource
}

// Registry maps resource names and plural keys to their metadata.
// It is safe for concurrent reads; registration is expected at startup.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*RegistryEntry
	byPlural map[string]*RegistryEntry
}

// RegistrySnapshot is an opaque copy of a registry's entries.
type RegistrySnapshot struct {
	entries []*RegistryEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   map[string]*RegistryEntry{},
		byPlural: map[string]*RegistryEntry{},
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry populated with the
// built-in resource catalogue.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r := NewRegistry()
		if err := r.RegisterAll(Catalogue()...); err != nil {
			panic(fmt.Sprintf("gwallet: register catalogue: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Register adds a resource type.
// It fails with [ErrDuplicateRegistration] if the name is already present.
func (r *Registry) Register(cfg ResourceConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("register resource: empty name: %w", ErrInvalidArgument)
	}

	entry := &RegistryEntry{
		Name:         cfg.Name,
		URLPart:      cfg.URLPart,
		Plural:       cfg.Plural,
		IDField:      cfg.IDField,
		Capabilities: CapAll &^ cfg.Deny,
		ListFilter:   cfg.ListFilter,
		New:          cfg.New,
	}
	if entry.URLPart == "" {
		entry.URLPart = lowerFirst(cfg.Name)
	}
	if entry.Plural == "" {
		entry.Plural = pluralize(entry.URLPart)
	}
	if entry.IDField == "" {
		entry.IDField = "id"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[entry.Name]; ok {
		return fmt.Errorf("%q: %w", entry.Name, ErrDuplicateRegistration)
	}
	if other, ok := r.byPlural[entry.Plural]; ok {
		return fmt.Errorf("plural %q already used by %q: %w", entry.Plural, other.Name, ErrDuplicateRegistration)
	}

	r.byName[entry.Name] = entry
	r.byPlural[entry.Plural] = entry

	return nil
}

// RegisterAll registers each config in order and stops at the first error.
func (r *Registry) RegisterAll(cfgs ...ResourceConfig) error {
	for _, cfg := range cfgs {
		if err := r.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}

// LookupByName returns the entry registered under name.
func (r *Registry) LookupByName(name string) (*RegistryEntry, error) {
	r.mu.RLock()
	entry, ok := r.byName[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("resource %q: %w", name, ErrNotRegistered)
	}
	return entry, nil
}

// LookupByPlural returns the entry whose plural key is plural.
func (r *Registry) LookupByPlural(plural string) (*RegistryEntry, error) {
	r.mu.RLock()
	entry, ok := r.byPlural[plural]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("plural %q: %w", plural, ErrNotRegistered)
	}
	return entry, nil
}

// LookupFor returns the entry for the resource type of v.
func (r *Registry) LookupFor(v interface{ ResourceName() string }) (*RegistryEntry, error) {
	return r.LookupByName(v.ResourceName())
}

// AssertCapability returns [ErrCapability] if name does not permit op.
func (r *Registry) AssertCapability(name string, op Capability) error {
	entry, err := r.LookupByName(name)
	if err != nil {
		return err
	}
	return entry.assert(op)
}

func (e *RegistryEntry) assert(op Capability) error {
	if !e.Capabilities.Has(op) {
		return fmt.Errorf("%s on %s: %w", op, e.Name, ErrCapability)
	}
	return nil
}

// Entries returns all entries sorted by name.
func (r *Registry) Entries() []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RegistryEntry, 0, len(r.byName))
	for _, name := range slices.Sorted(maps.Keys(r.byName)) {
		out = append(out, *r.byName[name])
	}
	return out
}

// Snapshot captures the current entries so they can be restored later.
func (r *Registry) Snapshot() RegistrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RegistrySnapshot{entries: slices.Collect(maps.Values(r.byName))}
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.byName)
	clear(r.byPlural)
}

// Restore replaces the registry contents with s.
func (r *Registry) Restore(s RegistrySnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.byName)
	clear(r.byPlural)
	for _, e := range s.entries {
		r.byName[e.Name] = e
		r.byPlural[e.Plural] = e
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func pluralize(s string) string {
	if strings.HasSuffix(s, "s") {
		return s + "es"
	}
	return s + "s"
}
