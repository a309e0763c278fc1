package core

import (
	"fmt"
	"sort"
	"sync"
)

// EntityDefinition contains everything needed to create, validate and import
// one kind of entity.
type EntityDefinition struct {
	Kind       string      // URL segment and storage key: "work-orders"
	Label      string      // Singular display name: "Work order"
	Plural     string      // Plural display name used in import messages: "work orders"
	Prefix     string      // Identifier prefix: "WO"
	IDField    string      // CSV column holding the identifier (default "id")
	FieldSpecs []FieldSpec // Attribute definitions, in template column order

	// Check runs after field coercion for cross-field rules
	// (e.g. a lease must not end before it starts). Optional.
	Check func(Fields) error
}

// Columns returns the CSV template header: the id column then every field.
func (d EntityDefinition) Columns() []string {
	cols := make([]string, 0, len(d.FieldSpecs)+1)
	cols = append(cols, d.IDField)
	for _, spec := range d.FieldSpecs {
		cols = append(cols, spec.Name)
	}
	return cols
}

// ImportRequired returns the columns that must exist (and be non-empty) in an
// import file: the id column plus every required field.
func (d EntityDefinition) ImportRequired() []string {
	req := []string{d.IDField}
	for _, spec := range d.FieldSpecs {
		if spec.Required {
			req = append(req, spec.Name)
		}
	}
	return req
}

// Spec returns the field spec with the given name.
func (d EntityDefinition) Spec(name string) (FieldSpec, bool) {
	for _, spec := range d.FieldSpecs {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

var (
	registry   = make(map[string]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if the kind or the prefix is already registered.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Kind))
	}
	for _, other := range registry {
		if other.Prefix == def.Prefix {
			panic(fmt.Sprintf("identifier prefix %s already used by %s", def.Prefix, other.Kind))
		}
	}

	if def.IDField == "" {
		def.IDField = "id"
	}
	if def.Plural == "" {
		def.Plural = def.Kind
	}

	registry[def.Kind] = def
}

// Get returns an entity definition by kind.
func Get(kind string) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// Lookup is Get returning ErrUnknownEntity for unregistered kinds.
func Lookup(kind string) (EntityDefinition, error) {
	def, ok := Get(kind)
	if !ok {
		return EntityDefinition{}, fmt.Errorf("%w: %s", ErrUnknownEntity, kind)
	}
	return def, nil
}

// All returns all registered definitions sorted by kind.
func All() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})

	return result
}

// EntityCount returns the number of registered kinds.
func EntityCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered definitions.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]EntityDefinition)
}
