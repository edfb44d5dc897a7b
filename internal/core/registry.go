package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]DatasetDefinition)
	registryMu sync.RWMutex
)

// Register adds a dataset definition to the registry.
// Panics on a duplicate key, an invalid column schema or a rule that does
// not compile.
func Register(def DatasetDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("dataset already registered: %s", def.Info.Key))
	}
	if err := def.Columns.Validate(); err != nil {
		panic(fmt.Sprintf("dataset %s: %v", def.Info.Key, err))
	}

	rules, err := NewRuleValidator(def.Columns, def.Rules)
	if err != nil {
		panic(fmt.Sprintf("dataset %s: %v", def.Info.Key, err))
	}
	def.rules = rules
	def.payload = newRowColumns(def.Columns)

	if def.Match.Mode == "" {
		def.Match.Mode = MatchFirst
	}
	if len(def.Info.Columns) == 0 {
		def.Info.Columns = def.Columns.Headers()
	}

	registry[def.Info.Key] = def
}

// Get returns a dataset definition by key.
func Get(key string) (DatasetDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// Lookup is like Get but returns ErrUnknownDataset for unknown keys.
func Lookup(key string) (DatasetDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return DatasetDefinition{}, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	return def, nil
}

// All returns all registered definitions sorted by group then key.
func All() []DatasetDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasetDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})
	return result
}

// Groups returns all unique group names, sorted.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Group] = true
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Clear removes all registered datasets. Used by tests.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]DatasetDefinition)
}
