package skills

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Factory constructs a skill on demand. Factories are the Go rendering of
// packaging-level plugin entrypoints: programs register them explicitly at
// startup (typically from an init function) and discovery enumerates the
// table deterministically.
type Factory func() (*Skill, error)

var (
	entrypointsMu       sync.RWMutex
	entrypointFactories = map[string]Factory{}
)

// RegisterEntrypoint adds a named skill factory to the process-wide
// entrypoint table. A later registration under the same name replaces the
// earlier one. Must be called before discovery runs.
func RegisterEntrypoint(name string, factory Factory) {
	entrypointsMu.Lock()
	defer entrypointsMu.Unlock()
	entrypointFactories[name] = factory
}

// UnregisterEntrypoint removes a factory from the table. Intended for tests.
func UnregisterEntrypoint(name string) {
	entrypointsMu.Lock()
	defer entrypointsMu.Unlock()
	delete(entrypointFactories, name)
}

// entrypointNames returns the registered factory names in sorted order so
// discovery is deterministic.
func entrypointNames() []string {
	entrypointsMu.RLock()
	defer entrypointsMu.RUnlock()
	names := make([]string, 0, len(entrypointFactories))
	for name := range entrypointFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildEntrypoint invokes a factory, converting a panic into an error so one
// misbehaving factory never aborts the discovery pass.
func buildEntrypoint(name string) (skill *Skill, err error) {
	entrypointsMu.RLock()
	factory, ok := entrypointFactories[name]
	entrypointsMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("entrypoint %q is not registered", name)
	}

	defer func() {
		if r := recover(); r != nil {
			skill = nil
			err = errors.Errorf("entrypoint %q panicked: %v", name, r)
		}
	}()

	skill, err = factory()
	if err != nil {
		return nil, errors.Wrapf(err, "entrypoint %q failed", name)
	}
	if skill == nil {
		return nil, errors.Errorf("entrypoint %q returned no skill", name)
	}
	skill.Source = SourceEntrypoint
	return skill, nil
}
