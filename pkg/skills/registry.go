package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/scripts"
	"github.com/skillet-ai/skillet/pkg/state"
)

// Registry holds the skills available to a session, keyed by name. It is
// built eagerly at startup and read-only afterwards, so concurrent
// executions can share it freely.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*Skill
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]*Skill)}
}

// Register adds a skill directly, overwriting any previously discovered or
// registered skill of the same name. Direct registration always wins.
func (r *Registry) Register(skill *Skill) error {
	if skill == nil {
		return errors.New("skill is required")
	}
	if err := skill.Validate(); err != nil {
		return errors.Wrapf(err, "invalid skill %q", skill.Metadata.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	name := skill.Metadata.Name
	if _, exists := r.skills[name]; !exists {
		r.order = append(r.order, name)
	}
	r.skills[name] = skill
	return nil
}

// addDiscovered registers a skill only if the name is still free, the rule
// for both filesystem and entrypoint sources. Reports whether it was added.
func (r *Registry) addDiscovered(skill *Skill) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := skill.Metadata.Name
	if _, exists := r.skills[name]; exists {
		return false
	}
	r.order = append(r.order, name)
	r.skills[name] = skill
	return true
}

// Get returns the skill registered under name.
func (r *Registry) Get(name string) (*Skill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	skill, ok := r.skills[name]
	if !ok {
		return nil, &SkillNotFoundError{Name: name, Available: r.namesLocked()}
	}
	return skill, nil
}

// ListMetadata returns the metadata of all registered skills in insertion
// order.
func (r *Registry) ListMetadata() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.skills[name].Metadata)
	}
	return out
}

// Names returns the registered skill names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Len returns the number of registered skills.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}

// StateDescriptors collects the state descriptors declared by registered
// skills, in insertion order, for building the session's state store.
func (r *Registry) StateDescriptors() []state.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []state.Descriptor
	for _, name := range r.order {
		if d := r.skills[name].State; d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// Discover populates the registry from filesystem skill directories and,
// optionally, the entrypoint factory table. Every path must be an existing
// directory; within a pass the first skill claiming a name wins, individual
// bad skills are logged and skipped, and an entrypoint skill colliding with
// an already-registered name is silently dropped.
func (r *Registry) Discover(ctx context.Context, paths []string, useEntrypoints bool) error {
	log := logger.G(ctx)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return errors.Wrapf(err, "skill directory %s does not exist", path)
		}
		if !info.IsDir() {
			return errors.Errorf("skill path %s is not a directory", path)
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read skill directory %s", path)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			skillDir := filepath.Join(path, entry.Name())
			if _, err := os.Stat(filepath.Join(skillDir, SkillFileName)); err != nil {
				continue
			}

			skill, err := LoadFromDirectory(ctx, skillDir)
			if err != nil {
				log.WithField("dir", skillDir).WithError(err).Warn("skipping invalid skill")
				continue
			}
			if !r.addDiscovered(skill) {
				log.WithField("skill", skill.Metadata.Name).WithField("dir", skillDir).
					Debug("skipping duplicate skill name")
			}
		}
	}

	if useEntrypoints {
		for _, name := range entrypointNames() {
			skill, err := buildEntrypoint(name)
			if err != nil {
				log.WithField("entrypoint", name).WithError(err).Warn("skipping failed entrypoint")
				continue
			}
			if err := skill.Validate(); err != nil {
				log.WithField("entrypoint", name).WithError(err).Warn("skipping invalid entrypoint skill")
				continue
			}
			if !r.addDiscovered(skill) {
				log.WithField("skill", skill.Metadata.Name).Debug("entrypoint skill shadowed by existing registration")
			}
		}
	}

	return nil
}

// LoadFromDirectory parses a single skill directory: the SKILL.md
// descriptor, the script tools under scripts/, and the bundled resources.
// The directory basename must equal the declared skill name.
func LoadFromDirectory(ctx context.Context, skillDir string) (*Skill, error) {
	md, body, err := ParseFile(filepath.Join(skillDir, SkillFileName))
	if err != nil {
		return nil, err
	}

	if dirName := filepath.Base(filepath.Clean(skillDir)); dirName != md.Name {
		return nil, malformedf("skill name %q does not match directory name %q", md.Name, dirName)
	}

	specs, warnings := scripts.Discover(ctx, skillDir)
	for _, warning := range warnings {
		logger.G(ctx).WithField("script", warning.Script).
			WithField("reason", warning.Reason).Warn("script tool skipped")
	}

	resources, err := DiscoverResources(skillDir)
	if err != nil {
		return nil, err
	}

	return &Skill{
		Metadata:     md,
		Source:       SourceFilesystem,
		Directory:    skillDir,
		Instructions: body,
		Scripts:      specs,
		Resources:    resources,
	}, nil
}
