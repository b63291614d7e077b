// Package skills provides the skill model, the SKILL.md descriptor parser,
// and the registry that aggregates skills from filesystem directories,
// entrypoint factories, and direct registration. A skill bundles
// instructions, tools, script tools, resources, and optionally a declared
// state namespace; it is immutable once registered.
package skills

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/scripts"
	"github.com/skillet-ai/skillet/pkg/state"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// Source tags where a skill was discovered.
type Source string

// Skill sources, in ascending priority for name collisions: entrypoint
// skills lose to anything already registered, direct registration always
// wins.
const (
	SourceFilesystem Source = "filesystem"
	SourceEntrypoint Source = "entrypoint"
	SourceMCP        Source = "mcp"
)

// Metadata is the lightweight projection of a skill usable before its full
// instructions are loaded.
type Metadata struct {
	Name          string            `mapstructure:"name"`
	Description   string            `mapstructure:"description"`
	License       string            `mapstructure:"license"`
	Compatibility string            `mapstructure:"compatibility"`
	Metadata      map[string]string `mapstructure:"metadata"`
	// AllowedTools filters the sub-agent's tool set. Entries are glob
	// patterns matched against tool names; empty means no filter.
	AllowedTools []string `mapstructure:"allowed-tools"`
}

// ToolAllowed reports whether a tool name passes the allowed-tools filter.
func (m Metadata) ToolAllowed(name string) bool {
	if len(m.AllowedTools) == 0 {
		return true
	}
	for _, pattern := range m.AllowedTools {
		g, err := glob.Compile(pattern)
		if err != nil {
			// An unparseable pattern only matches literally.
			if pattern == name {
				return true
			}
			continue
		}
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Toolset is a collection of externally-bound tools (e.g. an MCP server)
// resolved at execution time.
type Toolset interface {
	Tools(ctx context.Context) ([]tooltypes.Tool, error)
}

// Skill is a named bundle of instructions, tools, and optional state,
// exposed to a sub-agent. Created once at discovery time and immutable
// thereafter.
type Skill struct {
	Metadata     Metadata
	Source       Source
	Directory    string
	Instructions string
	Tools        []tooltypes.Tool
	Toolsets     []Toolset
	Scripts      []scripts.Spec
	Resources    []string
	State        *state.Descriptor
}

var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidateName checks the skill naming rules: 1-64 characters, lowercase
// alphanumeric with single hyphens, not starting or ending with a hyphen.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > 64 {
		return errors.New("name must be at most 64 characters")
	}
	if strings.Contains(name, "--") {
		return errors.New("name must not contain consecutive hyphens")
	}
	if !namePattern.MatchString(name) {
		return errors.New("name must be lowercase alphanumeric with hyphens, not starting or ending with a hyphen")
	}
	return nil
}

// Validate checks the skill invariants.
func (s *Skill) Validate() error {
	if err := ValidateName(s.Metadata.Name); err != nil {
		return err
	}
	if s.Metadata.Description == "" {
		return errors.New("description is required")
	}
	if utf8.RuneCountInString(s.Metadata.Description) > 1024 {
		return errors.New("description must be at most 1024 characters")
	}
	if utf8.RuneCountInString(s.Metadata.Compatibility) > 500 {
		return errors.New("compatibility must be at most 500 characters")
	}
	if s.State != nil {
		if s.State.Namespace == "" {
			return errors.New("state schema requires a state namespace")
		}
		if len(s.State.Schema) == 0 {
			return errors.New("state namespace requires a state schema")
		}
	}
	return nil
}

// SkillNotFoundError is returned when a skill name is not registered.
type SkillNotFoundError struct {
	Name      string
	Available []string
}

func (e *SkillNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("skill %q not found", e.Name)
	}
	return fmt.Sprintf("skill %q not found; available skills: %s", e.Name, strings.Join(e.Available, ", "))
}
