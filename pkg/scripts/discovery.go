package scripts

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/skillet-ai/skillet/pkg/logger"
)

// ScriptsDirName is the conventional scripts directory inside a skill.
const ScriptsDirName = "scripts"

// sourceExtensions are the file kinds inspected for tool manifests.
var sourceExtensions = map[string]bool{
	".py": true,
	".sh": true,
	".js": true,
	".rb": true,
}

// Spec is one discovered script tool: the manifest plus where the script
// lives. Specs are recomputed at every discovery pass, never cached across
// process restarts.
type Spec struct {
	Name        string
	Description string
	Parameters  []Parameter
	// Path is the script path relative to the scripts directory.
	Path string
}

// DiscoveryWarning records a non-fatal per-script discovery failure.
type DiscoveryWarning struct {
	Script string
	Reason string
}

// Discover scans a skill's scripts directory for script tools. A script
// missing its manifest, or carrying a malformed one, is skipped with a
// warning; one bad script never aborts discovery. A skill without a scripts
// directory yields no specs and no warnings.
func Discover(ctx context.Context, skillDir string) ([]Spec, []DiscoveryWarning) {
	scriptsDir := filepath.Join(skillDir, ScriptsDirName)
	entries, err := os.ReadDir(scriptsDir)
	if err != nil {
		return nil, nil
	}

	log := logger.G(ctx)

	var specs []Spec
	var warnings []DiscoveryWarning
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, manifestJSONSuffix) || strings.HasSuffix(name, manifestYAMLSuffix) {
			continue
		}
		if !sourceExtensions[filepath.Ext(name)] {
			continue
		}

		scriptPath := filepath.Join(scriptsDir, name)
		sidecar := manifestPath(scriptPath)
		if sidecar == "" {
			warnings = append(warnings, DiscoveryWarning{Script: name, Reason: "no tool manifest"})
			log.WithField("script", scriptPath).Debug("skipping script without tool manifest")
			continue
		}

		manifest, err := loadManifest(sidecar)
		if err != nil {
			warnings = append(warnings, DiscoveryWarning{Script: name, Reason: err.Error()})
			log.WithField("script", scriptPath).WithError(err).Warn("skipping script with invalid manifest")
			continue
		}

		toolName := manifest.Name
		if toolName == "" {
			toolName = strings.TrimSuffix(name, filepath.Ext(name))
		}

		specs = append(specs, Spec{
			Name:        toolName,
			Description: manifest.Description,
			Parameters:  manifest.Parameters,
			Path:        name,
		})
	}

	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, warnings
}

// HasScripts reports whether the skill has a non-empty scripts directory.
func HasScripts(skillDir string) bool {
	entries, err := os.ReadDir(filepath.Join(skillDir, ScriptsDirName))
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return true
		}
	}
	return false
}
