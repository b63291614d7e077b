package skills

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/scripts"
)

// DiscoverResources lists the reference files bundled with a filesystem
// skill: everything under the skill directory except the descriptor itself
// and the scripts tree. Paths are relative to the skill directory, sorted,
// with forward slashes regardless of platform.
func DiscoverResources(skillDir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(skillDir), "**/*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan skill resources")
	}

	var resources []string
	for _, match := range matches {
		if match == SkillFileName {
			continue
		}
		if match == scripts.ScriptsDirName || strings.HasPrefix(match, scripts.ScriptsDirName+"/") {
			continue
		}
		info, err := fs.Stat(os.DirFS(skillDir), match)
		if err != nil || info.IsDir() {
			continue
		}
		resources = append(resources, match)
	}

	sort.Strings(resources)
	return resources, nil
}

// ResolveResource validates a declared resource path against the skill
// directory and returns its absolute path. Undeclared paths and paths
// escaping the directory (including via symlinks) are rejected.
func ResolveResource(skillDir string, declared []string, rel string) (string, error) {
	rel = filepath.ToSlash(rel)
	found := false
	for _, r := range declared {
		if r == rel {
			found = true
			break
		}
	}
	if !found {
		return "", errors.Errorf("resource %q is not declared by this skill", rel)
	}

	return scripts.ResolvePath(skillDir, filepath.FromSlash(rel))
}
