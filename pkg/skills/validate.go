package skills

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/scripts"
)

// ValidateDirectory checks a skill directory the way discovery would, but
// collects every problem instead of stopping at the first one. Script
// manifest warnings, non-fatal during discovery, are reported as errors here
// so authors see them before shipping.
func ValidateDirectory(ctx context.Context, skillDir string) error {
	var result *multierror.Error

	info, err := os.Stat(skillDir)
	if err != nil {
		return multierror.Append(result, errors.Wrap(err, "skill directory does not exist"))
	}
	if !info.IsDir() {
		return multierror.Append(result, errors.Errorf("%s is not a directory", skillDir))
	}

	descriptorPath := filepath.Join(skillDir, SkillFileName)
	if _, err := os.Stat(descriptorPath); err != nil {
		return multierror.Append(result, errors.Errorf("missing %s", SkillFileName))
	}

	md, _, err := ParseFile(descriptorPath)
	if err != nil {
		result = multierror.Append(result, err)
	} else if dirName := filepath.Base(filepath.Clean(skillDir)); dirName != md.Name {
		result = multierror.Append(result,
			errors.Errorf("skill name %q does not match directory name %q", md.Name, dirName))
	}

	_, warnings := scripts.Discover(ctx, skillDir)
	for _, warning := range warnings {
		result = multierror.Append(result,
			errors.Errorf("script %s: %s", warning.Script, warning.Reason))
	}

	return result.ErrorOrNil()
}
