// Package scripts discovers filesystem-backed script tools and runs them
// out-of-process. Each script declares its callable surface in a sidecar
// manifest (<script>.tool.json or <script>.tool.yaml) instead of relying on
// source introspection, so any scripting language can participate.
package scripts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParameterType is the type tag of one manifest parameter.
type ParameterType string

// Recognized parameter types. These map 1:1 onto JSON Schema scalar and
// collection types.
const (
	TypeString  ParameterType = "string"
	TypeInteger ParameterType = "integer"
	TypeNumber  ParameterType = "number"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
)

// Parameter describes one script parameter. A parameter without a default is
// required.
type Parameter struct {
	Name        string        `json:"name" yaml:"name"`
	Type        ParameterType `json:"type" yaml:"type"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any           `json:"default,omitempty" yaml:"default,omitempty"`
}

// Required reports whether the parameter must be supplied by the caller.
func (p Parameter) Required() bool { return p.Default == nil }

// Manifest is the declarative schema a script ships alongside itself.
type Manifest struct {
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Description string      `json:"description" yaml:"description"`
	Parameters  []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

var recognizedTypes = map[ParameterType]bool{
	TypeString:  true,
	TypeInteger: true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeArray:   true,
}

const (
	manifestJSONSuffix = ".tool.json"
	manifestYAMLSuffix = ".tool.yaml"
)

// manifestPath returns the sidecar manifest path for a script, preferring
// JSON over YAML, or "" when neither exists.
func manifestPath(scriptPath string) string {
	base := strings.TrimSuffix(scriptPath, filepath.Ext(scriptPath))
	for _, suffix := range []string{manifestJSONSuffix, manifestYAMLSuffix} {
		candidate := base + suffix
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// loadManifest reads and validates a sidecar manifest.
func loadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest")
	}

	var manifest Manifest
	if strings.HasSuffix(path, manifestYAMLSuffix) {
		err = yaml.Unmarshal(raw, &manifest)
	} else {
		err = json.Unmarshal(raw, &manifest)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}

	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func (m *Manifest) validate() error {
	if m.Description == "" {
		return errors.New("manifest description is required")
	}

	seen := make(map[string]bool, len(m.Parameters))
	for _, param := range m.Parameters {
		if param.Name == "" {
			return errors.New("manifest parameter is missing a name")
		}
		if seen[param.Name] {
			return errors.Errorf("duplicate manifest parameter %q", param.Name)
		}
		seen[param.Name] = true
		if param.Type == "" {
			return errors.Errorf("manifest parameter %q is missing a type", param.Name)
		}
		if !recognizedTypes[param.Type] {
			return errors.Errorf("manifest parameter %q has unrecognized type %q", param.Name, param.Type)
		}
	}
	return nil
}
