package skills

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

// SkillFileName is the descriptor file every skill directory must contain.
const SkillFileName = "SKILL.md"

// MalformedDescriptorError is returned when a SKILL.md descriptor fails
// validation: missing required fields, unknown fields, or an invalid name.
// Unknown fields are a hard failure so typos in future descriptor fields
// never pass silently.
type MalformedDescriptorError struct {
	Reason string
}

func (e *MalformedDescriptorError) Error() string {
	return fmt.Sprintf("malformed skill descriptor: %s", e.Reason)
}

func malformedf(format string, args ...any) error {
	return &MalformedDescriptorError{Reason: fmt.Sprintf(format, args...)}
}

// ParseDescriptor parses SKILL.md content into validated metadata and the
// instruction body. It is a pure parse with no side effects.
func ParseDescriptor(content []byte) (Metadata, string, error) {
	var md Metadata

	if !bytes.HasPrefix(content, []byte("---")) {
		return md, "", malformedf("missing YAML frontmatter")
	}

	engine := goldmark.New(goldmark.WithExtensions(meta.Meta))

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := engine.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return md, "", malformedf("invalid frontmatter: %v", err)
	}

	frontmatter := meta.Get(pctx)
	if frontmatter == nil {
		return md, "", malformedf("missing YAML frontmatter")
	}

	if raw, ok := frontmatter["allowed-tools"]; ok {
		frontmatter["allowed-tools"] = normalizeAllowedTools(raw)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &md,
		ErrorUnused: true,
	})
	if err != nil {
		return md, "", errors.Wrap(err, "failed to build descriptor decoder")
	}
	if err := decoder.Decode(frontmatter); err != nil {
		return md, "", malformedf("%v", err)
	}

	if err := ValidateName(md.Name); err != nil {
		return md, "", malformedf("%v", err)
	}
	if md.Description == "" {
		return md, "", malformedf("description is required")
	}

	return md, extractBody(string(content)), nil
}

// ParseFile parses the SKILL.md at the given path.
func ParseFile(path string) (Metadata, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, "", errors.Wrapf(err, "failed to read %s", path)
	}
	md, body, err := ParseDescriptor(content)
	if err != nil {
		return md, body, errors.Wrapf(err, "failed to parse %s", path)
	}
	return md, body, nil
}

// normalizeAllowedTools accepts the two descriptor spellings: a whitespace
// separated string or a YAML list.
func normalizeAllowedTools(raw any) []string {
	switch v := raw.(type) {
	case string:
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

// extractBody strips the YAML frontmatter and returns the trimmed
// instruction body.
func extractBody(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return strings.TrimSpace(content)
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}
	return strings.TrimSpace(content)
}
