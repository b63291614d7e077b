package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverResources(t *testing.T) {
	root := t.TempDir()
	skillDir := writeSkill(t, root, "calculator", "A calculator")

	require.NoError(t, os.MkdirAll(filepath.Join(skillDir, "reference"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(skillDir, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "reference", "tables.md"), []byte("# Tables"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "notes.txt"), []byte("notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "scripts", "calc.sh"), []byte("#!/bin/sh\n"), 0o755))

	resources, err := DiscoverResources(skillDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"notes.txt", "reference/tables.md"}, resources)
}

func TestDiscoverResourcesEmpty(t *testing.T) {
	root := t.TempDir()
	skillDir := writeSkill(t, root, "calculator", "A calculator")

	resources, err := DiscoverResources(skillDir)
	require.NoError(t, err)
	assert.Empty(t, resources)
}

func TestResolveResource(t *testing.T) {
	root := t.TempDir()
	skillDir := writeSkill(t, root, "calculator", "A calculator")
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "notes.txt"), []byte("notes"), 0o644))

	declared := []string{"notes.txt"}

	path, err := ResolveResource(skillDir, declared, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(skillDir, "notes.txt"), path)

	_, err = ResolveResource(skillDir, declared, "undeclared.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not declared")

	_, err = ResolveResource(skillDir, declared, "../notes.txt")
	require.Error(t, err)
}

func TestResolveResourceSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	skillDir := writeSkill(t, root, "calculator", "A calculator")

	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(secret, filepath.Join(skillDir, "link.txt")))

	_, err := ResolveResource(skillDir, []string{"link.txt"}, "link.txt")
	require.Error(t, err)
}

func TestToolAllowed(t *testing.T) {
	md := Metadata{AllowedTools: []string{"calc_*", "read_resource"}}

	assert.True(t, md.ToolAllowed("calc_add"))
	assert.True(t, md.ToolAllowed("read_resource"))
	assert.False(t, md.ToolAllowed("run_script"))

	unfiltered := Metadata{}
	assert.True(t, unfiltered.ToolAllowed("anything"))
}
