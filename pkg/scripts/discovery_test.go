package scripts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, skillDir, name, content string) string {
	t.Helper()
	scriptsDir := filepath.Join(skillDir, ScriptsDirName)
	require.NoError(t, os.MkdirAll(scriptsDir, 0o755))
	path := filepath.Join(scriptsDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func writeManifest(t *testing.T, scriptPath, content string) {
	t.Helper()
	base := scriptPath[:len(scriptPath)-len(filepath.Ext(scriptPath))]
	require.NoError(t, os.WriteFile(base+manifestJSONSuffix, []byte(content), 0o644))
}

func TestDiscoverGoodAndBadScript(t *testing.T) {
	skillDir := t.TempDir()

	good := writeScript(t, skillDir, "add.py", "print('ok')\n")
	writeManifest(t, good, `{
		"name": "calc_add",
		"description": "Add two numbers",
		"parameters": [
			{"name": "a", "type": "number"},
			{"name": "b", "type": "number"}
		]
	}`)

	// No sidecar manifest: skipped with a warning, never fatal.
	writeScript(t, skillDir, "broken.py", "print('no manifest')\n")

	specs, warnings := Discover(context.Background(), skillDir)

	require.Len(t, specs, 1)
	assert.Equal(t, "calc_add", specs[0].Name)
	assert.Equal(t, "Add two numbers", specs[0].Description)
	assert.Equal(t, "add.py", specs[0].Path)
	require.Len(t, specs[0].Parameters, 2)

	require.Len(t, warnings, 1)
	assert.Equal(t, "broken.py", warnings[0].Script)
}

func TestDiscoverInvalidManifest(t *testing.T) {
	skillDir := t.TempDir()

	script := writeScript(t, skillDir, "add.py", "print('ok')\n")
	writeManifest(t, script, `{"parameters": [{"name": "a", "type": "number"}]}`)

	specs, warnings := Discover(context.Background(), skillDir)
	assert.Empty(t, specs)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Reason, "description")
}

func TestDiscoverYAMLManifest(t *testing.T) {
	skillDir := t.TempDir()

	writeScript(t, skillDir, "greet.sh", "#!/bin/bash\necho hi\n")
	manifest := "description: Say hello\nparameters:\n  - name: who\n    type: string\n    default: world\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(skillDir, ScriptsDirName, "greet"+manifestYAMLSuffix),
		[]byte(manifest), 0o644))

	specs, warnings := Discover(context.Background(), skillDir)
	assert.Empty(t, warnings)
	require.Len(t, specs, 1)
	// Name defaults to the script stem when the manifest omits it.
	assert.Equal(t, "greet", specs[0].Name)
	require.Len(t, specs[0].Parameters, 1)
	assert.False(t, specs[0].Parameters[0].Required())
}

func TestDiscoverNoScriptsDir(t *testing.T) {
	specs, warnings := Discover(context.Background(), t.TempDir())
	assert.Empty(t, specs)
	assert.Empty(t, warnings)
}

func TestDiscoverSorted(t *testing.T) {
	skillDir := t.TempDir()

	for _, name := range []string{"zeta.py", "alpha.py"} {
		script := writeScript(t, skillDir, name, "print('ok')\n")
		writeManifest(t, script, `{"description": "A script"}`)
	}

	specs, _ := Discover(context.Background(), skillDir)
	require.Len(t, specs, 2)
	assert.Equal(t, "alpha", specs[0].Name)
	assert.Equal(t, "zeta", specs[1].Name)
}

func TestHasScripts(t *testing.T) {
	skillDir := t.TempDir()
	assert.False(t, HasScripts(skillDir))

	writeScript(t, skillDir, "calc.sh", "#!/bin/bash\n")
	assert.True(t, HasScripts(skillDir))
}
