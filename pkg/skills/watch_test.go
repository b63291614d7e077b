package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadReplacesChangedSkill(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "calculator", "Arithmetic with history")

	registry := NewRegistry()
	require.NoError(t, registry.Discover(context.Background(), []string{root}, false))

	content := "---\nname: calculator\ndescription: Arithmetic, now with memory\n---\n\nUpdated instructions.\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "calculator", SkillFileName), []byte(content), 0o644))

	registry.reloadFilesystem(context.Background(), []string{root})

	skill, err := registry.Get("calculator")
	require.NoError(t, err)
	assert.Equal(t, "Arithmetic, now with memory", skill.Metadata.Description)
	assert.Contains(t, skill.Instructions, "Updated instructions")
}

func TestReloadRemovesVanishedSkill(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "calculator", "Arithmetic with history")
	writeSkill(t, root, "weather", "Weather lookups")

	registry := NewRegistry()
	require.NoError(t, registry.Discover(context.Background(), []string{root}, false))
	require.Equal(t, 2, registry.Len())

	require.NoError(t, os.RemoveAll(filepath.Join(root, "weather")))

	registry.reloadFilesystem(context.Background(), []string{root})

	assert.Equal(t, []string{"calculator"}, registry.Names())
	_, err := registry.Get("weather")
	require.Error(t, err)
}

func TestReloadAddsNewSkill(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "calculator", "Arithmetic with history")

	registry := NewRegistry()
	require.NoError(t, registry.Discover(context.Background(), []string{root}, false))

	writeSkill(t, root, "weather", "Weather lookups")

	registry.reloadFilesystem(context.Background(), []string{root})

	assert.Equal(t, []string{"calculator", "weather"}, registry.Names())
}

func TestReloadKeepsDirectRegistration(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "calculator", "From the filesystem")

	registry := NewRegistry()
	require.NoError(t, registry.Discover(context.Background(), []string{root}, false))
	require.NoError(t, registry.Register(&Skill{
		Metadata: Metadata{Name: "calculator", Description: "Registered directly"},
	}))

	registry.reloadFilesystem(context.Background(), []string{root})

	skill, err := registry.Get("calculator")
	require.NoError(t, err)
	assert.NotEqual(t, SourceFilesystem, skill.Source)
	assert.Equal(t, "Registered directly", skill.Metadata.Description)
}

func TestReloadKeepsEntrypointRegistration(t *testing.T) {
	root := t.TempDir()

	RegisterEntrypoint("extra", func() (*Skill, error) {
		return &Skill{
			Metadata: Metadata{Name: "extra", Description: "An entrypoint skill"},
		}, nil
	})
	defer UnregisterEntrypoint("extra")

	registry := NewRegistry()
	require.NoError(t, registry.Discover(context.Background(), []string{root}, true))

	// A filesystem skill later appearing under an entrypoint-owned name
	// must not displace the entrypoint registration.
	writeSkill(t, root, "extra", "From the filesystem")

	registry.reloadFilesystem(context.Background(), []string{root})

	skill, err := registry.Get("extra")
	require.NoError(t, err)
	assert.Equal(t, SourceEntrypoint, skill.Source)
	assert.Equal(t, 1, registry.Len())
}

func TestReloadSkipsInvalidSkill(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "calculator", "Arithmetic with history")

	registry := NewRegistry()
	require.NoError(t, registry.Discover(context.Background(), []string{root}, false))

	// A descriptor that turns invalid on disk drops out of the registry on
	// the next reload, same as vanishing entirely.
	content := "---\nname: calculator\ndescription: Broken\nfoo: bar\n---\nBody.\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "calculator", SkillFileName), []byte(content), 0o644))

	registry.reloadFilesystem(context.Background(), []string{root})

	assert.Equal(t, 0, registry.Len())
}

func TestWatchPicksUpNewSkill(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "calculator", "Arithmetic with history")

	registry := NewRegistry()
	require.NoError(t, registry.Discover(context.Background(), []string{root}, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, err := registry.Watch(ctx, []string{root})
	require.NoError(t, err)
	defer stop()

	writeSkill(t, root, "weather", "Weather lookups")

	assert.Eventually(t, func() bool {
		_, err := registry.Get("weather")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchMissingRoot(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Watch(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}
