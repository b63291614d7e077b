package executor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/skillet-ai/skillet/pkg/scripts"
	"github.com/skillet-ai/skillet/pkg/skills"
	"github.com/skillet-ai/skillet/pkg/state"
)

// Config is the executor configuration, loaded from the config file and
// SKILLET_* environment variables.
type Config struct {
	// SkillDirs are the roots scanned for skill directories.
	SkillDirs []string `mapstructure:"skill_dirs"`
	// UseEntrypoints enables the entrypoint factory table during discovery.
	UseEntrypoints bool `mapstructure:"use_entrypoints"`
	// ScriptTimeout bounds each script run.
	ScriptTimeout time.Duration `mapstructure:"script_timeout"`
	// Preamble overrides the outer agent prompt opening.
	Preamble string `mapstructure:"preamble"`
}

// LoadConfig reads the executor configuration from viper.
func LoadConfig() (Config, error) {
	viper.SetDefault("script_timeout", scripts.DefaultTimeout)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to load configuration")
	}
	return cfg, nil
}

// NewSession assembles the pieces one conversation session needs: it
// discovers skills into a fresh registry, registers any directly supplied
// skills on top, builds the state store from the declared descriptors, and
// wires the executor.
func NewSession(ctx context.Context, cfg Config, factory ThreadFactory, direct ...*skills.Skill) (*Executor, error) {
	registry := skills.NewRegistry()
	if len(cfg.SkillDirs) > 0 || cfg.UseEntrypoints {
		if err := registry.Discover(ctx, cfg.SkillDirs, cfg.UseEntrypoints); err != nil {
			return nil, err
		}
	}
	for _, skill := range direct {
		if err := registry.Register(skill); err != nil {
			return nil, err
		}
	}

	store, err := state.NewStore(registry.StateDescriptors())
	if err != nil {
		return nil, err
	}

	return New(registry, store, factory, WithScriptTimeout(cfg.ScriptTimeout)), nil
}
