package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"audioconv/internal/catalog"
	"audioconv/internal/config"
)

// commandContext resolves configuration once per invocation and hands it to
// every subcommand.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	once         sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	err          error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		cfg, resolved, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
			if err := cfg.Validate(); err != nil {
				c.err = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.err = err
			return
		}
		c.config, c.configPath, c.configExists = cfg, resolved, exists
	})
	return c.config, c.err
}

// withCatalog opens the catalog for the duration of fn.
func (c *commandContext) withCatalog(fn func(*config.Config, *catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// skipConfigLoad marks commands that must run without a loadable config.
const skipConfigLoad = "skipConfigLoad"

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigLoad] == "true" {
			return true
		}
	}
	return false
}
