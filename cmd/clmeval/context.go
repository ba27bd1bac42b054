package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"clmeval/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if err := loadEnvFiles(path); err != nil {
			c.configErr = err
			return
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// loadEnvFiles reads .env from the working directory and from the config
// file's directory. Variables already set in the environment win.
func loadEnvFiles(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		if expanded, err := config.ExpandPath(configPath); err == nil {
			candidates = append(candidates, filepath.Join(filepath.Dir(expanded), ".env"))
		}
	} else if defaultPath, err := config.DefaultConfigPath(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(defaultPath), ".env"))
	}
	for _, candidate := range candidates {
		if err := godotenv.Load(candidate); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", candidate, err)
		}
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
