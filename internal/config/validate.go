package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateResearch(); err != nil {
		return err
	}
	if err := c.validateNarration(); err != nil {
		return err
	}
	if err := c.validateWriting(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/scrivener/config.toml"
		}
		return fmt.Errorf("llm.api_key is required; edit %s (create with 'scrivener config init')", defaultPath)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateResearch() error {
	if c.Research.APIKey == "" {
		return errors.New("research.api_key is required")
	}
	if c.Research.MaxResults > 25 {
		return errors.New("research.max_results must be 25 or fewer")
	}
	return nil
}

func (c *Config) validateNarration() error {
	if !c.Narration.Enabled {
		return nil
	}
	if c.Narration.APIKey == "" {
		return errors.New("narration.api_key must be set when narration.enabled is true")
	}
	if c.Narration.BaseURL == "" {
		return errors.New("narration.base_url must be set when narration.enabled is true")
	}
	return nil
}

func (c *Config) validateWriting() error {
	if c.Writing.MinScenes < 1 {
		return errors.New("writing.min_scenes must be at least 1")
	}
	if c.Writing.MaxScenes < c.Writing.MinScenes {
		return errors.New("writing.max_scenes must be at least writing.min_scenes")
	}
	if c.Writing.ContextBudgetChars < 500 {
		return errors.New("writing.context_budget_chars must be at least 500")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
