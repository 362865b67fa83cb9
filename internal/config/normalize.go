package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProviders()
	c.normalizeWriting()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeProviders() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}

	c.Research.APIKey = strings.TrimSpace(c.Research.APIKey)
	c.Research.BaseURL = strings.TrimSpace(c.Research.BaseURL)
	if c.Research.BaseURL == "" {
		c.Research.BaseURL = defaultResearchBaseURL
	}
	if c.Research.MaxResults <= 0 {
		c.Research.MaxResults = defaultResearchMaxResults
	}
	if c.Research.MaxPassageChars <= 0 {
		c.Research.MaxPassageChars = defaultResearchPassageChars
	}
	if c.Research.TimeoutSeconds <= 0 {
		c.Research.TimeoutSeconds = defaultResearchTimeout
	}

	c.Narration.APIKey = strings.TrimSpace(c.Narration.APIKey)
	c.Narration.BaseURL = strings.TrimSpace(c.Narration.BaseURL)
	c.Narration.Voice = strings.TrimSpace(c.Narration.Voice)
	if c.Narration.Voice == "" {
		c.Narration.Voice = defaultNarrationVoice
	}
	if c.Narration.TimeoutSeconds <= 0 {
		c.Narration.TimeoutSeconds = defaultNarrationTimeout
	}
}

func (c *Config) normalizeWriting() {
	if c.Writing.MinScenes <= 0 {
		c.Writing.MinScenes = defaultMinScenes
	}
	if c.Writing.MaxScenes <= 0 {
		c.Writing.MaxScenes = defaultMaxScenes
	}
	if c.Writing.ContextBudgetChars <= 0 {
		c.Writing.ContextBudgetChars = defaultContextBudgetChars
	}
	if c.Writing.SummaryThresholdChars <= 0 {
		c.Writing.SummaryThresholdChars = defaultSummaryThresholdChars
	}
	if c.Writing.SceneDelaySeconds < 0 {
		c.Writing.SceneDelaySeconds = defaultSceneDelaySeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.StatusPollInterval <= 0 {
		c.Workflow.StatusPollInterval = defaultStatusPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
