package config

const (
	defaultDataDir               = "~/.local/share/scrivener"
	defaultLogDir                = "~/.local/share/scrivener/logs"
	defaultAPIBind               = "127.0.0.1:7915"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 60
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "perplexity/sonar-pro"
	defaultLLMReferer            = "https://github.com/scrivener/scrivener"
	defaultLLMTitle              = "Scrivener"
	defaultLLMTimeoutSeconds     = 120
	defaultResearchBaseURL       = "https://api.exa.ai"
	defaultResearchMaxResults    = 3
	defaultResearchPassageChars  = 1500
	defaultResearchTimeout       = 30
	defaultNarrationVoice        = "narrator-en-1"
	defaultNarrationTimeout      = 120
	defaultMinScenes             = 3
	defaultMaxScenes             = 15
	defaultContextBudgetChars    = 4000
	defaultSummaryThresholdChars = 12000
	defaultSceneDelaySeconds     = 2
	defaultStatusPollInterval    = 2
	defaultErrorRetryInterval    = 5
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 300
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Research: Research{
			BaseURL:         defaultResearchBaseURL,
			MaxResults:      defaultResearchMaxResults,
			MaxPassageChars: defaultResearchPassageChars,
			TimeoutSeconds:  defaultResearchTimeout,
		},
		Narration: Narration{
			Voice:          defaultNarrationVoice,
			TimeoutSeconds: defaultNarrationTimeout,
		},
		Writing: Writing{
			MinScenes:             defaultMinScenes,
			MaxScenes:             defaultMaxScenes,
			ContextBudgetChars:    defaultContextBudgetChars,
			SummaryThresholdChars: defaultSummaryThresholdChars,
			SceneDelaySeconds:     defaultSceneDelaySeconds,
		},
		Workflow: Workflow{
			StatusPollInterval: defaultStatusPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
