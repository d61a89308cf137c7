package config

const (
	defaultDataDir        = "~/.local/share/deckhand"
	defaultLogDir         = "~/.local/share/deckhand/logs"
	defaultAPIBind        = "127.0.0.1:7821"
	defaultAnkiURL        = "http://127.0.0.1:8765"
	defaultAnkiDeck       = "Vocabulary"
	defaultAnkiModel      = "Vocabulary"
	defaultAnkiTimeout    = 30
	defaultSwitchSettleMS = 2000
	defaultSwitchPollMS   = 500
	defaultSwitchAcceptMS = 3000
	defaultSwitchMaxMS    = 15000
	defaultLLMBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel       = "google/gemini-3-flash-preview"
	defaultLLMTitle       = "Deckhand Enrichment"
	defaultLLMTimeout     = 120
	defaultTTSBaseURL     = "https://api.openai.com/v1/audio/speech"
	defaultTTSModel       = "gpt-4o-mini-tts"
	defaultTTSVoice       = "alloy"
	defaultTTSFormat      = "mp3"
	defaultTTSTimeout     = 60
	defaultChunkSize      = 20
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Anki: Anki{
			URL:            defaultAnkiURL,
			Deck:           defaultAnkiDeck,
			Model:          defaultAnkiModel,
			TimeoutSeconds: defaultAnkiTimeout,
		},
		Switch: Switch{
			SettleDelayMS:  defaultSwitchSettleMS,
			PollIntervalMS: defaultSwitchPollMS,
			AcceptAfterMS:  defaultSwitchAcceptMS,
			MaxWaitMS:      defaultSwitchMaxMS,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeout,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Model:          defaultTTSModel,
			Voice:          defaultTTSVoice,
			Format:         defaultTTSFormat,
			TimeoutSeconds: defaultTTSTimeout,
		},
		Pipeline: Pipeline{
			ChunkSize:     defaultChunkSize,
			ImagesEnabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
