package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		API: APIConfig{Bind: "127.0.0.1:8787"},
		AI: AIConfig{
			TimeoutMS:  15000,
			MaxRetries: 3,
			Chat: ChatAIConfig{
				BaseURL:   "https://api.x.ai/v1",
				APIKeyEnv: "XAI_API_KEY",
				Model:     "grok-beta",
			},
			Speech: SpeechAIConfig{
				BaseURL:         "https://api.openai.com/v1",
				APIKeyEnv:       "OPENAI_API_KEY",
				TTSModel:        "tts-1",
				TTSVoice:        "nova",
				TranscribeModel: "whisper-1",
			},
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Capture: CaptureConfig{
			Command:       "ffmpeg -hide_banner -loglevel error -y -f v4l2 -i /dev/video0",
			MaxDurationMS: 60000,
			JoinTimeoutMS: 5000,
		},
		Estimate: EstimateConfig{WallRate: 2.50},
		Store:    StoreConfig{},
		Speech:   SpeechConfig{},
	}
}
