package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all Peera Voice environment variables.
const EnvPrefix = "PEERA_VOICE_"

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	AudioDir   string `yaml:"audio_dir"`
	JournalDir string `yaml:"journal_dir"`
	Language   string `yaml:"language"`

	SilenceTimeout string `yaml:"silence_timeout"`
	ActivityTick   string `yaml:"activity_tick"`
	MicSampleRate  int    `yaml:"mic_sample_rate"`
	MicBackend     string `yaml:"mic_backend"`   // portaudio or deepgram
	VADMode        string `yaml:"vad_mode"`      // level or timer
	VADThreshold   int    `yaml:"vad_threshold"` // rms floor for the level detector

	TTSModel          string  `yaml:"tts_model"`
	SpeechBaseDelay   string  `yaml:"speech_base_delay"`
	SpeechPerCharCost string  `yaml:"speech_per_char_cost"`
	VoicePitch        float64 `yaml:"voice_pitch"`
	VoiceRate         float64 `yaml:"voice_rate"`

	TranscribeURL      string `yaml:"transcribe_url"`
	TranscribeFallback bool   `yaml:"transcribe_fallback"`

	AssistantProvider string `yaml:"assistant_provider"` // peera, openai, anthropic or gemini
	AssistantModel    string `yaml:"assistant_model"`
	AssistantURL      string `yaml:"assistant_url"`

	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets, env vars only, never serialized to YAML.
	DeepgramAPIKey   string `yaml:"-"`
	OpenAIAPIKey     string `yaml:"-"`
	AnthropicAPIKey  string `yaml:"-"`
	GeminiAPIKey     string `yaml:"-"`
	TranscribeAPIKey string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:            "127.0.0.1:8765",
		DBPath:                "data/peera-voice.db",
		AudioDir:              "data/audio",
		JournalDir:            "data/journal",
		Language:              "en-US",
		SilenceTimeout:        "2s",
		ActivityTick:          "1s",
		MicSampleRate:         16000,
		MicBackend:            "portaudio",
		VADMode:               "timer",
		VADThreshold:          300,
		TTSModel:              "aura-2-thalia-en",
		SpeechBaseDelay:       "1s",
		SpeechPerCharCost:     "50ms",
		VoicePitch:            1.0,
		VoiceRate:             0.5,
		AssistantProvider:     "openai",
		AssistantModel:        "gpt-4o-mini",
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedSilenceTimeout returns SilenceTimeout as a time.Duration,
// falling back to 2s if the value is invalid.
func (c *Config) ParsedSilenceTimeout() time.Duration {
	return parseDurationOr(c.SilenceTimeout, 2*time.Second)
}

// ParsedActivityTick returns ActivityTick as a time.Duration,
// falling back to 1s if the value is invalid.
func (c *Config) ParsedActivityTick() time.Duration {
	return parseDurationOr(c.ActivityTick, time.Second)
}

// ParsedSpeechBaseDelay returns SpeechBaseDelay as a time.Duration,
// falling back to 1s if the value is invalid.
func (c *Config) ParsedSpeechBaseDelay() time.Duration {
	return parseDurationOr(c.SpeechBaseDelay, time.Second)
}

// ParsedSpeechPerCharCost returns SpeechPerCharCost as a time.Duration,
// falling back to 50ms if the value is invalid.
func (c *Config) ParsedSpeechPerCharCost() time.Duration {
	return parseDurationOr(c.SpeechPerCharCost, 50*time.Millisecond)
}

// AssistantAPIKey returns the secret matching the configured provider.
func (c *Config) AssistantAPIKey() string {
	switch c.AssistantProvider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	default:
		return ""
	}
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "AUDIO_DIR"); v != "" {
		cfg.AudioDir = v
	}
	if v := os.Getenv(EnvPrefix + "JOURNAL_DIR"); v != "" {
		cfg.JournalDir = v
	}
	if v := os.Getenv(EnvPrefix + "LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv(EnvPrefix + "SILENCE_TIMEOUT"); v != "" {
		cfg.SilenceTimeout = v
	}
	if v := os.Getenv(EnvPrefix + "ACTIVITY_TICK"); v != "" {
		cfg.ActivityTick = v
	}
	if v := os.Getenv(EnvPrefix + "MIC_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && rate > 0 {
			cfg.MicSampleRate = rate
		}
	}
	if v := os.Getenv(EnvPrefix + "MIC_BACKEND"); v != "" {
		cfg.MicBackend = v
	}
	if v := os.Getenv(EnvPrefix + "VAD_MODE"); v != "" {
		cfg.VADMode = v
	}
	if v := os.Getenv(EnvPrefix + "VAD_THRESHOLD"); v != "" {
		if threshold, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && threshold > 0 {
			cfg.VADThreshold = threshold
		}
	}
	if v := os.Getenv(EnvPrefix + "TTS_MODEL"); v != "" {
		cfg.TTSModel = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSCRIBE_URL"); v != "" {
		cfg.TranscribeURL = v
	}
	if v := os.Getenv(EnvPrefix + "ASSISTANT_PROVIDER"); v != "" {
		cfg.AssistantProvider = v
	}
	if v := os.Getenv(EnvPrefix + "ASSISTANT_MODEL"); v != "" {
		cfg.AssistantModel = v
	}
	if v := os.Getenv(EnvPrefix + "ASSISTANT_URL"); v != "" {
		cfg.AssistantURL = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
	cfg.TranscribeAPIKey = os.Getenv(EnvPrefix + "TRANSCRIBE_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.DeepgramAPIKey == "" {
		warnings = append(warnings, "Deepgram API key not configured, spoken responses are disabled. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
	}
	if cfg.TranscribeURL == "" && !cfg.TranscribeFallback {
		warnings = append(warnings, "No transcription service configured. Set transcribe_url or enable transcribe_fallback.")
	}
	switch cfg.AssistantProvider {
	case "peera":
		if cfg.AssistantURL == "" {
			warnings = append(warnings, "Assistant provider peera needs assistant_url.")
		}
	case "openai", "anthropic", "gemini":
		if cfg.AssistantAPIKey() == "" {
			warnings = append(warnings, fmt.Sprintf("No API key configured for assistant provider %q.", cfg.AssistantProvider))
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown assistant provider %q.", cfg.AssistantProvider))
	}
	switch cfg.MicBackend {
	case "portaudio", "deepgram":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown mic_backend %q, using portaudio.", cfg.MicBackend))
	}
	switch cfg.VADMode {
	case "level", "timer":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown vad_mode %q, using timer.", cfg.VADMode))
	}
	if _, err := time.ParseDuration(cfg.SilenceTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid silence_timeout %q, using default 2s.", cfg.SilenceTimeout))
	}
	if _, err := time.ParseDuration(cfg.ActivityTick); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid activity_tick %q, using default 1s.", cfg.ActivityTick))
	}

	return warnings
}
