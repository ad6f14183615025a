package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	Metrics      bool   `yaml:"metrics"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type StorageConfig struct {
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

type JobsConfig struct {
	Store string `yaml:"store"` // memory or sqlite
	Path  string `yaml:"path"`
}

type LLMConfig struct {
	Mode        string  `yaml:"mode"` // mock or ollama
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutMS   int     `yaml:"timeout_ms"`
}

type TTSConfig struct {
	Mode       string            `yaml:"mode"` // mock, exec, or http
	Command    string            `yaml:"command"`
	Endpoint   string            `yaml:"endpoint"`
	APIKey     string            `yaml:"api_key"`
	Voices     map[string]string `yaml:"voices"`
	SampleRate int               `yaml:"sample_rate"`
	Channels   int               `yaml:"channels"`
	TimeoutMS  int               `yaml:"timeout_ms"`
}

type AudioConfig struct {
	Encoder          string `yaml:"encoder"` // ffmpeg or wav
	FFmpegBin        string `yaml:"ffmpeg_bin"`
	Bitrate          string `yaml:"bitrate"`
	SpeakerGapMS     int    `yaml:"speaker_gap_ms"`
	IntroCrossfadeMS int    `yaml:"intro_crossfade_ms"`
	OutroCrossfadeMS int    `yaml:"outro_crossfade_ms"`
	IntroPath        string `yaml:"intro_path"`
	OutroPath        string `yaml:"outro_path"`
	TagArtist        string `yaml:"tag_artist"`
	TagAlbum         string `yaml:"tag_album"`
}

type ProductionConfig struct {
	RenderConcurrency int `yaml:"render_concurrency"`
	RenderTimeoutMS   int `yaml:"render_timeout_ms"`
	AssembleTimeoutMS int `yaml:"assemble_timeout_ms"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Storage     StorageConfig    `yaml:"storage"`
	Jobs        JobsConfig       `yaml:"jobs"`
	LLM         LLMConfig        `yaml:"llm"`
	TTS         TTSConfig        `yaml:"tts"`
	Audio       AudioConfig      `yaml:"audio"`
	Production  ProductionConfig `yaml:"production"`
}

func Default() Config {
	return Config{
		RuntimeName: "castforge-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel: "info",
			Metrics:  true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Storage: StorageConfig{
			Root:    "./data/objects",
			BaseURL: "",
		},
		Jobs: JobsConfig{
			Store: "memory",
			Path:  "./data/castforge-jobs.db",
		},
		LLM: LLMConfig{
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   8000,
			Temperature: 0.7,
			TimeoutMS:   120000,
		},
		TTS: TTSConfig{
			Mode: "mock",
			Voices: map[string]string{
				"doug":   "voice-doug",
				"claire": "voice-claire",
			},
			SampleRate: 22050,
			Channels:   1,
			TimeoutMS:  45000,
		},
		Audio: AudioConfig{
			Encoder:          "ffmpeg",
			FFmpegBin:        "ffmpeg",
			Bitrate:          "192k",
			SpeakerGapMS:     400,
			IntroCrossfadeMS: 1500,
			OutroCrossfadeMS: 2000,
			IntroPath:        "music/intro.wav",
			OutroPath:        "music/outro.wav",
			TagArtist:        "Energy Debates",
			TagAlbum:         "Energy Debates Podcast",
		},
		Production: ProductionConfig{
			RenderConcurrency: 4,
			RenderTimeoutMS:   600000,
			AssembleTimeoutMS: 300000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "CASTFORGE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "CASTFORGE_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "CASTFORGE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "CASTFORGE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "CASTFORGE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "CASTFORGE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "CASTFORGE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.Metrics, "CASTFORGE_TELEMETRY_METRICS")
	overrideBool(&cfg.Bus.Enabled, "CASTFORGE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "CASTFORGE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "CASTFORGE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "CASTFORGE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "CASTFORGE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "CASTFORGE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "CASTFORGE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "CASTFORGE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "CASTFORGE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Storage.Root, "CASTFORGE_STORAGE_ROOT")
	overrideString(&cfg.Storage.BaseURL, "CASTFORGE_STORAGE_BASE_URL")
	overrideString(&cfg.Jobs.Store, "CASTFORGE_JOBS_STORE")
	overrideString(&cfg.Jobs.Path, "CASTFORGE_JOBS_PATH")
	overrideString(&cfg.LLM.Mode, "CASTFORGE_LLM_MODE")
	overrideString(&cfg.LLM.Endpoint, "CASTFORGE_LLM_ENDPOINT")
	overrideString(&cfg.LLM.Model, "CASTFORGE_LLM_MODEL")
	overrideInt(&cfg.LLM.MaxTokens, "CASTFORGE_LLM_MAX_TOKENS")
	overrideFloat(&cfg.LLM.Temperature, "CASTFORGE_LLM_TEMPERATURE")
	overrideInt(&cfg.LLM.TimeoutMS, "CASTFORGE_LLM_TIMEOUT_MS")
	overrideString(&cfg.TTS.Mode, "CASTFORGE_TTS_MODE")
	overrideString(&cfg.TTS.Command, "CASTFORGE_TTS_COMMAND")
	overrideString(&cfg.TTS.Endpoint, "CASTFORGE_TTS_ENDPOINT")
	overrideString(&cfg.TTS.APIKey, "CASTFORGE_TTS_API_KEY")
	overrideInt(&cfg.TTS.SampleRate, "CASTFORGE_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Channels, "CASTFORGE_TTS_CHANNELS")
	overrideInt(&cfg.TTS.TimeoutMS, "CASTFORGE_TTS_TIMEOUT_MS")
	overrideString(&cfg.Audio.Encoder, "CASTFORGE_AUDIO_ENCODER")
	overrideString(&cfg.Audio.FFmpegBin, "CASTFORGE_AUDIO_FFMPEG_BIN")
	overrideString(&cfg.Audio.Bitrate, "CASTFORGE_AUDIO_BITRATE")
	overrideInt(&cfg.Audio.SpeakerGapMS, "CASTFORGE_AUDIO_SPEAKER_GAP_MS")
	overrideInt(&cfg.Audio.IntroCrossfadeMS, "CASTFORGE_AUDIO_INTRO_CROSSFADE_MS")
	overrideInt(&cfg.Audio.OutroCrossfadeMS, "CASTFORGE_AUDIO_OUTRO_CROSSFADE_MS")
	overrideString(&cfg.Audio.IntroPath, "CASTFORGE_AUDIO_INTRO_PATH")
	overrideString(&cfg.Audio.OutroPath, "CASTFORGE_AUDIO_OUTRO_PATH")
	overrideInt(&cfg.Production.RenderConcurrency, "CASTFORGE_PRODUCTION_RENDER_CONCURRENCY")
	overrideInt(&cfg.Production.RenderTimeoutMS, "CASTFORGE_PRODUCTION_RENDER_TIMEOUT_MS")
	overrideInt(&cfg.Production.AssembleTimeoutMS, "CASTFORGE_PRODUCTION_ASSEMBLE_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Storage.Root == "" {
		return errors.New("storage.root must not be empty")
	}
	switch cfg.Jobs.Store {
	case "memory":
	case "sqlite":
		if cfg.Jobs.Path == "" {
			return errors.New("jobs.path must be set when jobs.store=sqlite")
		}
	default:
		return errors.New("jobs.store must be one of memory|sqlite")
	}
	switch cfg.LLM.Mode {
	case "mock":
	case "ollama":
		if cfg.LLM.Endpoint == "" {
			return errors.New("llm.endpoint must be set when mode=ollama")
		}
	default:
		return errors.New("llm.mode must be one of mock|ollama")
	}
	switch cfg.TTS.Mode {
	case "mock":
	case "exec":
		if cfg.TTS.Command == "" {
			return errors.New("tts.command must be set when mode=exec")
		}
	case "http":
		if cfg.TTS.Endpoint == "" {
			return errors.New("tts.endpoint must be set when mode=http")
		}
	default:
		return errors.New("tts.mode must be one of mock|exec|http")
	}
	if cfg.TTS.SampleRate <= 0 {
		return errors.New("tts.sample_rate must be positive")
	}
	if cfg.TTS.Channels <= 0 {
		return errors.New("tts.channels must be positive")
	}
	if len(cfg.TTS.Voices) == 0 {
		return errors.New("tts.voices must not be empty")
	}
	switch cfg.Audio.Encoder {
	case "ffmpeg", "wav":
	default:
		return errors.New("audio.encoder must be one of ffmpeg|wav")
	}
	if cfg.Audio.SpeakerGapMS < 0 {
		return errors.New("audio.speaker_gap_ms must be >= 0")
	}
	if cfg.Audio.IntroCrossfadeMS < 0 || cfg.Audio.OutroCrossfadeMS < 0 {
		return errors.New("audio crossfade durations must be >= 0")
	}
	if cfg.Production.RenderConcurrency <= 0 {
		return errors.New("production.render_concurrency must be >= 1")
	}
	return nil
}
