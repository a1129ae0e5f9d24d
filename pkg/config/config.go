package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration. Secrets may be supplied via
// environment variables; they are resolved exactly once in Load, so the rest
// of the codebase only ever sees typed values.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Request  RequestConfig  `yaml:"request"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Storage  StorageConfig  `yaml:"storage"`
	Queue    QueueConfig    `yaml:"queue"`
	Places   PlacesConfig   `yaml:"places"`
	LLM      LLMConfig      `yaml:"llm"`
	TTS      TTSConfig      `yaml:"tts"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Preview  PreviewConfig  `yaml:"preview"`
}

// APIConfig holds settings for the query API listener.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig holds object storage settings.
type StorageConfig struct {
	// Root is the bucket root for the disk-backed store.
	Root string `yaml:"root"`
	// Bucket names the logical bucket used in storage URLs.
	Bucket string `yaml:"bucket"`
	// CDNDomain fronts the read path, e.g. "cdn.example.com".
	CDNDomain string `yaml:"cdn_domain"`
	// TempPrefix holds on-demand artifacts subject to lifecycle expiry.
	TempPrefix string `yaml:"temp_prefix"`
}

// QueueConfig holds message queue settings.
type QueueConfig struct {
	// VisibilityTimeout is how long a received message stays invisible
	// before it is redelivered to another consumer.
	VisibilityTimeout Duration `yaml:"visibility_timeout"`
	// PollInterval is the consumer idle sleep between empty receives.
	PollInterval Duration `yaml:"poll_interval"`
	// MaxAttempts dead-letters a message after this many deliveries.
	MaxAttempts int `yaml:"max_attempts"`
}

// PlacesConfig holds settings for the place-details collaborator.
type PlacesConfig struct {
	Key     string `yaml:"key"`      // env: PLACES_API_KEY
	BaseURL string `yaml:"base_url"` // override for tests
}

// ProviderConfig holds settings for one LLM provider.
type ProviderConfig struct {
	Type    string `yaml:"type"` // "openai", "gemini"
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LLMConfig holds settings for the text-completion collaborator.
type LLMConfig struct {
	Provider    string         `yaml:"provider"` // "openai", "gemini"
	OpenAI      ProviderConfig `yaml:"openai"`
	Gemini      ProviderConfig `yaml:"gemini"`
	MaxTokens   int            `yaml:"max_tokens"`
	Temperature float32        `yaml:"temperature"`
}

// TTSConfig holds text-to-speech settings.
type TTSConfig struct {
	Key      string `yaml:"key"`      // env: SPEECH_API_KEY
	Region   string `yaml:"region"`   // env: SPEECH_REGION
	BaseURL  string `yaml:"base_url"` // override for tests
	Voice    string `yaml:"voice"`
	Engine   string `yaml:"engine"`   // "standard", "neural", "generative"
	Language string `yaml:"language"` // pinned output language, e.g. "en-US"
}

// PipelineConfig holds stage worker settings.
type PipelineConfig struct {
	MaxPhotos        int `yaml:"max_photos"`        // cap on photo references per place
	PhotoConcurrency int `yaml:"photo_concurrency"` // bounded fan-out within one invocation
}

// PreviewConfig holds preview gate settings.
type PreviewConfig struct {
	Cities         []string `yaml:"cities"`
	ManifestPrefix string   `yaml:"manifest_prefix"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{Addr: "127.0.0.1:8642"},
		Request: RequestConfig{
			Retries: 5,
			Timeout: Duration(300 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		Log: LogConfig{
			Server:   LogSettings{Path: "logs/server.log", Level: "INFO"},
			Requests: LogSettings{Path: "logs/requests.log", Level: "INFO"},
		},
		DB:      DBConfig{Path: "data/tourgen.db"},
		Storage: StorageConfig{Root: "data/content", Bucket: "tourgen-content", CDNDomain: "", TempPrefix: "temp/"},
		Queue: QueueConfig{
			VisibilityTimeout: Duration(5 * time.Minute),
			PollInterval:      Duration(1 * time.Second),
			MaxAttempts:       5,
		},
		Places: PlacesConfig{BaseURL: "https://places.googleapis.com/v1"},
		LLM: LLMConfig{
			Provider:    "openai",
			OpenAI:      ProviderConfig{Type: "openai", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o"},
			Gemini:      ProviderConfig{Type: "gemini", Model: "gemini-2.0-flash"},
			MaxTokens:   6000,
			Temperature: 0.7,
		},
		TTS: TTSConfig{
			Voice:    "Amy",
			Engine:   "neural",
			Language: "en-US",
		},
		Pipeline: PipelineConfig{MaxPhotos: 5, PhotoConcurrency: 10},
		Preview: PreviewConfig{
			Cities:         []string{"san-francisco", "new-york", "london", "paris", "tokyo", "rome", "giza"},
			ManifestPrefix: "preview",
		},
	}
}

// Load loads the configuration from the given path, creating it with
// defaults if absent. Secret fields left empty in the file fall back to
// environment variables here and nowhere else.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	overlayEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayEnv(cfg *Config) {
	setIfEmpty := func(dst *string, env string) {
		if *dst == "" {
			if v := os.Getenv(env); v != "" {
				*dst = v
			}
		}
	}
	setIfEmpty(&cfg.Places.Key, "PLACES_API_KEY")
	setIfEmpty(&cfg.LLM.OpenAI.Key, "OPENAI_API_KEY")
	setIfEmpty(&cfg.LLM.Gemini.Key, "GEMINI_API_KEY")
	setIfEmpty(&cfg.TTS.Key, "SPEECH_API_KEY")
	setIfEmpty(&cfg.TTS.Region, "SPEECH_REGION")
}

var localeRe = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)

// Validate checks cross-field constraints that YAML decoding cannot express.
func (c *Config) Validate() error {
	if !localeRe.MatchString(c.TTS.Language) {
		return fmt.Errorf("invalid tts.language %q: must be 'xx-YY' (e.g. 'en-US')", c.TTS.Language)
	}
	if c.Pipeline.MaxPhotos < 1 {
		return fmt.Errorf("pipeline.max_photos must be at least 1")
	}
	if c.Pipeline.PhotoConcurrency < 1 {
		return fmt.Errorf("pipeline.photo_concurrency must be at least 1")
	}
	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("queue.max_attempts must be at least 1")
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# tourgen configuration
# Secrets (places.key, llm.*.key, tts.key) may be left empty and supplied
# via PLACES_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, SPEECH_API_KEY.
# Duration units: ns, us, ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
