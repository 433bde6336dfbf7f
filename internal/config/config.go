package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	Matching  MatchingConfig  `yaml:"matching" mapstructure:"matching"`
	Extractor ExtractorConfig `yaml:"extractor" mapstructure:"extractor"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ArchiveConfig configures the report archive backend.
type ArchiveConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MatchingConfig holds the similarity thresholds for entity resolution
// and incident clustering. Thresholds are configuration, not constants;
// analysts tune them per corpus.
type MatchingConfig struct {
	PersonThreshold   float64 `yaml:"person_threshold" mapstructure:"person_threshold"`
	IncidentThreshold float64 `yaml:"incident_threshold" mapstructure:"incident_threshold"`
}

// ExtractorConfig holds extraction service client settings.
type ExtractorConfig struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ServerConfig configures the HTTP read API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	QueueDepth     int      `yaml:"queue_depth" mapstructure:"queue_depth"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("archive.driver", "sqlite")
	v.SetDefault("archive.database_url", "intel.db")
	v.SetDefault("matching.person_threshold", 0.85)
	v.SetDefault("matching.incident_threshold", 0.80)
	v.SetDefault("extractor.base_url", "http://localhost:8000")
	v.SetDefault("extractor.requests_per_minute", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.queue_depth", 64)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Matching.PersonThreshold <= 0 || cfg.Matching.PersonThreshold > 1 {
		return nil, eris.Errorf("config: matching.person_threshold %v out of range (0, 1]", cfg.Matching.PersonThreshold)
	}
	if cfg.Matching.IncidentThreshold <= 0 || cfg.Matching.IncidentThreshold > 1 {
		return nil, eris.Errorf("config: matching.incident_threshold %v out of range (0, 1]", cfg.Matching.IncidentThreshold)
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
