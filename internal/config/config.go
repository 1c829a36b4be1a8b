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
	Resolver ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Govmap   GovmapConfig   `yaml:"govmap" mapstructure:"govmap"`
	Regional RegionalConfig `yaml:"regional" mapstructure:"regional"`
	TelAviv  TelAvivConfig  `yaml:"telaviv" mapstructure:"telaviv"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ResolverConfig configures the reverse-geocoding place resolver.
type ResolverConfig struct {
	NominatimBaseURL string  `yaml:"nominatim_base_url" mapstructure:"nominatim_base_url"`
	Language         string  `yaml:"language" mapstructure:"language"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	FallbackRadiusM  int     `yaml:"fallback_radius_m" mapstructure:"fallback_radius_m"`
	FallbackMax      int     `yaml:"fallback_max" mapstructure:"fallback_max"`
}

// OverpassConfig configures the open-data connector and the resolver's
// populated-place fallback, which share the same endpoint.
type OverpassConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// GovmapConfig configures the national text-search connector.
type GovmapConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// RegionalConfig configures the municipal endpoint connector.
type RegionalConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BBoxMargin  float64 `yaml:"bbox_margin" mapstructure:"bbox_margin"`
}

// TelAvivConfig configures the city-authoritative connector.
type TelAvivConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FullScanMax int    `yaml:"full_scan_max" mapstructure:"full_scan_max"`
	SpatialMax  int    `yaml:"spatial_max" mapstructure:"spatial_max"`
}

// PipelineConfig configures aggregation, dedup and radius expansion.
// The dedup threshold, priority order and expansion trigger are policy
// knobs, not derived invariants, so they live here rather than in code.
type PipelineConfig struct {
	BaseRadiusM     int      `yaml:"base_radius_m" mapstructure:"base_radius_m"`
	ExpansionRadiiM []int    `yaml:"expansion_radii_m" mapstructure:"expansion_radii_m"`
	WideRadiusM     int      `yaml:"wide_radius_m" mapstructure:"wide_radius_m"`
	MinResults      int      `yaml:"min_results" mapstructure:"min_results"`
	MaxResults      int      `yaml:"max_results" mapstructure:"max_results"`
	DedupThresholdM float64  `yaml:"dedup_threshold_m" mapstructure:"dedup_threshold_m"`
	PriorityOrder   []string `yaml:"priority_order" mapstructure:"priority_order"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("SHELTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("resolver.nominatim_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("resolver.language", "he")
	v.SetDefault("resolver.timeout_secs", 10)
	v.SetDefault("resolver.rate_limit_rps", 1)
	v.SetDefault("resolver.fallback_radius_m", 3000)
	v.SetDefault("resolver.fallback_max", 3)
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_secs", 20)
	v.SetDefault("overpass.rate_limit_rps", 1)
	v.SetDefault("govmap.base_url", "https://www.govmap.gov.il/api/search-service/search")
	v.SetDefault("govmap.timeout_secs", 10)
	v.SetDefault("govmap.rate_limit_rps", 2)
	v.SetDefault("regional.timeout_secs", 10)
	v.SetDefault("regional.bbox_margin", 0.05)
	v.SetDefault("telaviv.url", "https://gisn.tel-aviv.gov.il/arcgis/rest/services/WM/IView2WM/MapServer/592/query")
	v.SetDefault("telaviv.timeout_secs", 15)
	v.SetDefault("telaviv.full_scan_max", 500)
	v.SetDefault("telaviv.spatial_max", 100)
	v.SetDefault("pipeline.base_radius_m", 2000)
	v.SetDefault("pipeline.expansion_radii_m", []int{3000, 5000})
	v.SetDefault("pipeline.wide_radius_m", 5000)
	v.SetDefault("pipeline.min_results", 3)
	v.SetDefault("pipeline.max_results", 5)
	v.SetDefault("pipeline.dedup_threshold_m", 50)
	v.SetDefault("pipeline.priority_order", []string{
		"city-authoritative", "regional", "national-search", "open-data",
	})

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

	return &cfg, nil
}

// Validate checks the fields a given run mode depends on. Modes: "lookup"
// (one-shot CLI query), "serve" (HTTP API).
func (c *Config) Validate(mode string) error {
	var problems []string

	checkPipeline := func() {
		if c.Pipeline.BaseRadiusM <= 0 {
			problems = append(problems, "pipeline.base_radius_m must be > 0")
		}
		if c.Pipeline.MaxResults <= 0 {
			problems = append(problems, "pipeline.max_results must be > 0")
		}
		if c.Pipeline.MinResults < 0 {
			problems = append(problems, "pipeline.min_results must be >= 0")
		}
		if c.Pipeline.DedupThresholdM < 0 {
			problems = append(problems, "pipeline.dedup_threshold_m must be >= 0")
		}
		for _, r := range c.Pipeline.ExpansionRadiiM {
			if r <= c.Pipeline.BaseRadiusM {
				problems = append(problems, "pipeline.expansion_radii_m must all exceed base_radius_m")
				break
			}
		}
	}

	switch mode {
	case "lookup":
		checkPipeline()
	case "serve":
		checkPipeline()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
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
