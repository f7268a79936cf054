package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	AfterShip AfterShipConfig `yaml:"aftership" mapstructure:"aftership"`
	Collect   CollectConfig   `yaml:"collect" mapstructure:"collect"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Heatmap   HeatmapConfig   `yaml:"heatmap" mapstructure:"heatmap"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AfterShipConfig configures the tracking API client.
type AfterShipConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CollectConfig bounds a collection run.
type CollectConfig struct {
	Destination   string `yaml:"destination" mapstructure:"destination"`
	Tag           string `yaml:"tag" mapstructure:"tag"`
	TargetCount   int    `yaml:"target_count" mapstructure:"target_count"`
	MaxWindows    int    `yaml:"max_windows" mapstructure:"max_windows"`
	WindowHours   int    `yaml:"window_hours" mapstructure:"window_hours"`
	PageDelayMs   int    `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	WindowDelayMs int    `yaml:"window_delay_ms" mapstructure:"window_delay_ms"`
}

// WindowSize returns the configured window length.
func (c CollectConfig) WindowSize() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

// GeocodeConfig selects and identifies the geocoding provider.
type GeocodeConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"` // "nominatim" or "google"
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	Email            string `yaml:"email" mapstructure:"email"`
	CountryCodes     string `yaml:"country_codes" mapstructure:"country_codes"`
	CountryQualifier string `yaml:"country_qualifier" mapstructure:"country_qualifier"`
	ThrottleMs       int    `yaml:"throttle_ms" mapstructure:"throttle_ms"`
	GoogleAPIKey     string `yaml:"google_api_key" mapstructure:"google_api_key"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CacheConfig locates the geocode cache.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PathsConfig names every file artifact.
type PathsConfig struct {
	Raw        string `yaml:"raw" mapstructure:"raw"`
	Normalized string `yaml:"normalized" mapstructure:"normalized"`
	Geocoded   string `yaml:"geocoded" mapstructure:"geocoded"`
	Heatmap    string `yaml:"heatmap" mapstructure:"heatmap"`
	GeoJSON    string `yaml:"geojson" mapstructure:"geojson"`
	Shapefile  string `yaml:"shapefile" mapstructure:"shapefile"`
	XLSX       string `yaml:"xlsx" mapstructure:"xlsx"`
	Manifest   string `yaml:"manifest" mapstructure:"manifest"`
}

// HeatmapConfig controls the rendered map.
type HeatmapConfig struct {
	CenterLat float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLon float64 `yaml:"center_lon" mapstructure:"center_lon"`
	Zoom      int     `yaml:"zoom" mapstructure:"zoom"`
	Radius    int     `yaml:"radius" mapstructure:"radius"`
	Blur      int     `yaml:"blur" mapstructure:"blur"`
	MaxZoom   int     `yaml:"max_zoom" mapstructure:"max_zoom"`
	TileURL   string  `yaml:"tile_url" mapstructure:"tile_url"`
}

// ServerConfig configures the artifact server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("DELIVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("aftership.api_key", "")
	v.SetDefault("aftership.base_url", "https://api.aftership.com/v4")
	v.SetDefault("aftership.page_size", 200)
	v.SetDefault("aftership.timeout_secs", 30)
	v.SetDefault("collect.destination", "NLD")
	v.SetDefault("collect.tag", "Delivered")
	v.SetDefault("collect.target_count", 1000)
	v.SetDefault("collect.max_windows", 60)
	v.SetDefault("collect.window_hours", 24)
	v.SetDefault("collect.page_delay_ms", 400)
	v.SetDefault("collect.window_delay_ms", 400)
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.user_agent", "delivery-heatmap/1.0 (+https://github.com/sells-group/delivery-heatmap)")
	v.SetDefault("geocode.email", "")
	v.SetDefault("geocode.country_codes", "nl")
	v.SetDefault("geocode.country_qualifier", "Netherlands")
	v.SetDefault("geocode.throttle_ms", 1100)
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "cache/geocache.sqlite")
	v.SetDefault("cache.database_url", "")
	v.SetDefault("paths.raw", "output/aftership_raw.json")
	v.SetDefault("paths.normalized", "output/delivery_points.csv")
	v.SetDefault("paths.geocoded", "output/delivery_points_geocoded.csv")
	v.SetDefault("paths.heatmap", "output/delivery_heatmap.html")
	v.SetDefault("paths.geojson", "output/delivery_points.geojson")
	v.SetDefault("paths.shapefile", "")
	v.SetDefault("paths.xlsx", "")
	v.SetDefault("paths.manifest", "output/manifest.yaml")
	v.SetDefault("heatmap.center_lat", 52.2)
	v.SetDefault("heatmap.center_lon", 5.3)
	v.SetDefault("heatmap.zoom", 7)
	v.SetDefault("heatmap.radius", 10)
	v.SetDefault("heatmap.blur", 14)
	v.SetDefault("heatmap.max_zoom", 10)
	v.SetDefault("heatmap.tile_url", "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks the settings a command needs. mode is one of "collect",
// "geocode", "heatmap" or "serve".
func (c *Config) Validate(mode string) error {
	var problems []string
	switch mode {
	case "collect":
		if c.AfterShip.APIKey == "" {
			problems = append(problems, "aftership.api_key is required")
		}
		if c.Collect.Destination == "" {
			problems = append(problems, "collect.destination is required")
		}
		if c.Collect.TargetCount <= 0 {
			problems = append(problems, "collect.target_count must be > 0")
		}
		if c.Collect.MaxWindows <= 0 {
			problems = append(problems, "collect.max_windows must be > 0")
		}
		if c.Collect.WindowHours <= 0 {
			problems = append(problems, "collect.window_hours must be > 0")
		}
	case "geocode":
		if strings.TrimSpace(c.Geocode.CountryQualifier) == "" {
			problems = append(problems, "geocode.country_qualifier is required")
		}
		switch c.Geocode.Provider {
		case "nominatim":
			if c.Geocode.UserAgent == "" {
				problems = append(problems, "geocode.user_agent is required for nominatim")
			}
		case "google":
			if c.Geocode.GoogleAPIKey == "" {
				problems = append(problems, "geocode.google_api_key is required for google")
			}
		default:
			problems = append(problems, "geocode.provider must be nominatim or google")
		}
		switch c.Cache.Driver {
		case "sqlite":
			if c.Cache.Path == "" {
				problems = append(problems, "cache.path is required")
			}
		case "postgres":
			if c.Cache.DatabaseURL == "" {
				problems = append(problems, "cache.database_url is required")
			}
		default:
			problems = append(problems, "cache.driver must be sqlite or postgres")
		}
	case "heatmap":
		if c.Paths.Heatmap == "" {
			problems = append(problems, "paths.heatmap is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
