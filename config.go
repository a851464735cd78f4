package flowtest

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
)

// Snapshot backends understood by snapshotstore.Open.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

// EnvPrefix prefixes environment overrides, e.g. FLOWTEST_LOG_LEVEL.
const EnvPrefix = "FLOWTEST"

// Config is the harness configuration, read from a file and the
// environment.
type Config struct {
	ResourceRoot string         `mapstructure:"resource_root"`
	BasePath     string         `mapstructure:"base_path"`
	Locale       string         `mapstructure:"locale"`
	Log          LogConfig      `mapstructure:"log"`
	Metrics      MetricsConfig  `mapstructure:"metrics"`
	Snapshots    SnapshotConfig `mapstructure:"snapshots"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Encoding is "json" or "console".
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// SnapshotConfig selects where testers record execution snapshots.
type SnapshotConfig struct {
	Backend string `mapstructure:"backend"`
	// DSN is the data source name of SQL backends and the URI of mongo.
	DSN        string `mapstructure:"dsn"`
	Address    string `mapstructure:"address"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	Table      string `mapstructure:"table"`
	Prefix     string `mapstructure:"prefix"`
}

// NewViper returns a viper instance with the defaults of every setting and
// environment overrides enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("resource_root", DefaultResourceRoot)
	v.SetDefault("base_path", "")
	v.SetDefault("locale", "en")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.namespace", "flowtest")
	v.SetDefault("snapshots.backend", BackendNone)
	v.SetDefault("snapshots.dsn", "")
	v.SetDefault("snapshots.address", "localhost:6379")
	v.SetDefault("snapshots.database", "flowtest")
	v.SetDefault("snapshots.collection", "snapshots")
	v.SetDefault("snapshots.table", "flow_snapshots")
	v.SetDefault("snapshots.prefix", "flowtest:")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads path, a YAML, JSON or TOML file, on top of the defaults.
// An empty path reads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return ConfigFromViper(v)
}

// ConfigFromViper decodes the settings held by v.
func ConfigFromViper(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

// NewLogger builds a zap logger at the configured level and encoding.
func (c *Config) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Log.Encoding != "" {
		zc.Encoding = c.Log.Encoding
	}
	if c.Log.Level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", c.Log.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

// LocaleTag parses the configured locale. An empty locale is English.
func (c *Config) LocaleTag() (language.Tag, error) {
	if c.Locale == "" {
		return language.English, nil
	}
	return language.Parse(c.Locale)
}

// NewDocumentConfiguration configures the document at location with the
// configured resource root and base path.
func (c *Config) NewDocumentConfiguration(location any) *DocumentConfiguration {
	conf := NewDocumentConfiguration(location)
	if c.ResourceRoot != "" {
		conf.WithResourceFS(os.DirFS(c.ResourceRoot))
	}
	if c.BasePath != "" {
		conf.WithBasePath(c.BasePath)
	}
	return conf
}
