// Package config loads bindgraph settings from a YAML file and BINDGRAPH_*
// environment variables.
//
// Environment variables override the file; unset fields take the
// env-default values of the struct tags. [Default] returns the same
// defaults without reading the environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/matzehuels/bindgraph/pkg/cache"
	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
	"github.com/matzehuels/bindgraph/pkg/observability"
	"github.com/matzehuels/bindgraph/pkg/session"
)

// Config is the complete configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Metadata MetadataConfig `yaml:"metadata"`
	Resolve  ResolveConfig  `yaml:"resolve"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Server   ServerConfig   `yaml:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" env:"BINDGRAPH_LOG_LEVEL" env-default:"info"`
	// Format is text, json or logfmt.
	Format string `yaml:"format" env:"BINDGRAPH_LOG_FORMAT" env-default:"text"`
	// Output is stderr, stdout or file.
	Output string `yaml:"output" env:"BINDGRAPH_LOG_OUTPUT" env-default:"stderr"`
	// FilePath is the log file when Output is file.
	FilePath   string `yaml:"filePath" env:"BINDGRAPH_LOG_FILE_PATH" env-default:"bindgraph.log"`
	MaxSize    int    `yaml:"maxSize" env:"BINDGRAPH_LOG_MAX_SIZE" env-default:"100"`
	MaxBackups int    `yaml:"maxBackups" env:"BINDGRAPH_LOG_MAX_BACKUPS" env-default:"3"`
	MaxAge     int    `yaml:"maxAge" env:"BINDGRAPH_LOG_MAX_AGE" env-default:"7"`
	Compress   bool   `yaml:"compress" env:"BINDGRAPH_LOG_COMPRESS"`
}

// MetadataConfig selects the cross-module metadata and report cache backend.
type MetadataConfig struct {
	// Backend is none, memory, file, redis or mongo.
	Backend string        `yaml:"backend" env:"BINDGRAPH_METADATA_BACKEND" env-default:"file"`
	Dir     string        `yaml:"dir" env:"BINDGRAPH_METADATA_DIR"`
	TTL     time.Duration `yaml:"ttl" env:"BINDGRAPH_METADATA_TTL" env-default:"0s"`
	// Prefix scopes keys so several projects can share one backend.
	Prefix string `yaml:"prefix" env:"BINDGRAPH_METADATA_PREFIX"`

	RedisAddr     string `yaml:"redisAddr" env:"BINDGRAPH_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redisPassword" env:"BINDGRAPH_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redisDB" env:"BINDGRAPH_REDIS_DB" env-default:"0"`

	MongoURI        string `yaml:"mongoURI" env:"BINDGRAPH_MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase   string `yaml:"mongoDatabase" env:"BINDGRAPH_MONGO_DATABASE" env-default:"bindgraph"`
	MongoCollection string `yaml:"mongoCollection" env:"BINDGRAPH_MONGO_COLLECTION" env-default:"metadata"`
}

// ResolveConfig controls resolution.
type ResolveConfig struct {
	Parallel   bool `yaml:"parallel" env:"BINDGRAPH_PARALLEL"`
	Workers    int  `yaml:"workers" env:"BINDGRAPH_WORKERS" env-default:"0"`
	ShortNames bool `yaml:"shortNames" env:"BINDGRAPH_SHORT_NAMES"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled" env:"BINDGRAPH_METRICS_ENABLED"`
	Namespace      string        `yaml:"namespace" env:"BINDGRAPH_METRICS_NAMESPACE" env-default:"bindgraph"`
	PushgatewayURL string        `yaml:"pushgatewayURL" env:"BINDGRAPH_METRICS_PUSHGATEWAY_URL"`
	JobName        string        `yaml:"jobName" env:"BINDGRAPH_METRICS_JOB_NAME" env-default:"bindgraph"`
	Timeout        time.Duration `yaml:"timeout" env:"BINDGRAPH_METRICS_TIMEOUT" env-default:"10s"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool          `yaml:"enabled" env:"BINDGRAPH_TRACING_ENABLED"`
	Endpoint     string        `yaml:"endpoint" env:"BINDGRAPH_TRACING_ENDPOINT"`
	Insecure     bool          `yaml:"insecure" env:"BINDGRAPH_TRACING_INSECURE"`
	ServiceName  string        `yaml:"serviceName" env:"BINDGRAPH_TRACING_SERVICE_NAME" env-default:"bindgraph"`
	SamplingRate float64       `yaml:"samplingRate" env:"BINDGRAPH_TRACING_SAMPLING_RATE" env-default:"1.0"`
	Timeout      time.Duration `yaml:"timeout" env:"BINDGRAPH_TRACING_TIMEOUT" env-default:"5s"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr" env:"BINDGRAPH_SERVER_ADDR" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" env:"BINDGRAPH_SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"BINDGRAPH_SERVER_WRITE_TIMEOUT" env-default:"60s"`
	// MaxBodyBytes bounds the size of a posted declaration module.
	MaxBodyBytes int64 `yaml:"maxBodyBytes" env:"BINDGRAPH_SERVER_MAX_BODY_BYTES" env-default:"4194304"`
}

var (
	levels   = []string{"debug", "info", "warn", "error"}
	formats  = []string{"text", "json", "logfmt"}
	outputs  = []string{"stderr", "stdout", "file"}
	backends = []string{cache.BackendNone, cache.BackendMemory, cache.BackendFile, cache.BackendRedis, cache.BackendMongo}
)

// Load reads path (when not empty) and the environment, then validates.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInvalidConfig, err, "cannot read configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info", Format: "text", Output: "stderr",
			FilePath: "bindgraph.log", MaxSize: 100, MaxBackups: 3, MaxAge: 7,
		},
		Metadata: MetadataConfig{
			Backend:         cache.BackendFile,
			RedisAddr:       "localhost:6379",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "bindgraph",
			MongoCollection: "metadata",
		},
		Metrics: MetricsConfig{Namespace: "bindgraph", JobName: "bindgraph", Timeout: 10 * time.Second},
		Tracing: TracingConfig{ServiceName: "bindgraph", SamplingRate: 1.0, Timeout: 5 * time.Second},
		Server: ServerConfig{
			Addr: ":8080", ReadTimeout: 15 * time.Second, WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 4 << 20,
		},
	}
}

// Validate rejects unknown enum values and inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %v", field, value, allowed))
		}
	}
	check("log.level", c.Log.Level, levels)
	check("log.format", c.Log.Format, formats)
	check("log.output", c.Log.Output, outputs)
	check("metadata.backend", c.Metadata.Backend, backends)

	if c.Log.Output == "file" && c.Log.FilePath == "" {
		errs = append(errs, errors.New("log.filePath is required when log.output is file"))
	}
	if c.Resolve.Workers < 0 {
		errs = append(errs, errors.New("resolve.workers must not be negative"))
	}
	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			errs = append(errs, errors.New("tracing.endpoint is required when tracing is enabled"))
		}
		if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
			errs = append(errs, fmt.Errorf("tracing.samplingRate must be between 0 and 1, got %g", c.Tracing.SamplingRate))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return bgerrors.Wrap(bgerrors.ErrCodeInvalidConfig, err, "invalid configuration")
	}
	return nil
}

// CacheOptions converts the metadata section for cache.Open.
func (c *Config) CacheOptions() cache.Options {
	m := c.Metadata
	return cache.Options{
		Backend: m.Backend,
		Dir:     m.Dir,
		Redis:   cache.RedisOptions{Addr: m.RedisAddr, Password: m.RedisPassword, DB: m.RedisDB, Prefix: m.Prefix},
		Mongo:   cache.MongoOptions{URI: m.MongoURI, Database: m.MongoDatabase, Collection: m.MongoCollection},
	}
}

// SessionOptions converts the resolve section.
func (c *Config) SessionOptions() session.Options {
	return session.Options{Parallel: c.Resolve.Parallel, Workers: c.Resolve.Workers, ShortNames: c.Resolve.ShortNames}
}

// ObservabilityMetrics converts the metrics section.
func (c *Config) ObservabilityMetrics() observability.MetricsConfig {
	return observability.MetricsConfig{
		Namespace:      c.Metrics.Namespace,
		PushgatewayURL: c.Metrics.PushgatewayURL,
		JobName:        c.Metrics.JobName,
		Timeout:        c.Metrics.Timeout,
	}
}

// ObservabilityTracing converts the tracing section.
func (c *Config) ObservabilityTracing(version string) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:      c.Tracing.Enabled,
		Endpoint:     c.Tracing.Endpoint,
		Insecure:     c.Tracing.Insecure,
		ServiceName:  c.Tracing.ServiceName,
		Version:      version,
		SamplingRate: c.Tracing.SamplingRate,
		Timeout:      c.Tracing.Timeout,
	}
}
