package config

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	U "journeys/util"

	"github.com/getsentry/sentry-go"
	"github.com/gomodule/redigo/redis"
	"github.com/imdario/mergo"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

const (
	DEVELOPMENT = "development"
	PRODUCTION  = "production"

	ENV_PREFIX = "journeys"
)

// Touchpoint source types.
const (
	SourceTypeDisk     = "disk"
	SourceTypeS3       = "s3"
	SourceTypeGCS      = "gcs"
	SourceTypePostgres = "postgres"
	SourceTypeBigQuery = "bigquery"
)

// Malformed record policies.
const (
	RecordPolicyReject = "reject"
	RecordPolicySkip   = "skip"
)

type DBConf struct {
	Host     string `json:"host" yaml:"host" envconfig:"host"`
	Port     int    `json:"port" yaml:"port" envconfig:"port"`
	User     string `json:"user" yaml:"user" envconfig:"user"`
	Name     string `json:"name" yaml:"name" envconfig:"name"`
	Password string `json:"-" yaml:"password" envconfig:"password"`
	Table    string `json:"table" yaml:"table" envconfig:"table"`
	// Column defining arrival order of touchpoints.
	OrderBy string `json:"order_by" yaml:"order_by" envconfig:"order_by"`
}

type BigQueryConf struct {
	ProjectID string `json:"project_id" yaml:"project_id" envconfig:"project_id"`
	Dataset   string `json:"dataset" yaml:"dataset" envconfig:"dataset"`
	Table     string `json:"table" yaml:"table" envconfig:"table"`
	OrderBy   string `json:"order_by" yaml:"order_by" envconfig:"order_by"`
}

type Configuration struct {
	AppName string `json:"app_name" yaml:"app_name" envconfig:"app_name"`
	Env     string `json:"env" yaml:"env" envconfig:"env"`
	Port    int    `json:"port" yaml:"port" envconfig:"port"`

	// Touchpoint source.
	SourceType   string       `json:"source_type" yaml:"source_type" envconfig:"source_type"`
	SourcePath   string       `json:"source_path" yaml:"source_path" envconfig:"source_path"`
	SourceFile   string       `json:"source_file" yaml:"source_file" envconfig:"source_file"`
	SourceBucket string       `json:"source_bucket" yaml:"source_bucket" envconfig:"source_bucket"`
	SheetName    string       `json:"sheet_name" yaml:"sheet_name" envconfig:"sheet_name"`
	AWSRegion    string       `json:"aws_region" yaml:"aws_region" envconfig:"aws_region"`
	DBInfo       DBConf       `json:"db" yaml:"db" envconfig:"db"`
	BigQuery     BigQueryConf `json:"bigquery" yaml:"bigquery" envconfig:"bigquery"`

	RecordPolicy          string `json:"record_policy" yaml:"record_policy" envconfig:"record_policy"`
	Timezone              string `json:"timezone" yaml:"timezone" envconfig:"timezone"`
	NumSessionRoutines    int    `json:"num_session_routines" yaml:"num_session_routines" envconfig:"num_session_routines"`
	RefreshIntervalInSecs int64  `json:"refresh_interval_in_secs" yaml:"refresh_interval_in_secs" envconfig:"refresh_interval_in_secs"`

	RedisHost              string  `json:"redis_host" yaml:"redis_host" envconfig:"redis_host"`
	RedisPort              int     `json:"redis_port" yaml:"redis_port" envconfig:"redis_port"`
	QueryCacheSize         int     `json:"query_cache_size" yaml:"query_cache_size" envconfig:"query_cache_size"`
	QueryCacheExpiryInSecs float64 `json:"query_cache_expiry_in_secs" yaml:"query_cache_expiry_in_secs" envconfig:"query_cache_expiry_in_secs"`

	SentryDSN      string   `json:"-" yaml:"sentry_dsn" envconfig:"sentry_dsn"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" envconfig:"allowed_origins"`
}

type Services struct {
	Redis *redis.Pool
}

var configuration *Configuration
var services *Services

// DefaultConfiguration is applied to every field left empty by flags,
// environment and config file.
func DefaultConfiguration() Configuration {
	return Configuration{
		AppName:      "journeys_server",
		Env:          DEVELOPMENT,
		Port:         3000,
		SourceType:   SourceTypeDisk,
		SourcePath:   "./data",
		SourceFile:   "touchpoints.xlsx",
		AWSRegion:    "us-east-1",
		RecordPolicy: RecordPolicyReject,
		Timezone:     "UTC",
		DBInfo: DBConf{
			Host:    "localhost",
			Port:    5432,
			Table:   "touchpoints",
			OrderBy: "id",
		},
		BigQuery: BigQueryConf{
			Table:   "touchpoints",
			OrderBy: "created_at",
		},
		NumSessionRoutines:     50,
		RedisPort:              6379,
		QueryCacheSize:         256,
		QueryCacheExpiryInSecs: 3600,
	}
}

// LoadConfigFromEnv reads JOURNEYS_* environment variables.
func LoadConfigFromEnv() (*Configuration, error) {
	envConfig := &Configuration{}
	if err := envconfig.Process(ENV_PREFIX, envConfig); err != nil {
		return nil, errors.Wrap(err, "failed to process environment")
	}
	return envConfig, nil
}

// LoadConfigFromFile reads a yaml configuration file.
func LoadConfigFromFile(path string) (*Configuration, error) {
	absPath, _ := filepath.Abs(path)
	logCtx := log.WithField("file", absPath)

	raw, err := ioutil.ReadFile(absPath)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load config.")
		return nil, errors.Wrap(err, "failed to read config file")
	}

	fileConfig := &Configuration{}
	if err := yaml.Unmarshal(raw, fileConfig); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal yaml.")
		return nil, errors.Wrap(err, "failed to unmarshal config file")
	}
	return fileConfig, nil
}

// MergeConfig fills empty fields of config from each layer, in order.
func MergeConfig(config *Configuration, layers ...*Configuration) error {
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if err := mergo.Merge(config, *layer); err != nil {
			return errors.Wrap(err, "failed to merge config")
		}
	}
	return nil
}

func (config *Configuration) Validate() error {
	if config.Port <= 0 {
		return fmt.Errorf("invalid port %d", config.Port)
	}

	switch config.SourceType {
	case SourceTypeDisk, SourceTypeS3, SourceTypeGCS:
		if config.SourceFile == "" {
			return fmt.Errorf("source_file is required for source type %s", config.SourceType)
		}
		if config.SourceType != SourceTypeDisk && config.SourceBucket == "" {
			return fmt.Errorf("source_bucket is required for source type %s", config.SourceType)
		}
	case SourceTypePostgres:
		if config.DBInfo.Name == "" || config.DBInfo.Table == "" {
			return errors.New("db name and table are required for postgres source")
		}
	case SourceTypeBigQuery:
		if config.BigQuery.ProjectID == "" || config.BigQuery.Dataset == "" {
			return errors.New("bigquery project_id and dataset are required for bigquery source")
		}
	default:
		return fmt.Errorf("invalid source type %q", config.SourceType)
	}

	if !U.StringValueIn(config.RecordPolicy, []string{RecordPolicyReject, RecordPolicySkip}) {
		return fmt.Errorf("invalid record policy %q", config.RecordPolicy)
	}

	if _, err := U.GetTimeLocationFor(config.Timezone); err != nil {
		return errors.Wrap(err, "invalid timezone")
	}
	return nil
}

func initLogging() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	if IsDevelopment() {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func initSentryHook(dsn string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: configuration.Env,
		ServerName:  configuration.AppName,
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize sentry")
	}

	log.AddHook(&U.SentryHook{Hub: sentry.CurrentHub()})
	log.Info("Sentry hook initialized.")
	return nil
}

// SafeFlushSentryHook flushes buffered sentry events, if sentry is enabled.
func SafeFlushSentryHook() {
	if configuration == nil || configuration.SentryDSN == "" {
		return
	}
	sentry.Flush(2 * time.Second)
}

func initRedis(host string, port int) {
	if host == "" {
		log.Info("Redis host not configured. Shared query cache disabled.")
		return
	}

	address := fmt.Sprintf("%s:%d", host, port)
	services.Redis = &redis.Pool{
		MaxIdle:     50,
		MaxActive:   300,
		IdleTimeout: 240 * time.Second,
		Wait:        false,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", address,
				redis.DialConnectTimeout(2*time.Second),
				redis.DialReadTimeout(2*time.Second),
				redis.DialWriteTimeout(2*time.Second))
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	log.WithField("address", address).Info("Redis pool initialized.")
}

// Init merges config with environment, config file and defaults, then
// initializes logging and services.
func Init(config *Configuration, configFilePath string) error {
	if config == nil {
		return errors.New("nil configuration")
	}

	envConfig, err := LoadConfigFromEnv()
	if err != nil {
		return err
	}

	var fileConfig *Configuration
	if configFilePath != "" {
		fileConfig, err = LoadConfigFromFile(configFilePath)
		if err != nil {
			return err
		}
	}

	defaultConfig := DefaultConfiguration()
	if err := MergeConfig(config, envConfig, fileConfig, &defaultConfig); err != nil {
		return err
	}
	config.Env = strings.ToLower(config.Env)

	if err := config.Validate(); err != nil {
		return err
	}

	configuration = config
	services = &Services{}
	initLogging()

	if err := initSentryHook(config.SentryDSN); err != nil {
		return err
	}
	initRedis(config.RedisHost, config.RedisPort)

	log.WithFields(log.Fields{"config": configuration}).Info("Config initialized.")
	return nil
}

// SetConfig installs config without touching services. Used by tests.
func SetConfig(config *Configuration) {
	configuration = config
	if services == nil {
		services = &Services{}
	}
}

func GetConfig() *Configuration {
	return configuration
}

func GetServices() *Services {
	return services
}

func IsDevelopment() bool {
	return configuration != nil && configuration.Env == DEVELOPMENT
}

func IsRedisEnabled() bool {
	return services != nil && services.Redis != nil
}

// GetCacheRedisConnection Caller must close the connection.
func GetCacheRedisConnection() redis.Conn {
	return services.Redis.Get()
}

func GetTimeLocation() *time.Location {
	if configuration == nil {
		return time.UTC
	}
	loc, err := U.GetTimeLocationFor(configuration.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func GetRefreshInterval() time.Duration {
	if configuration == nil || configuration.RefreshIntervalInSecs <= 0 {
		return 0
	}
	return time.Duration(configuration.RefreshIntervalInSecs) * time.Second
}
