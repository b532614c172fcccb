package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendElasticsearch = "elasticsearch"
	BackendOpenSearch    = "opensearch"
)

type ElasticConfig struct {
	Addresses          []string `mapstructure:"addresses"`
	Username           string   `mapstructure:"username"`
	Password           string   `mapstructure:"password"`
	APIKey             string   `mapstructure:"api_key"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
}

// TransportConfig mirrors the options of the indexing transport.
type TransportConfig struct {
	Level                 string        `mapstructure:"level"`
	Index                 string        `mapstructure:"index"`
	IndexPrefix           string        `mapstructure:"indexPrefix"`
	IndexSuffixPattern    string        `mapstructure:"indexSuffixPattern"`
	MessageType           string        `mapstructure:"messageType"`
	Transformer           string        `mapstructure:"transformer"`
	EnsureMappingTemplate bool          `mapstructure:"ensureMappingTemplate"`
	MappingTemplate       string        `mapstructure:"mappingTemplate"`
	FlushInterval         time.Duration `mapstructure:"flushInterval"`
	FlushBytes            int           `mapstructure:"flushBytes"`
	NumWorkers            int           `mapstructure:"numWorkers"`
	WaitForActiveShards   string        `mapstructure:"waitForActiveShards"`
	Pipeline              string        `mapstructure:"pipeline"`
	// EnqueueTimeout bounds how long a log call waits for room in the bulk
	// indexer queue before the document is dropped.
	EnqueueTimeout time.Duration `mapstructure:"enqueueTimeout"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type Config struct {
	Backend   string          `mapstructure:"backend"`
	Elastic   ElasticConfig   `mapstructure:"elastic"`
	Transport TransportConfig `mapstructure:"transport"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendElasticsearch)
	v.SetDefault("elastic.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elastic.username", "")
	v.SetDefault("elastic.password", "")
	v.SetDefault("elastic.api_key", "")
	v.SetDefault("elastic.insecure_skip_verify", false)

	v.SetDefault("transport.level", "info")
	v.SetDefault("transport.index", "")
	v.SetDefault("transport.indexPrefix", "logs")
	v.SetDefault("transport.indexSuffixPattern", "YYYY.MM.DD")
	v.SetDefault("transport.messageType", "log")
	v.SetDefault("transport.transformer", "")
	v.SetDefault("transport.ensureMappingTemplate", true)
	v.SetDefault("transport.mappingTemplate", "")
	v.SetDefault("transport.flushInterval", 2*time.Second)
	v.SetDefault("transport.flushBytes", 0)
	v.SetDefault("transport.numWorkers", 0)
	v.SetDefault("transport.waitForActiveShards", "1")
	v.SetDefault("transport.pipeline", "")
	v.SetDefault("transport.enqueueTimeout", 100*time.Millisecond)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("http.address", ":8080")
}

// LoadConfig reads config.json from the working directory, or the file at
// path when one is given. Every key can be overridden with an ELOGGER_
// environment variable, e.g. ELOGGER_TRANSPORT_PIPELINE.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ELOGGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no config.json: run on defaults and environment
	}

	var appConfiguration Config
	if err := v.Unmarshal(&appConfiguration); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := appConfiguration.Validate(); err != nil {
		return nil, err
	}
	return &appConfiguration, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendElasticsearch, BackendOpenSearch:
	default:
		return fmt.Errorf("invalid backend: %q", c.Backend)
	}
	if len(c.Elastic.Addresses) == 0 {
		return errors.New("elastic.addresses must not be empty")
	}
	if c.Transport.Index == "" && c.Transport.IndexPrefix == "" {
		return errors.New("one of transport.index or transport.indexPrefix is required")
	}
	if c.Transport.FlushInterval < 0 {
		return fmt.Errorf("transport.flushInterval must not be negative: %s", c.Transport.FlushInterval)
	}
	if c.Transport.EnqueueTimeout < 0 {
		return fmt.Errorf("transport.enqueueTimeout must not be negative: %s", c.Transport.EnqueueTimeout)
	}
	return nil
}
