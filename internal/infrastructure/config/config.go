package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Alchemy  AlchemyConfig  `mapstructure:"alchemy"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Neo4J    Neo4JConfig    `mapstructure:"neo4j"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPPort int    `mapstructure:"http_port"`
	Network  string `mapstructure:"network"`
}

// AlchemyConfig represents the upstream data API configuration
type AlchemyConfig struct {
	RPCURL             string        `mapstructure:"rpc_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ReceiptConcurrency int           `mapstructure:"receipt_concurrency"`
	MaxTransferPages   int           `mapstructure:"max_transfer_pages"`
}

// AnalysisConfig carries the tunable heuristic thresholds. The clustering
// values in particular are tunable parameters, not canonical constants.
type AnalysisConfig struct {
	LargeTransferSigma   float64       `mapstructure:"large_transfer_sigma"`
	FrequencyCV          float64       `mapstructure:"frequency_cv"`
	CashOutMultiple      float64       `mapstructure:"cash_out_multiple"`
	LowEfficiencyPercent float64       `mapstructure:"low_efficiency_percent"`
	HighGasUnits         uint64        `mapstructure:"high_gas_units"`
	HighGasShare         float64       `mapstructure:"high_gas_share"`
	HourlyRatio          float64       `mapstructure:"hourly_ratio"`
	ClusterWindow        time.Duration `mapstructure:"cluster_window"`
	MinCoOccurrences     int           `mapstructure:"min_co_occurrences"`
	MinSharedBlocks      int           `mapstructure:"min_shared_blocks"`
	BehaviorSimilarity   float64       `mapstructure:"behavior_similarity"`
}

// NATSConfig represents NATS configuration for anomaly alert publishing
type NATSConfig struct {
	URL               string        `mapstructure:"url"`
	StreamName        string        `mapstructure:"stream_name"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	Enabled           bool          `mapstructure:"enabled"`
}

// Neo4JConfig represents Neo4J configuration for graph persistence
type Neo4JConfig struct {
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	ConnectTimeout               time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
	Enabled                      bool          `mapstructure:"enabled"`
}

// StorageConfig represents the saved-search store configuration
type StorageConfig struct {
	Path          string `mapstructure:"path"`
	MaxSearches   int    `mapstructure:"max_searches"`
	SchemaVersion int    `mapstructure:"schema_version"`
}

// Load loads configuration from environment variables and files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/eoa-transfer-analyzer")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.http_port", 8080)
	viper.SetDefault("app.network", "ethereum")

	// Alchemy defaults
	viper.SetDefault("alchemy.rpc_url", "https://eth-mainnet.g.alchemy.com/v2/demo")
	viper.SetDefault("alchemy.request_timeout", "15s")
	viper.SetDefault("alchemy.receipt_concurrency", 10)
	viper.SetDefault("alchemy.max_transfer_pages", 10)

	// Analysis thresholds
	viper.SetDefault("analysis.large_transfer_sigma", 2.0)
	viper.SetDefault("analysis.frequency_cv", 1.5)
	viper.SetDefault("analysis.cash_out_multiple", 5.0)
	viper.SetDefault("analysis.low_efficiency_percent", 80.0)
	viper.SetDefault("analysis.high_gas_units", 100000)
	viper.SetDefault("analysis.high_gas_share", 0.3)
	viper.SetDefault("analysis.hourly_ratio", 1.3)
	viper.SetDefault("analysis.cluster_window", "1h")
	viper.SetDefault("analysis.min_co_occurrences", 3)
	viper.SetDefault("analysis.min_shared_blocks", 2)
	viper.SetDefault("analysis.behavior_similarity", 0.8)

	// NATS defaults
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.stream_name", "ANOMALY_ALERTS")
	viper.SetDefault("nats.subject_prefix", "alerts")
	viper.SetDefault("nats.connect_timeout", "10s")
	viper.SetDefault("nats.reconnect_attempts", 5)
	viper.SetDefault("nats.reconnect_delay", "2s")
	viper.SetDefault("nats.enabled", false)

	// Neo4J defaults
	viper.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.connect_timeout", "10s")
	viper.SetDefault("neo4j.max_connection_pool_size", 50)
	viper.SetDefault("neo4j.connection_acquisition_timeout", "60s")
	viper.SetDefault("neo4j.enabled", false)

	// Storage defaults
	viper.SetDefault("storage.path", "./data/searches.json")
	viper.SetDefault("storage.max_searches", 20)
	viper.SetDefault("storage.schema_version", 1)

	// Bind env for the upstream API URL
	viper.BindEnv("alchemy.rpc_url", "ALCHEMY_RPC_URL")
}
