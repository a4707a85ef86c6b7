package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "gravity.cfg.json"

// SimulationConfig holds clock and propagation settings
type SimulationConfig struct {
	Speed           float64       `json:"speed" mapstructure:"speed"`
	TickInterval    time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	RecordEvery     int           `json:"recordEvery" mapstructure:"recordEvery"`
	Tolerance       float64       `json:"tolerance" mapstructure:"tolerance"`
	MaxEccentricity float64       `json:"maxEccentricity" mapstructure:"maxEccentricity"`
	Seed            uint64        `json:"seed" mapstructure:"seed"`
	SessionName     string        `json:"sessionName" mapstructure:"sessionName"`
	Tag             string        `json:"tag" mapstructure:"tag"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
}

// WebSocketConfig holds streaming storage backend settings
type WebSocketConfig struct {
	URL        string        `json:"url" mapstructure:"url"`
	Secret     string        `json:"secret" mapstructure:"secret"`
	AckTimeout time.Duration `json:"ackTimeout" mapstructure:"ackTimeout"`
}

// StorageConfig selects and configures the recording backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// ServerConfig holds the HTTP control server settings
type ServerConfig struct {
	Enabled      bool    `json:"enabled" mapstructure:"enabled"`
	Addr         string  `json:"addr" mapstructure:"addr"`
	CommandRate  float64 `json:"commandRate" mapstructure:"commandRate"`
	CommandBurst int     `json:"commandBurst" mapstructure:"commandBurst"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./gravitylogs")
	viper.SetDefault("console.enabled", true)

	viper.SetDefault("simulation.speed", 0.3)
	viper.SetDefault("simulation.tickInterval", "18ms")
	viper.SetDefault("simulation.recordEvery", 10)
	viper.SetDefault("simulation.tolerance", 1e-10)
	viper.SetDefault("simulation.maxEccentricity", 1.0)
	viper.SetDefault("simulation.seed", 0)
	viper.SetDefault("simulation.sessionName", "gravity")
	viper.SetDefault("simulation.tag", "sandbox")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "gravity")
	viper.SetDefault("db.timescale", false)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "gravity-metrics")
	viper.SetDefault("influx.bucket", "orbits")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/ingest")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.websocket.ackTimeout", "10s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "gravity")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.addr", "127.0.0.1:8090")
	viper.SetDefault("server.commandRate", 20.0)
	viper.SetDefault("server.commandBurst", 40)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimulationConfig returns the simulation settings.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Speed:           viper.GetFloat64("simulation.speed"),
		TickInterval:    viper.GetDuration("simulation.tickInterval"),
		RecordEvery:     viper.GetInt("simulation.recordEvery"),
		Tolerance:       viper.GetFloat64("simulation.tolerance"),
		MaxEccentricity: viper.GetFloat64("simulation.maxEccentricity"),
		Seed:            viper.GetUint64("simulation.seed"),
		SessionName:     viper.GetString("simulation.sessionName"),
		Tag:             viper.GetString("simulation.tag"),
	}
}

// GetStorageConfig returns the recording backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
		},
		WebSocket: WebSocketConfig{
			URL:        viper.GetString("storage.websocket.url"),
			Secret:     viper.GetString("storage.websocket.secret"),
			AckTimeout: viper.GetDuration("storage.websocket.ackTimeout"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetServerConfig returns the HTTP control server settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:      viper.GetBool("server.enabled"),
		Addr:         viper.GetString("server.addr"),
		CommandRate:  viper.GetFloat64("server.commandRate"),
		CommandBurst: viper.GetInt("server.commandBurst"),
	}
}
