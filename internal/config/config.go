package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	Kafka    KafkaConfig
	Casdoor  CasdoorConfig
	Registry RegistryConfig
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// CasdoorConfig enables JWT caller identities. An empty Endpoint disables it.
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != ""
}

type RegistryConfig struct {
	// Address is the hex registry identity. When empty it is derived from Name.
	Address            string
	Name               string
	RegistrationPolicy string
	LedgerQueueSize    int
}

// LoadConfig reads an optional .env file (or the file named by ENV_FILE)
// followed by the process environment.
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat %s: %w", envFile, err)
	}

	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("events_topic", "lms.registry.events")
	v.SetDefault("casdoor_endpoint", "")
	v.SetDefault("casdoor_client_id", "")
	v.SetDefault("casdoor_client_secret", "")
	v.SetDefault("casdoor_cert", "")
	v.SetDefault("casdoor_organization", "")
	v.SetDefault("casdoor_application", "")
	v.SetDefault("registry_address", "")
	v.SetDefault("registry_name", "lms-registry")
	v.SetDefault("registration_policy", "lock-owners")
	v.SetDefault("ledger_queue_size", 64)

	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	level, err := ParseLogLevel(v.GetString("log_level"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		Environment: v.GetString("environment"),
		LogLevel:    level,
		DatabaseURL: v.GetString("database_url"),
		RedisURL:    v.GetString("redis_url"),
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("kafka_brokers")),
			Topic:   v.GetString("events_topic"),
		},
		Casdoor: CasdoorConfig{
			Endpoint:     v.GetString("casdoor_endpoint"),
			ClientID:     v.GetString("casdoor_client_id"),
			ClientSecret: v.GetString("casdoor_client_secret"),
			Cert:         v.GetString("casdoor_cert"),
			Organization: v.GetString("casdoor_organization"),
			Application:  v.GetString("casdoor_application"),
		},
		Registry: RegistryConfig{
			Address:            v.GetString("registry_address"),
			Name:               v.GetString("registry_name"),
			RegistrationPolicy: v.GetString("registration_policy"),
			LedgerQueueSize:    v.GetInt("ledger_queue_size"),
		},
	}

	if cfg.Registry.Address == "" && cfg.Registry.Name == "" {
		return nil, fmt.Errorf("one of REGISTRY_ADDRESS or REGISTRY_NAME is required")
	}
	if cfg.Registry.LedgerQueueSize < 0 {
		return nil, fmt.Errorf("LEDGER_QUEUE_SIZE cannot be negative")
	}
	return cfg, nil
}

func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
