// api/config/config.go
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Database      DatabaseConfiguration
	Redis         RedisConfiguration
	Neo4j         Neo4jConfiguration
	Elasticsearch ElasticsearchConfiguration
	Permissions   PermissionsConfiguration
	Audit         AuditConfiguration
	Auth          AuthConfiguration
	RateLimit     RateLimitConfiguration
	Log           LogConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// DatabaseConfiguration selects the relational store that holds the audit
// chain and the grant table.
type DatabaseConfiguration struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
}

// RedisConfiguration stores data for Redis connection. An empty Addr
// disables Redis-backed features.
type RedisConfiguration struct {
	Addr     string
	Password string
	DB       int
}

// Neo4jConfiguration stores data for the graph permission catalog
type Neo4jConfiguration struct {
	URI      string
	Username string
	Password string
}

// ElasticsearchConfiguration stores data for the audit search mirror
type ElasticsearchConfiguration struct {
	URL   string
	Index string
}

type PermissionsConfiguration struct {
	Catalog       string // "gorm", "neo4j" or "static"
	CacheTTL      time.Duration
	LookupTimeout time.Duration
	Seed          bool
}

type AuditConfiguration struct {
	Retention         time.Duration
	ArchiveSchedule   string
	VerifySchedule    string
	VerifyRecentLimit int
}

type AuthConfiguration struct {
	JWTSecret string
	Issuer    string
}

type RateLimitConfiguration struct {
	Requests int
	Window   time.Duration
}

type LogConfiguration struct {
	Dir string
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("hoteltrack")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	config = &Configuration{}
	return viper.Unmarshal(config)
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "file:hoteltrack.db")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("neo4j.uri", "")
	viper.SetDefault("elasticsearch.url", "")
	viper.SetDefault("elasticsearch.index", "audit-entries")
	viper.SetDefault("permissions.catalog", "gorm")
	viper.SetDefault("permissions.cacheTTL", 30*time.Second)
	viper.SetDefault("permissions.lookupTimeout", 2*time.Second)
	viper.SetDefault("permissions.seed", true)
	// seven years
	viper.SetDefault("audit.retention", 7*365*24*time.Hour)
	viper.SetDefault("audit.archiveSchedule", "@daily")
	viper.SetDefault("audit.verifySchedule", "@every 15m")
	viper.SetDefault("audit.verifyRecentLimit", 500)
	// keys without a meaningful default are still registered so that
	// AutomaticEnv overrides reach Unmarshal
	viper.SetDefault("redis.password", "")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "")
	viper.SetDefault("auth.jwtSecret", "")
	viper.SetDefault("auth.issuer", "hoteltrack")
	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.window", time.Minute)
	viper.SetDefault("log.dir", "")
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
