// Package config handles configuration for the gophauth server, layering
// defaults, an optional JSON file, environment variables and command-line
// flags, in that order of precedence.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the server. It is built once at startup
// and then passed by pointer; nothing mutates it afterwards.
//
// Token secrets, token lifetimes and the default avatar URL have no defaults
// on purpose: the token service and the signup flow refuse to run without
// them and report a configuration error at first use.
type Config struct {
	ServerAddr  string
	Environment string
	LogLevel    string
	CORSOrigin  string

	// DatabaseDSN selects the credential store by scheme:
	// mongodb:// or mongodb+srv://, postgres:// or postgresql://, memory://.
	DatabaseDSN string
	// RedisURL enables the profile cache when set (redis://host:port/db).
	RedisURL        string
	ProfileCacheTTL time.Duration

	AccessTokenSecret            string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenSecret           string
	RefreshTokenValidityDuration time.Duration
	BcryptCost                   int

	DefaultAvatarURL string
	UploadDir        string

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	// S3PublicURL is the base used to build public avatar links; it falls
	// back to S3BaseEndpoint when empty.
	S3PublicURL string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = ":5555"
	c.Environment = "development"
	c.LogLevel = "info"
	c.CORSOrigin = "http://localhost:3000"
	c.DatabaseDSN = "mongodb://localhost:27017/gophauth"
	c.ProfileCacheTTL = 5 * time.Minute
	c.BcryptCost = 10
	c.UploadDir = "./uploads/avatars"
	c.S3Bucket = "avatars"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000"
}

// IsProduction reports whether cookies must carry the Secure flag.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config, then environment variables, then command-line flags.
// Malformed input panics: the process cannot start with a broken config.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseEnv(cfg)
	parseFlags(cfg, os.Args[1:])
	return cfg
}
