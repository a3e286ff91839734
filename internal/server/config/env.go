package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors the environment variables understood by the server.
// MONGO_URI, PORT and NODE_ENV are accepted as aliases for existing deployments.
type envConfig struct {
	ServerAddr                   string        `env:"SERVER_ADDR"`
	Port                         string        `env:"PORT"`
	Environment                  string        `env:"ENVIRONMENT"`
	NodeEnv                      string        `env:"NODE_ENV"`
	LogLevel                     string        `env:"LOG_LEVEL"`
	CORSOrigin                   string        `env:"CORS_ORIGIN"`
	DatabaseDSN                  string        `env:"DATABASE_DSN"`
	MongoURI                     string        `env:"MONGO_URI"`
	RedisURL                     string        `env:"REDIS_URL"`
	ProfileCacheTTL              time.Duration `env:"PROFILE_CACHE_TTL"`
	AccessTokenSecret            string        `env:"ACCESS_TOKEN_SECRET"`
	AccessTokenValidityDuration  time.Duration `env:"ACCESS_TOKEN_EXPIRY"`
	RefreshTokenSecret           string        `env:"REFRESH_TOKEN_SECRET"`
	RefreshTokenValidityDuration time.Duration `env:"REFRESH_TOKEN_EXPIRY"`
	BcryptCost                   int           `env:"BCRYPT_COST"`
	DefaultAvatarURL             string        `env:"DEFAULT_AVATAR_URL"`
	UploadDir                    string        `env:"UPLOAD_DIR"`
	S3RootUser                   string        `env:"S3_ROOT_USER"`
	S3RootPassword               string        `env:"S3_ROOT_PASSWORD"`
	S3Bucket                     string        `env:"S3_BUCKET"`
	S3Region                     string        `env:"S3_REGION"`
	S3BaseEndpoint               string        `env:"S3_BASE_ENDPOINT"`
	S3PublicURL                  string        `env:"S3_PUBLIC_URL"`
}

// parseDuration accepts Go durations ("15m") and bare integers, which are
// read as seconds.
func parseDuration(v string) (any, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", v, err)
	}
	return d, nil
}

// parseEnv overlays values from environment variables. Unset variables keep
// the current values.
func parseEnv(config *Config) {
	var e envConfig
	err := env.ParseWithOptions(&e, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): parseDuration,
		},
	})
	if err != nil {
		panic(err)
	}

	if e.Port != "" {
		config.ServerAddr = ":" + e.Port
	}
	setString(&config.ServerAddr, e.ServerAddr)
	setString(&config.Environment, e.NodeEnv)
	setString(&config.Environment, e.Environment)
	setString(&config.LogLevel, e.LogLevel)
	setString(&config.CORSOrigin, e.CORSOrigin)
	setString(&config.DatabaseDSN, e.MongoURI)
	setString(&config.DatabaseDSN, e.DatabaseDSN)
	setString(&config.RedisURL, e.RedisURL)
	setString(&config.AccessTokenSecret, e.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, e.RefreshTokenSecret)
	setString(&config.DefaultAvatarURL, e.DefaultAvatarURL)
	setString(&config.UploadDir, e.UploadDir)
	setString(&config.S3RootUser, e.S3RootUser)
	setString(&config.S3RootPassword, e.S3RootPassword)
	setString(&config.S3Bucket, e.S3Bucket)
	setString(&config.S3Region, e.S3Region)
	setString(&config.S3BaseEndpoint, e.S3BaseEndpoint)
	setString(&config.S3PublicURL, e.S3PublicURL)

	if e.ProfileCacheTTL != 0 {
		config.ProfileCacheTTL = e.ProfileCacheTTL
	}
	if e.AccessTokenValidityDuration != 0 {
		config.AccessTokenValidityDuration = e.AccessTokenValidityDuration
	}
	if e.RefreshTokenValidityDuration != 0 {
		config.RefreshTokenValidityDuration = e.RefreshTokenValidityDuration
	}
	if e.BcryptCost != 0 {
		config.BcryptCost = e.BcryptCost
	}
}
