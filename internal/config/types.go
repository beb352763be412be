// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net"
	"slices"
	"strconv"
	"time"
)

// AppConfig is the effective gateway configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	DataDir    string          `yaml:"dataDir"`
	LogLevel   string          `yaml:"logLevel"`
	Server     ServerConfig    `yaml:"server"`
	DVR        DVRConfig       `yaml:"dvr"`
	DVRServers []string        `yaml:"dvrServers"`
	CORS       CORSConfig      `yaml:"cors"`
	Auth       AuthConfig      `yaml:"auth"`
	Cache      CacheConfig     `yaml:"cache"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Tracing    TracingConfig   `yaml:"tracing"`
	RateLimit  RateLimitConfig `yaml:"rateLimit"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxHeaderBytes  int           `yaml:"maxHeaderBytes"`
}

// Port returns the numeric port of ListenAddr, or 0 when it cannot be parsed.
func (s ServerConfig) Port() int {
	_, port, err := net.SplitHostPort(s.ListenAddr)
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(port)
	return p
}

// DVRConfig controls how upstream archive servers are probed.
type DVRConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	Retry            int           `yaml:"retry"`
	RetryBackoff     time.Duration `yaml:"retryBackoff"`
	SkipTLSVerify    bool          `yaml:"skipTlsVerify"`
	RateLimit        float64       `yaml:"rateLimit"` // probes per second per server, 0 = unlimited
	RateBurst        int           `yaml:"rateBurst"`
	BatchConcurrency int           `yaml:"batchConcurrency"`
	CircuitThreshold int           `yaml:"circuitThreshold"`
	CircuitCooldown  time.Duration `yaml:"circuitCooldown"`
	StreamTimeout    time.Duration `yaml:"streamTimeout"`
}

type CORSConfig struct {
	Enabled      bool     `yaml:"enabled"`
	AllowOrigins []string `yaml:"allowOrigins"`
	AllowMethods []string `yaml:"allowMethods"`
	AllowHeaders []string `yaml:"allowHeaders"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
	Users     []UserConfig  `yaml:"users"`
}

type UserConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory | redis | badger
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	Path          string        `yaml:"path"` // badger directory, defaults to <dataDir>/cache
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // http | grpc
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// RateLimitConfig limits API requests per client IP.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (c AppConfig) Clone() AppConfig {
	out := c
	out.DVRServers = slices.Clone(c.DVRServers)
	out.CORS.AllowOrigins = slices.Clone(c.CORS.AllowOrigins)
	out.CORS.AllowMethods = slices.Clone(c.CORS.AllowMethods)
	out.CORS.AllowHeaders = slices.Clone(c.CORS.AllowHeaders)
	out.Auth.Users = slices.Clone(c.Auth.Users)
	return out
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  "data",
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // streams can run for a long time
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxHeaderBytes:  1 << 20,
		},
		DVR: DVRConfig{
			Timeout:          10 * time.Second,
			Retry:            3,
			RetryBackoff:     500 * time.Millisecond,
			SkipTLSVerify:    true,
			RateBurst:        10,
			BatchConcurrency: 8,
			CircuitThreshold: 5,
			CircuitCooldown:  30 * time.Second,
			StreamTimeout:    0,
		},
		DVRServers: []string{},
		CORS: CORSConfig{
			Enabled:      true,
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"POST", "GET", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization", "Range"},
		},
		Auth: AuthConfig{
			JWTSecret: DefaultJWTSecret,
			TokenTTL:  24 * time.Hour,
			Users: []UserConfig{
				{Username: "admin", Password: "admin123", Role: RoleAdmin},
				{Username: "user", Password: "user123", Role: RoleUser},
			},
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 0.1,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
	}
}

// DefaultJWTSecret is only acceptable for local testing; Load warns when it is in use.
const DefaultJWTSecret = "dvrvod-secret-key-change-in-production"
