package server

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/thuhak/pbs-cache/pkg/config"
	"github.com/thuhak/pbs-cache/pkg/defaults"
)

// Config holds query API server configuration
type Config struct {
	// Server identity
	Name    string
	Version string

	// Server configuration
	Address string
	Port    int

	// Basic auth credentials. An empty user disables authentication.
	User     string
	Password string

	// Sites known to the query layer, including the local one.
	Sites []config.Site

	// Rate limiting configuration
	RateLimit      rate.Limit // requests per second
	RateLimitBurst int        // burst size

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewConfig returns a new Config with sensible defaults.
// Use this when you want to customize config programmatically.
func NewConfig() *Config {
	cfg := &Config{
		Name:            "pbs-cache",
		Version:         "undefined",
		Address:         "",
		Port:            8080,
		RateLimit:       100, // 100 req/s
		RateLimitBurst:  200, // burst of 200
		ReadTimeout:     defaults.ServerReadTimeout,
		WriteTimeout:    defaults.ServerWriteTimeout,
		IdleTimeout:     defaults.ServerIdleTimeout,
		ShutdownTimeout: defaults.ServerShutdownTimeout,
	}

	// Override with environment variables if set
	if portStr := os.Getenv("PORT"); portStr != "" {
		var port int
		if _, err := fmt.Sscanf(portStr, "%d", &port); err == nil {
			cfg.Port = port
		}
	}

	// Allow customization of shutdown timeout to match the unit's stop grace period
	if shutdownStr := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); shutdownStr != "" {
		var seconds int
		if _, err := fmt.Sscanf(shutdownStr, "%d", &seconds); err == nil && seconds > 0 {
			cfg.ShutdownTimeout = time.Duration(seconds) * time.Second
		}
	}

	return cfg
}

// FromAppConfig builds a server Config from the application configuration.
func FromAppConfig(app *config.Config, version string) *Config {
	cfg := NewConfig()
	cfg.Version = version
	if app.API.Address != "" {
		cfg.Address = app.API.Address
	}
	if app.API.Port > 0 {
		cfg.Port = app.API.Port
	}
	cfg.User = app.API.User
	cfg.Password = app.API.Password
	cfg.Sites = app.Sites
	return cfg
}
