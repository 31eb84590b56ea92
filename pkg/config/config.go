package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the daemon looks for its configuration when no
// --config flag is given.
const DefaultPath = "/etc/pbs_cache.yaml"

// Config is the top-level pbs-cache configuration, loaded from YAML.
type Config struct {
	// Location is the site identifier this instance samples. The
	// published document key is derived from it ("pbs_<location>").
	Location string `yaml:"location"`

	// Interval is the wait between sampling passes.
	Interval time.Duration `yaml:"interval"`

	// PBSBinDir is the directory holding the qstat and pbsnodes binaries.
	PBSBinDir string `yaml:"pbs_bin_dir"`

	// Sites lists every site known to the query API, including this one.
	Sites []Site `yaml:"site"`

	// Stores lists the destination document stores. The first entry is
	// the primary; a pass is only considered published if the primary
	// write succeeds.
	Stores []StoreConfig `yaml:"redis"`

	// API configures the HTTP query layer.
	API APIConfig `yaml:"api"`

	// Directory configures the LDAP user/group lookups.
	Directory DirectoryConfig `yaml:"ldap"`

	// AppDir is the directory of application descriptors published
	// under the "app" document key.
	AppDir string `yaml:"app_dir"`
}

// Site identifies one HPC site served by the query API.
type Site struct {
	Location string `yaml:"location"`
	Comment  string `yaml:"comment,omitempty"`
}

// StoreConfig describes one RedisJSON destination.
type StoreConfig struct {
	Name     string `yaml:"name"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// APIConfig holds the HTTP query layer settings.
type APIConfig struct {
	Address  string `yaml:"address,omitempty"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// DirectoryConfig holds the LDAP directory settings.
type DirectoryConfig struct {
	URL      string `yaml:"url"`
	BindDN   string `yaml:"bind_dn"`
	Password string `yaml:"password"`
	BaseDN   string `yaml:"base_dn"`
	// Group is the posix group gating API user visibility.
	Group string `yaml:"group"`
}

// Load reads and validates the configuration at path, applying defaults
// and environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Interval:  30 * time.Second,
		PBSBinDir: "/opt/pbs/bin",
		API: APIConfig{
			Port: 8080,
		},
		Directory: DirectoryConfig{
			Group: "hpc",
		},
		AppDir: "/etc/app.d",
	}
}

// applyEnv overrides select settings from the environment.
func (c *Config) applyEnv() {
	if portStr := os.Getenv("PORT"); portStr != "" {
		var port int
		if _, err := fmt.Sscanf(portStr, "%d", &port); err == nil {
			c.API.Port = port
		}
	}
	if loc := os.Getenv("PBSCACHE_LOCATION"); loc != "" {
		c.Location = loc
	}
	if pw := os.Getenv("PBSCACHE_REDIS_PASSWORD"); pw != "" {
		for i := range c.Stores {
			c.Stores[i].Password = pw
		}
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.Location == "" {
		return fmt.Errorf("location is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if len(c.Stores) == 0 {
		return fmt.Errorf("at least one redis destination is required")
	}
	for i, s := range c.Stores {
		if s.Addr == "" {
			return fmt.Errorf("redis destination %d has no addr", i)
		}
	}
	return nil
}

// HasSite reports whether location is a configured site.
func (c *Config) HasSite(location string) bool {
	for _, s := range c.Sites {
		if s.Location == location {
			return true
		}
	}
	return false
}
