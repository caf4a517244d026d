// Package config defines the atelier application configuration.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the top-level atelier configuration. Values come from the YAML
// file first; ATELIER_* environment variables override it.
type Config struct {
	Server   ServerConfig  `json:"server" yaml:"server"`
	Auth     AuthConfig    `json:"auth" yaml:"auth"`
	Team     TeamConfig    `json:"team" yaml:"team"`
	Agents   []AgentConfig `json:"agents" yaml:"agents"`
	DataDir  string        `json:"data_dir" yaml:"data_dir" env:"ATELIER_DATA_DIR"`
	LogLevel string        `json:"log_level" yaml:"log_level" env:"ATELIER_LOG_LEVEL"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" env:"ATELIER_ADDR"` // listen address, e.g., ":9090"
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret" env:"ATELIER_JWT_SECRET"`
	AdminUser string `json:"admin_user" yaml:"admin_user" env:"ATELIER_ADMIN_USER"`
	AdminPass string `json:"admin_pass" yaml:"admin_pass" env:"ATELIER_ADMIN_PASS"` // bcrypt hash
}

// TeamConfig controls the routing loop.
type TeamConfig struct {
	LeaderName            string `json:"leader_name" yaml:"leader_name" env:"ATELIER_LEADER_NAME"`
	AllowBypassTeamLeader bool   `json:"allow_bypass_team_leader" yaml:"allow_bypass_team_leader" env:"ATELIER_ALLOW_BYPASS_TEAM_LEADER"`
	MaxRounds             int    `json:"max_rounds" yaml:"max_rounds" env:"ATELIER_MAX_ROUNDS"`
	MaxMessages           int    `json:"max_messages" yaml:"max_messages" env:"ATELIER_MAX_MESSAGES"`
}

// AgentConfig defines a single agent's configuration.
type AgentConfig struct {
	Name    string   `json:"name" yaml:"name"`
	Profile string   `json:"profile" yaml:"profile"` // e.g., "Product Manager"
	Script  []string `json:"script,omitempty" yaml:"script"` // scripted provider turns (demo/testing)
}

// DefaultConfig returns a config with sensible defaults: a team leader plus
// the canonical software SOP roles.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":9090",
		},
		Auth: AuthConfig{
			AdminUser: "admin",
		},
		Team: TeamConfig{
			LeaderName: "Mike",
			MaxRounds:  20,
		},
		DataDir:  "./data",
		LogLevel: "info",
		Agents: []AgentConfig{
			{Name: "Mike", Profile: "Team Leader"},
			{Name: "Alice", Profile: "Product Manager"},
			{Name: "Bob", Profile: "Architect"},
			{Name: "Eve", Profile: "Project Manager"},
			{Name: "Alex", Profile: "Engineer"},
			{Name: "Edward", Profile: "QA Engineer"},
		},
	}
}

// Load reads a YAML config file, applies environment overrides, and returns
// the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	return cfg, nil
}
