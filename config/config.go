// Package config loads process configuration from a YAML file with an
// optional .env bootstrap for secrets. The loaded Config is the single
// source for the immutable agent card, the peer registry and backend
// selection.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentlink/a2a"
)

// Backend kinds accepted by MemoryConfig.Backend.
const (
	BackendTransient  = "transient"
	BackendPersistent = "persistent"
)

// SkillConfig describes one advertised skill.
type SkillConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	InputModes  []string `yaml:"input_modes"`
	OutputModes []string `yaml:"output_modes"`
}

// AgentConfig describes this agent's identity as advertised on its card.
type AgentConfig struct {
	ID           string        `yaml:"id"` // delegation identity, usually the public base URL
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	Version      string        `yaml:"version"`
	URL          string        `yaml:"url"`
	TaskEndpoint string        `yaml:"task_endpoint"`
	Skills       []SkillConfig `yaml:"skills"`
}

// MemoryConfig selects the conversation backend.
type MemoryConfig struct {
	Backend string `yaml:"backend"` // transient or persistent
	DSN     string `yaml:"dsn"`     // sqlite path for the persistent backend
	TTL     string `yaml:"ttl"`     // sliding session TTL, e.g. "30m"
}

// TTLOrDefault parses the configured TTL, defaulting to 30 minutes.
func (m MemoryConfig) TTLOrDefault() time.Duration {
	if m.TTL == "" {
		return 30 * time.Minute
	}
	d, err := time.ParseDuration(m.TTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// EngineConfig selects and tunes the reasoning engine provider.
type EngineConfig struct {
	Provider     string  `yaml:"provider"` // anthropic, openai or mock
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// MCPConfig connects the local capability invoker to an MCP server
// subprocess. Nil disables MCP-backed capabilities.
type MCPConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig tunes structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Config is the full process configuration.
type Config struct {
	Agent   AgentConfig       `yaml:"agent"`
	Peers   map[string]string `yaml:"peers"` // identity -> base URL
	Memory  MemoryConfig      `yaml:"memory"`
	Engine  EngineConfig      `yaml:"engine"`
	MCP     *MCPConfig        `yaml:"mcp"`
	Server  ServerConfig      `yaml:"server"`
	Logging LoggingConfig     `yaml:"logging"`
}

// Load reads configuration from a YAML file. A .env file next to the
// process, when present, is merged into the environment first so API keys
// never live in the YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // best effort; absence is fine

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration with safe local-development defaults.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:         "agentlink",
			Description:  "A2A task-dispatch agent",
			Version:      "0.1.0",
			TaskEndpoint: a2a.DefaultTaskEndpoint,
		},
		Memory: MemoryConfig{Backend: BackendTransient},
		Engine: EngineConfig{Provider: "mock", Temperature: 0.7},
		Server: ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Memory.Backend {
	case BackendTransient, BackendPersistent:
	default:
		return fmt.Errorf("memory.backend must be %q or %q, got %q", BackendTransient, BackendPersistent, c.Memory.Backend)
	}

	if c.Memory.Backend == BackendPersistent && c.Memory.DSN == "" {
		return fmt.Errorf("memory.dsn is required for the persistent backend")
	}

	switch c.Engine.Provider {
	case "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("engine.provider must be anthropic, openai or mock, got %q", c.Engine.Provider)
	}

	return nil
}

// AgentCard derives the immutable discovery document from configuration.
func (c *Config) AgentCard() a2a.AgentCard {
	skills := make([]a2a.AgentSkill, 0, len(c.Agent.Skills))
	for _, s := range c.Agent.Skills {
		skills = append(skills, a2a.AgentSkill{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			InputModes:  s.InputModes,
			OutputModes: s.OutputModes,
		})
	}

	return a2a.AgentCard{
		Name:         c.Agent.Name,
		Description:  c.Agent.Description,
		URL:          c.Agent.URL,
		Version:      c.Agent.Version,
		Skills:       skills,
		TaskEndpoint: c.Agent.TaskEndpoint,
	}
}
