package config

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"
)

// AgentConfig holds the trading-agent population configuration. The catalog
// is seeded from this file on first start; afterwards the database copy is
// authoritative and this file only supplies new agents.
type AgentConfig struct {
	Global GlobalAgentConfig    `mapstructure:"global"`
	Agents map[string]AgentSeed `mapstructure:"agents"`
}

// GlobalAgentConfig contains settings that apply to all agents unless the
// agent overrides them.
type GlobalAgentConfig struct {
	DefaultMinConfidence    float64 `mapstructure:"default_min_confidence"`
	DefaultMaxOpenPositions int     `mapstructure:"default_max_open_positions"`
	DefaultBroker           string  `mapstructure:"default_broker"`
}

// AgentSeed describes one trading agent: its risk posture, budget, and which
// instrument categories and broker it trades through.
type AgentSeed struct {
	Enabled                   bool     `mapstructure:"enabled"`
	Name                      string   `mapstructure:"name"`
	Category                  string   `mapstructure:"category"` // e.g. "spot", "scalping", "swing"
	RiskLevel                 int      `mapstructure:"risk_level"` // 1 (cautious) .. 5 (aggressive)
	Budget                    float64  `mapstructure:"budget"`
	AllowedCategories         []string `mapstructure:"allowed_categories"` // empty = unconstrained
	MinConfidence             float64  `mapstructure:"min_confidence"`     // 0 = use global default
	MaxOpenPositions          int      `mapstructure:"max_open_positions"` // 0 = use global default
	EnableExpensiveValidation bool     `mapstructure:"enable_expensive_validation"`
	Broker                    string   `mapstructure:"broker"` // "" = use global default
}

// LoadAgentConfig loads the trading-agent population from file
func LoadAgentConfig(configPath string) (*AgentConfig, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("agents")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	// Set defaults
	setAgentDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("PULSETRADER_AGENT")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read agent config: %w", err)
		}
		// No agents file; the defaults below still seed a usable population.
	}

	// Unmarshal into struct
	var cfg AgentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent config: %w", err)
	}

	return &cfg, nil
}

// setAgentDefaults sets default agent configuration values
func setAgentDefaults(v *viper.Viper) {
	// Global defaults
	v.SetDefault("global.default_min_confidence", 60.0)
	v.SetDefault("global.default_max_open_positions", 3)
	v.SetDefault("global.default_broker", "binance")

	// Conservative spot agent: only trades high-confidence signals and asks
	// the validation oracle before every order.
	v.SetDefault("agents.conservative.enabled", true)
	v.SetDefault("agents.conservative.name", "conservative-spot")
	v.SetDefault("agents.conservative.category", "spot")
	v.SetDefault("agents.conservative.risk_level", 2)
	v.SetDefault("agents.conservative.budget", 1000.0)
	v.SetDefault("agents.conservative.min_confidence", 70.0)
	v.SetDefault("agents.conservative.max_open_positions", 2)
	v.SetDefault("agents.conservative.enable_expensive_validation", true)

	// Balanced spot agent
	v.SetDefault("agents.balanced.enabled", true)
	v.SetDefault("agents.balanced.name", "balanced-spot")
	v.SetDefault("agents.balanced.category", "spot")
	v.SetDefault("agents.balanced.risk_level", 3)
	v.SetDefault("agents.balanced.budget", 2500.0)
	v.SetDefault("agents.balanced.enable_expensive_validation", true)

	// Aggressive scalper: light-mode validation, BTC only.
	v.SetDefault("agents.scalper.enabled", false)
	v.SetDefault("agents.scalper.name", "aggressive-scalper")
	v.SetDefault("agents.scalper.category", "scalping")
	v.SetDefault("agents.scalper.risk_level", 5)
	v.SetDefault("agents.scalper.budget", 500.0)
	v.SetDefault("agents.scalper.allowed_categories", []string{"spot"})
	v.SetDefault("agents.scalper.min_confidence", 55.0)
	v.SetDefault("agents.scalper.max_open_positions", 5)
	v.SetDefault("agents.scalper.enable_expensive_validation", false)
}

// applyGlobalDefaults fills an agent's zero-valued fields from the global section.
func (ac *AgentConfig) applyGlobalDefaults(seed AgentSeed) AgentSeed {
	if seed.MinConfidence == 0 {
		seed.MinConfidence = ac.Global.DefaultMinConfidence
	}
	if seed.MaxOpenPositions == 0 {
		seed.MaxOpenPositions = ac.Global.DefaultMaxOpenPositions
	}
	if seed.Broker == "" {
		seed.Broker = ac.Global.DefaultBroker
	}
	return seed
}

// EnabledAgents returns the enabled agents with global defaults applied,
// keyed by their config id, in stable id order.
func (ac *AgentConfig) EnabledAgents() []string {
	var enabled []string
	for id, agent := range ac.Agents {
		if agent.Enabled {
			enabled = append(enabled, id)
		}
	}
	sort.Strings(enabled)
	return enabled
}

// Agent returns the agent seed for id with global defaults applied.
func (ac *AgentConfig) Agent(id string) (AgentSeed, bool) {
	seed, ok := ac.Agents[id]
	if !ok {
		return AgentSeed{}, false
	}
	return ac.applyGlobalDefaults(seed), true
}
