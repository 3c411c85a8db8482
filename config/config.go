package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ByteMirror/highlander/log"
)

const ConfigFileName = "config.json"

// configDirEnv overrides the config directory. Used by tests and by people
// running several differently configured simulators side by side.
const configDirEnv = "HIGHLANDER_CONFIG_DIR"

const (
	FightModeOrdered = "ordered"
	FightModeNaive   = "naive"
)

const (
	defaultYield            = 2 * time.Millisecond
	defaultNaiveLockTimeout = time.Second
	defaultStopGrace        = 5 * time.Second
	defaultRefresh          = 250 * time.Millisecond
)

// GetConfigDir returns the path to the application's configuration directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config home directory: %w", err)
	}
	return filepath.Join(homeDir, ".highlander"), nil
}

// Simulation holds the parameters of one simulation run.
type Simulation struct {
	// Count is the initial population size.
	Count int `json:"count"`
	// InitialHealth is the health every combatant starts with.
	InitialHealth int `json:"initial_health"`
	// Damage is subtracted from the opponent on every fight; the attacker gains half of it.
	Damage int `json:"damage"`
	// FightMode selects the locking strategy, "ordered" or "naive".
	FightMode string `json:"fight_mode"`
	// YieldMs is the pause (ms) a worker takes between loop iterations.
	YieldMs int `json:"yield_ms"`
	// NaiveLockTimeoutMs bounds each lock acquisition of the naive strategy.
	NaiveLockTimeoutMs int `json:"naive_lock_timeout_ms"`
	// StopGraceMs is how long Stop waits for workers before cancelling them.
	StopGraceMs int `json:"stop_grace_ms"`
}

// Upper bounds of the control frame. They also keep N*H and every
// combatant's health far from int64 overflow.
const (
	MaxCount  = 5000
	MaxHealth = 10000
	MaxDamage = 1000
)

// Validate checks the ranges the control frame enforces. It does not resolve
// the fight mode; callers parse it into a strategy.
func (s Simulation) Validate() error {
	if s.Count < 1 || s.Count > MaxCount {
		return fmt.Errorf("count must be between 1 and %d, got %d", MaxCount, s.Count)
	}
	if s.InitialHealth < 1 || s.InitialHealth > MaxHealth {
		return fmt.Errorf("initial health must be between 1 and %d, got %d", MaxHealth, s.InitialHealth)
	}
	if s.Damage < 1 || s.Damage > MaxDamage {
		return fmt.Errorf("damage must be between 1 and %d, got %d", MaxDamage, s.Damage)
	}
	if s.YieldMs < 0 || s.NaiveLockTimeoutMs < 0 || s.StopGraceMs < 0 {
		return fmt.Errorf("timing values must not be negative")
	}
	return nil
}

// Yield returns the inter-iteration pause, falling back to the default when unset.
func (s Simulation) Yield() time.Duration {
	return msOrDefault(s.YieldMs, defaultYield)
}

// NaiveLockTimeout returns the per-lock timeout of the naive strategy.
func (s Simulation) NaiveLockTimeout() time.Duration {
	return msOrDefault(s.NaiveLockTimeoutMs, defaultNaiveLockTimeout)
}

// StopGrace returns the graceful shutdown window.
func (s Simulation) StopGrace() time.Duration {
	return msOrDefault(s.StopGraceMs, defaultStopGrace)
}

// Config represents the application configuration
type Config struct {
	// Simulation is the default run started by the front-ends.
	Simulation Simulation `json:"simulation"`
	// RefreshMs is how often (ms) the TUI and the websocket stream redraw status.
	RefreshMs int `json:"refresh_ms"`
	// ListenAddr is the address the serve command binds to.
	ListenAddr string `json:"listen_addr"`
}

// Refresh returns the status refresh interval.
func (c *Config) Refresh() time.Duration {
	return msOrDefault(c.RefreshMs, defaultRefresh)
}

// DefaultSimulation returns the parameters the control frame opens with.
func DefaultSimulation() Simulation {
	return Simulation{
		Count:              8,
		InitialHealth:      100,
		Damage:             10,
		FightMode:          FightModeOrdered,
		YieldMs:            int(defaultYield / time.Millisecond),
		NaiveLockTimeoutMs: int(defaultNaiveLockTimeout / time.Millisecond),
		StopGraceMs:        int(defaultStopGrace / time.Millisecond),
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Simulation: DefaultSimulation(),
		RefreshMs:  int(defaultRefresh / time.Millisecond),
		ListenAddr: ":8000",
	}
}

// LoadConfig loads the configuration from disk. If it cannot be done, we return the default configuration.
func LoadConfig() *Config {
	configDir, err := GetConfigDir()
	if err != nil {
		log.ErrorLog.Printf("failed to get config directory: %v", err)
		return DefaultConfig()
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create and save default config if file doesn't exist
			defaultCfg := DefaultConfig()
			if saveErr := SaveConfig(defaultCfg); saveErr != nil {
				log.WarningLog.Printf("failed to save default config: %v", saveErr)
			}
			return defaultCfg
		}

		log.WarningLog.Printf("failed to get config file: %v", err)
		return DefaultConfig()
	}

	// Start from the defaults so keys missing from older files keep sane values.
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		log.ErrorLog.Printf("failed to parse config file: %v", err)
		return DefaultConfig()
	}

	return config
}

// SaveConfig writes the configuration to disk atomically.
func SaveConfig(config *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return atomicWriteFile(filepath.Join(configDir, ConfigFileName), data, 0644)
}

// atomicWriteFile writes data next to path and renames it into place, so a
// crash mid-write never leaves a truncated config behind.
func atomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func msOrDefault(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
