package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// LadderConfig is the YAML configuration for the escalation ladder.
type LadderConfig struct {
	// Tiers lists tier names weakest first.
	Tiers []string `yaml:"tiers" json:"tiers"`

	// Endpoints maps tier names to their endpoint configuration.
	Endpoints map[string]*EndpointConfig `yaml:"endpoints" json:"endpoints"`
}

// Validate checks the config for internal consistency.
func (c *LadderConfig) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one tier is required")
	}
	seen := make(map[string]bool, len(c.Tiers))
	for _, tier := range c.Tiers {
		if tier == "" {
			return fmt.Errorf("empty tier name")
		}
		if seen[tier] {
			return fmt.Errorf("duplicate tier %q", tier)
		}
		seen[tier] = true
		if _, ok := c.Endpoints[tier]; !ok {
			return fmt.Errorf("tier %q has no endpoint configuration", tier)
		}
	}
	return nil
}

// LoadFromFile loads a ladder from a YAML file.
func LoadFromFile(path string) (*Ladder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ladder config: %w", err)
	}

	var cfg LadderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse ladder config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ladder config: %w", err)
	}

	return NewLadder(cfg.Tiers, cfg.Endpoints), nil
}

// ApplyConfig atomically replaces the ladder contents from a validated config.
// In-flight executions keep their current model name; only future Next and
// Endpoint lookups see the new ladder.
func (l *Ladder) ApplyConfig(cfg *LadderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.tiers = append([]string(nil), cfg.Tiers...)
	l.endpoints = cfg.Endpoints
	return nil
}

// reloadDebounce coalesces the bursts of write events editors produce.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the ladder whenever its config file changes on disk. It
// blocks until ctx is cancelled. A config that fails to parse or validate is
// logged and skipped; the previous ladder stays in effect.
func Watch(ctx context.Context, path string, l *Ladder, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files by rename,
	// which drops a direct file watch.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config dir %s: %w", dir, err)
	}

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
				debounceC = debounce.C
			} else {
				debounce.Reset(reloadDebounce)
			}

		case <-debounceC:
			if err := reload(path, l); err != nil {
				logger.Warn("Ladder config reload failed, keeping previous ladder",
					"path", path,
					"error", err)
				continue
			}
			logger.Info("Ladder config reloaded",
				"path", path,
				"tiers", l.Tiers())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error", "error", err)
		}
	}
}

func reload(path string, l *Ladder) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read ladder config: %w", err)
	}

	var cfg LadderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse ladder config: %w", err)
	}
	return l.ApplyConfig(&cfg)
}
