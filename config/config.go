// Package config holds the tunable parameters listed in spec.md §6, a
// fluent Builder for constructing them the way the teacher's consensus
// config package does, and a Verify step that collects every validation
// failure instead of stopping at the first.
package config

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/swarmcore/governance/utils/wrappers"
)

// Config holds every governance-core tunable.
type Config struct {
	BaseAuthorityDuration   time.Duration
	HoldDriftThreshold      time.Duration
	BeliefDivergenceThresh  float64
	ConfidenceDriftThresh   float64
	StaleCommsThreshold     time.Duration
	HeartbeatInterval       time.Duration
	PeerTimeout             time.Duration
	MaxPeers                int
	DefaultTTL              int
	MaxSeenSignals          int
	MinReputationForVote    float64
	NewPeerInfluence        float64
	PatternBundleThreshold  int
	MinSuccessRateForBundle float64
}

// wireConfig is Config's YAML wire shape: durations are expressed as plain
// millisecond integers, matching spec.md §6's `_ms`-suffixed key names,
// rather than Go's time.Duration nanosecond string/int encoding.
type wireConfig struct {
	BaseAuthorityDurationMS  int64   `yaml:"base_authority_duration_ms"`
	HoldDriftThresholdMS     int64   `yaml:"hold_drift_threshold_ms"`
	BeliefDivergenceThresh   float64 `yaml:"belief_divergence_threshold"`
	ConfidenceDriftThresh    float64 `yaml:"confidence_drift_threshold"`
	StaleCommsThresholdMS    int64   `yaml:"stale_comms_threshold_ms"`
	HeartbeatIntervalMS      int64   `yaml:"heartbeat_interval_ms"`
	PeerTimeoutMS            int64   `yaml:"peer_timeout_ms"`
	MaxPeers                 int     `yaml:"max_peers"`
	DefaultTTL               int     `yaml:"default_ttl"`
	MaxSeenSignals           int     `yaml:"max_seen_signals"`
	MinReputationForVote     float64 `yaml:"min_reputation_for_vote"`
	NewPeerInfluence         float64 `yaml:"new_peer_influence"`
	PatternBundleThreshold   int     `yaml:"pattern_bundle_threshold"`
	MinSuccessRateForBundle  float64 `yaml:"min_success_rate_for_bundle"`
}

func (c Config) toWire() wireConfig {
	return wireConfig{
		BaseAuthorityDurationMS: c.BaseAuthorityDuration.Milliseconds(),
		HoldDriftThresholdMS:    c.HoldDriftThreshold.Milliseconds(),
		BeliefDivergenceThresh:  c.BeliefDivergenceThresh,
		ConfidenceDriftThresh:   c.ConfidenceDriftThresh,
		StaleCommsThresholdMS:   c.StaleCommsThreshold.Milliseconds(),
		HeartbeatIntervalMS:     c.HeartbeatInterval.Milliseconds(),
		PeerTimeoutMS:           c.PeerTimeout.Milliseconds(),
		MaxPeers:                c.MaxPeers,
		DefaultTTL:              c.DefaultTTL,
		MaxSeenSignals:          c.MaxSeenSignals,
		MinReputationForVote:    c.MinReputationForVote,
		NewPeerInfluence:        c.NewPeerInfluence,
		PatternBundleThreshold:  c.PatternBundleThreshold,
		MinSuccessRateForBundle: c.MinSuccessRateForBundle,
	}
}

func (w wireConfig) toConfig() Config {
	return Config{
		BaseAuthorityDuration:   time.Duration(w.BaseAuthorityDurationMS) * time.Millisecond,
		HoldDriftThreshold:      time.Duration(w.HoldDriftThresholdMS) * time.Millisecond,
		BeliefDivergenceThresh:  w.BeliefDivergenceThresh,
		ConfidenceDriftThresh:   w.ConfidenceDriftThresh,
		StaleCommsThreshold:     time.Duration(w.StaleCommsThresholdMS) * time.Millisecond,
		HeartbeatInterval:       time.Duration(w.HeartbeatIntervalMS) * time.Millisecond,
		PeerTimeout:             time.Duration(w.PeerTimeoutMS) * time.Millisecond,
		MaxPeers:                w.MaxPeers,
		DefaultTTL:              w.DefaultTTL,
		MaxSeenSignals:          w.MaxSeenSignals,
		MinReputationForVote:    w.MinReputationForVote,
		NewPeerInfluence:        w.NewPeerInfluence,
		PatternBundleThreshold:  w.PatternBundleThreshold,
		MinSuccessRateForBundle: w.MinSuccessRateForBundle,
	}
}

// LoadYAML reads a Config from r's YAML document and validates it.
func LoadYAML(r io.Reader) (Config, error) {
	var w wireConfig
	if err := yaml.NewDecoder(r).Decode(&w); err != nil {
		return Config{}, err
	}
	cfg := w.toConfig()
	if err := Verify(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveYAML writes cfg to w as YAML.
func (c Config) SaveYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(c.toWire())
}

// Default returns the spec's default parameter set.
func Default() Config {
	return Config{
		BaseAuthorityDuration:   60_000 * time.Millisecond,
		HoldDriftThreshold:      3_000 * time.Millisecond,
		BeliefDivergenceThresh:  0.6,
		ConfidenceDriftThresh:   0.3,
		StaleCommsThreshold:     5_000 * time.Millisecond,
		HeartbeatInterval:       1_000 * time.Millisecond,
		PeerTimeout:             4_000 * time.Millisecond,
		MaxPeers:                32,
		DefaultTTL:              8,
		MaxSeenSignals:          50_000,
		MinReputationForVote:    0.2,
		NewPeerInfluence:        0.1,
		PatternBundleThreshold:  5,
		MinSuccessRateForBundle: 0.6,
	}
}

// Builder provides a fluent interface for constructing a Config, matching
// the teacher's config.Builder pattern.
type Builder struct {
	cfg Config
	err error
}

// NewBuilder returns a Builder seeded with Default().
func NewBuilder() *Builder {
	return &Builder{cfg: Default()}
}

func (b *Builder) WithBaseAuthorityDuration(d time.Duration) *Builder {
	if b.err != nil {
		return b
	}
	if d <= 0 {
		b.err = fmt.Errorf("base authority duration must be positive, got %s", d)
		return b
	}
	b.cfg.BaseAuthorityDuration = d
	return b
}

func (b *Builder) WithDriftThresholds(hold, staleComms time.Duration, confidence, divergence float64) *Builder {
	if b.err != nil {
		return b
	}
	b.cfg.HoldDriftThreshold = hold
	b.cfg.StaleCommsThreshold = staleComms
	b.cfg.ConfidenceDriftThresh = confidence
	b.cfg.BeliefDivergenceThresh = divergence
	return b
}

func (b *Builder) WithMembership(heartbeat, peerTimeout time.Duration, maxPeers int) *Builder {
	if b.err != nil {
		return b
	}
	if maxPeers < 1 {
		b.err = fmt.Errorf("max peers must be at least 1, got %d", maxPeers)
		return b
	}
	b.cfg.HeartbeatInterval = heartbeat
	b.cfg.PeerTimeout = peerTimeout
	b.cfg.MaxPeers = maxPeers
	return b
}

func (b *Builder) WithPropagation(defaultTTL, maxSeenSignals int) *Builder {
	if b.err != nil {
		return b
	}
	if defaultTTL < 1 {
		b.err = fmt.Errorf("default TTL must be at least 1, got %d", defaultTTL)
		return b
	}
	b.cfg.DefaultTTL = defaultTTL
	b.cfg.MaxSeenSignals = maxSeenSignals
	return b
}

func (b *Builder) WithReputation(minVote, newPeerInfluence float64) *Builder {
	if b.err != nil {
		return b
	}
	b.cfg.MinReputationForVote = minVote
	b.cfg.NewPeerInfluence = newPeerInfluence
	return b
}

func (b *Builder) WithPatternBundle(threshold int, minRate float64) *Builder {
	if b.err != nil {
		return b
	}
	b.cfg.PatternBundleThreshold = threshold
	b.cfg.MinSuccessRateForBundle = minRate
	return b
}

// Build validates and returns the final Config.
func (b *Builder) Build() (Config, error) {
	if b.err != nil {
		return Config{}, b.err
	}
	if err := Verify(b.cfg); err != nil {
		return Config{}, err
	}
	return b.cfg, nil
}

// Verify collects every invalid field in cfg instead of stopping at the
// first, mirroring the teacher's validator.
func Verify(cfg Config) error {
	var errs wrappers.Errs

	if cfg.BaseAuthorityDuration <= 0 {
		errs.Add(fmt.Errorf("base_authority_duration_ms must be positive, got %s", cfg.BaseAuthorityDuration))
	}
	if cfg.HoldDriftThreshold <= 0 {
		errs.Add(fmt.Errorf("hold_drift_threshold_ms must be positive, got %s", cfg.HoldDriftThreshold))
	}
	if cfg.StaleCommsThreshold <= 0 {
		errs.Add(fmt.Errorf("stale_comms_threshold_ms must be positive, got %s", cfg.StaleCommsThreshold))
	}
	if cfg.BeliefDivergenceThresh < 0 || cfg.BeliefDivergenceThresh > 1 {
		errs.Add(fmt.Errorf("belief_divergence_threshold must be in [0,1], got %v", cfg.BeliefDivergenceThresh))
	}
	if cfg.ConfidenceDriftThresh < 0 || cfg.ConfidenceDriftThresh > 1 {
		errs.Add(fmt.Errorf("confidence_drift_threshold must be in [0,1], got %v", cfg.ConfidenceDriftThresh))
	}
	if cfg.HeartbeatInterval <= 0 {
		errs.Add(fmt.Errorf("heartbeat_interval_ms must be positive, got %s", cfg.HeartbeatInterval))
	}
	if cfg.PeerTimeout <= cfg.HeartbeatInterval {
		errs.Add(fmt.Errorf("peer_timeout_ms must exceed heartbeat_interval_ms, got %s <= %s", cfg.PeerTimeout, cfg.HeartbeatInterval))
	}
	if cfg.MaxPeers < 1 {
		errs.Add(fmt.Errorf("max_peers must be at least 1, got %d", cfg.MaxPeers))
	}
	if cfg.DefaultTTL < 1 {
		errs.Add(fmt.Errorf("default_ttl must be at least 1, got %d", cfg.DefaultTTL))
	}
	if cfg.MaxSeenSignals < 1 {
		errs.Add(fmt.Errorf("max_seen_signals must be at least 1, got %d", cfg.MaxSeenSignals))
	}
	if cfg.MinReputationForVote < 0 || cfg.MinReputationForVote > 1 {
		errs.Add(fmt.Errorf("min_reputation_for_vote must be in [0,1], got %v", cfg.MinReputationForVote))
	}
	if cfg.NewPeerInfluence < 0 || cfg.NewPeerInfluence > 1 {
		errs.Add(fmt.Errorf("new_peer_influence must be in [0,1], got %v", cfg.NewPeerInfluence))
	}
	if cfg.PatternBundleThreshold < 1 {
		errs.Add(fmt.Errorf("pattern_bundle_threshold must be at least 1, got %d", cfg.PatternBundleThreshold))
	}
	if cfg.MinSuccessRateForBundle < 0 || cfg.MinSuccessRateForBundle > 1 {
		errs.Add(fmt.Errorf("min_success_rate_for_bundle must be in [0,1], got %v", cfg.MinSuccessRateForBundle))
	}

	return errs.Err()
}
