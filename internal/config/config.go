// Package config provides configuration management for the reasoner.
//
// Configuration can be loaded from multiple sources (in order of
// precedence):
// 1. Environment variables (highest priority)
// 2. Configuration file (YAML)
// 3. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in the programmatic set_config contract.
type Config struct {
	// Reasoning tunables.
	EvidentialHorizon   float64 `yaml:"evidential_horizon"`
	ProjectionDecay     float64 `yaml:"projection_decay"`
	EventBeliefDistance int     `yaml:"event_belief_distance"`
	MaxSequenceLen      int     `yaml:"max_sequence_len"`
	MaxSequenceTimediff int     `yaml:"max_sequence_timediff"`
	DecisionThreshold   float64 `yaml:"decision_threshold"`
	QuestionPriming     float64 `yaml:"question_priming"`
	AnticipationConfidence float64 `yaml:"anticipation_confidence"`

	// Motor babbling.
	MotorBabblingEnabled              bool    `yaml:"motor_babbling"`
	MotorBabblingChance                float64 `yaml:"motor_babbling_chance"`
	MotorBabblingSuppressionThreshold float64 `yaml:"motor_babbling_suppression_threshold"`

	// Resource bounds.
	ConceptsMax            int `yaml:"concepts_max"`
	CyclingBeliefEventsMax int `yaml:"cycling_belief_events_max"`
	CyclingGoalEventsMax   int `yaml:"cycling_goal_events_max"`
	OperationsMax          int `yaml:"operations_max"`
	ConceptDurability      float64 `yaml:"concept_durability"`
	EventDurability        float64 `yaml:"event_durability"`

	// Open-question flag (spec §9.1): forward chaining scans tables 0..10
	// when true, matching the decision maker's procedural-only 1..10 scope
	// only when false.
	ForwardChainAllTables bool `yaml:"forward_chain_all_tables"`

	// Open-question flag (spec §9.4): run the optional variable-
	// introduction/generalization pass on newly mined implications.
	VariableIntroduction bool `yaml:"variable_introduction"`

	// RNG and diagnostics.
	Seed  int64 `yaml:"seed"`
	Volume int  `yaml:"volume"`
	Debug  bool `yaml:"debug"`

	// Mutable cycle state exposed through set_config (current_time,
	// stamp_id) per spec §6; defaults to zero and is normally driven by
	// the NAR instance, not the static config.
	CurrentTime int `yaml:"current_time"`
	StampID     int `yaml:"stamp_id"`
}

// Default returns the configuration with every constant from spec.md §3-5.
func Default() *Config {
	return &Config{
		EvidentialHorizon:      1.0,
		ProjectionDecay:        0.8,
		EventBeliefDistance:    20,
		MaxSequenceLen:         3,
		MaxSequenceTimediff:    20,
		DecisionThreshold:      0.501,
		QuestionPriming:        0.1,
		AnticipationConfidence: 0.01,

		MotorBabblingEnabled:               false,
		MotorBabblingChance:                0.2,
		MotorBabblingSuppressionThreshold:  0.55,

		ConceptsMax:            4096,
		CyclingBeliefEventsMax: 40,
		CyclingGoalEventsMax:   400,
		OperationsMax:          10,
		ConceptDurability:      0.9,
		EventDurability:        0.9999,

		ForwardChainAllTables: true,
		VariableIntroduction:  false,

		Seed:   0,
		Volume: 0,
		Debug:  false,
	}
}

// FromFile loads a YAML configuration file layered over Default, then
// applies FromEnv overrides on top.
func FromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// FromEnv returns Default with environment overrides applied and validated.
func FromEnv() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides cfg's fields from ONA_<FIELD> environment variables.
func (c *Config) applyEnv() {
	if v, ok := envFloat("ONA_EVIDENTIAL_HORIZON"); ok {
		c.EvidentialHorizon = v
	}
	if v, ok := envFloat("ONA_PROJECTION_DECAY"); ok {
		c.ProjectionDecay = v
	}
	if v, ok := envInt("ONA_EVENT_BELIEF_DISTANCE"); ok {
		c.EventBeliefDistance = v
	}
	if v, ok := envInt("ONA_MAX_SEQUENCE_LEN"); ok {
		c.MaxSequenceLen = v
	}
	if v, ok := envInt("ONA_MAX_SEQUENCE_TIMEDIFF"); ok {
		c.MaxSequenceTimediff = v
	}
	if v, ok := envFloat("ONA_DECISION_THRESHOLD"); ok {
		c.DecisionThreshold = v
	}
	if v, ok := envFloat("ONA_QUESTION_PRIMING"); ok {
		c.QuestionPriming = v
	}
	if v, ok := envFloat("ONA_ANTICIPATION_CONFIDENCE"); ok {
		c.AnticipationConfidence = v
	}
	if v, ok := envBool("ONA_MOTOR_BABBLING"); ok {
		c.MotorBabblingEnabled = v
	}
	if v, ok := envFloat("ONA_MOTOR_BABBLING_CHANCE"); ok {
		c.MotorBabblingChance = v
	}
	if v, ok := envInt("ONA_CONCEPTS_MAX"); ok {
		c.ConceptsMax = v
	}
	if v, ok := envInt("ONA_CYCLING_BELIEF_EVENTS_MAX"); ok {
		c.CyclingBeliefEventsMax = v
	}
	if v, ok := envInt("ONA_CYCLING_GOAL_EVENTS_MAX"); ok {
		c.CyclingGoalEventsMax = v
	}
	if v, ok := envInt64("ONA_SEED"); ok {
		c.Seed = v
	}
	if v, ok := envInt("ONA_VOLUME"); ok {
		c.Volume = v
	}
	if v, ok := envBool("ONA_DEBUG"); ok {
		c.Debug = v
	}
	if v, ok := envBool("ONA_FORWARD_CHAIN_ALL_TABLES"); ok {
		c.ForwardChainAllTables = v
	}
	if v, ok := envBool("ONA_VARIABLE_INTRODUCTION"); ok {
		c.VariableIntroduction = v
	}
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func envInt64(name string) (int64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "true" || s == "1" || s == "yes" || s == "on", true
}

// Validate rejects configurations outside the ranges the reasoner assumes.
func (c *Config) Validate() error {
	if c.EvidentialHorizon <= 0 {
		return fmt.Errorf("evidential_horizon must be > 0")
	}
	if c.ProjectionDecay <= 0 || c.ProjectionDecay > 1 {
		return fmt.Errorf("projection_decay must be in (0,1]")
	}
	if c.DecisionThreshold < 0 || c.DecisionThreshold > 1 {
		return fmt.Errorf("decision_threshold must be in [0,1]")
	}
	if c.MotorBabblingChance < 0 || c.MotorBabblingChance > 1 {
		return fmt.Errorf("motor_babbling_chance must be in [0,1]")
	}
	if c.ConceptsMax <= 0 {
		return fmt.Errorf("concepts_max must be > 0")
	}
	if c.CyclingBeliefEventsMax <= 0 || c.CyclingGoalEventsMax <= 0 {
		return fmt.Errorf("cycling event maxima must be > 0")
	}
	if c.OperationsMax <= 0 || c.OperationsMax > 10 {
		return fmt.Errorf("operations_max must be in (0,10]")
	}
	if c.ConceptDurability <= 0 || c.ConceptDurability > 1 {
		return fmt.Errorf("concept_durability must be in (0,1]")
	}
	if c.EventDurability <= 0 || c.EventDurability > 1 {
		return fmt.Errorf("event_durability must be in (0,1]")
	}
	return nil
}

// Set applies a single textual key/value pair from the set_config contract
// (spec §6), returning a ConfigError-equivalent on an unknown key or
// unparseable value. State is left unchanged on error.
func (c *Config) Set(key, value string) error {
	switch key {
	case "volume":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 100 {
			return fmt.Errorf("config: volume must be an integer in [0,100]")
		}
		c.Volume = n
	case "debug":
		c.Debug = strings.ToLower(value) == "true"
	case "current_time":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: current_time must be an integer")
		}
		c.CurrentTime = n
	case "stamp_id":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: stamp_id must be an integer")
		}
		c.StampID = n
	case "motor_babbling":
		c.MotorBabblingEnabled = strings.ToLower(value) == "true"
	case "motor_babbling_chance":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("config: motor_babbling_chance must be a float in [0,1]")
		}
		c.MotorBabblingChance = f
	case "seed":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("config: seed must be an integer")
		}
		c.Seed = n
	case "decision_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config: decision_threshold must be a float")
		}
		c.DecisionThreshold = f
	case "truth_projection_decay":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config: truth_projection_decay must be a float")
		}
		c.ProjectionDecay = f
	case "max_sequence_len":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: max_sequence_len must be an integer")
		}
		c.MaxSequenceLen = n
	case "max_sequence_timediff":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: max_sequence_timediff must be an integer")
		}
		c.MaxSequenceTimediff = n
	case "event_belief_distance":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: event_belief_distance must be an integer")
		}
		c.EventBeliefDistance = n
	case "question_priming":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config: question_priming must be a float")
		}
		c.QuestionPriming = f
	case "anticipation_confidence":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config: anticipation_confidence must be a float")
		}
		c.AnticipationConfidence = f
	default:
		return fmt.Errorf("config: unrecognized key %q", key)
	}
	return nil
}
