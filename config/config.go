// elSAGE: a read-context evidence engine for variant calling.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

// Package config holds the tuning parameters of the evidence engine.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"

	"github.com/exascience/elsage/variant"
)

// Config holds all parameters of an evidence run. Values are read
// from an optional YAML file and can be overridden through
// environment variables.
type Config struct {
	MaxReadDepth      int `yaml:"max_read_depth" envconfig:"ELSAGE_MAX_READ_DEPTH"`
	MaxReadDepthPanel int `yaml:"max_read_depth_panel" envconfig:"ELSAGE_MAX_READ_DEPTH_PANEL"`

	MinMapQuality       int `yaml:"min_map_quality" envconfig:"ELSAGE_MIN_MAP_QUALITY"`
	MinMatchBaseQuality int `yaml:"min_match_base_quality" envconfig:"ELSAGE_MIN_MATCH_BASE_QUALITY"`

	HomopolymerLength int `yaml:"homopolymer_length" envconfig:"ELSAGE_HOMOPOLYMER_LENGTH"`

	JitterPenalty        float64 `yaml:"jitter_penalty" envconfig:"ELSAGE_JITTER_PENALTY"`
	JitterMinRepeatCount int     `yaml:"jitter_min_repeat_count" envconfig:"ELSAGE_JITTER_MIN_REPEAT_COUNT"`

	SoftClipMinLength           int     `yaml:"soft_clip_min_length" envconfig:"ELSAGE_SOFT_CLIP_MIN_LENGTH"`
	SoftClipMinHighQualFraction float64 `yaml:"soft_clip_min_high_qual_fraction" envconfig:"ELSAGE_SOFT_CLIP_MIN_HIGH_QUAL_FRACTION"`
	SoftClipMinBaseQuality      int     `yaml:"soft_clip_min_base_quality" envconfig:"ELSAGE_SOFT_CLIP_MIN_BASE_QUALITY"`

	SyncFragments             bool `yaml:"sync_fragments" envconfig:"ELSAGE_SYNC_FRAGMENTS"`
	MaxFragmentBaseMismatches int  `yaml:"max_fragment_base_mismatches" envconfig:"ELSAGE_MAX_FRAGMENT_BASE_MISMATCHES"`

	MinPhaseSetReadCount int `yaml:"min_phase_set_read_count" envconfig:"ELSAGE_MIN_PHASE_SET_READ_COUNT"`

	FlankSize     int `yaml:"flank_size" envconfig:"ELSAGE_FLANK_SIZE"`
	CoreExtension int `yaml:"core_extension" envconfig:"ELSAGE_CORE_EXTENSION"`

	BaseQualFixedPenalty int `yaml:"base_qual_fixed_penalty" envconfig:"ELSAGE_BASE_QUAL_FIXED_PENALTY"`
	MapQualFixedPenalty  int `yaml:"map_qual_fixed_penalty" envconfig:"ELSAGE_MAP_QUAL_FIXED_PENALTY"`
	ReadEventsPenalty    int `yaml:"read_events_penalty" envconfig:"ELSAGE_READ_EVENTS_PENALTY"`
	ImproperPairPenalty  int `yaml:"improper_pair_penalty" envconfig:"ELSAGE_IMPROPER_PAIR_PENALTY"`

	MaxPartitionCandidates int   `yaml:"max_partition_candidates" envconfig:"ELSAGE_MAX_PARTITION_CANDIDATES"`
	PartitionPadding       int32 `yaml:"partition_padding" envconfig:"ELSAGE_PARTITION_PADDING"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		MaxReadDepth:      1000,
		MaxReadDepthPanel: 100000,

		MinMapQuality:       10,
		MinMatchBaseQuality: 10,

		HomopolymerLength: 8,

		JitterPenalty:        0.25,
		JitterMinRepeatCount: 3,

		SoftClipMinLength:           10,
		SoftClipMinHighQualFraction: 0.75,
		SoftClipMinBaseQuality:      26,

		SyncFragments:             true,
		MaxFragmentBaseMismatches: 10,

		MinPhaseSetReadCount: 2,

		FlankSize:     variant.DefaultFlankSize,
		CoreExtension: variant.DefaultCoreExtension,

		BaseQualFixedPenalty: 12,
		MapQualFixedPenalty:  15,
		ReadEventsPenalty:    8,
		ImproperPairPenalty:  15,

		MaxPartitionCandidates: 1000,
		PartitionPadding:       500,
	}
}

// MaxCoverage returns the read depth after which a counter of the
// given tier stops accepting reads.
func (cfg *Config) MaxCoverage(tier variant.Tier) int {
	switch tier {
	case variant.Hotspot, variant.Panel:
		return cfg.MaxReadDepthPanel
	default:
		return cfg.MaxReadDepth
	}
}

// Load starts from the defaults, applies the YAML file if filename
// is not empty, and then applies environment overrides.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		decoder.SetStrict(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w, while parsing configuration file %v", err, filename)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("%w, while reading configuration from the environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot
// work with.
func (cfg *Config) Validate() error {
	switch {
	case cfg.MaxReadDepth <= 0 || cfg.MaxReadDepthPanel <= 0:
		return fmt.Errorf("maximum read depths must be positive")
	case !isPhred(cfg.MinMapQuality) || !isPhred(cfg.MinMatchBaseQuality) || !isPhred(cfg.SoftClipMinBaseQuality):
		return fmt.Errorf("minimum qualities must lie in [0, 255]")
	case cfg.HomopolymerLength < 2:
		return fmt.Errorf("homopolymer length must be at least 2, got %v", cfg.HomopolymerLength)
	case cfg.JitterPenalty < 0 || cfg.JitterMinRepeatCount < 0:
		return fmt.Errorf("jitter parameters must not be negative")
	case cfg.SoftClipMinLength < 0:
		return fmt.Errorf("soft clip minimum length must not be negative")
	case cfg.SoftClipMinHighQualFraction < 0 || cfg.SoftClipMinHighQualFraction > 1:
		return fmt.Errorf("soft clip high quality fraction must lie in [0, 1], got %v", cfg.SoftClipMinHighQualFraction)
	case cfg.MaxFragmentBaseMismatches <= 0:
		return fmt.Errorf("maximum fragment base mismatches must be positive")
	case cfg.MinPhaseSetReadCount < 1:
		return fmt.Errorf("minimum phase set read count must be at least 1")
	case cfg.FlankSize < 0 || cfg.CoreExtension < 0:
		return fmt.Errorf("flank size and core extension must not be negative")
	case cfg.MaxPartitionCandidates <= 0:
		return fmt.Errorf("maximum partition candidates must be positive")
	case cfg.PartitionPadding < 0:
		return fmt.Errorf("partition padding must not be negative")
	}
	return nil
}

func isPhred(quality int) bool {
	return quality >= 0 && quality <= 255
}
