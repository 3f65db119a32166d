package models

import "time"

// SourceSetting is the per-source weight and enable flag.
type SourceSetting struct {
	Enabled bool    `json:"enabled"`
	Weight  float64 `json:"weight"` // 0-1
}

// AggregatorConfig is the engine's runtime configuration.
type AggregatorConfig struct {
	UpdateInterval          time.Duration            `json:"update_interval"`
	ConfidenceThreshold     float64                  `json:"confidence_threshold"`
	MaxDataAge              time.Duration            `json:"max_data_age"`
	EnableTechnicalAnalysis bool                     `json:"enable_technical_analysis"`
	Sources                 map[string]SourceSetting `json:"sources"`
}

// ConfigUpdate carries a partial configuration change. Nil fields are left as-is;
// Sources entries replace the setting for that source only.
type ConfigUpdate struct {
	UpdateInterval          *time.Duration
	ConfidenceThreshold     *float64
	MaxDataAge              *time.Duration
	EnableTechnicalAnalysis *bool
	Sources                 map[string]SourceSetting
}

// DefaultAggregatorConfig returns the engine defaults.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		UpdateInterval:          10 * time.Second,
		ConfidenceThreshold:     70,
		MaxDataAge:              time.Minute,
		EnableTechnicalAnalysis: true,
		Sources:                 map[string]SourceSetting{},
	}
}

// Clone deep-copies the config so callers cannot mutate engine state.
func (c AggregatorConfig) Clone() AggregatorConfig {
	out := c
	out.Sources = make(map[string]SourceSetting, len(c.Sources))
	for k, v := range c.Sources {
		out.Sources[k] = v
	}
	return out
}
