package models

import "time"

// Requests for the market HTTP endpoints. Defined in domain for consistency and reuse.

type SourceSettingRequest struct {
	Enabled bool    `json:"enabled"`
	Weight  float64 `json:"weight" validate:"gte=0,lte=1"`
}

// ConfigUpdateRequest is the wire form of a partial config update. Durations
// arrive in milliseconds; nil fields are left untouched.
type ConfigUpdateRequest struct {
	UpdateIntervalMS        *int64                          `json:"update_interval_ms" validate:"omitempty,gt=0"`
	ConfidenceThreshold     *float64                        `json:"confidence_threshold" validate:"omitempty,gte=0,lte=100"`
	MaxDataAgeMS            *int64                          `json:"max_data_age_ms" validate:"omitempty,gt=0"`
	EnableTechnicalAnalysis *bool                           `json:"enable_technical_analysis"`
	Sources                 map[string]SourceSettingRequest `json:"sources" validate:"omitempty,dive"`
}

// ToConfigUpdate converts the wire form into the engine's partial update.
func (r *ConfigUpdateRequest) ToConfigUpdate() ConfigUpdate {
	u := ConfigUpdate{
		ConfidenceThreshold:     r.ConfidenceThreshold,
		EnableTechnicalAnalysis: r.EnableTechnicalAnalysis,
	}
	if r.UpdateIntervalMS != nil {
		d := time.Duration(*r.UpdateIntervalMS) * time.Millisecond
		u.UpdateInterval = &d
	}
	if r.MaxDataAgeMS != nil {
		d := time.Duration(*r.MaxDataAgeMS) * time.Millisecond
		u.MaxDataAge = &d
	}
	if len(r.Sources) > 0 {
		u.Sources = make(map[string]SourceSetting, len(r.Sources))
		for name, s := range r.Sources {
			u.Sources[name] = SourceSetting{Enabled: s.Enabled, Weight: s.Weight}
		}
	}
	return u
}

// EngineStatus reports lifecycle state over HTTP.
type EngineStatus struct {
	Running        bool             `json:"running"`
	TrackedSymbols int              `json:"tracked_symbols"`
	Config         AggregatorConfig `json:"config"`
}
