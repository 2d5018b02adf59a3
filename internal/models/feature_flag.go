package models

type FeatureFlag struct {
	ID                string `json:"id"`
	AppID             string `json:"appId"`
	Key               string `json:"key"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Enabled           bool   `json:"enabled"`
	RolloutPercentage int    `json:"rolloutPercentage"`
}

// FeatureFlagPatch carries the fields a PUT may change; nil means untouched.
type FeatureFlagPatch struct {
	Enabled           *bool   `json:"enabled"`
	RolloutPercentage *int    `json:"rolloutPercentage"`
	Name              *string `json:"name"`
	Description       *string `json:"description"`
}

func (f *FeatureFlag) Apply(p FeatureFlagPatch) {
	if p.Enabled != nil {
		f.Enabled = *p.Enabled
	}
	if p.RolloutPercentage != nil {
		f.RolloutPercentage = *p.RolloutPercentage
	}
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
}
