package types

// NamingTemplate describes how a relocated directory is named. Pattern holds
// literal text and the tokens {Category}, {Name}, {Version}, {Vendor} and
// {Date}; '/' separates nested directories.
type NamingTemplate struct {
	ID          string `json:"id" yaml:"id" koanf:"id"`
	Name        string `json:"name" yaml:"name" koanf:"name"`
	Pattern     string `json:"pattern" yaml:"pattern" koanf:"pattern"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" koanf:"description"`
	IsPreset    bool   `json:"isPreset" yaml:"isPreset" koanf:"-"`
}

// ValidationResult is the outcome of validating a naming template
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors,omitempty"`
}
