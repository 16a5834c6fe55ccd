package insightgate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level gateway configuration.
type Config struct {
	// DefaultProvider serves requests that don't name a provider. Empty
	// means "first provider that can take the call", in listed order.
	DefaultProvider string `yaml:"default_provider"`

	Providers   []ProviderConfig   `yaml:"providers"`
	Credentials []CredentialConfig `yaml:"credentials"`

	Breaker BreakerConfig `yaml:"breaker"`
	Retry   RetryConfig   `yaml:"retry"`
}

// ProviderConfig configures one provider's pricing.
type ProviderConfig struct {
	Name    string  `yaml:"name"`
	Pricing Pricing `yaml:"pricing"`
}

// CredentialConfig configures one credential record for the default
// in-memory store. Durable backends own their own records.
type CredentialConfig struct {
	ID              string            `yaml:"id"`
	Provider        string            `yaml:"provider"`
	Key             string            `yaml:"key"`
	Disabled        bool              `yaml:"disabled"`
	MonthlyCostCap  float64           `yaml:"monthly_cost_cap"`
	DailyRequestCap int64             `yaml:"daily_request_cap"`
	ExtraHeaders    map[string]string `yaml:"extra_headers"`
}

// BreakerConfig tunes the circuit breaker registry.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	CooldownSeconds  int `yaml:"cooldown_seconds"`
}

// Cooldown returns the configured cooldown as a duration.
func (b BreakerConfig) Cooldown() time.Duration {
	return time.Duration(b.CooldownSeconds) * time.Second
}

// RetryConfig tunes the retry policy.
type RetryConfig struct {
	MaxRetries  int     `yaml:"max_retries"`
	BaseDelayMS int     `yaml:"base_delay_ms"`
	MaxDelayMS  int     `yaml:"max_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
}

// LoadConfig reads and parses a YAML config file. Environment variables in
// the format ${VAR} are expanded before parsing, so API keys stay out of
// the file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("insightgate: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("insightgate: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("insightgate: config: at least one provider is required")
	}

	providers := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("insightgate: config: providers[%d]: name is required", i)
		}
		if providers[p.Name] {
			return fmt.Errorf("insightgate: config: duplicate provider %q", p.Name)
		}
		providers[p.Name] = true
	}

	if c.DefaultProvider != "" && !providers[c.DefaultProvider] {
		return fmt.Errorf("insightgate: config: default_provider %q is not a configured provider", c.DefaultProvider)
	}

	ids := make(map[string]bool, len(c.Credentials))
	for i, cred := range c.Credentials {
		if cred.ID == "" {
			return fmt.Errorf("insightgate: config: credentials[%d]: id is required", i)
		}
		if ids[cred.ID] {
			return fmt.Errorf("insightgate: config: duplicate credential id %q", cred.ID)
		}
		ids[cred.ID] = true

		if cred.Provider == "" {
			return fmt.Errorf("insightgate: config: credentials[%d] (%s): provider is required", i, cred.ID)
		}
		if !providers[cred.Provider] {
			return fmt.Errorf("insightgate: config: credentials[%d] (%s): unknown provider %q", i, cred.ID, cred.Provider)
		}
		if cred.MonthlyCostCap < 0 || cred.DailyRequestCap < 0 {
			return fmt.Errorf("insightgate: config: credentials[%d] (%s): caps must be non-negative", i, cred.ID)
		}
	}

	return nil
}

// SeedCredentials builds Credential records from the config, for the
// default in-memory store.
func (c Config) SeedCredentials() []*Credential {
	out := make([]*Credential, 0, len(c.Credentials))
	for _, cc := range c.Credentials {
		status := StatusActive
		if cc.Disabled {
			status = StatusDisabled
		}
		out = append(out, &Credential{
			ID:              cc.ID,
			Provider:        cc.Provider,
			Key:             cc.Key,
			Status:          status,
			MonthlyCostCap:  cc.MonthlyCostCap,
			DailyRequestCap: cc.DailyRequestCap,
			ExtraHeaders:    cc.ExtraHeaders,
		})
	}
	return out
}

// PricingFor returns the configured pricing for a provider. Unknown
// providers cost nothing.
func (c Config) PricingFor(provider string) Pricing {
	for _, p := range c.Providers {
		if p.Name == provider {
			return p.Pricing
		}
	}
	return Pricing{}
}

// RetryPolicy builds a RetryPolicy from the config, falling back to the
// package default for unset fields.
func (c Config) RetryPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	if c.Retry.MaxRetries > 0 {
		p.MaxRetries = c.Retry.MaxRetries
	}
	if c.Retry.BaseDelayMS > 0 {
		p.BaseDelay = time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
	}
	if c.Retry.MaxDelayMS > 0 {
		p.MaxDelay = time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
	}
	if c.Retry.Multiplier > 0 {
		p.Multiplier = c.Retry.Multiplier
	}
	return p
}
