// Package config provides configuration loading and validation for the tap.
package config

import (
	"sort"
	"time"

	"github.com/jonathan/tap-inventio/internal/streams"
)

// Defaults applied to settings left unset.
const (
	DefaultBaseURL        = "https://app.cloud.inventio.it"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultMaxConcurrency = 1
	DefaultStateBackend   = "none"
	DefaultStateID        = "tap-inventio"
)

// Config represents the tap settings.
//
// Endpoints and companies are specified like so:
//
//	{
//	  "endpoints": {
//	    "GLENTRY": {
//	      "companies": {
//	        "COMPANY1": "{5B3C070F-BD90-4293-84BB-DCBB1E521B54}",
//	        "COMPANY2": "{ACLKLLKE-BD90-4293-ALKF-DCBB1E521B54}"
//	      }
//	    },
//	    "DIMENSIONSETENTRY": {
//	      "companies": {"COMPANY1": "{5B3C070F-BD90-4293-84BB-DCBB1E521B54}"},
//	      "limit": 1
//	    }
//	  },
//	  "limit": 100
//	}
type Config struct {
	// Endpoint name -> endpoint settings. Names are matched to streams
	// case-insensitively and with an optional -GET suffix.
	Endpoints map[string]EndpointConfig `json:"endpoints" validate:"required,min=1,dive"`

	UserAgent string `json:"user_agent,omitempty"`                                          // User-Agent header, omitted when empty
	Limit     int    `json:"limit,omitempty" validate:"gte=0"`                              // Default record limit per request
	StartDate string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"` // Bookmark floor for incremental streams

	// HTTP
	BaseURL        string `json:"base_url,omitempty" validate:"omitempty,url"`
	RequestTimeout string `json:"request_timeout,omitempty"` // Go duration, e.g. "45s"
	MaxRetries     *int   `json:"max_retries,omitempty" validate:"omitempty,gte=0"`
	MaxConcurrency int    `json:"max_concurrency,omitempty" validate:"gte=0"`

	// Throttle across all streams; 0 means unlimited
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" validate:"gte=0"`

	// State persistence
	StateBackend string `json:"state_backend,omitempty" validate:"omitempty,oneof=none file postgres sqlite"`
	StatePath    string `json:"state_path,omitempty" validate:"required_if=StateBackend file"`
	DatabaseURL  string `json:"database_url,omitempty"`
	StateID      string `json:"state_id,omitempty"`

	ValidateRecords bool `json:"validate_records,omitempty"` // Check every record against its stream schema
}

// EndpointConfig holds the settings of one endpoint.
type EndpointConfig struct {
	// Company name -> API token. Each company is requested separately.
	Companies      map[string]string `json:"companies" validate:"required,min=1,dive,required"`
	Limit          int               `json:"limit,omitempty" validate:"gte=0"`
	ReplicationKey string            `json:"replication_key,omitempty"`
}

// ApplyDefaults fills unset settings.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = DefaultRequestTimeout.String()
	}
	if c.MaxRetries == nil {
		n := DefaultMaxRetries
		c.MaxRetries = &n
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.StateBackend == "" {
		c.StateBackend = DefaultStateBackend
	}
	if c.StateID == "" {
		c.StateID = DefaultStateID
	}
}

// Timeout returns the parsed request timeout, or the default when unset or invalid.
func (c *Config) Timeout() time.Duration {
	if d, err := time.ParseDuration(c.RequestTimeout); err == nil && d > 0 {
		return d
	}
	return DefaultRequestTimeout
}

// Retries returns how many times a failed request is retried.
func (c *Config) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// EndpointNames returns the configured endpoint keys, sorted.
func (c *Config) EndpointNames() []string {
	names := make([]string, 0, len(c.Endpoints))
	for name := range c.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EndpointFor returns the settings configured for a stream.
func (c *Config) EndpointFor(stream string) (EndpointConfig, bool) {
	want := streams.NormaliseName(stream)
	if want == "" {
		return EndpointConfig{}, false
	}
	for _, name := range c.EndpointNames() {
		if streams.NormaliseName(name) == want {
			return c.Endpoints[name], true
		}
	}
	return EndpointConfig{}, false
}

// LimitFor returns the record limit for an endpoint: its own limit, else the
// global one. Zero means no limit parameter is sent.
func (c *Config) LimitFor(ep EndpointConfig) int {
	if ep.Limit > 0 {
		return ep.Limit
	}
	return c.Limit
}

// Redacted returns a copy safe to print: tokens and the database URL are masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Endpoints = make(map[string]EndpointConfig, len(c.Endpoints))
	for name, ep := range c.Endpoints {
		companies := make(map[string]string, len(ep.Companies))
		for company := range ep.Companies {
			companies[company] = redactedValue
		}
		ep.Companies = companies
		out.Endpoints[name] = ep
	}
	if out.DatabaseURL != "" {
		out.DatabaseURL = redactedValue
	}
	return out
}

const redactedValue = "****"
