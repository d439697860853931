package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/tap-inventio/internal/streams"
)

// ValidationError collects every problem found in a config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "config validation failed: " + strings.Join(e.Problems, ";\n")
}

// Validate checks field constraints and endpoint consistency. Problems that
// make a sync impossible are returned as a *ValidationError; endpoints the
// tap cannot extract are only reported as warnings.
func (c *Config) Validate() (warnings []string, err error) {
	var problems []string

	validate := validator.New()
	if verr := validate.Struct(c); verr != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(verr, &fieldErrs) {
			return nil, fmt.Errorf("config validation failed: %w", verr)
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describeFieldError(fe))
		}
	}

	if c.RequestTimeout != "" {
		if d, perr := time.ParseDuration(c.RequestTimeout); perr != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("'request_timeout' must be a positive duration, got %q", c.RequestTimeout))
		}
	}

	if (c.StateBackend == "postgres" || c.StateBackend == "sqlite") && c.DatabaseURL == "" {
		problems = append(problems, fmt.Sprintf("'database_url' is required for state backend %q", c.StateBackend))
	}

	counts := map[string]int{}
	for _, name := range c.EndpointNames() {
		if strings.TrimSpace(name) == "" {
			problems = append(problems, "endpoint names must not be empty")
			continue
		}
		for company := range c.Endpoints[name].Companies {
			if strings.TrimSpace(company) == "" {
				problems = append(problems, fmt.Sprintf("endpoint %q has a company with an empty name", name))
			}
		}
		key := streams.NormaliseName(name)
		if key == "" {
			warnings = append(warnings, fmt.Sprintf("endpoint %s is a POST endpoint and will be ignored", name))
			continue
		}
		counts[key]++
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if counts[key] > 1 {
			problems = append(problems, duplicateMessage(key, counts[key]))
		}
		if _, ok := streams.Lookup(key); !ok {
			warnings = append(warnings, fmt.Sprintf("endpoint %s was configured but is not available from this tap", key))
		}
	}

	if len(problems) > 0 {
		return warnings, &ValidationError{Problems: problems}
	}
	return warnings, nil
}

func duplicateMessage(endpoint string, count int) string {
	return fmt.Sprintf("endpoint %q was configured more than once! (%d times)", endpoint, count)
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return fmt.Sprintf("field '%s' failed '%s=%s'", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("field '%s' failed '%s'", field, fe.Tag())
}
