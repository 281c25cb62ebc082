package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// Cross-field: disk-backed drivers need a location.
	if c.Storage.Driver != "memory" && c.Storage.Path == "" {
		return errors.New("config invalid: storage.path is required when storage.driver is " + c.Storage.Driver)
	}

	return nil
}

// formatValidationErrors converts validator errors into actionable messages.
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "http_url":
			msgs = append(msgs, fmt.Sprintf("%s must be an http(s) URL, got %q", field, fe.Value()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return fmt.Errorf("config invalid: %s", strings.Join(msgs, "; "))
}
