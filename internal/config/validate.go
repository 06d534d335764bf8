package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mvp-joe/depgraph/internal/graph"
)

var (
	// ErrEmptyPath indicates a missing input or output path
	ErrEmptyPath = errors.New("empty path")

	// ErrInvalidNamespace indicates a namespace that is not a plain identifier
	ErrInvalidNamespace = errors.New("invalid namespace")

	// ErrInvalidSnippetLines indicates a negative snippet line limit
	ErrInvalidSnippetLines = errors.New("invalid snippet line limit")

	// ErrInvalidCollisionPolicy indicates an unknown label collision policy
	ErrInvalidCollisionPolicy = errors.New("invalid label collision policy")

	// ErrInvalidDebounce indicates a non-positive watch debounce
	ErrInvalidDebounce = errors.New("invalid debounce")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatePaths(cfg); err != nil {
		errs = append(errs, err)
	}

	if err := validateParse(&cfg.Parse); err != nil {
		errs = append(errs, err)
	}

	if !graph.CollisionPolicy(cfg.Graph.LabelCollision).Valid() {
		errs = append(errs, fmt.Errorf("%w: must be 'last' or 'first', got '%s'", ErrInvalidCollisionPolicy, cfg.Graph.LabelCollision))
	}

	if cfg.Watch.DebounceMS <= 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms must be positive, got %d", ErrInvalidDebounce, cfg.Watch.DebounceMS))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *Config) error {
	var errs []error

	paths := []struct {
		key, value string
	}{
		{"input.graph", cfg.Input.Graph},
		{"input.config", cfg.Input.Config},
		{"output.path", cfg.Output.Path},
	}
	for _, p := range paths {
		if strings.TrimSpace(p.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrEmptyPath, p.key))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateParse(cfg *ParseConfig) error {
	var errs []error

	if !identifier.MatchString(cfg.ProcessNamespace) {
		errs = append(errs, fmt.Errorf("%w: process_namespace must be an identifier, got '%s'", ErrInvalidNamespace, cfg.ProcessNamespace))
	}

	if !identifier.MatchString(cfg.CMSNamespace) {
		errs = append(errs, fmt.Errorf("%w: cms_namespace must be an identifier, got '%s'", ErrInvalidNamespace, cfg.CMSNamespace))
	}

	if cfg.MaxSnippetLines < 0 {
		errs = append(errs, fmt.Errorf("%w: max_snippet_lines cannot be negative, got %d", ErrInvalidSnippetLines, cfg.MaxSnippetLines))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// validationErrors keeps every wrapped error reachable through errors.Is.
type validationErrors []error

func (v validationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, err := range v {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (v validationErrors) Unwrap() []error {
	return v
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return validationErrors(errs)
}
