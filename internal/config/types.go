// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/invowk/repoindex/pkg/filter"
	"github.com/invowk/repoindex/pkg/indexer"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// OutputFormatJSON writes the repository document as indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatTOML writes the repository document as TOML.
	OutputFormatTOML OutputFormat = "toml"

	maxWorkers = 1024
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidOutputFormat is returned when an OutputFormat value is not recognized.
	ErrInvalidOutputFormat = errors.New("invalid output format")
	// ErrInvalidWorkerCount is returned when index.workers is out of range.
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	// ErrInvalidAnalyzerConfig is the sentinel error wrapped by InvalidAnalyzerConfigError.
	ErrInvalidAnalyzerConfig = errors.New("invalid analyzer config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// OutputFormat selects the serialization of the repository document.
	OutputFormat string

	// InvalidOutputFormatError is returned when an OutputFormat value is not recognized.
	InvalidOutputFormatError struct {
		Value OutputFormat
	}

	// InvalidWorkerCountError is returned when index.workers is negative or too large.
	InvalidWorkerCountError struct {
		Value int
	}

	// InvalidAnalyzerConfigError is returned when an analyzer declaration cannot
	// be turned into a StaticAnalyzer. It collects every field error.
	InvalidAnalyzerConfigError struct {
		Index       int
		Name        string
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// RootURL is the repository root directory or URL
		RootURL string `json:"root_url" mapstructure:"root_url"`
		// URLTemplate overrides how content URLs are built
		URLTemplate string `json:"url_template" mapstructure:"url_template"`
		// Repository sets the repository name and increment
		Repository RepositoryConfig `json:"repository" mapstructure:"repository"`
		// Index configures the batch indexer
		Index IndexConfig `json:"index" mapstructure:"index"`
		// Analyzers declares extra static analyzers. Decoded from CUE directly
		// because viper folds map keys to lower case.
		Analyzers []AnalyzerConfig `json:"analyzers" mapstructure:"-"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RepositoryConfig describes the generated repository.
	RepositoryConfig struct {
		Name      string `json:"name" mapstructure:"name"`
		Increment int64  `json:"increment" mapstructure:"increment"`
	}

	// IndexConfig configures the batch indexer.
	IndexConfig struct {
		// Workers bounds concurrent analysis; zero means one per CPU
		Workers int `json:"workers" mapstructure:"workers"`
		// ContinueOnError records per-resource failures instead of aborting
		ContinueOnError bool `json:"continue_on_error" mapstructure:"continue_on_error"`
		// StrictExtensions turns analyzer faults into resource failures
		StrictExtensions bool `json:"strict_extensions" mapstructure:"strict_extensions"`
		// Format is the output serialization
		Format OutputFormat `json:"format" mapstructure:"format"`
	}

	// AnalyzerConfig declares a StaticAnalyzer.
	AnalyzerConfig struct {
		Name       string            `json:"name,omitempty"`
		Filter     string            `json:"filter,omitempty"`
		Namespace  string            `json:"namespace"`
		Attributes map[string]string `json:"attributes,omitempty"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the OutputFormat.
func (f OutputFormat) String() string { return string(f) }

// IsValid returns whether the OutputFormat is json or toml.
func (f OutputFormat) IsValid() (bool, []error) {
	switch f {
	case OutputFormatJSON, OutputFormatTOML:
		return true, nil
	default:
		return false, []error{&InvalidOutputFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidOutputFormatError.
func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (valid: json, toml)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidOutputFormatError) Unwrap() error { return ErrInvalidOutputFormat }

// Error implements the error interface for InvalidWorkerCountError.
func (e *InvalidWorkerCountError) Error() string {
	return fmt.Sprintf("invalid worker count %d (must be in range 0-%d)", e.Value, maxWorkers)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidWorkerCountError) Unwrap() error { return ErrInvalidWorkerCount }

// IsValid returns whether the IndexConfig has a valid worker count and format.
func (c IndexConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Workers < 0 || c.Workers > maxWorkers {
		errs = append(errs, &InvalidWorkerCountError{Value: c.Workers})
	}
	if valid, fieldErrs := c.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	return len(errs) == 0, errs
}

// DisplayName returns Name, or a positional label when Name is empty.
func (a AnalyzerConfig) DisplayName(index int) string {
	if a.Name != "" {
		return a.Name
	}
	return "analyzers[" + strconv.Itoa(index) + "]"
}

// Build compiles the declaration into an analyzer and its predicate. The
// predicate is nil when no filter is declared.
func (a AnalyzerConfig) Build(index int) (*indexer.StaticAnalyzer, filter.Filter, error) {
	var errs []error
	if strings.TrimSpace(a.Namespace) == "" {
		errs = append(errs, errors.New("namespace must be non-empty"))
	}

	var predicate filter.Filter
	if a.Filter != "" {
		f, err := filter.Parse(a.Filter)
		if err != nil {
			errs = append(errs, err)
		}
		predicate = f
	}

	var analyzer *indexer.StaticAnalyzer
	if len(errs) == 0 {
		sa, err := indexer.NewStaticAnalyzer(a.DisplayName(index), a.Namespace, a.Attributes)
		if err != nil {
			errs = append(errs, err)
		}
		analyzer = sa
	}

	if len(errs) > 0 {
		return nil, nil, &InvalidAnalyzerConfigError{Index: index, Name: a.DisplayName(index), FieldErrors: errs}
	}
	return analyzer, predicate, nil
}

// Error implements the error interface for InvalidAnalyzerConfigError.
func (e *InvalidAnalyzerConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid analyzer %s: %v", e.Name, e.FieldErrors[0])
	}
	return fmt.Sprintf("invalid analyzer %s: %d field errors", e.Name, len(e.FieldErrors))
}

// Unwrap returns the sentinel and the field errors for errors.Is() compatibility.
func (e *InvalidAnalyzerConfigError) Unwrap() []error {
	return append([]error{ErrInvalidAnalyzerConfig}, e.FieldErrors...)
}

// IsValid returns whether the UIConfig has valid fields.
func (c UIConfig) IsValid() (bool, []error) {
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		return false, fieldErrs
	}
	return true, nil
}

// IsValid returns whether the Config has valid fields. Every analyzer is
// trial-built so declaration errors surface at load time.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Index.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for i, a := range c.Analyzers {
		if _, _, err := a.Build(i); err != nil {
			errs = append(errs, err)
		}
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid config: " + e.FieldErrors[0].Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns the sentinel and the field errors for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Name: indexer.DefaultRepositoryName,
		},
		Index: IndexConfig{
			Workers: 0,
			Format:  OutputFormatJSON,
		},
		Analyzers: []AnalyzerConfig{},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}
