// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invowk/repoindex/internal/issue"
	"github.com/invowk/repoindex/pkg/cueutil"

	"cuelang.org/go/cue"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "repoindex"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFileName is the project-local config file looked up in the base directory.
	LocalConfigFileName = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment overrides, e.g. REPOINDEX_INDEX_WORKERS.
	EnvPrefix = "REPOINDEX"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the repoindex configuration directory under the
// platform user config directory (os.UserConfigDir).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// ResolvePath returns the config file Load would read, or "" when none
// exists and defaults apply.
func ResolvePath(opts LoadOptions) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	if opts.ConfigFilePath != "" {
		return string(opts.ConfigFilePath), nil
	}

	cfgDir, err := configDirWithOverride(string(opts.ConfigDirPath))
	if err != nil {
		return "", err
	}
	if cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(cuePath) {
		return cuePath, nil
	}
	if localPath := opts.BaseDir.Join(LocalConfigFileName); fileExists(localPath.String()) {
		return localPath.String(), nil
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if opts.ConfigFilePath != "" && !fileExists(string(opts.ConfigFilePath)) {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(string(opts.ConfigFilePath)).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Check that the file exists and is readable").
			WithSuggestion("Use 'repoindex config show' to see the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	resolvedPath, err := ResolvePath(opts)
	if err != nil {
		return nil, "", err
	}

	v := newViper()
	var analyzers []AnalyzerConfig
	if resolvedPath != "" {
		analyzers, err = loadCUEIntoViper(v, resolvedPath)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'repoindex config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Analyzers = analyzers
	if cfg.Analyzers == nil {
		cfg.Analyzers = []AnalyzerConfig{}
	}

	if valid, errs := cfg.IsValid(); !valid {
		id := issue.ConfigLoadFailedId
		if errors.Is(errs[0], ErrInvalidAnalyzerConfig) {
			id = issue.InvalidAnalyzerConfigId
		}
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithIssue(id).
			WithSuggestion("Check analyzer filters and typed attribute values").
			WithSuggestion("Check REPOINDEX_* environment overrides").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// newViper returns a viper instance with every key defaulted and
// REPOINDEX_* environment overrides enabled.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("root_url", defaults.RootURL)
	v.SetDefault("url_template", defaults.URLTemplate)
	v.SetDefault("repository.name", defaults.Repository.Name)
	v.SetDefault("repository.increment", defaults.Repository.Increment)
	v.SetDefault("index.workers", defaults.Index.Workers)
	v.SetDefault("index.continue_on_error", defaults.Index.ContinueOnError)
	v.SetDefault("index.strict_extensions", defaults.Index.StrictExtensions)
	v.SetDefault("index.format", defaults.Index.Format)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against the #Config schema and merges
// its scalar sections into Viper. The analyzers list is decoded from the
// unified CUE value and returned, because Viper folds map keys to lower case.
// Concrete(false) is used since every config field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) ([]AnalyzerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecode[map[string]any]([]byte(configSchema), data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return nil, err
	}
	configMap := *res.Value
	delete(configMap, "analyzers")

	var analyzers []AnalyzerConfig
	if list := res.Unified.LookupPath(cue.ParsePath("analyzers")); list.Exists() {
		if err := list.Decode(&analyzers); err != nil {
			return nil, cueutil.FormatError(err, path)
		}
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return analyzers, nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig writes the default config file into dir (the platform
// config directory when empty) unless one already exists. It returns the
// file path and whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// repoindex configuration file\n")
	sb.WriteString("// Environment variables named REPOINDEX_<SECTION>_<KEY> override these values.\n\n")

	if cfg.RootURL != "" {
		fmt.Fprintf(&sb, "root_url: %q\n", cfg.RootURL)
	}
	if cfg.URLTemplate != "" {
		fmt.Fprintf(&sb, "url_template: %q\n", cfg.URLTemplate)
	}

	sb.WriteString("\nrepository: {\n")
	if cfg.Repository.Name != "" {
		fmt.Fprintf(&sb, "\tname: %q\n", cfg.Repository.Name)
	}
	fmt.Fprintf(&sb, "\tincrement: %d\n", cfg.Repository.Increment)
	sb.WriteString("}\n")

	sb.WriteString("\nindex: {\n")
	fmt.Fprintf(&sb, "\tworkers: %d\n", cfg.Index.Workers)
	fmt.Fprintf(&sb, "\tcontinue_on_error: %v\n", cfg.Index.ContinueOnError)
	fmt.Fprintf(&sb, "\tstrict_extensions: %v\n", cfg.Index.StrictExtensions)
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Index.Format)
	sb.WriteString("}\n")

	if len(cfg.Analyzers) > 0 {
		sb.WriteString("\nanalyzers: [\n")
		for _, a := range cfg.Analyzers {
			sb.WriteString("\t{\n")
			if a.Name != "" {
				fmt.Fprintf(&sb, "\t\tname: %q\n", a.Name)
			}
			if a.Filter != "" {
				fmt.Fprintf(&sb, "\t\tfilter: %q\n", a.Filter)
			}
			fmt.Fprintf(&sb, "\t\tnamespace: %q\n", a.Namespace)
			if len(a.Attributes) > 0 {
				sb.WriteString("\t\tattributes: {\n")
				for _, k := range sortedKeys(a.Attributes) {
					fmt.Fprintf(&sb, "\t\t\t%q: %q\n", k, a.Attributes[k])
				}
				sb.WriteString("\t\t}\n")
			}
			sb.WriteString("\t},\n")
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
