package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/naming"
	"github.com/arthur-debert/relocator/pkg/paths"
	"github.com/arthur-debert/relocator/pkg/types"
)

// Config is the effective relocator configuration
type Config struct {
	Ledger    LedgerConfig    `koanf:"ledger"`
	Naming    NamingConfig    `koanf:"naming"`
	Migration MigrationConfig `koanf:"migration"`
	Registry  RegistryConfig  `koanf:"registry"`
	Output    OutputConfig    `koanf:"output"`
}

// LedgerConfig controls the operation history
type LedgerConfig struct {
	Retention time.Duration `koanf:"retention"`
	// Path of the ledger database; empty selects the data directory
	Path string `koanf:"path"`
}

// NamingConfig selects how relocated directories are named
type NamingConfig struct {
	Template   string            `koanf:"template"`
	Substitute string            `koanf:"substitute"`
	Custom     map[string]string `koanf:"custom"`
}

// MigrationConfig holds the defaults for migrate
type MigrationConfig struct {
	LinkType        string `koanf:"link_type"`
	UpdateRegistry  bool   `koanf:"update_registry"`
	VerifyIntegrity bool   `koanf:"verify_integrity"`
}

// RegistryConfig bounds the registry search
type RegistryConfig struct {
	Roots    []string `koanf:"roots"`
	MaxDepth int      `koanf:"max_depth"`
}

// OutputConfig controls how results are printed
type OutputConfig struct {
	Format string `koanf:"format"`
}

// OutputFormats are the accepted values of output.format
var OutputFormats = []string{"auto", "term", "text", "json", "yaml", "xml", "markdown"}

// Validate checks every setting and reports all problems at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Ledger.Retention <= 0 {
		result = multierror.Append(result, fmt.Errorf("ledger.retention must be positive, got %s", c.Ledger.Retention))
	}

	if utf8.RuneCountInString(c.Naming.Substitute) != 1 {
		result = multierror.Append(result, fmt.Errorf("naming.substitute must be a single character, got %q", c.Naming.Substitute))
	} else if r, _ := utf8.DecodeRuneInString(c.Naming.Substitute); !naming.IsValidSubstitute(r) {
		result = multierror.Append(result, fmt.Errorf("naming.substitute %q is not allowed in directory names", c.Naming.Substitute))
	}

	for name, pattern := range c.Naming.Custom {
		if res := naming.ValidateTemplate(pattern); !res.IsValid {
			result = multierror.Append(result, fmt.Errorf("naming.custom.%s: %s", name, strings.Join(res.Errors, "; ")))
		}
	}
	if _, err := naming.Lookup(c.Naming.Template, c.Naming.Custom); err != nil {
		result = multierror.Append(result, fmt.Errorf("naming.template: %w", err))
	}

	if _, err := types.ParseLinkPreference(c.Migration.LinkType); err != nil {
		result = multierror.Append(result, fmt.Errorf("migration.link_type: %w", err))
	}

	if c.Registry.MaxDepth < 1 {
		result = multierror.Append(result, fmt.Errorf("registry.max_depth must be at least 1, got %d", c.Registry.MaxDepth))
	}
	for _, root := range c.Registry.Roots {
		if strings.TrimSpace(root) == "" {
			result = multierror.Append(result, fmt.Errorf("registry.roots contains an empty key"))
			break
		}
	}

	if !isOutputFormat(c.Output.Format) {
		result = multierror.Append(result, fmt.Errorf("output.format must be one of %s, got %q",
			strings.Join(OutputFormats, ", "), c.Output.Format))
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrapf(err, errors.ErrConfigInvalid, "%d invalid settings", len(result.Errors))
	}
	return nil
}

func isOutputFormat(s string) bool {
	for _, f := range OutputFormats {
		if strings.EqualFold(f, s) {
			return true
		}
	}
	return false
}

// Template resolves naming.template against the presets and custom templates
func (c *Config) Template() (*types.NamingTemplate, error) {
	return naming.Lookup(c.Naming.Template, c.Naming.Custom)
}

// SubstituteRune returns naming.substitute as a rune
func (c *Config) SubstituteRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Naming.Substitute)
	return r
}

// LinkPreference returns migration.link_type parsed
func (c *Config) LinkPreference() types.LinkPreference {
	pref, err := types.ParseLinkPreference(c.Migration.LinkType)
	if err != nil {
		return types.LinkPreferenceAuto
	}
	return pref
}

// LedgerPath returns ledger.path, falling back to the data directory
func (c *Config) LedgerPath(p paths.Paths) string {
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return p.LedgerPath()
	}
	path, err := paths.NormalizePath(c.Ledger.Path)
	if err != nil {
		return filepath.Clean(c.Ledger.Path)
	}
	return path
}
