package config

import (
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/relocator/pkg/errors"
)

// document mirrors Config with TOML-friendly field types
type document struct {
	Ledger struct {
		Retention string `toml:"retention"`
		Path      string `toml:"path"`
	} `toml:"ledger"`
	Naming struct {
		Template   string            `toml:"template"`
		Substitute string            `toml:"substitute"`
		Custom     map[string]string `toml:"custom"`
	} `toml:"naming"`
	Migration struct {
		LinkType        string `toml:"link_type"`
		UpdateRegistry  bool   `toml:"update_registry"`
		VerifyIntegrity bool   `toml:"verify_integrity"`
	} `toml:"migration"`
	Registry struct {
		Roots    []string `toml:"roots,multiline"`
		MaxDepth int      `toml:"max_depth"`
	} `toml:"registry"`
	Output struct {
		Format string `toml:"format"`
	} `toml:"output"`
}

// Generate renders cfg as a TOML config file
func Generate(cfg *Config) ([]byte, error) {
	var doc document
	doc.Ledger.Retention = cfg.Ledger.Retention.String()
	doc.Ledger.Path = cfg.Ledger.Path
	doc.Naming.Template = cfg.Naming.Template
	doc.Naming.Substitute = cfg.Naming.Substitute
	doc.Naming.Custom = cfg.Naming.Custom
	doc.Migration.LinkType = cfg.Migration.LinkType
	doc.Migration.UpdateRegistry = cfg.Migration.UpdateRegistry
	doc.Migration.VerifyIntegrity = cfg.Migration.VerifyIntegrity
	doc.Registry.Roots = cfg.Registry.Roots
	doc.Registry.MaxDepth = cfg.Registry.MaxDepth
	doc.Output.Format = cfg.Output.Format

	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render configuration")
	}
	return out, nil
}

// GenerateTemplate returns the defaults file with every value commented
// out, ready to be saved as config.toml and edited
func GenerateTemplate() string {
	return commentOutConfigValues(DefaultContent())
}

// commentOutConfigValues comments out every line that is not blank, a
// comment or a section header
func commentOutConfigValues(content string) string {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "", strings.HasPrefix(trimmed, "#"):
			result = append(result, line)
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") && !strings.Contains(trimmed, "="):
			result = append(result, line)
		default:
			result = append(result, "# "+line)
		}
	}

	return strings.Join(result, "\n")
}
