package naming

import (
	"sort"
	"strings"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/types"
)

// Preset template ids
const (
	PresetSimple   = "simple"
	PresetDetailed = "detailed"
	PresetDated    = "dated"
)

var presets = []types.NamingTemplate{
	{
		ID:          PresetSimple,
		Name:        "Simple",
		Pattern:     "{Category}/{Name}",
		Description: "Group by category, then software name",
		IsPreset:    true,
	},
	{
		ID:          PresetDetailed,
		Name:        "Detailed",
		Pattern:     "{Category}/{Vendor}_{Name}_{Version}",
		Description: "Category, then vendor, name and version",
		IsPreset:    true,
	},
	{
		ID:          PresetDated,
		Name:        "Dated",
		Pattern:     "{Category}/{Date}_{Name}",
		Description: "Category, then install date and name",
		IsPreset:    true,
	},
}

// PresetTemplates returns the three built-in templates. The slice is a
// fresh copy on every call.
func PresetTemplates() []types.NamingTemplate {
	out := make([]types.NamingTemplate, len(presets))
	copy(out, presets)
	return out
}

// Lookup resolves a preset id or name, or a custom template configured by
// name. Custom templates are validated before being returned.
func Lookup(idOrName string, custom map[string]string) (*types.NamingTemplate, error) {
	key := strings.TrimSpace(idOrName)
	if key == "" {
		return nil, errors.New(errors.ErrInvalidInput, "template name is empty")
	}

	for _, p := range presets {
		if strings.EqualFold(p.ID, key) || strings.EqualFold(p.Name, key) {
			tmpl := p
			return &tmpl, nil
		}
	}

	if pattern, ok := custom[key]; ok {
		if res := ValidateTemplate(pattern); !res.IsValid {
			return nil, errors.Newf(errors.ErrTemplateInvalid, "custom template %q is invalid", key).
				WithDetail("errors", res.Errors)
		}
		return &types.NamingTemplate{ID: key, Name: key, Pattern: pattern}, nil
	}

	// A literal pattern given on the command line
	if strings.ContainsRune(key, '{') {
		if res := ValidateTemplate(key); !res.IsValid {
			return nil, errors.New(errors.ErrTemplateInvalid, "template pattern is invalid").
				WithDetail("errors", res.Errors)
		}
		return &types.NamingTemplate{ID: "custom", Name: "Custom", Pattern: key}, nil
	}

	return nil, errors.Newf(errors.ErrNotFound, "unknown template %q", key).
		WithDetail("available", availableNames(custom))
}

func availableNames(custom map[string]string) []string {
	names := make([]string, 0, len(presets)+len(custom))
	for _, p := range presets {
		names = append(names, p.ID)
	}
	for name := range custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
