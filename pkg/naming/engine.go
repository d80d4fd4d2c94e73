package naming

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/filesystem"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/types"
)

const (
	// Unknown stands in for absent optional fields
	Unknown = "Unknown"

	// DateLayout formats {Date}
	DateLayout = "2006-01-02"

	// DefaultSubstitute replaces illegal characters
	DefaultSubstitute = '_'

	maxConflictProbes = 10000
)

// illegalChars are the nine characters no path segment may contain
const illegalChars = `\/:*?"<>|`

var tokenPattern = regexp.MustCompile(`(?i)\{(category|name|version|vendor|date)\}`)

// Engine resolves relocation target names
type Engine struct {
	fs         types.FS
	substitute rune
}

// Option configures an Engine
type Option func(*Engine)

// WithSubstitute sets the rune that replaces illegal characters
func WithSubstitute(r rune) Option {
	return func(e *Engine) {
		if IsValidSubstitute(r) {
			e.substitute = r
		}
	}
}

// IsValidSubstitute reports whether r may stand in for an illegal character
func IsValidSubstitute(r rune) bool {
	return r > 0x1f && r != utf8.RuneError && !strings.ContainsRune(illegalChars, r)
}

// New creates a naming engine. fs is only consulted by ResolveConflict.
func New(fs types.FS, opts ...Option) *Engine {
	e := &Engine{fs: fs, substitute: DefaultSubstitute}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateName substitutes every token of the template with the entry's
// fields. The result is relative and uses '/' between nested segments.
func (e *Engine) GenerateName(entry *types.SoftwareEntry, tmpl *types.NamingTemplate) (string, error) {
	if entry == nil {
		return "", errors.New(errors.ErrInvalidInput, "software entry is required")
	}
	if tmpl == nil || strings.TrimSpace(tmpl.Pattern) == "" {
		return "", errors.New(errors.ErrInvalidInput, "naming template is empty")
	}
	if res := ValidateTemplate(tmpl.Pattern); !res.IsValid {
		return "", errors.Newf(errors.ErrTemplateInvalid, "template %q is invalid", tmpl.Pattern).
			WithDetail("errors", res.Errors)
	}

	values := map[string]string{
		tokenCategory: e.fieldValue(string(entry.Category)),
		tokenName:     e.fieldValue(entry.Name),
		tokenVersion:  e.fieldValue(entry.Version),
		tokenVendor:   e.fieldValue(entry.Vendor),
		tokenDate:     Unknown,
	}
	if entry.InstallDate != nil && !entry.InstallDate.IsZero() {
		values[tokenDate] = entry.InstallDate.Format(DateLayout)
	}

	name := tokenPattern.ReplaceAllStringFunc(tmpl.Pattern, func(tok string) string {
		return values[strings.ToLower(tok[1:len(tok)-1])]
	})

	logger := logging.GetLogger("naming")
	logger.Trace().
		Str("template", tmpl.Pattern).
		Str("name", name).
		Msg("generated name")

	return strings.ReplaceAll(name, `\`, "/"), nil
}

// fieldValue sanitizes one entry field for substitution. Braces are
// replaced along with the illegal characters so the output never carries
// a placeholder.
func (e *Engine) fieldValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unknown
	}
	v = e.SanitizeFileName(v)
	return strings.Map(func(r rune) rune {
		if r == '{' || r == '}' {
			return e.substitute
		}
		return r
	}, v)
}

// SanitizeFileName replaces each of the nine illegal path characters with
// the substitute, position for position. Everything else passes through.
func (e *Engine) SanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalChars, r) {
			return e.substitute
		}
		return r
	}, s)
}

// SanitizeRelativePath sanitizes each '/'-separated segment of a generated
// name and drops empty and dot segments
func (e *Engine) SanitizeRelativePath(name string) string {
	segments := strings.FieldsFunc(name, isSeparator)
	kept := segments[:0]
	for _, s := range segments {
		s = strings.TrimSpace(e.SanitizeFileName(s))
		if s == "" || s == "." || s == ".." {
			continue
		}
		kept = append(kept, s)
	}
	return filepath.Join(kept...)
}

// ResolveConflict returns basePath/desiredName when nothing is there yet,
// otherwise the first free desiredName_1, desiredName_2, ... The suffix goes
// on the last segment of a nested name.
func (e *Engine) ResolveConflict(basePath, desiredName string) (string, error) {
	if strings.TrimSpace(basePath) == "" {
		return "", errors.New(errors.ErrInvalidInput, "base path is required")
	}
	rel := e.SanitizeRelativePath(desiredName)
	if rel == "" {
		return "", errors.New(errors.ErrInvalidInput, "desired name is empty")
	}

	candidate := filepath.Join(basePath, rel)
	if !filesystem.Exists(e.fs, candidate) {
		return candidate, nil
	}

	for i := 1; i <= maxConflictProbes; i++ {
		probe := candidate + "_" + strconv.Itoa(i)
		if !filesystem.Exists(e.fs, probe) {
			logger := logging.GetLogger("naming")
			logger.Debug().
				Str("desired", candidate).
				Str("resolved", probe).
				Msg("resolved name conflict")
			return probe, nil
		}
	}

	return "", errors.Newf(errors.ErrNameConflict, "no free name for %s after %d attempts", candidate, maxConflictProbes)
}
