package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/relocator/pkg/types"
)

// Recognized tokens, lower-cased
const (
	tokenCategory = "category"
	tokenName     = "name"
	tokenVersion  = "version"
	tokenVendor   = "vendor"
	tokenDate     = "date"
)

var knownTokens = map[string]bool{
	tokenCategory: true,
	tokenName:     true,
	tokenVersion:  true,
	tokenVendor:   true,
	tokenDate:     true,
}

// ValidateTemplate reports one error per violation. A pattern that passes
// never makes GenerateName fail.
func ValidateTemplate(pattern string) types.ValidationResult {
	var errs []string

	if strings.TrimSpace(pattern) == "" {
		return types.ValidationResult{IsValid: false, Errors: []string{"template pattern is empty"}}
	}

	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '}':
			errs = append(errs, fmt.Sprintf("unmatched '}' at position %d", i))
		case '{':
			end := strings.IndexAny(pattern[i+1:], "{}")
			if end < 0 || pattern[i+1+end] == '{' {
				errs = append(errs, fmt.Sprintf("unclosed placeholder at position %d", i))
				continue
			}
			token := pattern[i+1 : i+1+end]
			switch {
			case token == "":
				errs = append(errs, fmt.Sprintf("empty placeholder at position %d", i))
			case !knownTokens[strings.ToLower(token)]:
				errs = append(errs, fmt.Sprintf("unknown placeholder {%s} at position %d", token, i))
			}
			i += end + 1
		}
	}

	if strings.HasPrefix(pattern, "/") || strings.HasPrefix(pattern, `\`) || filepath.VolumeName(pattern) != "" {
		errs = append(errs, "template must be relative to the target base path")
	}
	for _, segment := range strings.FieldsFunc(pattern, isSeparator) {
		if segment == ".." || segment == "." {
			errs = append(errs, fmt.Sprintf("template segment %q is not allowed", segment))
		}
	}

	return types.ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
