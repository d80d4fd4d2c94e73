package types

import (
	"fmt"
	"strings"
	"time"
)

// Category groups installed software for naming purposes
type Category string

const (
	CategoryIDE         Category = "IDE"
	CategoryBrowser     Category = "Browser"
	CategoryDevelopment Category = "Development"
	CategoryOffice      Category = "Office"
	CategoryMedia       Category = "Media"
	CategoryGame        Category = "Game"
	CategoryUtility     Category = "Utility"
	CategorySystem      Category = "System"
	CategoryOther       Category = "Other"
)

// Categories lists every known category
var Categories = []Category{
	CategoryIDE, CategoryBrowser, CategoryDevelopment, CategoryOffice,
	CategoryMedia, CategoryGame, CategoryUtility, CategorySystem, CategoryOther,
}

// ParseCategory matches s against the known categories ignoring case. An
// empty string is CategoryOther.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryOther, nil
	}
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// SoftwareEntry is an immutable snapshot of one installed application as
// reported by the inventory scanner. The migration core only reads it.
type SoftwareEntry struct {
	ID             string     `json:"id" yaml:"id"`
	Name           string     `json:"name" yaml:"name"`
	Version        string     `json:"version,omitempty" yaml:"version,omitempty"`
	Vendor         string     `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	InstallPath    string     `json:"installPath" yaml:"installPath"`
	Category       Category   `json:"category" yaml:"category"`
	TotalSizeBytes int64      `json:"totalSizeBytes,omitempty" yaml:"totalSizeBytes,omitempty"`
	InstallDate    *time.Time `json:"installDate,omitempty" yaml:"installDate,omitempty"`
}
