package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/relocator/pkg/errors"
)

// Environment variable names
const (
	// EnvDataDir overrides the XDG data directory for relocator
	EnvDataDir = "RELOCATOR_DATA_DIR"

	// EnvConfigDir overrides the XDG config directory for relocator
	EnvConfigDir = "RELOCATOR_CONFIG_DIR"

	// EnvStateDir overrides the XDG state directory for relocator
	EnvStateDir = "RELOCATOR_STATE_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Fixed names inside the XDG directories. These are not user-configurable;
// user-facing overrides belong in pkg/config.
const (
	// AppDirName is the directory name for relocator-specific files
	AppDirName = "relocator"

	// LedgerFileName is the bbolt database holding operations and backups
	LedgerFileName = "ledger.db"

	// ConfigFileName is the user configuration file
	ConfigFileName = "config.toml"

	// LogFileName is the name of the log file
	LogFileName = "relocator.log"
)

// Paths provides centralized path management for relocator
type Paths interface {
	DataDir() string
	ConfigDir() string
	StateDir() string
	LedgerPath() string
	ConfigFilePath() string
	LogFilePath() string
}

type paths struct {
	xdgData   string
	xdgConfig string
	xdgState  string
}

// New creates a Paths instance, respecting environment overrides
func New() (Paths, error) {
	p := &paths{}

	if dataDir := os.Getenv(EnvDataDir); dataDir != "" {
		p.xdgData = expandHome(dataDir)
	} else {
		p.xdgData = filepath.Join(xdg.DataHome, AppDirName)
	}

	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		p.xdgConfig = expandHome(configDir)
	} else {
		p.xdgConfig = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	if stateDir := os.Getenv(EnvStateDir); stateDir != "" {
		p.xdgState = expandHome(stateDir)
	} else {
		p.xdgState = filepath.Join(xdg.StateHome, AppDirName)
	}

	for _, dir := range []*string{&p.xdgData, &p.xdgConfig, &p.xdgState} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for %s", *dir)
		}
		*dir = abs
	}

	return p, nil
}

// DataDir returns the XDG data directory for relocator
func (p *paths) DataDir() string {
	return p.xdgData
}

// ConfigDir returns the XDG config directory for relocator
func (p *paths) ConfigDir() string {
	return p.xdgConfig
}

// StateDir returns the XDG state directory for relocator
func (p *paths) StateDir() string {
	return p.xdgState
}

// LedgerPath returns the default location of the operation ledger
func (p *paths) LedgerPath() string {
	return filepath.Join(p.xdgData, LedgerFileName)
}

// ConfigFilePath returns the default user configuration file
func (p *paths) ConfigFilePath() string {
	return filepath.Join(p.xdgConfig, ConfigFileName)
}

// LogFilePath returns the log file location
func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}

// expandHome expands ~ to the home directory
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}

	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}

	// ~something (not the user's home)
	return path
}

// ExpandHome is a utility function that expands ~ in paths
func ExpandHome(path string) string {
	return expandHome(path)
}
