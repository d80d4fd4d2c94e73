package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/paths"
)

// EnvPrefix starts every configuration environment variable. Sections are
// separated by a double underscore: RELOCATOR_MIGRATION__LINK_TYPE.
const EnvPrefix = "RELOCATOR_"

// LoadOptions selects the sources layered over the embedded defaults
type LoadOptions struct {
	// File is an explicit config file. It must exist when set. When empty
	// the default location is used if present.
	File string
	// Overrides are applied last, keyed by dotted path (output.format)
	Overrides map[string]interface{}
}

// Load builds the effective configuration: embedded defaults, then the
// user file, then RELOCATOR_ environment variables, then overrides.
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. User file
	path, err := configFilePath(opts.File)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", path).
				WithDetail("path", path)
		}
		logger.Debug().Str("path", path).Msg("loaded config file")
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	cfg, err := decode(k)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded defaults alone
func Default() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}
	return decode(k)
}

func decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "failed to unmarshal configuration")
	}
	if cfg.Naming.Custom == nil {
		cfg.Naming.Custom = map[string]string{}
	}
	return &cfg, nil
}

// configFilePath returns the file to load, or "" when the default file
// does not exist
func configFilePath(explicit string) (string, error) {
	if explicit != "" {
		path, err := paths.NormalizePath(explicit)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", errors.Wrapf(err, errors.ErrConfigLoad, "config file %s not readable", path).
				WithDetail("path", path)
		}
		return path, nil
	}

	p, err := paths.New()
	if err != nil {
		return "", err
	}
	path := p.ConfigFilePath()
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

// envKey maps RELOCATOR_LEDGER__RETENTION to ledger.retention. Variables
// without a section separator, such as RELOCATOR_DATA_DIR, are not
// configuration keys and are skipped.
func envKey(s string) string {
	key := strings.TrimPrefix(s, EnvPrefix)
	if !strings.Contains(key, "__") {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}
