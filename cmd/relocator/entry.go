package relocator

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/paths"
	"github.com/arthur-debert/relocator/pkg/types"
)

const dateLayout = "2006-01-02"

// entryOptions describe the application being planned or migrated
type entryOptions struct {
	file      string
	name      string
	vendor    string
	version   string
	category  string
	installed string
	template  string
}

func (o *entryOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.file, "entry", "", MsgFlagEntry)
	f.StringVar(&o.name, "name", "", MsgFlagName)
	f.StringVar(&o.vendor, "vendor", "", MsgFlagVendor)
	f.StringVar(&o.version, "app-version", "", MsgFlagVersion)
	f.StringVar(&o.category, "category", "", MsgFlagCategory)
	f.StringVar(&o.installed, "installed", "", MsgFlagInstalled)
	f.StringVarP(&o.template, "template", "t", "", MsgFlagTemplate)
}

// resolve builds the entry and returns it with the target base path. args
// are either <install-path> <target-base>, or <target-base> alone when
// the entry file names the install path.
func (o *entryOptions) resolve(cmd *cobra.Command, args []string) (*types.SoftwareEntry, string, error) {
	entry := &types.SoftwareEntry{}
	if o.file != "" {
		loaded, err := readEntryFile(o.file)
		if err != nil {
			return nil, "", err
		}
		entry = loaded
	}

	var target string
	switch {
	case len(args) == 2:
		if entry.InstallPath != "" && !paths.SamePath(entry.InstallPath, args[0]) {
			return nil, "", errors.New(errors.ErrInvalidInput, MsgEntryAndPath).
				WithDetail("entry", entry.InstallPath).
				WithDetail("argument", args[0])
		}
		entry.InstallPath = args[0]
		target = args[1]
	case len(args) == 1 && entry.InstallPath != "":
		target = args[0]
	default:
		return nil, "", errors.New(errors.ErrInvalidInput, MsgEntryOrPath)
	}

	f := cmd.Flags()
	if f.Changed("name") {
		entry.Name = o.name
	}
	if f.Changed("vendor") {
		entry.Vendor = o.vendor
	}
	if f.Changed("app-version") {
		entry.Version = o.version
	}
	if f.Changed("category") || entry.Category == "" {
		raw := string(entry.Category)
		if f.Changed("category") {
			raw = o.category
		}
		c, err := types.ParseCategory(raw)
		if err != nil {
			return nil, "", errors.Wrap(err, errors.ErrInvalidInput, "invalid category")
		}
		entry.Category = c
	}
	if f.Changed("installed") {
		d, err := time.ParseInLocation(dateLayout, o.installed, time.Local)
		if err != nil {
			return nil, "", errors.Newf(errors.ErrInvalidInput, MsgErrDate, o.installed)
		}
		entry.InstallDate = &d
	}

	if strings.TrimSpace(entry.Name) == "" {
		entry.Name = filepath.Base(filepath.Clean(entry.InstallPath))
	}
	if strings.TrimSpace(entry.Name) == "" || entry.Name == "." || entry.Name == string(filepath.Separator) {
		return nil, "", errors.New(errors.ErrInvalidInput, MsgNoEntryName)
	}
	if entry.ID == "" {
		entry.ID = strings.ToLower(entry.Name)
	}
	return entry, target, nil
}

func readEntryFile(path string) (*types.SoftwareEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, MsgErrReadEntry, path)
	}
	var entry types.SoftwareEntry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, MsgErrParseEntry, path)
	}
	return &entry, nil
}
