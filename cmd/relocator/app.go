package relocator

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/relocator/pkg/config"
	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/filesystem"
	"github.com/arthur-debert/relocator/pkg/ledger"
	"github.com/arthur-debert/relocator/pkg/links"
	"github.com/arthur-debert/relocator/pkg/migration"
	"github.com/arthur-debert/relocator/pkg/naming"
	"github.com/arthur-debert/relocator/pkg/paths"
	"github.com/arthur-debert/relocator/pkg/registry"
	"github.com/arthur-debert/relocator/pkg/store"
	"github.com/arthur-debert/relocator/pkg/ui"
)

// globalOptions are the persistent flags
type globalOptions struct {
	verbosity  int
	configFile string
	format     string
}

// environment is the resolved configuration a command runs with
type environment struct {
	cfg    *config.Config
	paths  paths.Paths
	format ui.Format
	out    io.Writer
	errOut io.Writer
}

func loadEnvironment(cmd *cobra.Command, opts *globalOptions) (*environment, error) {
	p, err := paths.New()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, MsgErrInitPaths)
	}

	lo := config.LoadOptions{File: opts.configFile}
	if cmd.Flags().Changed("format") {
		lo.Overrides = map[string]interface{}{"output.format": opts.format}
	}
	cfg, err := config.Load(lo)
	if err != nil {
		return nil, err
	}

	format, err := ui.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "invalid output format")
	}

	return &environment{
		cfg:    cfg,
		paths:  p,
		format: format,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}, nil
}

func (e *environment) renderer() (ui.Renderer, error) {
	return ui.NewRenderer(e.format, e.out)
}

// progressFormat picks how progress is drawn on errOut. Structured output
// gets none so stdout stays parseable.
func (e *environment) progressFormat() ui.Format {
	f := e.format
	if f == ui.FormatAuto {
		f = ui.FormatText
		if file, ok := e.out.(*os.File); ok {
			f = ui.DetectFormat(file)
		}
	}
	switch f {
	case ui.FormatTerminal, ui.FormatText:
		return f
	default:
		return ui.FormatJSON
	}
}

// services are the collaborators backed by the ledger database
type services struct {
	store    *store.Bolt
	ledger   *ledger.Logger
	registry *registry.Updater
	engine   *migration.Engine
}

// open wires the migration engine to the on-disk ledger. Callers must
// Close the result.
func (e *environment) open() (*services, error) {
	db, err := store.Open(e.cfg.LedgerPath(e.paths))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStore, MsgErrOpenLedger)
	}

	fsys := filesystem.NewOS()
	lg := ledger.New(db, ledger.WithRetention(e.cfg.Ledger.Retention))
	reg := registry.New(
		registry.NewSystemHive(e.cfg.Registry.Roots),
		db,
		registry.WithMaxDepth(e.cfg.Registry.MaxDepth),
	)

	engine := migration.New(migration.Deps{
		FS:       fsys,
		Volumes:  filesystem.NewOSVolumes(),
		Naming:   naming.New(fsys, naming.WithSubstitute(e.cfg.SubstituteRune())),
		Links:    links.New(fsys),
		Registry: reg,
		Ledger:   lg,
	})

	return &services{store: db, ledger: lg, registry: reg, engine: engine}, nil
}

func (s *services) Close() error {
	return s.store.Close()
}
