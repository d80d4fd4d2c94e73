package relocator

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/relocator/internal/version"
	"github.com/arthur-debert/relocator/pkg/cobrax/topics"
	"github.com/arthur-debert/relocator/pkg/config"
	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/filesystem"
	"github.com/arthur-debert/relocator/pkg/ledger"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/naming"
	"github.com/arthur-debert/relocator/pkg/types"
	"github.com/arthur-debert/relocator/pkg/ui"
)

//go:embed topics
var topicFiles embed.FS

// cli holds the persistent flags and the lazily loaded environment.
// Commands that never touch configuration (version, completion) work
// even when the config file is broken.
type cli struct {
	opts globalOptions
	env  *environment
}

func (c *cli) environment(cmd *cobra.Command) (*environment, error) {
	if c.env == nil {
		env, err := loadEnvironment(cmd, &c.opts)
		if err != nil {
			return nil, err
		}
		c.env = env
	}
	return c.env, nil
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	c := &cli{}

	rootCmd := &cobra.Command{
		Use:     "relocator",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(c.opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&c.opts.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVarP(&c.opts.configFile, "config", "c", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVarP(&c.opts.format, "format", "f", "", MsgFlagFormat)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "ledger", Title: "Ledger:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "Misc:"})

	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(c.newPlanCmd())
	rootCmd.AddCommand(c.newMigrateCmd())
	rootCmd.AddCommand(c.newRollbackCmd())
	rootCmd.AddCommand(c.newHistoryCmd())
	rootCmd.AddCommand(c.newReportCmd())
	rootCmd.AddCommand(c.newInspectCmd())
	rootCmd.AddCommand(c.newTemplatesCmd())
	rootCmd.AddCommand(c.newGenConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	initTopics(rootCmd)

	return rootCmd
}

// initTopics adds `relocator help <topic>` for the embedded topic files
func initTopics(rootCmd *cobra.Command) {
	files, err := fs.Sub(topicFiles, "topics")
	if err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
		return
	}

	var renderer topics.Renderer = topics.PlainRenderer{}
	if stdoutIsTerminal() {
		renderer = topics.MarkdownRenderer{}
	}
	tm, err := topics.Load(files, topics.Options{Renderer: renderer})
	if err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
		return
	}
	tm.Install(rootCmd)
	rootCmd.SetHelpCommandGroupID("misc")
}

// template resolves --template, falling back to naming.template
func (e *environment) template(flag string) (*types.NamingTemplate, error) {
	if flag != "" {
		return naming.Lookup(flag, e.cfg.Naming.Custom)
	}
	return e.cfg.Template()
}

// plan builds the migration plan shared by plan and migrate
func (c *cli) plan(cmd *cobra.Command, args []string, eo *entryOptions) (*environment, *services, *types.MigrationPlan, error) {
	env, err := c.environment(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	entry, target, err := eo.resolve(cmd, args)
	if err != nil {
		return nil, nil, nil, err
	}
	tmpl, err := env.template(eo.template)
	if err != nil {
		return nil, nil, nil, err
	}

	svc, err := env.open()
	if err != nil {
		return nil, nil, nil, err
	}
	plan, err := svc.engine.CreatePlan(cmd.Context(), entry, target, tmpl)
	if err != nil {
		_ = svc.Close()
		return nil, nil, nil, err
	}
	return env, svc, plan, nil
}

func (c *cli) newPlanCmd() *cobra.Command {
	eo := &entryOptions{}
	cmd := &cobra.Command{
		Use:     "plan [install-path] <target-base>",
		Short:   MsgPlanShort,
		Long:    MsgPlanLong,
		Example: MsgPlanExample,
		GroupID: "core",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, svc, plan, err := c.plan(cmd, args, eo)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			r, err := env.renderer()
			if err != nil {
				return err
			}
			return r.RenderResult(plan)
		},
	}
	eo.addFlags(cmd)
	return cmd
}

func (c *cli) newMigrateCmd() *cobra.Command {
	eo := &entryOptions{}
	var (
		dryRun         bool
		linkType       string
		updateRegistry bool
		verify         bool
	)

	cmd := &cobra.Command{
		Use:     "migrate [install-path] <target-base>",
		Short:   MsgMigrateShort,
		Long:    MsgMigrateLong,
		Example: MsgMigrateExample,
		GroupID: "core",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, svc, plan, err := c.plan(cmd, args, eo)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			r, err := env.renderer()
			if err != nil {
				return err
			}
			if dryRun {
				return r.RenderResult(plan)
			}

			opts := types.MigrationOptions{
				LinkPreference:  env.cfg.LinkPreference(),
				UpdateRegistry:  env.cfg.Migration.UpdateRegistry,
				VerifyIntegrity: env.cfg.Migration.VerifyIntegrity,
			}
			f := cmd.Flags()
			if f.Changed("link-type") {
				pref, err := types.ParseLinkPreference(linkType)
				if err != nil {
					return errors.Wrap(err, errors.ErrInvalidInput, "invalid --link-type")
				}
				opts.LinkPreference = pref
			}
			if f.Changed("update-registry") {
				opts.UpdateRegistry = updateRegistry
			}
			if f.Changed("verify") {
				opts.VerifyIntegrity = verify
			}

			log.Info().
				Str("source", plan.SourcePath).
				Str("target", plan.TargetPath).
				Str("link", string(opts.LinkPreference)).
				Msg("Starting migration")

			progress, stop := ui.ShowProgress(env.errOut, env.progressFormat(), fmt.Sprintf(MsgMigrationTitle, plan.Entry.Name))
			result, err := svc.engine.Execute(cmd.Context(), *plan, opts, progress)
			stop()

			if result != nil {
				if rerr := r.RenderResult(result); rerr != nil && err == nil {
					err = rerr
				}
			}
			return err
		},
	}
	eo.addFlags(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, MsgFlagDryRun)
	cmd.Flags().StringVar(&linkType, "link-type", "", MsgFlagLinkType)
	cmd.Flags().BoolVar(&updateRegistry, "update-registry", true, MsgFlagUpdateRegistry)
	cmd.Flags().BoolVar(&verify, "verify", false, MsgFlagVerify)
	return cmd
}

func (c *cli) newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rollback <operation-id>",
		Short:   MsgRollbackShort,
		Long:    MsgRollbackLong,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			svc, err := env.open()
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			r, err := env.renderer()
			if err != nil {
				return err
			}

			progress, stop := ui.ShowProgress(env.errOut, env.progressFormat(), fmt.Sprintf(MsgRollbackTitle, args[0]))
			result, err := svc.engine.Rollback(cmd.Context(), args[0], progress)
			stop()

			if result != nil {
				if rerr := r.RenderResult(result); rerr != nil && err == nil {
					err = rerr
				}
			}
			return err
		},
	}
}

// parseSince accepts a duration back from now or a calendar date
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, errors.Newf(errors.ErrInvalidInput, MsgErrSince, s)
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var (
		since string
		limit int
	)
	cmd := &cobra.Command{
		Use:     "history",
		Short:   MsgHistoryShort,
		Long:    MsgHistoryLong,
		Example: MsgHistoryExample,
		GroupID: "ledger",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}

			q := ledger.HistoryQuery{Limit: limit}
			if since != "" {
				t, err := parseSince(since, time.Now())
				if err != nil {
					return err
				}
				q.Since = &t
			}

			svc, err := env.open()
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			records, err := svc.ledger.GetHistory(cmd.Context(), q)
			if err != nil {
				return err
			}
			r, err := env.renderer()
			if err != nil {
				return err
			}
			return r.RenderResult(records)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", MsgFlagSince)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, MsgFlagLimit)
	return cmd
}

func (c *cli) newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "report <operation-id>",
		Short:   MsgReportShort,
		Long:    MsgReportLong,
		GroupID: "ledger",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			svc, err := env.open()
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			rec, err := svc.ledger.GetOperation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return errors.Newf(errors.ErrOperationNotFound, "operation %s not found", args[0]).
					WithDetail("operation", args[0])
			}

			report := &ui.AuditReport{Operation: rec}
			for _, a := range rec.Actions {
				if a.ActionType != types.ActionRegistryUpdate || a.NewValue == "" {
					continue
				}
				report.Registry, err = svc.registry.GenerateReport(cmd.Context(), a.NewValue)
				if err != nil {
					return err
				}
				break
			}

			r, err := env.renderer()
			if err != nil {
				return err
			}
			return r.RenderResult(report)
		},
	}
}

func (c *cli) newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "inspect <path>",
		Short:   MsgInspectShort,
		Long:    MsgInspectLong,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			svc, err := env.open()
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			r, err := env.renderer()
			if err != nil {
				return err
			}
			return r.RenderResult(svc.engine.Inspect(args[0]))
		},
	}
}

// sampleEntry is used to show what a template produces
func sampleEntry() *types.SoftwareEntry {
	installed := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	return &types.SoftwareEntry{
		ID:          "sample",
		Name:        "Visual Studio Code",
		Vendor:      "Microsoft",
		Version:     "1.88.0",
		InstallPath: `C:\Program Files\Microsoft VS Code`,
		Category:    types.CategoryIDE,
		InstallDate: &installed,
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *cli) newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Short:   MsgTemplatesShort,
		Long:    MsgTemplatesLong,
		GroupID: "misc",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: MsgTemplatesList,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}

			templates := naming.PresetTemplates()
			for _, name := range sortedKeys(env.cfg.Naming.Custom) {
				templates = append(templates, types.NamingTemplate{
					ID:      name,
					Name:    name,
					Pattern: env.cfg.Naming.Custom[name],
				})
			}

			r, err := env.renderer()
			if err != nil {
				return err
			}
			return r.RenderResult(templates)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <pattern>",
		Short: MsgTemplatesCheck,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}

			check := &ui.TemplateCheck{Pattern: args[0], Result: naming.ValidateTemplate(args[0])}
			if check.Result.IsValid {
				namer := naming.New(filesystem.NewMemoryFS(), naming.WithSubstitute(env.cfg.SubstituteRune()))
				example, err := namer.GenerateName(sampleEntry(), &types.NamingTemplate{ID: "check", Pattern: args[0]})
				if err == nil {
					check.Example = example
				}
			}

			r, err := env.renderer()
			if err != nil {
				return err
			}
			if err := r.RenderResult(check); err != nil {
				return err
			}
			if !check.Result.IsValid {
				return errors.Newf(errors.ErrTemplateInvalid, "invalid template %q", args[0]).
					WithDetail("errors", check.Result.Errors)
			}
			return nil
		},
	})

	return cmd
}

func (c *cli) newGenConfigCmd() *cobra.Command {
	var (
		effective bool
		write     bool
		force     bool
	)
	cmd := &cobra.Command{
		Use:     "genconfig",
		Short:   MsgGenConfigShort,
		Long:    MsgGenConfigLong,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}

			content := []byte(config.GenerateTemplate())
			if effective {
				if content, err = config.Generate(env.cfg); err != nil {
					return err
				}
			}

			if !write {
				_, err := env.out.Write(content)
				return err
			}

			path := env.paths.ConfigFilePath()
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf(errors.ErrInvalidInput, MsgConfigExists, path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return errors.Wrapf(err, errors.ErrFileAccess, "failed to create %s", filepath.Dir(path))
			}
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return errors.Wrapf(err, errors.ErrFileAccess, "failed to write %s", path)
			}

			r, err := env.renderer()
			if err != nil {
				return err
			}
			return r.RenderMessage(fmt.Sprintf(MsgConfigWritten, path))
		},
	}
	cmd.Flags().BoolVar(&effective, "effective", false, MsgFlagEffective)
	cmd.Flags().BoolVarP(&write, "write", "w", false, MsgFlagWrite)
	cmd.Flags().BoolVar(&force, "force", false, MsgFlagForce)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), MsgVersionFormat+"\n", version.Version, version.Commit, version.Date)
			return err
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		GroupID:               "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
