package relocator

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Move installed applications and leave a link behind"
	MsgPlanShort       = "Compute a migration plan without changing anything"
	MsgMigrateShort    = "Move an application and link its original location"
	MsgRollbackShort   = "Undo a recorded migration"
	MsgHistoryShort    = "List recorded operations"
	MsgReportShort     = "Show an operation with its registry changes"
	MsgInspectShort    = "Show whether a path has been migrated"
	MsgTemplatesShort  = "Manage folder naming templates"
	MsgTemplatesList   = "List preset and custom naming templates"
	MsgTemplatesCheck  = "Check a naming pattern and show an example"
	MsgGenConfigShort  = "Print a configuration file"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
	MsgHistoryLong     = "History lists ledger records newest first. Records older than the retention window are never shown."
	MsgReportLong      = "Report joins an operation record with the registry values it rewrote."
	MsgInspectLong     = "Inspect reports whether a path is original, migrated, corrupt or missing. Nothing is repaired."
	MsgGenConfigLong   = "Genconfig prints the default configuration with every value commented out, or the effective configuration with --effective."
	MsgTemplatesLong   = "Naming templates build the target folder name from fields such as {Name}, {Vendor}, {Version} and {Category}."
	MsgConfigWritten   = "Wrote configuration to %s"
	MsgVersionFormat   = "relocator %s (commit %s, built %s)"
	MsgMigrationTitle  = "Migrating %s"
	MsgRollbackTitle   = "Rolling back %s"
	MsgNoEntryName     = "application name is required (--name or --entry)"
	MsgEntryOrPath     = "expected <install-path> <target-base>, or --entry with <target-base>"
	MsgEntryAndPath    = "install path given both as argument and in --entry"
	MsgConfigExists    = "%s already exists (use --force to overwrite)"

	// Error messages
	MsgErrInitPaths  = "failed to initialize paths"
	MsgErrOpenLedger = "failed to open ledger"
	MsgErrReadEntry  = "failed to read entry file %s"
	MsgErrParseEntry = "failed to parse entry file %s"
	MsgErrSince      = "invalid --since %q: use a duration (24h) or a date (2006-01-02)"
	MsgErrDate       = "invalid --installed %q: use a date (2006-01-02)"

	// Flag descriptions
	MsgFlagVerbose        = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig         = "Configuration file (toml or yaml)"
	MsgFlagFormat         = "Output format (auto, term, text, json, yaml, xml, markdown)"
	MsgFlagEntry          = "YAML file describing the application"
	MsgFlagName           = "Application name"
	MsgFlagVendor         = "Application vendor"
	MsgFlagVersion        = "Application version"
	MsgFlagCategory       = "Application category (IDE, Browser, Development, Office, Media, Game, Utility, System, Other)"
	MsgFlagInstalled      = "Install date (2006-01-02)"
	MsgFlagTemplate       = "Naming template id or name (overrides naming.template)"
	MsgFlagDryRun         = "Print the plan without executing it"
	MsgFlagLinkType       = "Link type to create (auto, junction, symlink)"
	MsgFlagUpdateRegistry = "Rewrite registry values that mention the old path"
	MsgFlagVerify         = "Compare file checksums after the move"
	MsgFlagSince          = "Only show operations since a duration ago or a date"
	MsgFlagLimit          = "Maximum number of operations to show (0 for all)"
	MsgFlagEffective      = "Print the effective configuration instead of the commented defaults"
	MsgFlagWrite          = "Write to the user configuration file instead of stdout"
	MsgFlagForce          = "Overwrite an existing configuration file"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/plan-long.txt
	msgPlanLongRaw string
	MsgPlanLong    = strings.TrimSpace(msgPlanLongRaw)

	//go:embed msgs/plan-example.txt
	msgPlanExampleRaw string
	MsgPlanExample    = strings.TrimRight(msgPlanExampleRaw, "\n")

	//go:embed msgs/migrate-long.txt
	msgMigrateLongRaw string
	MsgMigrateLong    = strings.TrimSpace(msgMigrateLongRaw)

	//go:embed msgs/migrate-example.txt
	msgMigrateExampleRaw string
	MsgMigrateExample    = strings.TrimRight(msgMigrateExampleRaw, "\n")

	//go:embed msgs/rollback-long.txt
	msgRollbackLongRaw string
	MsgRollbackLong    = strings.TrimSpace(msgRollbackLongRaw)

	//go:embed msgs/history-example.txt
	msgHistoryExampleRaw string
	MsgHistoryExample    = strings.TrimRight(msgHistoryExampleRaw, "\n")

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
