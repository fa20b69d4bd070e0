package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"lucidexport/pkg/auth"
	"lucidexport/pkg/config"
	"lucidexport/pkg/docid"
	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/exporter"
	"lucidexport/pkg/logger"
	"lucidexport/pkg/lucid"
	"lucidexport/pkg/metrics"
	"lucidexport/pkg/models"
	"lucidexport/pkg/ratelimit"
	"lucidexport/pkg/report"
	"lucidexport/pkg/ui"
	"lucidexport/pkg/ui/tui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// newCredentialManager is swapped out in tests
var newCredentialManager = auth.NewManager

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool
}

// exportOptions are the flags of the export (root) command
type exportOptions struct {
	documents   string
	idFile      string
	output      string
	apiKey      string
	concurrency int
	contentType string
	extension   string
	crop        string
	report      string
	metricsFile string
	notify      bool
	profile     string
	tui         bool
}

func newRootCmd() *cobra.Command {
	global := &globalOptions{}
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "lucidexport [document-ids]",
		Short: "Export every page of Lucid documents as images",
		Long: `lucidexport downloads every page of one or more Lucid documents as image
files, one folder per document.

Document ids can be given with --documents (comma separated), read from a file
with --file (one id per line, '#' starts a comment), or passed as a comma
separated positional argument. Exactly one source is used: --file wins over
--documents, which wins over the positional list.

Pages are written as "{output}/{document title}/[NN] - {page title}.{ext}".
At most --concurrency page downloads run at once across all documents.
Failed pages and documents are logged and reported; they do not change the
exit code.`,
		Example: `  # Export two documents into ./LucidExports
  lucidexport -d 1a2b3c,4d5e6f

  # Read ids from a file and write a JSON report
  lucidexport -f documents.txt -o ./exports --report report.json

  # Export PDFs with no cropping
  lucidexport -d 1a2b3c --content-type application/pdf --extension pdf --crop none`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Configure(ui.Options{
				Out:     cmd.OutOrStdout(),
				Err:     cmd.ErrOrStderr(),
				Quiet:   global.quiet,
				NoColor: global.noColor,
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, global, opts, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&global.configFile, "config", "c", "", "config file (default is ./.lucidexport.yaml or ~/.config/lucidexport/config.yaml)")
	pf.StringVar(&global.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	pf.BoolVar(&global.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&global.quiet, "quiet", "q", false, "suppress all output except errors")
	pf.BoolVarP(&global.verbose, "verbose", "v", false, "debug logging and one line per exported page")

	f := cmd.Flags()
	f.StringVarP(&opts.documents, "documents", "d", "", "comma separated document ids")
	f.StringVarP(&opts.idFile, "file", "f", "", "file with one document id per line")
	f.StringVarP(&opts.output, "output", "o", "", "output folder (default ./LucidExports)")
	f.StringVarP(&opts.apiKey, "api-key", "k", "", "Lucid API key (default $"+config.APIKeyEnv+" or stored credential)")
	f.IntVar(&opts.concurrency, "concurrency", ratelimit.DefaultCapacity, "maximum concurrent page downloads across all documents")
	f.StringVar(&opts.contentType, "content-type", lucid.DefaultContentType, "Accept header for page downloads")
	f.StringVar(&opts.extension, "extension", lucid.DefaultExtension, "file extension for exported pages")
	f.StringVar(&opts.crop, "crop", lucid.DefaultCropMode, "page crop mode")
	f.StringVar(&opts.report, "report", "", "write a JSON run report to this path")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this path")
	f.BoolVar(&opts.notify, "notify", false, "send a desktop notification when the run finishes")
	f.StringVar(&opts.profile, "profile", auth.DefaultProfile, "stored credential profile to use")
	f.BoolVar(&opts.tui, "tui", false, "use interactive terminal UI with real-time progress")

	cmd.SetVersionTemplate(`lucidexport {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(newAuthCmd(global))
	cmd.AddCommand(newConfigCmd(global))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		ui.PrintError(err.Error())
		return 1
	}
	return 0
}

func runExport(cmd *cobra.Command, global *globalOptions, opts *exportOptions, args []string) error {
	ids, warnings, err := collectDocumentIDs(opts, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, global, opts)
	if err != nil {
		return err
	}

	// the terminal UI owns the screen; logs still reach the log file
	console := io.Writer(os.Stderr)
	if opts.tui {
		console = io.Discard
	}
	if err := logger.InitializeWithWriter(&cfg.Logging, console); err != nil {
		return lerrors.Config("invalid logging configuration: %v", err)
	}
	log := logger.GetLogger()

	for _, w := range warnings {
		log.Warn(w)
		ui.PrintWarning(w)
	}

	apiKey, source, err := resolveAPIKey(cfg, opts.profile, log)
	if err != nil {
		return err
	}
	log.WithField("source", source).Debug("Using Lucid API key")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !opts.tui {
		ui.PrintBanner()
		ui.PrintInfo("Documents", fmt.Sprintf("%d", len(ids)))
		ui.PrintInfo("Output", cfg.Output.BaseDirectory)
	}

	client := lucid.NewClient(cfg.Export.RequestTimeout, log,
		lucid.WithBaseURL(cfg.Lucid.BaseURL),
		lucid.WithAPIVersion(cfg.Lucid.APIVersion),
	)

	limiter := ratelimit.NewSemaphore(cfg.Export.Concurrency)
	recorder := metrics.NewRecorder()
	observers := exporter.Observers{recorder}

	var progress *ui.ProgressDisplay
	var terminal *tui.TUI
	if opts.tui {
		terminal = newTerminalUI(ctx, cmd, len(ids), limiter.Capacity(), cancel)
		observers = append(observers, terminal)
	} else {
		progress = ui.NewProgressDisplay(len(ids), global.verbose)
		observers = append(observers, progress)
	}

	runner := exporter.NewRunner(
		exporter.New(client, client.BaseURL(), observers, log),
		limiter,
		exporter.Options{
			ContentType:     cfg.Export.ContentType,
			ExportExtension: cfg.Export.Extension,
			CropMode:        cfg.Export.CropMode,
		},
		log,
	)

	started := time.Now()
	var outcomes []models.DocumentOutcome
	if terminal != nil {
		outcomes = runWithTUI(terminal, log, func() []models.DocumentOutcome {
			return runner.Run(ctx, ids, cfg.Output.BaseDirectory, apiKey)
		})
	} else {
		outcomes = runner.Run(ctx, ids, cfg.Output.BaseDirectory, apiKey)
		progress.Complete()
	}
	finished := time.Now()

	if ctx.Err() != nil {
		ui.PrintWarning("Export interrupted; unfinished pages were recorded as failures")
	}

	ui.PrintSummary(outcomes)
	totals := models.Summarize(outcomes)

	if cfg.Output.ReportFile != "" {
		r := report.Build(outcomes, cfg.Output.BaseDirectory, limiter.Capacity(), started, finished)
		if err := r.Save(cfg.Output.ReportFile); err != nil {
			log.WithError(err).WithField("path", cfg.Output.ReportFile).Error("Failed to write report")
			ui.PrintWarning("Failed to write report", err.Error())
		} else {
			ui.PrintInfo("Report", cfg.Output.ReportFile)
		}
	}

	if cfg.Metrics.TextfilePath != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			log.WithError(err).WithField("path", cfg.Metrics.TextfilePath).Error("Failed to write metrics")
			ui.PrintWarning("Failed to write metrics", err.Error())
		}
	}

	if err := ui.NewNotifier(cfg.Notifications.Enabled).NotifyRunComplete(totals); err != nil {
		log.WithError(err).Debug("Desktop notification failed")
	}

	if totals.FailedDocuments == 0 && totals.FailedPages == 0 {
		ui.PrintSuccess(fmt.Sprintf("Exported %d pages from %d documents", totals.Pages, totals.Documents))
	} else {
		ui.PrintWarning(fmt.Sprintf("%d of %d documents and %d of %d pages failed",
			totals.FailedDocuments, totals.Documents, totals.FailedPages, totals.Pages))
	}

	return nil
}

// newTerminalUI builds the full-screen progress view. Quitting it cancels the
// run and a signal closes it. Output that is not a terminal, as in tests, is
// used as is.
func newTerminalUI(ctx context.Context, cmd *cobra.Command, documents, capacity int, cancel context.CancelFunc) *tui.TUI {
	opts := []tui.Option{tui.WithOnQuit(cancel), tui.WithContext(ctx)}
	if !isTerminal(cmd.OutOrStdout()) {
		opts = append(opts, tui.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()))
	}
	return tui.New(documents, capacity, opts...)
}

// runWithTUI runs the export in the background while the terminal UI owns the
// screen. The UI exits by itself once the run is finished.
func runWithTUI(terminal *tui.TUI, log logger.Logger, run func() []models.DocumentOutcome) []models.DocumentOutcome {
	done := make(chan []models.DocumentOutcome, 1)
	go func() {
		outcomes := run()
		terminal.Finish()
		done <- outcomes
	}()

	if err := terminal.Start(); err != nil {
		log.WithError(err).Error("Terminal UI failed; the export continues without it")
	}
	return <-done
}

// collectDocumentIDs picks exactly one id source: --file, then --documents,
// then the positional list. Ignored sources come back as warnings.
func collectDocumentIDs(opts *exportOptions, args []string) ([]string, []string, error) {
	var ids, warnings []string
	positional := strings.TrimSpace(strings.Join(args, ","))

	switch {
	case opts.idFile != "":
		read, err := docid.ReadFile(opts.idFile)
		if err != nil {
			return nil, nil, lerrors.Config("cannot read document id file: %v", err)
		}
		ids = read
		if opts.documents != "" {
			warnings = append(warnings, "--documents is ignored because --file was given")
		}
		if positional != "" {
			warnings = append(warnings, "positional document ids are ignored because --file was given")
		}
	case opts.documents != "":
		ids = docid.ParseList(opts.documents)
		if positional != "" {
			warnings = append(warnings, "positional document ids are ignored because --documents was given")
		}
	default:
		ids = docid.ParseList(positional)
	}

	if len(ids) == 0 {
		return nil, warnings, lerrors.Config("no document ids provided; use --documents, --file or a positional list")
	}
	return ids, warnings, nil
}

// loadConfig merges defaults, config file, environment and the flags the
// user actually set.
func loadConfig(cmd *cobra.Command, global *globalOptions, opts *exportOptions) (*config.Config, error) {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if changed("api-key") {
		flags["api-key"] = opts.apiKey
	}
	if changed("output") {
		flags["output"] = opts.output
	}
	if changed("report") {
		flags["report"] = opts.report
	}
	if changed("concurrency") {
		flags["concurrency"] = opts.concurrency
	}
	if changed("content-type") {
		flags["content-type"] = opts.contentType
	}
	if changed("extension") {
		flags["extension"] = opts.extension
	}
	if changed("crop") {
		flags["crop"] = opts.crop
	}
	if changed("metrics-file") {
		flags["metrics-file"] = opts.metricsFile
	}
	if changed("notify") {
		flags["notify"] = opts.notify
	}
	addGlobalFlags(cmd, global, flags)

	cfg, err := config.Load(global.configFile, flags)
	if err != nil {
		return nil, lerrors.Config("%v", err)
	}
	return cfg, nil
}

// addGlobalFlags maps the persistent logging flags onto config keys.
// --verbose and --quiet win over --log-level.
func addGlobalFlags(cmd *cobra.Command, global *globalOptions, flags map[string]interface{}) {
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = global.logLevel
	}
	if global.verbose {
		flags["log-level"] = "debug"
	}
	if global.quiet {
		flags["log-level"] = "error"
	}
	if cmd.Flags().Changed("no-color") {
		flags["no-color"] = global.noColor
	}
}

// resolveAPIKey returns the key from flags, environment or config file, and
// falls back to the stored credential for profile.
func resolveAPIKey(cfg *config.Config, profile string, log logger.Logger) (string, string, error) {
	if key := strings.TrimSpace(cfg.Lucid.APIKey); key != "" {
		return key, "configuration", nil
	}

	manager, err := newCredentialManager()
	if err != nil {
		log.WithError(err).Debug("Credential store unavailable")
	} else {
		cred, source, err := manager.Retrieve(profile)
		if err == nil {
			return cred.APIKey, source, nil
		}
		if !errors.Is(err, auth.ErrCredentialsNotFound) {
			log.WithError(err).Debug("Stored credential lookup failed")
		}
	}

	return "", "", lerrors.Config("no Lucid API key: pass --api-key, set %s, or run 'lucidexport auth login'", config.APIKeyEnv)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "lucidexport %s\nGo Version: %s\nOS/Arch: %s/%s\n",
				cmd.Root().Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}

