package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iishyfishyy/rtag/internal/backend"
	"github.com/iishyfishyy/rtag/internal/config"
	"github.com/iishyfishyy/rtag/internal/history"
	"github.com/iishyfishyy/rtag/internal/metadata"
	"github.com/iishyfishyy/rtag/internal/tagger"
	"github.com/iishyfishyy/rtag/internal/ui"
	"github.com/iishyfishyy/rtag/internal/vocab"
)

var (
	// version is set by goreleaser at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// exitDeclined is the exit code when the user refuses the confirmation prompt
const exitDeclined = 10

var errDeclined = errors.New("aborted by user")

// flags holds the raw command line values before they become config.Options
type flags struct {
	dryRun            bool
	yes               bool
	mode              string
	threshold         float32
	tagsFilepath      string
	noIndexing        bool
	indexingBatchSize int
	excludeDirs       []string
	device            string
	continueOnError   bool
	debug             bool
}

func main() {
	rootCmd := newRootCmd(&flags{})

	err := rootCmd.Execute()
	code := exitCode(err)
	if code == 1 {
		ui.ShowError(err.Error())
	}
	os.Exit(code)
}

// exitCode maps the result of a run onto the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDeclined):
		return exitDeclined
	default:
		return 1
	}
}

func newRootCmd(f *flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rtag",
		Short: "AI-powered command-line photo tagging tool",
		Long: "rtag is an AI-powered command-line photo tagging tool.\n\n" +
			"It tags the images in the current directory with the labels that best describe them,\n" +
			"writing the tags into the images' IPTC keywords.",
		Example: "  rtag --dry-run\n" +
			"  rtag -m overwrite -t 0.3 --tags-filepath my-tags.txt",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts)
		},
	}
	rootCmd.SetVersionTemplate("rtag {{.Version}}\n")
	rootCmd.AddCommand(newConfigureCmd())

	fs := rootCmd.Flags()
	fs.SetNormalizeFunc(normalizeFlagName)

	fs.BoolVar(&f.dryRun, "dry-run", false, "do not write any changes into the images; print them to the console instead")
	fs.StringVar(&f.tagsFilepath, "tags-filepath", "", "path to the file with the newline-separated tags; default: imagenet-1k tags")
	fs.BoolVarP(&f.yes, "yes", "y", false, "do not ask for confirmation")
	fs.StringVarP(&f.mode, "mode", "m", string(config.ModeAppend), "append or overwrite")
	fs.Float32VarP(&f.threshold, "threshold", "t", config.DefaultThreshold,
		"tag confidence threshold; all tags with the confidence lower than this value will be ignored")
	fs.BoolVarP(&f.noIndexing, "no-indexing", "n", false,
		"skip updating the index if no images were added, changed, or removed (aliases: --skip-index, --skip-indexing)")
	fs.IntVarP(&f.indexingBatchSize, "indexing-batch-size", "b", config.DefaultIndexingBatchSize,
		"the size of the image batch used when updating the search index;"+
			" larger values may improve the indexing speed a bit on some hardware but will increase RAM usage")
	fs.StringArrayVar(&f.excludeDirs, "exclude-dir", nil,
		"dir to exclude from indexing, can be used multiple times; overrides the default of @eaDir, node_modules, .git")
	if runtime.GOOS == "darwin" {
		fs.StringVarP(&f.device, "device", "d", config.DefaultDevice(), "device to run on: cpu or mps")
	}
	fs.BoolVar(&f.continueOnError, "continue-on-error", false,
		"keep tagging when an image cannot be written and report the failures at the end")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")

	return rootCmd
}

// normalizeFlagName maps the legacy spellings of --no-indexing onto it
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "skip-index", "skip-indexing":
		name = "no-indexing"
	}
	return pflag.NormalizedName(name)
}

// options validates the flags and freezes them into config.Options
func (f *flags) options(cmd *cobra.Command) (config.Options, error) {
	mode, err := config.ParseMode(f.mode)
	if err != nil {
		return config.Options{}, err
	}

	dir, err := os.Getwd()
	if err != nil {
		return config.Options{}, fmt.Errorf("failed to get current directory: %w", err)
	}

	opts := config.Options{
		Dir:               dir,
		DryRun:            f.dryRun,
		Yes:               f.yes,
		Mode:              mode,
		Threshold:         f.threshold,
		TagsFilepath:      f.tagsFilepath,
		NoIndexing:        f.noIndexing,
		IndexingBatchSize: f.indexingBatchSize,
		Device:            f.device,
		ContinueOnError:   f.continueOnError,
		Debug:             f.debug,
	}
	if cmd.Flags().Changed("exclude-dir") {
		opts.ExcludeDirs = f.excludeDirs
	}
	opts = opts.WithDefaults()

	if err := opts.Validate(); err != nil {
		return config.Options{}, err
	}
	return opts, nil
}

func loadTags(path string) ([]string, error) {
	if path == "" {
		return vocab.Default(), nil
	}
	return vocab.LoadFile(path)
}

func run(ctx context.Context, opts config.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	tags, err := loadTags(opts.TagsFilepath)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	if opts.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Main: loaded %d tags, options %+v\n", len(tags), opts)
	}

	if !opts.DryRun && !opts.Yes {
		confirmed, err := ui.ConfirmIrreversible()
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !confirmed {
			return errDeclined
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var editor metadata.Editor
	if !opts.DryRun {
		exif, err := metadata.NewExifEditor(cfg.ExiftoolPath)
		if err != nil {
			return err
		}
		exif.SetDebug(opts.Debug)
		editor = exif
		defer editor.Close()
	}

	textCache := ""
	if cfg.TextCache {
		if textCache, err = config.TextCachePath(); err != nil {
			return err
		}
	}

	be, err := backend.Initialize(ctx, backend.Options{
		Dir:           opts.Dir,
		BatchSize:     opts.IndexingBatchSize,
		Device:        opts.Device,
		ExcludeDirs:   opts.ExcludeDirs,
		SkipIndexing:  opts.NoIndexing,
		DataDir:       cfg.DataDir,
		IndexDSN:      cfg.IndexDSN,
		ServiceURL:    cfg.ServiceURL,
		Model:         cfg.Model,
		TextCachePath: textCache,
		Debug:         opts.Debug,
	})
	if err != nil {
		return err
	}
	defer be.Close()

	t := &tagger.Tagger{
		Model:   be.Model,
		Store:   be.Store,
		Editor:  editor,
		Options: opts,
		Out:     os.Stdout,
	}
	if !opts.DryRun {
		t.Progress = os.Stderr
	}

	ui.ShowInfo("tagging images")
	res, runErr := t.Run(ctx, tags)

	if res != nil && !opts.DryRun {
		recordHistory(res.Entry, opts.Debug)
		reportSummary(res)
	}

	return runErr
}

func recordHistory(entry history.Entry, debug bool) {
	hist, err := history.Load()
	if err == nil {
		hist.AddEntry(entry)
		err = hist.Save()
	}
	if err != nil && debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Main: failed to save history: %v\n", err)
	}
}

func reportSummary(res *tagger.Result) {
	fmt.Println()
	ui.ShowSuccess(fmt.Sprintf("Processed %d images, tagged %d", res.Processed, len(res.Entry.Tagged)))

	if len(res.Entry.Failures) == 0 {
		return
	}
	ui.ShowWarning(fmt.Sprintf("%d images could not be tagged:", len(res.Entry.Failures)))
	for _, f := range res.Entry.Failures {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Path, f.Error)
	}
}
