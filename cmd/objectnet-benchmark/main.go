// objectnet-benchmark measures rtag's tagging accuracy on the ObjectNet dataset.
//
// You may need to raise the open file limit first (ulimit -n 1024). Presizing
// the images speeds the run up considerably:
//
//	find . -name "*.png" -exec mogrify -resize 224x224\^ {} \;
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/iishyfishyy/rtag/internal/backend"
	"github.com/iishyfishyy/rtag/internal/benchmark"
	"github.com/iishyfishyy/rtag/internal/config"
	"github.com/iishyfishyy/rtag/internal/ui"
)

var (
	promptTemplate string
	copySummary    bool
	debug          bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "objectnet-benchmark",
		Short: "Score rtag's top-1 and top-5 accuracy on ObjectNet",
		Long: "objectnet-benchmark indexes the ObjectNet dataset into a temporary directory and reports\n" +
			"how often the dataset label is the best, or among the five best, matching tags.\n\n" +
			"Environment (also read from .env):\n" +
			"  OBJECTNET_DIR  dataset location (default " + config.DefaultObjectNetDir + ")\n" +
			"  BATCH_SIZE     images per batch (default 256)\n" +
			"  DEVICE         device to run on (default cpu)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBenchmark,
	}

	rootCmd.Flags().StringVar(&promptTemplate, "prompt-template", "", `wrap each label before embedding it, e.g. "photo of %s"`)
	rootCmd.Flags().BoolVar(&copySummary, "copy", false, "Copy the summary to the clipboard")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		ui.ShowError(err.Error())
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	env, err := config.LoadBenchmarkEnv()
	if err != nil {
		return err
	}
	if err := benchmark.ValidateTemplate(promptTemplate); err != nil {
		return err
	}

	datasetDir, err := filepath.Abs(env.DatasetDir)
	if err != nil {
		return fmt.Errorf("failed to resolve dataset path: %w", err)
	}
	if err := benchmark.CheckDataset(datasetDir); err != nil {
		return err
	}
	labels, err := benchmark.LoadLabels(datasetDir)
	if err != nil {
		return fmt.Errorf("failed to load label mapping: %w", err)
	}

	fmt.Printf("Using dataset: %s\n", datasetDir)
	fmt.Printf("Batch size: %d\n", env.BatchSize)
	fmt.Printf("Device: %s\n", env.Device)
	fmt.Printf("Classes: %d\n", labels.Len())

	tmpDir, err := os.MkdirTemp("", "objectnet-benchmark-")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	fmt.Printf("Using temporary directory: %s\n", tmpDir)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	be, err := backend.Initialize(ctx, backend.Options{
		Dir:        datasetDir,
		BatchSize:  env.BatchSize,
		Device:     env.Device,
		DataDir:    tmpDir,
		ServiceURL: cfg.ServiceURL,
		Model:      cfg.Model,
		Debug:      debug,
	})
	if err != nil {
		return err
	}
	defer be.Close()

	b := &benchmark.Benchmark{
		Model:          be.Model,
		Store:          be.Store,
		Labels:         labels,
		DatasetDir:     datasetDir,
		BatchSize:      env.BatchSize,
		PromptTemplate: promptTemplate,
		Progress:       os.Stderr,
		Debug:          debug,
	}

	report, err := b.Run(ctx)
	if err != nil {
		return err
	}

	summary := benchmark.FormatReport(report)
	fmt.Println()
	fmt.Print(summary)

	if copySummary {
		if err := clipboard.WriteAll(summary); err != nil {
			ui.ShowWarning(fmt.Sprintf("Failed to copy to clipboard: %v", err))
		} else {
			ui.ShowSuccess("Summary copied to clipboard")
		}
	}

	return nil
}
