package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var opts runOptions

	rootCmd := &cobra.Command{
		Use:   "txpipeline",
		Short: "Transaction reconciliation pipeline",
		Long: `Reads transaction files from an input directory, normalizes and validates them,
removes duplicates, converts amounts to the reference currency, flags suspicious
records and writes the results to an output directory.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.thresholdSet = cmd.Flags().Changed("threshold")
			return runPipeline(cmd.Context(), opts, out)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.inputDir, "input-dir", "", "Directory containing source transaction files")
	flags.StringVar(&opts.outDir, "out-dir", "", "Directory receiving the output artifacts")
	flags.StringVar(&opts.defaultDate, "default-date", "", "Date (YYYY-MM-DD) used for records without a parseable timestamp")
	flags.StringVar(&opts.fxCache, "fx-cache", "", "Rate cache file (overrides FX_CACHE_PATH)")
	flags.Float64Var(&opts.threshold, "threshold", 0, "High-amount threshold in the reference currency (overrides HIGH_AMOUNT_THRESHOLD)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Address serving /metrics and /health during the run (overrides METRICS_ADDR)")
	_ = rootCmd.MarkFlagRequired("input-dir")
	_ = rootCmd.MarkFlagRequired("out-dir")

	rootCmd.AddCommand(newMigrateCmd(out), newVersionCmd(out))

	return rootCmd
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "txpipeline %s\n", version)
		},
	}
}
