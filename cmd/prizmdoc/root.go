package main

import (
	"time"

	"github.com/spf13/cobra"

	client "github.com/hsn0918/prizmdoc-client"
)

type cliOptions struct {
	apiKey            string
	baseURL           string
	timeout           time.Duration
	processingTimeout time.Duration
	concurrency       int
	requestRate       float64
	failLogPath       string
	configPath        string
	verbose           bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:           "prizmdoc",
		Short:         "PrizmDoc Server conversion CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadSettings(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "PrizmDoc Cloud API key (or set PRIZMDOC_API_KEY)")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", client.DefaultBaseURL, "Base URL of PrizmDoc Server (or set PRIZMDOC_BASE_URL)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "HTTP timeout for API requests")
	cmd.PersistentFlags().DurationVar(&opts.processingTimeout, "processing-timeout", client.ProcessingTimeout, "Timeout for long running processes (0 waits until interrupted)")
	cmd.PersistentFlags().IntVar(&opts.concurrency, "concurrency", client.DefaultUploadWorkers, "Number of concurrent uploads and downloads")
	cmd.PersistentFlags().Float64Var(&opts.requestRate, "rate", 0, "Maximum requests per second (0 disables throttling)")
	cmd.PersistentFlags().StringVar(&opts.failLogPath, "fail-log", "fail.log", "Path to write failed operation logs")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.prizmdoc/config.toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log client debug output to stderr")

	cmd.AddCommand(newConvertCmd(opts))
	cmd.AddCommand(newCombineCmd(opts))
	cmd.AddCommand(newOCRCmd(opts))
	cmd.AddCommand(newBurnMarkupCmd(opts))
	cmd.AddCommand(newUploadCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newCompletionCmd())

	return cmd
}
