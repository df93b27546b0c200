package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	client "github.com/hsn0918/prizmdoc-client"
)

func newUploadCmd(opts *cliOptions) *cobra.Command {
	var sameNode bool

	cmd := &cobra.Command{
		Use:               "upload FILE...",
		Short:             "Upload files as remote work files and print their ids",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: flagsAndFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectInputFiles(args)
			if err != nil {
				return recordFailure(opts, "", err)
			}
			cli, err := buildClient(cmd, opts)
			if err != nil {
				return recordFailure(opts, "", err)
			}

			var uploader client.WorkFiles = cli
			if sameNode {
				sess := cli.NewAffinitySession()
				// the first upload picks the node for the rest
				wf, err := sess.UploadFile(cmd.Context(), files[0])
				if err != nil {
					return recordFailure(opts, files[0], err)
				}
				logUpload(cmd, files[0], wf)
				files, uploader = files[1:], sess
			}

			eg, ctx := errgroup.WithContext(cmd.Context())
			if opts.concurrency > 0 {
				eg.SetLimit(opts.concurrency)
			}
			for _, f := range files {
				eg.Go(func() error {
					wf, err := uploader.UploadFile(ctx, f)
					if err != nil {
						return recordFailure(opts, f, err)
					}
					logUpload(cmd, f, wf)
					return nil
				})
			}
			return eg.Wait()
		},
	}

	cmd.Flags().BoolVar(&sameNode, "same-node", true, "Place every file on the same server node")

	return cmd
}

func logUpload(cmd *cobra.Command, path string, wf client.RemoteWorkFile) {
	logEvent(cmd, slog.LevelInfo, "Uploaded",
		slog.String("file", path),
		slog.String("file-id", wf.FileID),
		slog.String("affinity-token", wf.AffinityToken),
		slog.String("extension", wf.FileExtension),
	)
}

func newStatusCmd(opts *cliOptions) *cobra.Command {
	var affinityToken string

	cmd := &cobra.Command{
		Use:   "status PROCESS_ID",
		Short: "Show the state of a content conversion process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := buildClient(cmd, opts)
			if err != nil {
				return recordFailure(opts, "", err)
			}
			status, err := cli.GetConversionStatus(cmd.Context(), args[0], affinityToken)
			if err != nil {
				return recordFailure(opts, args[0], err)
			}
			attrs := []slog.Attr{
				slog.String("process-id", args[0]),
				slog.String("state", status.State),
				slog.Int("percent-complete", status.PercentComplete),
			}
			if status.ErrorCode != "" {
				attrs = append(attrs, slog.String("error-code", status.ErrorCode))
			}
			logEvent(cmd, slog.LevelInfo, "Process status", attrs...)
			return nil
		},
	}

	cmd.Flags().StringVar(&affinityToken, "affinity-token", "", "Affinity token of the node running the process")

	return cmd
}
