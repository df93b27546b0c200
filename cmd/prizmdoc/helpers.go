package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	client "github.com/hsn0918/prizmdoc-client"
)

func buildClient(cmd *cobra.Command, opts *cliOptions) (client.Client, error) {
	if opts.apiKey == "" && strings.TrimRight(opts.baseURL, "/") == client.DefaultBaseURL {
		return nil, errors.New("api key is required for PrizmDoc Cloud (flag --api-key or PRIZMDOC_API_KEY)")
	}

	options := []client.Option{
		client.WithAPIKey(opts.apiKey),
		client.WithBaseURL(opts.baseURL),
		client.WithTimeout(opts.timeout),
		client.WithProcessingTimeout(opts.processingTimeout),
		client.WithUploadConcurrency(opts.concurrency),
		client.WithRequestRate(opts.requestRate, opts.concurrency),
	}
	if opts.verbose {
		options = append(options, client.WithLogger(newLogger(cmd.ErrOrStderr(), slog.LevelDebug)))
	}
	return client.NewClient(options...), nil
}

// collectInputFiles expands directories into the regular files they contain.
func collectInputFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat path: %w", err)
		}

		if info.Mode().IsRegular() {
			files = append(files, p)
			continue
		}

		if !info.IsDir() {
			return nil, fmt.Errorf("path is neither file nor directory: %s", p)
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read dir: %w", err)
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
				files = append(files, filepath.Join(p, entry.Name()))
			}
		}
	}

	if len(files) == 0 {
		return nil, errors.New("no input files found")
	}
	return files, nil
}

func changeExt(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return base + "." + ext
}

// resultPath names the i-th of n outputs produced from input.
func resultPath(dir, input string, i, n int, ext string) string {
	name := filepath.Base(input)
	if n > 1 {
		name = fmt.Sprintf("%s-%d", strings.TrimSuffix(name, filepath.Ext(name)), i+1)
	}
	return filepath.Join(dir, changeExt(name, ext))
}

// saveResults downloads every successful result into dir. Failed results are
// logged and counted.
func saveResults(ctx context.Context, cmd *cobra.Command, cli client.Client, opts *cliOptions, input, dir string, results []client.ConversionResult) error {
	eg, ctx := errgroup.WithContext(ctx)
	if opts.concurrency > 0 {
		eg.SetLimit(opts.concurrency)
	}

	failed := 0

	for i, result := range results {
		if !result.IsSuccess() {
			pages := ""
			if len(result.Sources) > 0 {
				pages = result.Sources[0].Pages
			}
			logEvent(cmd, slog.LevelWarn, "Result failed",
				slog.Int("index", i),
				slog.String("error-code", result.ErrorCode),
				slog.String("pages", pages),
			)
			failed++
			continue
		}

		eg.Go(func() error {
			wf, err := result.RemoteWorkFile()
			if err != nil {
				return err
			}
			target := resultPath(dir, input, i, len(results), wf.FileExtension)
			if err := cli.SaveToFile(ctx, wf, target); err != nil {
				return recordFailure(opts, target, err)
			}
			logEvent(cmd, slog.LevelInfo, "Saved result",
				slog.String("path", target),
				slog.Int("pages", result.PageCount),
			)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d results failed", failed, len(results))
	}
	return nil
}

// recordFailure appends err to the fail log and returns it.
func recordFailure(opts *cliOptions, target string, err error) error {
	if logErr := logFailure(opts.failLogPath, target, err); logErr != nil {
		return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
	}
	return err
}

func logEvent(cmd *cobra.Command, level slog.Level, msg string, attrs ...slog.Attr) {
	newLogger(cmd.OutOrStdout(), slog.LevelInfo).LogAttrs(cmd.Context(), level, msg, attrs...)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(handler)
}
