package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	client "github.com/hsn0918/prizmdoc-client"
)

func newConvertCmd(opts *cliOptions) *cobra.Command {
	co := &convertOptions{
		opts: opts,
	}

	cmd := &cobra.Command{
		Use:               "convert FILE...",
		Short:             "Convert documents to pdf, docx, tiff, jpeg, png or svg",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: flagsAndFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := co.complete(args); err != nil {
				return recordFailure(opts, "", err)
			}
			return co.run(cmd)
		},
	}

	co.addFlags(cmd)
	_ = cmd.RegisterFlagCompletionFunc("to", completeFormats)

	return cmd
}

type convertOptions struct {
	to           string
	pages        []string
	passwords    []string
	onePerPage   bool
	maxWidth     string
	maxHeight    string
	ocrLanguage  string
	headerCenter string
	footerCenter string
	headerFont   string
	outputDir    string
	opts         *cliOptions
	files        []string
	sources      []client.SourceDocument
	dest         client.DestinationOptions
}

func (o *convertOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.to, "to", string(client.FormatPDF), "Target format: pdf|docx|tiff|jpeg|png|svg")
	cmd.Flags().StringArrayVar(&o.pages, "pages", nil, "Page range for the input at the same position, e.g. 1-3,5 (repeatable)")
	cmd.Flags().StringArrayVar(&o.passwords, "password", nil, "Password for the input at the same position (repeatable)")
	cmd.Flags().BoolVar(&o.onePerPage, "one-file-per-page", false, "Write one pdf or tiff file per page")
	cmd.Flags().StringVar(&o.maxWidth, "max-width", "", "Maximum image width, e.g. 800px (tiff, jpeg, png)")
	cmd.Flags().StringVar(&o.maxHeight, "max-height", "", "Maximum image height, e.g. 600px (tiff, jpeg, png)")
	cmd.Flags().StringVar(&o.ocrLanguage, "ocr-language", "", "Recognize text in pdf output using this language")
	cmd.Flags().StringVar(&o.headerCenter, "header-center", "", "Centered header text; supports {{pageNumber}} and {{pageCount}}")
	cmd.Flags().StringVar(&o.footerCenter, "footer-center", "", "Centered footer text; supports {{pageNumber}} and {{pageCount}}")
	cmd.Flags().StringVar(&o.headerFont, "header-font", "", "Font family for header and footer text")
	cmd.Flags().StringVarP(&o.outputDir, "output-dir", "o", "converted", "Directory to write results to")
}

func (o *convertOptions) complete(args []string) error {
	files, err := collectInputFiles(args)
	if err != nil {
		return err
	}
	o.files = files

	if len(o.pages) > len(files) || len(o.passwords) > len(files) {
		return errors.New("more --pages or --password values than input files")
	}

	o.sources = make([]client.SourceDocument, len(files))
	for i, f := range files {
		src := client.SourceFromFile(f)
		if i < len(o.pages) {
			src = src.WithPages(o.pages[i])
		}
		if i < len(o.passwords) {
			src = src.WithPassword(o.passwords[i])
		}
		o.sources[i] = src
	}

	format, err := client.ParseDestinationFormat(o.to)
	if err != nil {
		return err
	}
	o.dest = client.NewDestinationOptions(format)

	image := &client.ImageDestinationOptions{MaxWidth: o.maxWidth, MaxHeight: o.maxHeight}
	hasImageOptions := o.maxWidth != "" || o.maxHeight != ""
	switch format {
	case client.FormatPDF:
		if o.onePerPage || o.ocrLanguage != "" {
			o.dest.PDF = &client.PDFDestinationOptions{ForceOneFilePerPage: o.onePerPage}
			if o.ocrLanguage != "" {
				o.dest.PDF.OCR = &client.OCROptions{Language: o.ocrLanguage}
			}
		}
	case client.FormatTIFF:
		if o.onePerPage || hasImageOptions {
			o.dest.TIFF = &client.TIFFDestinationOptions{MaxWidth: o.maxWidth, MaxHeight: o.maxHeight, ForceOneFilePerPage: o.onePerPage}
		}
	case client.FormatJPEG:
		if hasImageOptions {
			o.dest.JPEG = image
		}
	case client.FormatPNG:
		if hasImageOptions {
			o.dest.PNG = image
		}
	}

	if o.headerCenter != "" {
		o.dest.Header = &client.HeaderFooterOptions{Lines: []client.HeaderFooterLine{{Center: o.headerCenter}}, FontFamily: o.headerFont}
	}
	if o.footerCenter != "" {
		o.dest.Footer = &client.HeaderFooterOptions{Lines: []client.HeaderFooterLine{{Center: o.footerCenter}}, FontFamily: o.headerFont}
	}

	return nil
}

func (o *convertOptions) run(cmd *cobra.Command) error {
	cli, err := buildClient(cmd, o.opts)
	if err != nil {
		return recordFailure(o.opts, "", err)
	}
	ctx := cmd.Context()

	results, err := cli.Convert(ctx, o.sources, o.dest)
	if err != nil {
		return recordFailure(o.opts, o.files[0], err)
	}

	logEvent(cmd, slog.LevelInfo, "Conversion finished",
		slog.String("format", string(o.dest.Format)),
		slog.Int("inputs", len(o.files)),
		slog.Int("results", len(results)),
	)

	return saveResults(ctx, cmd, cli, o.opts, o.files[0], o.outputDir, results)
}

func newCombineCmd(opts *cliOptions) *cobra.Command {
	var (
		pages  []string
		output string
	)

	cmd := &cobra.Command{
		Use:               "combine FILE...",
		Short:             "Merge documents, in order, into one PDF",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: flagsAndFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectInputFiles(args)
			if err != nil {
				return recordFailure(opts, "", err)
			}
			if len(pages) > len(files) {
				return errors.New("more --pages values than input files")
			}
			sources := make([]client.SourceDocument, len(files))
			for i, f := range files {
				sources[i] = client.SourceFromFile(f)
				if i < len(pages) {
					sources[i] = sources[i].WithPages(pages[i])
				}
			}
			if output == "" {
				output = "combined.pdf"
			}

			cli, err := buildClient(cmd, opts)
			if err != nil {
				return recordFailure(opts, "", err)
			}
			result, err := cli.CombineToPDF(cmd.Context(), sources)
			if err != nil {
				return recordFailure(opts, output, err)
			}
			return saveSingle(cmd, cli, opts, result, output)
		},
	}

	cmd.Flags().StringArrayVar(&pages, "pages", nil, "Page range for the input at the same position (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PDF path (default combined.pdf)")

	return cmd
}

func newOCRCmd(opts *cliOptions) *cobra.Command {
	var (
		language string
		output   string
	)

	cmd := &cobra.Command{
		Use:               "ocr FILE",
		Short:             "Convert a scanned document to a searchable PDF",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: flagsAndFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = changeExt(filepath.Base(args[0]), "ocr.pdf")
			}
			cli, err := buildClient(cmd, opts)
			if err != nil {
				return recordFailure(opts, "", err)
			}
			result, err := cli.OCRToPDF(cmd.Context(), client.SourceFromFile(args[0]), client.OCROptions{Language: language})
			if err != nil {
				return recordFailure(opts, args[0], err)
			}
			return saveSingle(cmd, cli, opts, result, output)
		},
	}

	cmd.Flags().StringVar(&language, "language", "english", "Language of the text to recognize")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PDF path")

	return cmd
}

func saveSingle(cmd *cobra.Command, cli client.Client, opts *cliOptions, result client.ConversionResult, output string) error {
	wf, err := result.RemoteWorkFile()
	if err != nil {
		return recordFailure(opts, output, err)
	}
	if err := cli.SaveToFile(cmd.Context(), wf, output); err != nil {
		return recordFailure(opts, output, err)
	}
	logEvent(cmd, slog.LevelInfo, "Saved result",
		slog.String("path", output),
		slog.Int("pages", result.PageCount),
	)
	return nil
}

func newBurnMarkupCmd(opts *cliOptions) *cobra.Command {
	var (
		markupPath string
		output     string
	)

	cmd := &cobra.Command{
		Use:               "burn-markup FILE",
		Short:             "Burn annotation markup JSON into a document",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: flagsAndFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			if markupPath == "" {
				return recordFailure(opts, args[0], errors.New("flag --markup is required"))
			}
			markup, err := os.ReadFile(markupPath)
			if err != nil {
				return recordFailure(opts, markupPath, fmt.Errorf("read markup: %w", err))
			}
			if output == "" {
				output = changeExt(filepath.Base(args[0]), "burned.pdf")
			}

			cli, err := buildClient(cmd, opts)
			if err != nil {
				return recordFailure(opts, "", err)
			}
			burned, err := cli.BurnMarkup(cmd.Context(), client.SourceFromFile(args[0]), markup)
			if err != nil {
				return recordFailure(opts, args[0], err)
			}
			if err := cli.SaveToFile(cmd.Context(), burned, output); err != nil {
				return recordFailure(opts, output, err)
			}
			logEvent(cmd, slog.LevelInfo, "Saved burned document", slog.String("path", output))
			return nil
		},
	}

	cmd.Flags().StringVar(&markupPath, "markup", "", "Markup JSON file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PDF path")

	return cmd
}
