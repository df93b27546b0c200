package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	client "github.com/hsn0918/prizmdoc-client"
)

// flagsAndFiles offers every flag (local + inherited) alongside the shell's
// own file completion, even when the user did not type a dash.
func flagsAndFiles(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	flags := make([]string, 0, 16)

	add := func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		if f.Shorthand != "" {
			flags = append(flags, "-"+f.Shorthand)
		}
		flags = append(flags, "--"+f.Name)
	}

	cmd.NonInheritedFlags().VisitAll(add)
	cmd.InheritedFlags().VisitAll(add)

	return flags, cobra.ShellCompDirectiveDefault
}

func completeFormats(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	formats := []client.DestinationFormat{
		client.FormatPDF,
		client.FormatDOCX,
		client.FormatTIFF,
		client.FormatJPEG,
		client.FormatPNG,
		client.FormatSVG,
	}
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
