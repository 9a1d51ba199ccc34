package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
	format  string
	output  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "tripgenie",
		Short: "Generate and segment travel plans",
		Long: `tripgenie turns free-form travel plans into titled sections.

Configuration comes from TRIPGENIE_CONFIG (a YAML file) and the same
environment variables the server reads, e.g. GEMINI_API_KEY and DB_PATH.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "output format: json, text, markdown, html or docx")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "write output to this file instead of stdout")

	cmd.AddCommand(newSegmentCmd(opts), newPlanCmd(opts))
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// out returns the destination for rendered output and a func to close it.
func (o *rootOptions) out(cmd *cobra.Command) (io.Writer, func() error, error) {
	if o.output == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(o.output)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
