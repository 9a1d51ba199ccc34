package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/tripgenie/internal/config"
	"github.com/dgallion1/tripgenie/internal/parser"
)

func newSegmentCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "segment [file...]",
		Short: "Split plan text into titled sections",
		Long: `Segments each file (parsed by extension: txt, md, csv, html, pdf, docx)
or, with no arguments, plain text read from stdin.

Example:
  tripgenie segment itinerary.md
  pbpaste | tripgenie segment --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := root.logger(cmd)
			opts := parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}

			var results []result
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				results = append(results, newResult("", "", string(data)))
			}
			for _, path := range args {
				text, err := planText(path, opts)
				if err != nil {
					return err
				}
				r := newResult(filepath.Base(path), "", text)
				log.Debug("segmented file", "path", path, "strategy", r.Strategy, "sections", len(r.Sections))
				results = append(results, r)
			}

			w, closeOut, err := root.out(cmd)
			if err != nil {
				return err
			}
			if err := render(w, root.format, results); err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}
}

func planText(path string, opts parser.Options) (string, error) {
	if !parser.IsSupportedExtension(path) {
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return parser.PlanText(f, filepath.Base(path), opts)
}
