package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joelkehle/notice-analyzer/internal/notice"
	"github.com/joelkehle/notice-analyzer/internal/pdftext"
)

func newAnalyzeCmd(load func() (*app, error)) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Analyze a notice from a text or PDF file (stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("--output must be json or yaml, got %q", output)
			}
			a, err := load()
			if err != nil {
				return err
			}
			defer a.closeLog()

			name := "-"
			if len(args) == 1 {
				name = args[0]
			}
			blob, err := readInput(name, cmd.InOrStdin(), a.cfg.Server.MaxUploadBytes)
			if err != nil {
				return err
			}
			res, err := analyzeInput(cmd.Context(), a.analyzer, pdftext.Extractor{MaxBytes: a.cfg.Server.MaxUploadBytes}, name, blob)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), output, res)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

// readInput reads a file, or stdin for "-", refusing anything over limit bytes.
func readInput(name string, stdin io.Reader, limit int64) ([]byte, error) {
	r := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		defer f.Close()
		r = f
	}
	blob, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(blob)) > limit {
		return nil, fmt.Errorf("read %s: input exceeds %d bytes", name, limit)
	}
	return blob, nil
}

func isPDF(name string, blob []byte) bool {
	return bytes.HasPrefix(blob, []byte("%PDF")) || strings.EqualFold(filepath.Ext(name), ".pdf")
}

type textExtractor interface {
	Extract(ctx context.Context, r io.Reader) (pdftext.Result, error)
}

func analyzeInput(ctx context.Context, analyzer *notice.Analyzer, pdf textExtractor, name string, blob []byte) (notice.AnalysisResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !isPDF(name, blob) {
		return analyzer.Analyze(ctx, string(blob)).Result, nil
	}
	extracted, err := pdf.Extract(ctx, bytes.NewReader(blob))
	if err != nil {
		return notice.AnalysisResult{}, fmt.Errorf("extract pdf text: %w", err)
	}
	if extracted.Empty() {
		return notice.NotExtractableResult(), nil
	}
	return analyzer.Analyze(ctx, extracted.Text).Result, nil
}

func writeResult(w io.Writer, format string, res notice.AnalysisResult) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
