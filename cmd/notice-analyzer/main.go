package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/joelkehle/notice-analyzer/internal/config"
	"github.com/joelkehle/notice-analyzer/internal/logger"
	"github.com/joelkehle/notice-analyzer/internal/notice"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "notice-analyzer",
		Short: "Summarize legal notices and flag their deadline and risk",
		Long: `notice-analyzer reads a legal notice and reports its summary, intent,
response deadline and risk level. A language model is used when an API key
is configured; otherwise, or when the model fails, keyword rules take over.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")

	load := func() (*app, error) { return newApp(cfgFile) }
	root.AddCommand(newServeCmd(load), newAnalyzeCmd(load), newRulesCmd())
	return root
}

type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	closeLog func() error
	analyzer *notice.Analyzer
}

func newApp(cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log, closeLog, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, err
	}
	caller, err := notice.NewCaller(cfg.CallerConfig())
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	var extractor notice.FieldExtractor
	if caller != nil {
		extractor = notice.NewExtractor(caller, cfg.ExtractorConfig(), log)
		log.WithField("provider", caller.Provider()).Info("ai extraction enabled")
	} else {
		log.Warn("no llm api key configured; using rule-based analysis only")
	}
	return &app{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		analyzer: notice.NewAnalyzer(extractor, log),
	}, nil
}
