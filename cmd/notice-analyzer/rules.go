package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joelkehle/notice-analyzer/internal/notice"
)

type ruleTables struct {
	IntentRules []notice.ClassificationRule `yaml:"intent_rules"`
	RiskRules   []notice.RiskRule           `yaml:"risk_rules"`
	DefaultRisk notice.Risk                 `yaml:"default_risk"`
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the keyword rule tables in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(ruleTables{
				IntentRules: notice.IntentRules(),
				RiskRules:   notice.RiskRules(),
				DefaultRisk: notice.DefaultRisk,
			}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
