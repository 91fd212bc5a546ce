package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jask/moneyql/internal/labeller"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the auto-label rule table",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Validate a rule table (TOML or YAML)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Labels.RulesPath
		if len(args) == 1 {
			path = args[0]
		}
		rules, err := labeller.LoadRules(path)
		if err != nil {
			return err
		}
		engine, err := labeller.New(rules, labeller.Options{Similarity: cfg.Labels.Similarity})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules ok\n", path, engine.Rules())
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesCheckCmd)
	rootCmd.AddCommand(rulesCmd)
}
