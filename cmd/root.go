package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "golang-algotrade",
	Short:         "Bar-by-bar backtester and genetic optimizer for intraday strategies",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(optimizeCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
