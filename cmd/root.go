package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"docforms/internal/config"
	"docforms/internal/logger"
)

var version = "1.0.0"

// appConfig is set by Execute before any command runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "docforms",
	Short: "docforms - client for the document-processing backend",
	Long: `docforms uploads PDFs and Excel templates to the document-processing
backend, runs extraction, conversion, enhancement and summary jobs, and
edits the structured data those jobs produce.

Run "docforms serve" for the browser front end with the dynamic structure
editor, or use the subcommands directly from scripts.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if url, _ := cmd.Flags().GetString("api-url"); url != "" {
			appConfig.API.BaseURL = url
		}
		return nil
	},
}

func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	appConfig = cfg

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("api-url", "", "Backend base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
}
