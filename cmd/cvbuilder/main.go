// Package main provides the cvbuilder CLI: account management, CV editing,
// preview and export, cover letter generation and the local editor server.
package main

import (
	"os"

	"github.com/jonathan/cv-builder/internal/notify"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cvbuilder",
	Short: "CV Builder client",
	Long: "cvbuilder assembles structured CVs (contact details, experience, education, skills, languages, hobbies), " +
		"previews and exports them through the CV Builder backend and generates AI cover letters.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupApp,
}

var (
	configPath     string
	apiURLFlag     string
	storageDSNFlag string
	logLevelFlag   string
	logFormatFlag  string
	timeoutFlag    int
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a JSON config file")
	flags.StringVar(&apiURLFlag, "api-url", "", "Backend base URL (overrides config)")
	flags.StringVar(&storageDSNFlag, "storage-dsn", "", "Local state store: a SQLite path, postgres:// URL or memory:")
	flags.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&logFormatFlag, "log-format", "", "Log format: console or json")
	flags.IntVar(&timeoutFlag, "timeout", 0, "Backend request timeout in seconds (0 disables it)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := rootCmd.Execute()
	closeApp()
	if err != nil {
		notify.New(os.Stderr).Error(err)
		os.Exit(1)
	}
}
