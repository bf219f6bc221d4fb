package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	RepoURL = "https://github.com/benjamonnguyen/enfoque"
	Version = "0.1.0"
)

var (
	isProd     bool
	configFile string
	output     string
)

func main() {
	log.SetReportCaller(true)

	rootCmd := &cobra.Command{
		Use:           "enfoque",
		Short:         "Focus sessions, tasks and reminders",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case outputText, outputYAML:
				return nil
			}
			return fmt.Errorf("unknown output %q: use %s or %s", output, outputText, outputYAML)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&isProd, "prod", "p", false, "load .env instead of .env.dev")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", outputText, "output format (text, yaml)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(focusCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", a.cfg.DatabaseURL)
			return nil
		},
	}
}
