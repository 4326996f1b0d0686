package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/portfolio-content/pkg/portfolio/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "portfolioctl",
		Short: "Portfolio content administration",
		Long: `Administrative commands for the portfolio content backend.

Configuration is read from .env and the environment, the same way the
server reads it. Flags override the database URL and schema.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("database-url", "", "database URL (memory, postgres://..., sqlite://path)")
	rootCmd.PersistentFlags().String("schema", "", "postgres schema")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewAssetsCommand())
	rootCmd.AddCommand(NewEnvCommand())
	rootCmd.AddCommand(NewSeedCommand())

	return rootCmd
}

// loadConfig reads the environment and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.ServerConfig, error) {
	opts := []config.Option{config.WithDotEnv(), config.WithEnv()}
	if url, _ := cmd.Flags().GetString("database-url"); url != "" {
		opts = append(opts, config.WithDatabase(url))
	}
	if schema, _ := cmd.Flags().GetString("schema"); schema != "" {
		opts = append(opts, config.WithDatabaseSchema(schema))
	}
	return config.Load(opts...)
}
