package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tendant/portfolio-content/pkg/portfolio/config"
	"github.com/tendant/portfolio-content/pkg/portfolio/presets"
	repopg "github.com/tendant/portfolio-content/pkg/portfolio/repo/postgres"
	reposqlite "github.com/tendant/portfolio-content/pkg/portfolio/repo/sqlite"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  `Apply the embedded schema migrations to the configured Postgres or SQLite database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			kind, err := cfg.DatabaseKind()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch kind {
			case config.DatabasePostgres:
				if err := repopg.Migrate(cmd.Context(), cfg.DatabaseURL, cfg.DBSchema); err != nil {
					return fmt.Errorf("migrate failed: %w", err)
				}
				fmt.Fprintf(out, "Postgres schema %q is up to date\n", cfg.DBSchema)
			case config.DatabaseSQLite:
				// Opening applies pending migrations
				store, err := reposqlite.Open(cfg.SQLitePath())
				if err != nil {
					return fmt.Errorf("migrate failed: %w", err)
				}
				if err := store.Close(); err != nil {
					return err
				}
				fmt.Fprintf(out, "SQLite database %s is up to date\n", cfg.SQLitePath())
			default:
				fmt.Fprintln(out, "In-memory database, nothing to migrate")
			}
			return nil
		},
	}
}

// NewAssetsCommand creates the assets command
func NewAssetsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List every live asset reference",
		Long: `List every asset referenced by the site content, projects and testimonials
together with the URL it resolves to. Stored files missing from this list are
leaked and can be removed by hand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			rt, err := cfg.BuildService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			assets, err := rt.Service.ListAssets(cmd.Context())
			if err != nil {
				return fmt.Errorf("list assets: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(assets)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENTITY\tID\tFIELD\tBACKEND\tURL")
			for _, a := range assets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Entity, a.EntityID, a.Field, a.Ref.Backend, a.URL)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Fprintf(out, "%d assets\n", len(assets))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// NewEnvCommand creates the env command
func NewEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe supported environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			usage, err := config.EnvUsage()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), usage)
			return nil
		},
	}
}

// NewSeedCommand creates the seed command
func NewSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample content",
		Long: `Write sample site content, one project and one testimonial to the configured
database. Their images point at a public placeholder host, so no files are stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			rt, err := cfg.BuildService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := presets.Seed(cmd.Context(), rt.Repository); err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded project %s and testimonial %s\n",
				presets.SampleProjectID, presets.SampleTestimonialID)
			return nil
		},
	}
}
