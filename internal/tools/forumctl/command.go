// Package forumctl implements the operational CLI: schema migration, seeding
// and load generation against a running backend.
package forumctl

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brforum/forum-backend/internal/database"
	"github.com/brforum/forum-backend/internal/di"
	"github.com/brforum/forum-backend/internal/tools/common"
)

type options struct {
	envFile string
	json    bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "forumctl", Short: "Forum backend operations tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "machine-readable output")
	cmd.AddCommand(newMigrateCommand(opts), newSeedCommand(opts), newLoadgenCommand(opts))
	return cmd
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and bootstrap data",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := func() error {
				if err := common.LoadEnvFile(opts.envFile); err != nil {
					return err
				}
				runner, err := di.InitializeMigrationRunner()
				if err != nil {
					return err
				}
				return runner.Run()
			}()
			if opts.json {
				common.PrintResult(err == nil, "migrate", nil, err)
			}
			return err
		},
	}
}

func newSeedCommand(opts *options) *cobra.Command {
	var login, name, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the bootstrap admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var details []string
			err := func() error {
				if err := common.LoadEnvFile(opts.envFile); err != nil {
					return err
				}
				runner, err := di.InitializeMigrationRunner()
				if err != nil {
					return err
				}
				cfg := runner.Config()
				if login == "" {
					login = cfg.BootstrapAdminLogin
				}
				if name == "" {
					name = cfg.BootstrapAdminName
				}
				if password == "" {
					password = cfg.BootstrapAdminPassword
				}
				report, err := database.Seed(runner.DB(), login, name, password)
				if err != nil {
					return err
				}
				switch {
				case report.CreatedAdmin:
					details = append(details, "bootstrap admin created: "+login)
				case report.Noop:
					details = append(details, "nothing to do")
				}
				if !opts.json {
					for _, d := range details {
						fmt.Println(d)
					}
				}
				return nil
			}()
			if opts.json {
				common.PrintResult(err == nil, "seed", details, err)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "admin login (defaults to BOOTSTRAP_ADMIN_LOGIN)")
	cmd.Flags().StringVar(&name, "name", "", "admin display name")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}

func newLoadgenCommand(opts *options) *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Generate traffic against a running backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := Run(cmd.Context(), cfg)
			details := []string{
				fmt.Sprintf("total_requests=%d", res.TotalRequests),
				fmt.Sprintf("failures=%d", res.Failures),
				fmt.Sprintf("status_2xx=%d", res.Status2xx),
				fmt.Sprintf("status_3xx=%d", res.Status3xx),
				fmt.Sprintf("status_4xx=%d", res.Status4xx),
				fmt.Sprintf("status_5xx=%d", res.Status5xx),
			}
			if opts.json {
				common.PrintResult(err == nil, "loadgen", details, err)
				return err
			}
			for _, d := range details {
				fmt.Println(d)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "backend base URL")
	cmd.Flags().StringVar(&cfg.Profile, "profile", "mixed", "traffic profile: read|login|mixed")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 15*time.Second, "traffic duration")
	cmd.Flags().IntVar(&cfg.RPS, "rps", 20, "requests per second")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 6, "concurrent workers")
	return cmd
}
