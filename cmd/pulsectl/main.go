// Command pulsectl runs Project Pulse maintenance tasks against the
// configured database: schema migration, demo seeding, token minting,
// an on-demand reconcile pass and project exports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/api/handlers"
	"projectpulse.io/pulse/internal/api/middleware"
	"projectpulse.io/pulse/internal/app/modules"
	"projectpulse.io/pulse/internal/config"
	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/export"
	"projectpulse.io/pulse/internal/infrastructure"
	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/seed"
	"projectpulse.io/pulse/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "pulsectl",
		Short: "Project Pulse maintenance tool",
		Long: `pulsectl works directly on the Project Pulse database.

It reads the same configuration as the server (config.yaml or environment
variables) and can migrate the schema, load demo data, mint access tokens,
run a notification reconcile pass and export projects.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(opts.configFile)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newTokenCmd(opts),
		newReconcileCmd(opts),
		newExportCmd(opts),
		newUsersCmd(opts),
		newExtensionsCmd(opts),
	)
	return rootCmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := infrastructure.NewDatabaseClients(ctx, opts.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.AutoMigrate(ctx); err != nil {
				return err
			}
			version, err := db.Store.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var fixtures string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and projects",
		Long: `Seed inserts the demo accounts and projects that are missing.
Existing users (by email) and projects (by name) are left untouched, so the
command can be re-run safely. Every new account gets security.default_password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, err := seed.LoadFile(fixtures)
			if err != nil {
				return err
			}
			hash, err := handlers.HashPassword(opts.cfg.Security.DefaultPassword)
			if err != nil {
				return fmt.Errorf("hash default password: %w", err)
			}

			return withInfra(cmd.Context(), opts.cfg, func(infra *modules.Infrastructure) error {
				if !opts.cfg.Database.AutoMigrate {
					if err := infra.DB.AutoMigrate(cmd.Context()); err != nil {
						return err
					}
				}
				res, err := seed.Run(cmd.Context(), infra.Store, fx, hash)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&fixtures, "fixtures", os.Getenv("PULSE_SEED_FIXTURES"), "fixtures YAML (default: embedded demo data)")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withInfra(cmd.Context(), opts.cfg, func(infra *modules.Infrastructure) error {
				u, err := infra.Store.GetUserByID(cmd.Context(), user)
				if errors.Is(err, apperrors.ErrNotFound) {
					u, err = infra.Store.GetUserByEmail(cmd.Context(), user)
				}
				if err != nil {
					return fmt.Errorf("user %q: %w", user, err)
				}

				token, expiresAt, err := middleware.GenerateToken(modules.NewJWTConfig(opts.cfg), u)
				if err != nil {
					return err
				}
				logger.Info("Token issued", zap.String("user_id", u.ID), zap.Time("expires_at", expiresAt))
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user ID or email")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newReconcileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one notification reconcile pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withInfra(cmd.Context(), opts.cfg, func(infra *modules.Infrastructure) error {
				notif := modules.NewNotificationModule(infra)
				projects := modules.NewProjectModule(infra, notif)

				res, err := projects.Notifications().Reconcile(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format     string
		out        string
		department string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export projects as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withInfra(cmd.Context(), opts.cfg, func(infra *modules.Infrastructure) error {
				notif := modules.NewNotificationModule(infra)
				projects := modules.NewProjectModule(infra, notif).Projects()

				list, err := projects.List(cmd.Context(), service.Actor{Role: domain.RoleAdmin}, service.ProjectQuery{Department: department})
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if out != "" {
					file, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("create %s: %w", out, err)
					}
					defer file.Close()
					w = file
				}
				if err := export.Write(w, f, list); err != nil {
					return err
				}
				if out != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "exported %d projects to %s\n", len(list), out)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&department, "department", "", "only export this department")
	return cmd
}

func newUsersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withInfra(cmd.Context(), opts.cfg, func(infra *modules.Infrastructure) error {
				users, err := infra.Store.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					rows = append(rows, []string{u.ID, u.Name, u.Email, string(u.Role), u.Department.Label()})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "EMAIL", "ROLE", "DEPARTMENT"}, rows)
				return nil
			})
		},
	}
}

func newExtensionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extensions",
		Short: "List and decide deadline extension requests",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List open extension requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withInfra(cmd.Context(), opts.cfg, func(infra *modules.Infrastructure) error {
				pending, err := modules.NewNotificationModule(infra).Gateway().ListPending(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(pending))
				for _, n := range pending {
					rows = append(rows, []string{n.ID, n.ProjectName, n.ExtensionReason, n.CreatedAt.Format(time.RFC3339)})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "PROJECT", "REASON", "REQUESTED"}, rows)
				return nil
			})
		},
	})

	for _, action := range []domain.ExtensionAction{domain.ActionApprove, domain.ActionReject} {
		cmd.AddCommand(&cobra.Command{
			Use:   string(action) + " <request-id>",
			Short: "Mark an extension request as " + action.PastTense(),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withInfra(cmd.Context(), opts.cfg, func(infra *modules.Infrastructure) error {
					gateway := modules.NewNotificationModule(infra).Gateway()
					resp, err := gateway.Decide(cmd.Context(), args[0], action, "pulsectl")
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), resp)
				})
			},
		})
	}
	return cmd
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

// withInfra opens the shared infrastructure for one command and closes it
// afterwards.
func withInfra(ctx context.Context, cfg *config.Config, fn func(*modules.Infrastructure) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return err
	}
	defer infra.Close()
	return fn(infra)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
