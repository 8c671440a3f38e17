package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/librahub/backend/internal/config"
	"github.com/librahub/backend/internal/database"
	"github.com/librahub/backend/internal/models"
	"github.com/librahub/backend/internal/services"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "circctl",
		Short:         "Maintenance commands for the library circulation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.Init(configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", ".env", "config file to read before the environment")

	member := &cobra.Command{Use: "member", Short: "Manage member accounts"}
	member.AddCommand(newMemberCreateCmd())

	root.AddCommand(newMigrateCmd(), newSweepCmd(), member)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.InitDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep [name...]",
		Short: "Run circulation sweeps once, in order",
		Long: "Runs the named sweeps, or all of them, once. Known sweeps: " + strings.Join([]string{
			services.SweepCheckOverdue,
			services.SweepCreatePenalties,
			services.SweepIncrementDaily,
			services.SweepExpirePickups,
			services.SweepAssignCopies,
		}, ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.InitDB()
			if err != nil {
				return err
			}
			defer db.Close()

			redisClient := database.InitRedis()
			if redisClient != nil {
				defer redisClient.Close()
			}

			lib := services.NewLibrary(db, redisClient, config.LoadCirculationConfig(), nil)
			results, err := lib.Scheduler.RunOnce(cmd.Context(), args...)
			printSweepResults(cmd, results)
			return err
		},
	}
}

func printSweepResults(cmd *cobra.Command, results []services.SweepResult) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SWEEP\tAFFECTED\tSTATUS")
	for _, res := range results {
		status := "ok"
		switch {
		case res.Skipped:
			status = "skipped (locked elsewhere)"
		case res.Error != "":
			status = "failed: " + res.Error
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", res.Name, res.Affected, status)
	}
	w.Flush()
}

func newMemberCreateCmd() *cobra.Command {
	var req services.RegisterRequest
	var roles []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a member account, prompting for the password",
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, role := range roles {
				roles[i] = strings.ToUpper(role)
				switch roles[i] {
				case models.RoleMember, models.RoleLibrarian, models.RoleAdmin:
				default:
					return fmt.Errorf("unknown role %q", role)
				}
			}

			password, err := readPassword(cmd, "Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			confirm, err := readPassword(cmd, "Confirm password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			req.Password = password

			db, err := database.InitDB()
			if err != nil {
				return err
			}
			defer db.Close()

			auth := services.NewAuthService(db, nil)
			member, err := auth.CreateMember(cmd.Context(), req, roles)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created member %d (%s) with roles %v\n", member.ID, member.Username, []string(member.Roles))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "login name")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringSliceVar(&roles, "role", []string{models.RoleMember}, "role to grant (MEMBER, LIBRARIAN, ADMIN); repeatable")
	cmd.MarkFlagRequired("username")
	return cmd
}

// readPassword reads a password from the terminal without echoing it.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	return strings.TrimSpace(string(bytePassword)), nil
}
