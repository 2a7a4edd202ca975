package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
	"github.com/felixgeelhaar/grievance/internal/guard"
	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/ux"
)

func newAdminCommand(cc *CommandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Review every grievance on the platform (admin role)",
		Long: `Administrator views of the grievance platform.

Every admin command requires a logged-in user with the admin role.`,
	}

	cmd.AddCommand(
		newAdminListCommand(cc),
		newAdminStatsCommand(cc),
		newAdminDeleteCommand(cc),
		newAdminSetStatusCommand(cc),
	)
	return cmd
}

func newAdminListCommand(cc *CommandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all grievances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStatusFilter(status)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := a.guard(ctx, guard.PathAdmin); err != nil {
				return err
			}

			grievances, err := a.client.AdminListGrievances(ctx, filter)
			if err != nil {
				return FromClientError(err)
			}

			return a.render(grievanceListView{
				Grievances: platform.FilterByStatus(grievances, filter),
				noColor:    a.noColor,
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "only show this status: all, UNIQUE, NEAR_DUPLICATE or DUPLICATE")
	return cmd
}

func newAdminStatsCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform-wide statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := a.guard(ctx, guard.PathAdmin); err != nil {
				return err
			}

			stats, err := a.client.AdminStats(ctx)
			if err != nil {
				return FromClientError(err)
			}

			return a.render(statsView{
				Scope:   "platform",
				Stats:   *stats,
				styles:  a.styles,
				noColor: a.noColor,
			})
		},
	}
}

func newAdminDeleteCommand(cc *CommandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a grievance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := platform.ID(args[0])

			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := a.guard(ctx, guard.PathAdmin); err != nil {
				return err
			}

			if !yes {
				if !ux.IsInteractive(os.Stdin) {
					return apperrors.NewUsageError(
						"refusing to delete without confirmation",
						"Pass --yes to delete non-interactively",
					)
				}
				confirmed, err := ux.PromptForConfirmation(fmt.Sprintf("Delete grievance #%s?", id), false)
				if err != nil {
					return err
				}
				if !confirmed {
					return a.render(actionView{Action: "delete", ID: id.String(), Message: "Cancelled."})
				}
			}

			if err := a.client.AdminDeleteGrievance(ctx, id); err != nil {
				return FromClientError(err)
			}

			return a.render(actionView{
				Action:  "delete",
				ID:      id.String(),
				Message: fmt.Sprintf("Grievance #%s deleted.", id),
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newAdminSetStatusCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Override the duplicate status of a grievance",
		Long: `Override the duplicate status the service computed for a grievance.

Examples:
  grievance admin set-status 42 UNIQUE`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := platform.ID(args[0])
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}

			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := a.guard(ctx, guard.PathAdmin); err != nil {
				return err
			}

			updated, err := a.client.AdminUpdateStatus(ctx, id, status)
			if err != nil {
				return FromClientError(err)
			}

			return a.render(submissionView{
				Message:   "Status updated",
				Grievance: *updated,
				styles:    a.styles,
				noColor:   a.noColor,
			})
		},
	}
}
