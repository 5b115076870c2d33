// File: cmd/goal.go
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sreeshanth-soma/erpScraper/internal/config"
	"github.com/sreeshanth-soma/erpScraper/internal/observability"
)

func newGoalCmd() *cobra.Command {
	goalCmd := &cobra.Command{
		Use:   "goal [percentage]",
		Short: "Show or set the attendance goal",
		Long: `Without an argument, prints the stored attendance goal for the configured owner.
With an argument (0 < goal <= 100), stores a new goal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			var newGoal float64
			if len(args) == 1 {
				if newGoal, err = strconv.ParseFloat(args[0], 64); err != nil {
					return fmt.Errorf("goal %q is not a number", args[0])
				}
				if err := config.ValidateGoal(newGoal); err != nil {
					return err
				}
			}

			repo, err := openStore(ctx, cfg.Database, cfg.Profile.DefaultGoal, logger)
			if err != nil {
				return fmt.Errorf("failed to open record store: %w", err)
			}
			defer repo.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				profile, err := repo.SetGoal(ctx, cfg.Profile.Owner, newGoal)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Attendance goal for %s set to %.2f%%\n", profile.Owner, profile.Goal)
				return nil
			}

			profile, err := repo.Profile(ctx, cfg.Profile.Owner)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Attendance goal for %s: %.2f%%\n", profile.Owner, profile.Goal)
			return nil
		},
	}
	return goalCmd
}
