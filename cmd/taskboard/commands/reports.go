package commands

import (
	"github.com/spf13/cobra"

	"github.com/taskmaster/taskboard/internal/domain/entities"
)

// NewReportsCommand creates the reports command
func NewReportsCommand(app *App) *cobra.Command {
	var projectID int

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Show server-side task statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermViewReports); err != nil {
				return err
			}
			stats, err := app.client.TaskStats(ctx, optionalInt(cmd, "project", projectID))
			if err != nil {
				return err
			}
			return app.renderer.Stats(stats)
		},
	}
	cmd.Flags().IntVar(&projectID, "project", 0, "limit to one project")
	return cmd
}
