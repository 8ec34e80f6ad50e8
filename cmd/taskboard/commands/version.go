package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command
func NewVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the taskboard version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version": app.version,
				"go":      runtime.Version(),
				"api":     app.cfg.API.BaseURL,
			}
			if app.renderer.Structured() {
				return app.renderer.Value(info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "taskboard %s (%s)\nAPI: %s\n", info["version"], info["go"], info["api"])
			return nil
		},
	}
}
