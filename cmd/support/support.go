package support

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/izzarra/Vertigini-VR/internal/conf"
	"github.com/izzarra/Vertigini-VR/internal/diagnostics"
)

// Command creates the support dump command.
func Command(settings *conf.Settings) *cobra.Command {
	var output string
	var noConfig bool

	cmd := &cobra.Command{
		Use:   "support",
		Short: "Collect system diagnostics for troubleshooting",
		Long:  "Gather host, resource and scrubbed configuration details into a plain-text report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Collecting support data...")

			report := diagnostics.Collect(diagnostics.Options{
				Settings:      settings,
				IncludeConfig: !noConfig,
			})

			path := output
			if path == "" {
				path = fmt.Sprintf("vertigini-support-%s.txt", report.ID)
			}
			if err := report.WriteFile(path); err != nil {
				return err
			}

			fmt.Printf("Support report saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Report file path, default vertigini-support-<id>.txt")
	cmd.Flags().BoolVar(&noConfig, "no-config", false, "Leave the scrubbed configuration out of the report")

	return cmd
}
