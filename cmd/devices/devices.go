package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/izzarra/Vertigini-VR/internal/playback"
)

// Command creates the output device listing command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio output devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, backend, err := playback.ListOutputDevices()
			if err != nil {
				return err
			}

			fmt.Printf("Output devices (%s backend):\n", backend)
			if len(devices) == 0 {
				fmt.Println("  no devices found")
				return nil
			}
			for _, d := range devices {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				fmt.Printf(" %s %s\n", marker, d.Name)
			}
			return nil
		},
	}
}
