package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	bakecmd "github.com/izzarra/Vertigini-VR/cmd/bake"
	devicescmd "github.com/izzarra/Vertigini-VR/cmd/devices"
	realtimecmd "github.com/izzarra/Vertigini-VR/cmd/realtime"
	supportcmd "github.com/izzarra/Vertigini-VR/cmd/support"
	"github.com/izzarra/Vertigini-VR/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vertigini",
		Short: "Vertigini-VR spatial audio runtime",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		realtimecmd.Command(settings),
		bakecmd.Command(settings),
		devicescmd.Command(),
		supportcmd.Command(settings),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Spatial.Scene, "scene", viper.GetString("spatial.scene"), "Path to the scene descriptor")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
