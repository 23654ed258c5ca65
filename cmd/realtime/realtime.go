package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/izzarra/Vertigini-VR/internal/conf"
	rt "github.com/izzarra/Vertigini-VR/internal/realtime"
)

// Command creates the realtime rendering command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Render spatial audio in realtime mode",
		Long:  "Start the rendering service: playback device, listener frame ticker, telemetry endpoint and control API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.Run(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Realtime.Audio.Device, "device", viper.GetString("realtime.audio.device"), "Output device name, matched as a substring, empty for the system default")
	cmd.Flags().StringVar(&settings.Realtime.Audio.Source, "source", viper.GetString("realtime.audio.source"), "Audio source: \"tone\" or path to a wav/flac file")
	cmd.Flags().Float64Var(&settings.Realtime.Audio.Gain, "gain", viper.GetFloat64("realtime.audio.gain"), "Linear gain applied before rendering")
	cmd.Flags().IntVar(&settings.Realtime.FrameRate, "framerate", viper.GetInt("realtime.framerate"), "Listener frame updates per second")
	cmd.Flags().BoolVar(&settings.Spatial.Accelerated, "accelerated", viper.GetBool("spatial.accelerated"), "Use the precomputed mixing path")
	cmd.Flags().StringVar(&settings.Spatial.IRPath, "irpath", viper.GetString("spatial.irpath"), "Impulse response WAV for the accelerated mixer")
	cmd.Flags().BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", viper.GetBool("realtime.telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.Telemetry.Listen, "telemetry-listen", viper.GetString("realtime.telemetry.listen"), "Listen address and port of the telemetry endpoint")
	cmd.Flags().BoolVar(&settings.Realtime.API.Enabled, "api", viper.GetBool("realtime.api.enabled"), "Enable the control API")
	cmd.Flags().StringVar(&settings.Realtime.API.Listen, "api-listen", viper.GetString("realtime.api.listen"), "Listen address and port of the control API")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
