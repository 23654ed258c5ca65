// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Vertigini-VR")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "vertigini.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", time.Sunday)

	viper.SetDefault("realtime.framerate", 60)

	viper.SetDefault("realtime.audio.device", "")
	viper.SetDefault("realtime.audio.samplerate", DefaultSampleRate)
	viper.SetDefault("realtime.audio.channels", DefaultChannels)
	viper.SetDefault("realtime.audio.blocksize", DefaultBlockSize)
	viper.SetDefault("realtime.audio.source", "tone")
	viper.SetDefault("realtime.audio.tonehz", 220.0)
	viper.SetDefault("realtime.audio.gain", 0.8)

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("realtime.api.enabled", true)
	viper.SetDefault("realtime.api.listen", "0.0.0.0:8080")
	viper.SetDefault("realtime.api.cachettl", 5)

	viper.SetDefault("spatial.debug", false)
	viper.SetDefault("spatial.drymix", 1.0)
	viper.SetDefault("spatial.reverb.enabled", true)
	viper.SetDefault("spatial.reverb.mix", 1.0)
	viper.SetDefault("spatial.accelerated", false)
	viper.SetDefault("spatial.binaural", true)
	viper.SetDefault("spatial.simulation", "realtime")
	viper.SetDefault("spatial.reverbtype", "parametric")
	viper.SetDefault("spatial.scene", "")
	viper.SetDefault("spatial.irpath", "")

	viper.SetDefault("bake.debug", false)
	viper.SetDefault("bake.output", "bakes/")
	viper.SetDefault("bake.database", "bakes.db")
	viper.SetDefault("bake.parallelism", 0)
	viper.SetDefault("bake.irseconds", 1.5)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
