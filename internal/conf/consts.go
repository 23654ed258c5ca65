// conf/consts.go hard coded constants
package conf

const (
	DefaultSampleRate = 48000 // Sample rate used when the config does not set one
	BitDepth          = 16    // Bit depth of baked impulse response assets
	DefaultChannels   = 2     // Channel count used when the config does not set one
	DefaultBlockSize  = 512   // Frames per render block when the config does not set one
)
