package config

import "github.com/AaronLay10/algoscene/internal/voiceover"

const (
	defaultLogLevel   = "info"
	defaultLogFormat  = "auto"
	defaultSQLitePath = ".algoscene/timings.db"
	defaultAPIPort    = 8080
)

// Default returns the configuration used for keys a project file omits.
func Default() Config {
	cfg := Config{Version: 1}
	cfg.Timing.Mode = "normal"
	cfg.VoiceOver.WordsPerSecond = voiceover.DefaultWordsPerSecond
	cfg.Logging = Logging{Level: defaultLogLevel, Format: defaultLogFormat}
	cfg.Storage = Storage{Driver: DriverMemory, Path: defaultSQLitePath}
	cfg.API.Port = defaultAPIPort
	cfg.MQTT.ClientID = "algoscene"
	return cfg
}
