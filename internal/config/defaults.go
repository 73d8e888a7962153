package config

const (
	defaultConfigPath        = "~/.config/audioconv/config.toml"
	defaultUploadDir         = "~/.local/share/audioconv/uploads"
	defaultStateDir          = "~/.local/share/audioconv/state"
	defaultLogDir            = "~/.local/share/audioconv/logs"
	defaultBind              = "127.0.0.1:5002"
	defaultMaxUploadMB       = 1024
	defaultReadHeaderTimeout = 10
	defaultShutdownTimeout   = 30
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultFormat            = "mp3"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultConversionTimeout = 0
	defaultOutputMaxAgeHours = 0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Server: Server{
			Bind:                     defaultBind,
			MaxUploadMB:              defaultMaxUploadMB,
			ReadHeaderTimeoutSeconds: defaultReadHeaderTimeout,
			ShutdownTimeoutSeconds:   defaultShutdownTimeout,
		},
		Conversion: Conversion{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			DefaultFormat:  defaultFormat,
			TimeoutSeconds: defaultConversionTimeout,
		},
		Retention: Retention{
			OutputMaxAgeHours: defaultOutputMaxAgeHours,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
