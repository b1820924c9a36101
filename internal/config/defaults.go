package config

const (
	defaultStateDir         = "~/.local/share/subgen"
	defaultLogDir           = "~/.local/share/subgen/logs"
	defaultServerURL        = "http://127.0.0.1:9191/inference"
	defaultStashURL         = "http://127.0.0.1:9999"
	defaultRequestTimeout   = 3600
	defaultProbeTimeout     = 5
	defaultStashTimeout     = 60
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultWatchSettle      = 2
	defaultWatchConcurrency = 2
	defaultLogFormat        = ""
	defaultLogLevel         = "info"
)

// EnvServerURL overrides the file-configured inference endpoint when set.
const EnvServerURL = "WHISPER_SERVER_URL"

func defaultWatchExtensions() []string {
	return []string{".mp4", ".mkv", ".mov", ".avi", ".webm", ".m4v", ".wmv", ".flv", ".ts"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Whisper: Whisper{
			ServerURL:      defaultServerURL,
			RequestTimeout: defaultRequestTimeout,
			ProbeTimeout:   defaultProbeTimeout,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
		},
		Stash: Stash{
			URL:            defaultStashURL,
			RequestTimeout: defaultStashTimeout,
		},
		Watch: Watch{
			Extensions:    defaultWatchExtensions(),
			SettleSeconds: defaultWatchSettle,
			MaxConcurrent: defaultWatchConcurrency,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
