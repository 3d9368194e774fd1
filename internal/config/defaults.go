package config

const (
	defaultDataDir        = "~/.local/share/callbox"
	defaultLogDir         = "~/.local/share/callbox/logs"
	defaultAPIBind        = "127.0.0.1:8321"
	defaultMaxSizeMiB     = 50
	defaultFFmpegBinary   = "ffmpeg"
	defaultProbeBinary    = "ffprobe"
	defaultBitrateKbps    = 96
	defaultFFmpegTimeout  = 120
	defaultSTTBaseURL     = "https://api.openai.com/v1"
	defaultSTTModel       = "whisper-1"
	defaultSTTTimeout     = 120
	defaultSTTMaxAttempts = 3
	defaultLLMBaseURL     = "https://api.openai.com/v1"
	defaultLLMModel       = "gpt-4o-mini"
	defaultLLMTimeout     = 60
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

var defaultAllowedExtensions = []string{".wav", ".mp3", ".mpeg"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Upload: Upload{
			MaxSizeMiB:        defaultMaxSizeMiB,
			AllowedExtensions: append([]string{}, defaultAllowedExtensions...),
		},
		FFmpeg: FFmpeg{
			Binary:         defaultFFmpegBinary,
			ProbeBinary:    defaultProbeBinary,
			BitrateKbps:    defaultBitrateKbps,
			TimeoutSeconds: defaultFFmpegTimeout,
		},
		STT: STT{
			BaseURL:        defaultSTTBaseURL,
			Model:          defaultSTTModel,
			TimeoutSeconds: defaultSTTTimeout,
			MaxAttempts:    defaultSTTMaxAttempts,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
