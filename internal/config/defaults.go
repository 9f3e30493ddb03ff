package config

const (
	defaultWorkDir                 = "~/.local/share/aircheck/work"
	defaultLogDir                  = "~/.local/share/aircheck/logs"
	defaultShowsFile               = "~/.config/aircheck/config_shows.json"
	defaultStationsFile            = "~/.config/aircheck/config_stations.json"
	defaultArtworkDir              = "~/.config/aircheck/artwork"
	defaultAPIBind                 = "127.0.0.1:7428"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultMaxConcurrent           = 3
	defaultCaptureRetries          = 3
	defaultCaptureRetryDelay       = 5
	defaultCaptureRetryMaxDelay    = 60
	defaultCaptureGraceMinutes     = 2
	defaultCompletedRetentionHours = 72
	defaultTransferBackend         = "scp"
	defaultRemoteBase              = "/archive/recordings"
	defaultSSHPort                 = 22
	defaultConnectTimeout          = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:      defaultWorkDir,
			LogDir:       defaultLogDir,
			ShowsFile:    defaultShowsFile,
			StationsFile: defaultStationsFile,
			ArtworkDir:   defaultArtworkDir,
		},
		Server: Server{
			APIBind: defaultAPIBind,
		},
		Workflow: Workflow{
			MaxConcurrent:           defaultMaxConcurrent,
			CaptureRetries:          defaultCaptureRetries,
			CaptureRetryDelay:       defaultCaptureRetryDelay,
			CaptureRetryMaxDelay:    defaultCaptureRetryMaxDelay,
			CaptureGraceMinutes:     defaultCaptureGraceMinutes,
			CompletedRetentionHours: defaultCompletedRetentionHours,
		},
		Transfer: Transfer{
			Backend:        defaultTransferBackend,
			RemoteBase:     defaultRemoteBase,
			SSHPort:        defaultSSHPort,
			ConnectTimeout: defaultConnectTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
