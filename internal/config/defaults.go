package config

const (
	defaultSongsDir                 = "~/.local/share/jukebox/songs"
	defaultSamplesDir               = "~/.local/share/jukebox/samples"
	defaultAssetsDir                = "~/.local/share/jukebox/assets"
	defaultDataDir                  = "~/.local/share/jukebox"
	defaultLogDir                   = "~/.local/share/jukebox/logs"
	defaultAPIBind                  = "0.0.0.0:8080"
	defaultGPIOBaseDir              = "/sys/class/gpio"
	defaultChipDevice               = "/dev/gpiochip0"
	defaultPollIntervalMs           = 50
	defaultSamplesPerRead           = 3
	defaultEntryTimeoutSeconds      = 5
	defaultSoundboardTimeoutSeconds = 60
	defaultMaxTrackNumber           = 999
	defaultBankCount                = 10
	defaultImportWorkers            = 2
	defaultImportTimeoutSeconds     = 600
	defaultMaxSampleBytes           = 30 * 1024 * 1024
	defaultSampleRate               = 44100
	defaultRemotePort               = 22
	defaultRemoteTimeoutSeconds     = 60
	defaultNotifyRequestTimeout     = 10
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// defaultKeypadLines matches the four header pins the decoder board drives.
var defaultKeypadLines = []int{4, 17, 27, 22}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SongsDir:   defaultSongsDir,
			SamplesDir: defaultSamplesDir,
			AssetsDir:  defaultAssetsDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Keypad: Keypad{
			GPIOBaseDir:    defaultGPIOBaseDir,
			Lines:          append([]int{}, defaultKeypadLines...),
			PollIntervalMs: defaultPollIntervalMs,
			SamplesPerRead: defaultSamplesPerRead,
			ChipDevice:     defaultChipDevice,
		},
		Player: Player{
			EntryTimeoutSeconds:      defaultEntryTimeoutSeconds,
			SoundboardTimeoutSeconds: defaultSoundboardTimeoutSeconds,
			MaxTrackNumber:           defaultMaxTrackNumber,
			BankCount:                defaultBankCount,
		},
		Import: Import{
			Workers:        defaultImportWorkers,
			TimeoutSeconds: defaultImportTimeoutSeconds,
			MaxSampleBytes: defaultMaxSampleBytes,
			SampleRate:     defaultSampleRate,
		},
		Remote: Remote{
			Port:           defaultRemotePort,
			TimeoutSeconds: defaultRemoteTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Imports:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
