package config

type Config struct {
	Steam   SteamConfig
	Storage StorageConfig
	Backup  BackupConfig
	Apply   ApplyConfig
	Launch  LaunchConfig
	History HistoryConfig
	Log     LogConfig
}

type SteamConfig struct {
	// Root is the Steam installation; empty means autodetect.
	Root string
	// UserID selects a userdata directory; empty means the most recent user.
	UserID string
}

type StorageConfig struct {
	DataDir string
}

type BackupConfig struct {
	// Dir holds localconfig.vdf snapshots; empty means next to the file.
	Dir string
}

type ApplyConfig struct {
	Verify            bool
	AllowRunningSteam bool
}

// LaunchConfig holds composer defaults.
type LaunchConfig struct {
	RDNA3Workaround bool
	MangoHUD        bool
}

type HistoryConfig struct {
	Limit int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Apply: ApplyConfig{
			Verify: true,
		},
		History: HistoryConfig{
			Limit: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file at path (DefaultPath when
// empty) and applies OPTISCALER_* environment overrides on top.
func Load(path string) (Config, error) {
	return loadWith(NewFileBackend(path))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}
