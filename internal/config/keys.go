package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "steam.root", typ: kString, env: "OPTISCALER_STEAM_ROOT",
		apply:   func(cfg *Config, v any) { cfg.Steam.Root = v.(string) },
		extract: func(cfg Config) any { return cfg.Steam.Root },
	},
	{
		key: "steam.user_id", typ: kString, env: "OPTISCALER_STEAM_USER_ID",
		apply:   func(cfg *Config, v any) { cfg.Steam.UserID = v.(string) },
		extract: func(cfg Config) any { return cfg.Steam.UserID },
	},
	{
		key: "storage.data_dir", typ: kString, env: "OPTISCALER_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "backup.dir", typ: kString, env: "OPTISCALER_BACKUP_DIR",
		apply:   func(cfg *Config, v any) { cfg.Backup.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Backup.Dir },
	},
	{
		key: "apply.verify", typ: kBool, env: "OPTISCALER_APPLY_VERIFY",
		apply:   func(cfg *Config, v any) { cfg.Apply.Verify = v.(bool) },
		extract: func(cfg Config) any { return cfg.Apply.Verify },
	},
	{
		key: "apply.allow_running_steam", typ: kBool, env: "OPTISCALER_APPLY_ALLOW_RUNNING_STEAM",
		apply:   func(cfg *Config, v any) { cfg.Apply.AllowRunningSteam = v.(bool) },
		extract: func(cfg Config) any { return cfg.Apply.AllowRunningSteam },
	},
	{
		key: "launch.rdna3_workaround", typ: kBool, env: "OPTISCALER_LAUNCH_RDNA3_WORKAROUND",
		apply:   func(cfg *Config, v any) { cfg.Launch.RDNA3Workaround = v.(bool) },
		extract: func(cfg Config) any { return cfg.Launch.RDNA3Workaround },
	},
	{
		key: "launch.mangohud", typ: kBool, env: "OPTISCALER_LAUNCH_MANGOHUD",
		apply:   func(cfg *Config, v any) { cfg.Launch.MangoHUD = v.(bool) },
		extract: func(cfg Config) any { return cfg.Launch.MangoHUD },
	},
	{
		key: "history.limit", typ: kInt, env: "OPTISCALER_HISTORY_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.History.Limit = v.(int) },
		extract: func(cfg Config) any { return cfg.History.Limit },
	},
	{
		key: "log.level", typ: kString, env: "OPTISCALER_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
