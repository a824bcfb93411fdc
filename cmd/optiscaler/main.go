package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/optiscaler-linux/optiscaler-manager/internal/config"
	"github.com/optiscaler-linux/optiscaler-manager/internal/launchopts"
	"github.com/optiscaler-linux/optiscaler-manager/internal/pipeline"
	"github.com/optiscaler-linux/optiscaler-manager/internal/storage"
)

var version = "dev"

var (
	noColor    bool
	configPath string
	userFlag   string
	steamRoot  string
	logLevel   string
	procRoot   string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "optiscaler",
	Short:         "Manage Steam launch options for OptiScaler on Proton",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		if steamRoot != "" {
			cfg.Steam.Root = steamRoot
		}
		if userFlag != "" {
			cfg.Steam.UserID = userFlag
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		setupLogging(cfg.Log.Level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "Steam user id (default: most recently used)")
	rootCmd.PersistentFlags().StringVar(&steamRoot, "steam-root", "", "Steam installation directory (default: autodetect)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&procRoot, "proc-root", "", "process table used to detect a running Steam client")
	rootCmd.PersistentFlags().MarkHidden("proc-root")

	rootCmd.AddCommand(setCmd, clearCmd, showCmd, presetsCmd, composeCmd)
	rootCmd.AddCommand(historyCmd, restoreCmd, backupsCmd, usersCmd, statusCmd)
	rootCmd.AddCommand(configCmd, mcpCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// openEditor builds the editor from the loaded config. The returned func
// closes the history store.
func openEditor() (*pipeline.Editor, func(), error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	ctrl := launchopts.NewController(launchopts.Options{
		BackupDir:  cfg.Backup.Dir,
		SkipVerify: !cfg.Apply.Verify,
		Journal:    store,
		Logger:     slog.Default(),
	})
	ed := pipeline.NewEditor(pipeline.Options{
		SteamRoot:         cfg.Steam.Root,
		UserID:            cfg.Steam.UserID,
		ProcRoot:          procRoot,
		AllowRunningSteam: cfg.Apply.AllowRunningSteam,
		Store:             store,
		Controller:        ctrl,
		Logger:            slog.Default(),
	})
	return ed, func() { store.Close() }, nil
}
