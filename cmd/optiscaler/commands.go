package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/optiscaler-linux/optiscaler-manager/internal/api"
	"github.com/optiscaler-linux/optiscaler-manager/internal/composer"
	"github.com/optiscaler-linux/optiscaler-manager/internal/config"
	"github.com/optiscaler-linux/optiscaler-manager/internal/pipeline"
)

// --- compose flags, shared by set and compose ---

func addComposeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("rdna3", false, "add the RDNA3 WMMA workaround (default from launch.rdna3_workaround)")
	cmd.Flags().Bool("mangohud", false, "wrap the game in mangohud (default from launch.mangohud)")
	cmd.Flags().Bool("debug", false, "enable Proton and Wine DLL logging")
	cmd.Flags().Bool("no-dlss-fg", false, "also override nvngx to disable DLSS frame generation")
	cmd.Flags().StringSlice("radv", nil, "RADV_PERFTEST features, e.g. rt,nggc")
	cmd.Flags().StringArray("env", nil, "extra environment variable as NAME=value (repeatable)")
	cmd.Flags().StringArray("arg", nil, "argument passed to the game after %command% (repeatable)")
}

var composeFlagNames = []string{"rdna3", "mangohud", "debug", "no-dlss-fg", "radv", "env", "arg"}

func composeFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range composeFlagNames {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func composeFromFlags(cmd *cobra.Command) (string, error) {
	opts := composer.Options{
		RDNA3Workaround: cfg.Launch.RDNA3Workaround,
		MangoHUD:        cfg.Launch.MangoHUD,
	}
	if cmd.Flags().Changed("rdna3") {
		opts.RDNA3Workaround, _ = cmd.Flags().GetBool("rdna3")
	}
	if cmd.Flags().Changed("mangohud") {
		opts.MangoHUD, _ = cmd.Flags().GetBool("mangohud")
	}
	opts.Debug, _ = cmd.Flags().GetBool("debug")
	opts.DisableDLSSFrameGen, _ = cmd.Flags().GetBool("no-dlss-fg")
	opts.RADVPerftest, _ = cmd.Flags().GetStringSlice("radv")
	opts.GameArgs, _ = cmd.Flags().GetStringArray("arg")

	envs, _ := cmd.Flags().GetStringArray("env")
	env, err := composer.ParseEnv(envs)
	if err != nil {
		return "", err
	}
	opts.Env = env
	return composer.Compose(opts)
}

// --- set ---

var setCmd = &cobra.Command{
	Use:   "set <appid> [value]",
	Short: "Set an app's launch options",
	Long: `Set an app's launch options in localconfig.vdf.

The value is taken literally, looked up from a preset, or composed from
flags. The file is backed up before every write and Steam must be closed.

Examples:
  optiscaler set 1245620 --preset basic
  optiscaler set 1245620 --rdna3 --mangohud --arg -dx12
  optiscaler set 1245620 'WINEDLLOVERRIDES="dxgi=n,b" %command%'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID := args[0]
		preset, _ := cmd.Flags().GetString("preset")

		var value string
		if len(args) == 2 {
			value = args[1]
		}
		switch {
		case composeFlagsChanged(cmd) && (value != "" || preset != ""):
			return errors.New("compose flags cannot be combined with a value or --preset")
		case value == "" && preset == "":
			v, err := composeFromFlags(cmd)
			if err != nil {
				return err
			}
			value = v
		}

		ed, closeFn, err := openEditor()
		if err != nil {
			return err
		}
		defer closeFn()

		out, err := ed.Set(cmd.Context(), pipeline.SetRequest{
			AppID:  appID,
			UserID: cfg.Steam.UserID,
			Value:  value,
			Preset: preset,
		})
		if err != nil {
			return err
		}
		reportOutcome(cmd.OutOrStdout(), "Set", appID, out)
		return nil
	},
}

func init() {
	setCmd.Flags().String("preset", "", "preset key (see 'optiscaler presets')")
	addComposeFlags(setCmd)
}

// --- clear ---

var clearCmd = &cobra.Command{
	Use:   "clear <appid>",
	Short: "Remove an app's launch options",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, closeFn, err := openEditor()
		if err != nil {
			return err
		}
		defer closeFn()

		out, err := ed.Clear(cmd.Context(), args[0], cfg.Steam.UserID)
		if err != nil {
			return err
		}
		reportOutcome(cmd.OutOrStdout(), "Cleared", args[0], out)
		return nil
	},
}

func reportOutcome(w io.Writer, verb, appID string, out pipeline.Outcome) {
	printSuccess("%s launch options for %s", verb, appID)
	if out.Value != "" {
		fmt.Fprintln(w, out.Value)
	}
	if out.HadPrevious {
		printStatus("Previous", "%s", out.Previous)
	}
	printStatus("Config", "%s", out.ConfigPath)
	printStatus("Backup", "%s", out.BackupPath)
	if out.EditID != "" {
		printStatus("Edit", "%s (undo with 'optiscaler restore %s')", shortID(out.EditID), shortID(out.EditID))
	}
	printStatus("State", "%s", out.State)
	if out.Warning != nil {
		printWarning("%v", out.Warning)
	}
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <appid>",
	Short: "Show an app's current launch options",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		w := cmd.OutOrStdout()

		ed, closeFn, err := openEditor()
		if err != nil {
			return err
		}
		defer closeFn()

		if !all {
			cur, err := ed.Show(args[0], cfg.Steam.UserID)
			if err != nil {
				return err
			}
			if !cur.Found {
				printStatus(args[0], "%s", colorize(colorDim, "no launch options"))
				return nil
			}
			fmt.Fprintln(w, cur.Value)
			return nil
		}

		results, err := ed.ShowAll(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, r := range results {
			switch {
			case r.Err != nil:
				fmt.Fprintf(w, "%s\terror: %v\n", r.User.ID, r.Err)
			case !r.Found:
				fmt.Fprintf(w, "%s\t-\n", r.User.ID)
			default:
				fmt.Fprintf(w, "%s\t%s\n", r.User.ID, r.Value)
			}
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("all", false, "show the value for every Steam user")
}

// --- presets ---

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List launch-option presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdna3, mangohud := cfg.Launch.RDNA3Workaround, cfg.Launch.MangoHUD
		if cmd.Flags().Changed("rdna3") {
			rdna3, _ = cmd.Flags().GetBool("rdna3")
		}
		if cmd.Flags().Changed("mangohud") {
			mangohud, _ = cmd.Flags().GetBool("mangohud")
		}
		category, _ := cmd.Flags().GetString("category")

		w := cmd.OutOrStdout()
		for _, p := range composer.Catalog(rdna3, mangohud) {
			if category != "" && p.Category != category {
				continue
			}
			fmt.Fprintf(w, "%s  %s\n", colorize(colorBold, p.Key), p.Name)
			fmt.Fprintf(w, "    %s (%s)\n", p.Description, p.Compatibility)
			fmt.Fprintf(w, "    requires: %s\n", p.RequirementsText())
			fmt.Fprintf(w, "    %s\n", colorize(colorCyan, p.Command()))
		}
		return nil
	},
}

func init() {
	presetsCmd.Flags().Bool("rdna3", false, "include RDNA3 variants (default from launch.rdna3_workaround)")
	presetsCmd.Flags().Bool("mangohud", false, "include MangoHUD variants (default from launch.mangohud)")
	presetsCmd.Flags().String("category", "", "only show presets in this category ("+strings.Join(composer.Categories(), ", ")+")")
}

// --- compose ---

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Print a launch-options string without writing it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := composeFromFlags(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	addComposeFlags(composeCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent launch-option edits",
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, _ := cmd.Flags().GetString("app")
		limit := cfg.History.Limit
		if cmd.Flags().Changed("limit") {
			limit, _ = cmd.Flags().GetInt("limit")
		}

		ed, closeFn, err := openEditor()
		if err != nil {
			return err
		}
		defer closeFn()

		edits, err := ed.History(appID, limit)
		if err != nil {
			return err
		}
		if len(edits) == 0 {
			printStatus("History", "no edits recorded")
			return nil
		}

		w := cmd.OutOrStdout()
		for _, e := range edits {
			fmt.Fprintf(w, "%s  %s  %-7s %-8s %s\n",
				colorize(colorBold, shortID(e.ID)),
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Action, e.AppID, e.Status)
			if e.NewValue != "" {
				fmt.Fprintf(w, "    new: %s\n", e.NewValue)
			}
			if e.HadPrevious {
				fmt.Fprintf(w, "    old: %s\n", e.PreviousValue)
			}
			if e.Message != "" {
				fmt.Fprintf(w, "    %s\n", colorize(colorYellow, e.Message))
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("app", "", "only show edits for this app id")
	historyCmd.Flags().Int("limit", 0, "maximum number of edits (default from history.limit)")
}

// --- restore ---

var restoreCmd = &cobra.Command{
	Use:   "restore <edit-id|backup-path>",
	Short: "Put a localconfig.vdf backup back in place",
	Long: `Put a localconfig.vdf backup back in place.

The argument is an edit id (or unique prefix) from 'optiscaler history', which
restores the snapshot taken before that edit, or a path to a backup file.
The current file is itself backed up first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, closeFn, err := openEditor()
		if err != nil {
			return err
		}
		defer closeFn()

		printStep("Restoring %s", args[0])
		out, err := ed.Restore(cmd.Context(), args[0], cfg.Steam.UserID)
		if err != nil {
			return err
		}
		printSuccess("Restored %s", out.ConfigPath)
		printStatus("Snapshot of replaced file", "%s", out.BackupPath)
		if out.EditID != "" {
			printStatus("Edit", "%s", shortID(out.EditID))
		}
		return nil
	},
}

// --- backups ---

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List localconfig.vdf backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, closeFn, err := openEditor()
		if err != nil {
			return err
		}
		defer closeFn()

		paths, err := ed.Backups(cfg.Steam.UserID)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			printStatus("Backups", "none")
			return nil
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

// --- users ---

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List Steam users, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, closeFn, err := openEditor()
		if err != nil {
			return err
		}
		defer closeFn()

		users, err := ed.Users()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, u := range users {
			mark := "-"
			if u.HasConfig {
				mark = "localconfig.vdf"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.ModTime.Local().Format("2006-01-02 15:04"), mark)
		}
		return nil
	},
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Steam installation and tool status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, closeFn, err := openEditor()
		if err != nil {
			// Still show partial status even if storage fails.
			printError("storage error: %v", err)
			return nil
		}
		defer closeFn()

		root, err := ed.Root()
		if err != nil {
			printStatus("Steam", "%v", err)
			return nil
		}
		printStatus("Steam", "%s", root)

		running, err := ed.SteamRunning()
		switch {
		case err != nil:
			printStatus("Client", "unknown (%v)", err)
		case running:
			printStatus("Client", "%s", colorize(colorYellow, "running, edits are blocked"))
		default:
			printStatus("Client", "not running")
		}

		users, err := ed.Users()
		if err != nil {
			printStatus("Users", "%v", err)
			return nil
		}
		printStatus("Users", "%d", len(users))

		path, err := ed.ConfigPath(cfg.Steam.UserID)
		if err != nil {
			printStatus("Config", "%v", err)
			return nil
		}
		printStatus("Config", "%s", path)

		managed, err := ed.Managed(cfg.Steam.UserID)
		if err == nil {
			printStatus("Managed apps", "%d", len(managed))
			w := cmd.OutOrStdout()
			for _, m := range managed {
				label := m.Preset
				if label == "" {
					label = "custom"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.AppID, label, m.LaunchOptions)
			}
		}
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(config.NewFileBackend(configPath), key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(config.NewFileBackend(configPath), args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve launch-option tools over MCP (stdio)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, closeFn, err := openEditor()
		if err != nil {
			return err
		}
		defer closeFn()

		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Editor:          ed,
			RDNA3Workaround: cfg.Launch.RDNA3Workaround,
			MangoHUD:        cfg.Launch.MangoHUD,
		}, version)

		stdioSrv := server.NewStdioServer(mcpSrv)
		err = stdioSrv.Listen(cmd.Context(), os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}
