// Package pipeline ties Steam discovery, the running-client guard, the
// launch-option composer and the apply controller into the operations the
// CLI and the MCP server expose.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/optiscaler-linux/optiscaler-manager/internal/composer"
	"github.com/optiscaler-linux/optiscaler-manager/internal/launchopts"
	"github.com/optiscaler-linux/optiscaler-manager/internal/steam"
	"github.com/optiscaler-linux/optiscaler-manager/internal/storage"
)

// ErrSteamRunning is returned by mutating operations while the Steam client
// is running, unless the Editor was built with AllowRunningSteam.
var ErrSteamRunning = errors.New("steam is running; close it first or it will overwrite the change on exit")

// Options configures an Editor.
type Options struct {
	// SteamRoot is the installation to use; empty means autodetect.
	SteamRoot string
	// UserID is the default Steam user; empty means the most recent one.
	UserID string
	// ProcRoot is scanned for a running client; empty means /proc.
	ProcRoot          string
	AllowRunningSteam bool
	// Store is optional. Without it there is no history or managed-app list.
	Store      *storage.Store
	Controller *launchopts.Controller
	Logger     *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Editor runs launch-option edits against the local Steam installation.
type Editor struct {
	steamRoot    string
	userID       string
	procRoot     string
	allowRunning bool
	store        *storage.Store
	controller   *launchopts.Controller
	logger       *slog.Logger
	now          func() time.Time
}

// NewEditor creates an Editor. A nil Controller gets one with default options
// journaling into Store.
func NewEditor(opts Options) *Editor {
	e := &Editor{
		steamRoot:    opts.SteamRoot,
		userID:       opts.UserID,
		procRoot:     opts.ProcRoot,
		allowRunning: opts.AllowRunningSteam,
		store:        opts.Store,
		controller:   opts.Controller,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.controller == nil {
		var j launchopts.Journal
		if e.store != nil {
			j = e.store
		}
		e.controller = launchopts.NewController(launchopts.Options{Journal: j, Logger: e.logger})
	}
	return e
}

// Root returns the Steam installation in use.
func (e *Editor) Root() (string, error) {
	if e.steamRoot != "" {
		return e.steamRoot, nil
	}
	root, err := steam.FindRoot("")
	if err != nil {
		return "", err
	}
	e.steamRoot = root
	return root, nil
}

// Users lists the Steam users, most recently used first.
func (e *Editor) Users() ([]steam.User, error) {
	root, err := e.Root()
	if err != nil {
		return nil, err
	}
	return steam.Users(root)
}

// ConfigPath resolves localconfig.vdf for userID, falling back to the
// configured user and then to the most recent one.
func (e *Editor) ConfigPath(userID string) (string, error) {
	users, err := e.Users()
	if err != nil {
		return "", err
	}
	if userID == "" {
		userID = e.userID
	}
	u, err := steam.SelectUser(users, userID)
	if err != nil {
		return "", fmt.Errorf("user %q: %w", userID, err)
	}
	if !u.HasConfig {
		return "", fmt.Errorf("%s: %w", u.ConfigPath, fs.ErrNotExist)
	}
	return u.ConfigPath, nil
}

// Current is the LaunchOptions of one app as read from disk.
type Current struct {
	ConfigPath string
	AppID      string
	Value      string
	Found      bool
}

// Show reads the LaunchOptions of appID without writing anything.
func (e *Editor) Show(appID, userID string) (Current, error) {
	if err := launchopts.ValidateAppID(appID); err != nil {
		return Current{}, err
	}
	path, err := e.ConfigPath(userID)
	if err != nil {
		return Current{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Current{}, err
	}
	v, ok, err := launchopts.Read(data, appID)
	if err != nil {
		return Current{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Current{ConfigPath: path, AppID: appID, Value: v, Found: ok}, nil
}

// ShowAll reads the LaunchOptions of appID for every Steam user.
func (e *Editor) ShowAll(ctx context.Context, appID string) ([]steam.UserLaunchOptions, error) {
	users, err := e.Users()
	if err != nil {
		return nil, err
	}
	return steam.ScanLaunchOptions(ctx, users, appID)
}

// SetRequest describes a set operation. Exactly one of Value and Preset
// should be given; Preset is looked up in the composer catalog.
type SetRequest struct {
	AppID  string
	UserID string
	Value  string
	Preset string
}

// Outcome is the result of a mutating operation.
type Outcome struct {
	ConfigPath string
	launchopts.Result
}

// Set writes LaunchOptions for an app.
func (e *Editor) Set(ctx context.Context, req SetRequest) (Outcome, error) {
	value := req.Value
	if req.Preset != "" {
		if value != "" {
			return Outcome{}, errors.New("give either a value or a preset, not both")
		}
		p, ok := composer.Lookup(req.Preset)
		if !ok {
			return Outcome{}, fmt.Errorf("unknown preset %q", req.Preset)
		}
		value = p.Command()
	}
	if value == "" {
		return Outcome{}, errors.New("launch options value is empty; use clear to remove them")
	}

	out, err := e.apply(ctx, launchopts.Request{AppID: req.AppID, Value: value}, req.UserID)
	if err != nil {
		return out, err
	}
	if e.store != nil {
		m := storage.ManagedApp{
			ConfigPath:    out.ConfigPath,
			AppID:         req.AppID,
			Preset:        req.Preset,
			LaunchOptions: value,
			UpdatedAt:     e.now().UTC(),
		}
		if err := e.store.UpsertManagedApp(m); err != nil {
			e.logger.Warn("failed to record managed app", "app_id", req.AppID, "error", err)
		}
	}
	return out, nil
}

// Clear removes LaunchOptions for an app.
func (e *Editor) Clear(ctx context.Context, appID, userID string) (Outcome, error) {
	out, err := e.apply(ctx, launchopts.Request{AppID: appID, Clear: true}, userID)
	if err != nil {
		return out, err
	}
	if e.store != nil {
		if err := e.store.DeleteManagedApp(out.ConfigPath, appID); err != nil {
			e.logger.Warn("failed to forget managed app", "app_id", appID, "error", err)
		}
	}
	return out, nil
}

func (e *Editor) apply(ctx context.Context, req launchopts.Request, userID string) (Outcome, error) {
	if err := launchopts.ValidateAppID(req.AppID); err != nil {
		return Outcome{}, err
	}
	path, err := e.ConfigPath(userID)
	if err != nil {
		return Outcome{}, err
	}
	if err := e.guard(); err != nil {
		return Outcome{ConfigPath: path}, err
	}
	req.ConfigPath = path
	res, err := e.controller.Apply(ctx, req)
	return Outcome{ConfigPath: path, Result: res}, err
}

// Restore puts a backup back in place. ref is either an edit id (or unique
// prefix) from History or a backup file path; a path is restored over the
// config of userID.
func (e *Editor) Restore(ctx context.Context, ref, userID string) (Outcome, error) {
	if ref == "" {
		return Outcome{}, errors.New("nothing to restore: give an edit id or a backup path")
	}
	var configPath, backupPath string
	if e.store != nil {
		edit, err := e.store.FindEdit(ref)
		switch {
		case err == nil:
			configPath, backupPath = edit.ConfigPath, edit.BackupPath
		case !errors.Is(err, storage.ErrNotFound):
			return Outcome{}, err
		}
	}
	if backupPath == "" {
		if _, err := os.Stat(ref); err != nil {
			return Outcome{}, fmt.Errorf("%w: %s", launchopts.ErrNoBackup, ref)
		}
		backupPath = ref
		p, err := e.ConfigPath(userID)
		if err != nil {
			return Outcome{}, err
		}
		configPath = p
	}
	if err := e.guard(); err != nil {
		return Outcome{ConfigPath: configPath}, err
	}
	res, err := e.controller.Restore(ctx, configPath, backupPath)
	return Outcome{ConfigPath: configPath, Result: res}, err
}

// Backups lists snapshots of userID's config, newest first.
func (e *Editor) Backups(userID string) ([]string, error) {
	path, err := e.ConfigPath(userID)
	if err != nil {
		return nil, err
	}
	return e.controller.ListBackups(path)
}

// History returns journaled edits, newest first.
func (e *Editor) History(appID string, limit int) ([]storage.Edit, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.RecentEdits(appID, limit)
}

// Managed lists apps whose launch options this tool set for userID.
func (e *Editor) Managed(userID string) ([]storage.ManagedApp, error) {
	if e.store == nil {
		return nil, nil
	}
	path, err := e.ConfigPath(userID)
	if err != nil {
		return nil, err
	}
	return e.store.ListManagedApps(path)
}

// SteamRunning reports whether a Steam client process is visible.
func (e *Editor) SteamRunning() (bool, error) {
	return steam.Running(e.procRoot)
}

func (e *Editor) guard() error {
	if e.allowRunning {
		return nil
	}
	running, err := e.SteamRunning()
	if err != nil {
		e.logger.Debug("could not check for a running steam client", "error", err)
		return nil
	}
	if running {
		return ErrSteamRunning
	}
	return nil
}
