package launchopts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/optiscaler-linux/optiscaler-manager/internal/storage"
	"github.com/optiscaler-linux/optiscaler-manager/internal/vdf"
)

// State is a step of one edit. Verified and Failed are terminal.
type State int

const (
	StateIdle State = iota
	StateBackedUp
	StateParsed
	StateMutated
	StateWritten
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBackedUp:
		return "backed-up"
	case StateParsed:
		return "parsed"
	case StateMutated:
		return "mutated"
	case StateWritten:
		return "written"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Actions recorded in the journal.
const (
	ActionSet     = "set"
	ActionClear   = "clear"
	ActionRestore = "restore"
)

const (
	backupMarker = ".backup_"
	backupLayout = "20060102_150405"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Journal records finished edits. Implemented by storage.Store.
type Journal interface {
	SaveEdit(e storage.Edit) error
}

// Options configures a Controller. The zero value is usable.
type Options struct {
	// BackupDir holds snapshots. Empty means next to the edited file.
	BackupDir string
	// SkipVerify disables the post-write re-read.
	SkipVerify bool
	// Journal, if set, receives one record per edit that got past backup.
	Journal Journal
	Clock   Clock
	Logger  *slog.Logger
}

// Controller runs backup, parse, mutate, write and verify around a single
// LaunchOptions change. It never retries.
type Controller struct {
	backupDir string
	verify    bool
	journal   Journal
	clock     Clock
	logger    *slog.Logger
	write     func(path string, data []byte, perm fs.FileMode) error
}

// NewController creates a Controller from opts.
func NewController(opts Options) *Controller {
	c := &Controller{
		backupDir: opts.BackupDir,
		verify:    !opts.SkipVerify,
		journal:   opts.Journal,
		clock:     opts.Clock,
		logger:    opts.Logger,
		write:     writeAtomic,
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Request describes one edit. With Clear set, Value is ignored and the field
// is removed.
type Request struct {
	ConfigPath string
	AppID      string
	Value      string
	Clear      bool
}

// Result is the outcome of Apply or Restore. State is StateVerified or
// StateWritten on success (the latter when verification is skipped or
// produced a Warning) and StateFailed otherwise.
type Result struct {
	State       State
	EditID      string
	BackupPath  string
	Previous    string
	HadPrevious bool
	Value       string
	Warning     *VerificationWarning
}

// Apply sets or clears LaunchOptions for req.AppID in req.ConfigPath. Any
// returned error leaves the live file as it was.
func (c *Controller) Apply(ctx context.Context, req Request) (Result, error) {
	res := Result{State: StateIdle, Value: req.Value}
	if req.Clear {
		res.Value = ""
	}
	action := ActionSet
	if req.Clear {
		action = ActionClear
	}
	log := c.logger.With("path", req.ConfigPath, "app_id", req.AppID, "action", action)

	fail := func(err error) (Result, error) {
		log.Debug("edit aborted", "state", res.State, "error", err)
		res.State = StateFailed
		res.EditID = c.record(req.ConfigPath, req.AppID, action, res, err)
		return res, err
	}

	if err := ValidateAppID(req.AppID); err != nil {
		res.State = StateFailed
		return res, err
	}
	if err := ctx.Err(); err != nil {
		res.State = StateFailed
		return res, err
	}

	target := resolveLink(req.ConfigPath)
	data, perm, backupPath, err := c.backup(target)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.BackupPath = backupPath
	res.State = StateBackedUp
	log.Debug("config backed up", "backup", backupPath)

	doc, err := vdf.Parse(data)
	if err != nil {
		return fail(fmt.Errorf("parsing %s: %w", req.ConfigPath, err))
	}
	res.State = StateParsed

	if req.Clear {
		app, err := LookupApp(doc, req.AppID)
		if err != nil {
			return fail(err)
		}
		if app != nil {
			res.Previous, res.HadPrevious = Remove(app)
		}
		if !res.HadPrevious {
			// Nothing to remove: the live file is left byte for byte.
			res.State = StateVerified
			log.Debug("no launch options to clear")
			res.EditID = c.record(req.ConfigPath, req.AppID, action, res, nil)
			return res, nil
		}
	} else {
		app, err := LocateApp(doc, req.AppID)
		if err != nil {
			return fail(err)
		}
		res.Previous, res.HadPrevious = Set(app, req.Value)
	}
	res.State = StateMutated
	log.Debug("launch options updated in memory", "had_previous", res.HadPrevious)

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := c.write(target, vdf.Marshal(doc), perm); err != nil {
		return fail(err)
	}
	res.State = StateWritten
	log.Debug("config written")

	if c.verify {
		if w := c.verifyValue(target, req); w != nil {
			res.Warning = w
			log.Warn("launch options verification failed", "warning", w.Error())
		} else {
			res.State = StateVerified
		}
	}

	res.EditID = c.record(req.ConfigPath, req.AppID, action, res, nil)
	return res, nil
}

// Restore copies backupPath over configPath verbatim. The current live file
// is snapshotted first, and the backup must parse.
func (c *Controller) Restore(ctx context.Context, configPath, backupPath string) (Result, error) {
	res := Result{State: StateIdle}
	log := c.logger.With("path", configPath, "action", ActionRestore, "source", backupPath)

	data, err := os.ReadFile(backupPath)
	if err != nil {
		res.State = StateFailed
		if errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("%w: %s", ErrNoBackup, backupPath)
		}
		return res, fmt.Errorf("reading backup: %w", err)
	}
	if _, err := vdf.Parse(data); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("parsing backup %s: %w", backupPath, err)
	}
	if err := ctx.Err(); err != nil {
		res.State = StateFailed
		return res, err
	}

	target := resolveLink(configPath)
	_, perm, snapshot, err := c.backup(target)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.BackupPath = snapshot
	res.State = StateBackedUp
	log.Debug("config backed up", "backup", snapshot)

	if err := c.write(target, data, perm); err != nil {
		res.State = StateFailed
		res.EditID = c.record(configPath, "", ActionRestore, res, err)
		return res, err
	}
	res.State = StateWritten

	if c.verify {
		got, err := os.ReadFile(target)
		switch {
		case err != nil:
			res.Warning = &VerificationWarning{Err: err}
		case !bytes.Equal(got, data):
			res.Warning = &VerificationWarning{Err: errors.New("restored file differs from backup")}
		default:
			res.State = StateVerified
		}
		if res.Warning != nil {
			log.Warn("restore verification failed", "warning", res.Warning.Error())
		}
	}

	res.EditID = c.record(configPath, "", ActionRestore, res, nil)
	return res, nil
}

// ListBackups returns snapshots of configPath, newest first.
func (c *Controller) ListBackups(configPath string) ([]string, error) {
	target := resolveLink(configPath)
	dir := c.backupDirFor(target)
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(filepath.Base(target))+backupMarker+"*"))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		si, ni := backupStamp(matches[i])
		sj, nj := backupStamp(matches[j])
		if si != sj {
			return si > sj
		}
		return ni > nj
	})
	return matches, nil
}

// backupStamp splits a backup name into its timestamp and collision
// counter. Names that do not carry a timestamp sort last.
func backupStamp(path string) (string, int) {
	name := filepath.Base(path)
	i := strings.LastIndex(name, backupMarker)
	if i < 0 {
		return "", 0
	}
	rest := name[i+len(backupMarker):]
	if len(rest) < len(backupLayout) {
		return "", 0
	}
	stamp, suffix := rest[:len(backupLayout)], rest[len(backupLayout):]
	if _, err := time.Parse(backupLayout, stamp); err != nil {
		return "", 0
	}
	if suffix == "" {
		return stamp, 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(suffix, "_"))
	if err != nil || !strings.HasPrefix(suffix, "_") {
		return "", 0
	}
	return stamp, n
}

// backup reads path and writes an exact copy to a new timestamped file.
func (c *Controller) backup(path string) ([]byte, fs.FileMode, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, "", &BackupError{Path: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, "", &BackupError{Path: path, Err: err}
	}
	perm := info.Mode().Perm()

	dir := c.backupDirFor(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, 0, "", &BackupError{Path: path, Err: err}
	}
	name := filepath.Base(path) + backupMarker + c.clock.Now().Format(backupLayout)
	dst, err := writeExclusive(dir, name, data, perm)
	if err != nil {
		return nil, 0, "", &BackupError{Path: path, Err: err}
	}
	return data, perm, dst, nil
}

// backupDirFor returns where snapshots of path go. A shared BackupDir gets
// one subdirectory per config file, named after the Steam user directory and
// a hash of the config's location, so users never see each other's backups.
func (c *Controller) backupDirFor(path string) string {
	if c.backupDir == "" {
		return filepath.Dir(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	dir := filepath.Dir(abs)
	sum := sha256.Sum256([]byte(dir))
	label := filepath.Base(filepath.Dir(dir))
	return filepath.Join(c.backupDir, fmt.Sprintf("%s-%x", label, sum[:4]))
}

// writeExclusive creates dir/name, or dir/name_N when it already exists, and
// fills it with data. A partially written file is removed.
func writeExclusive(dir, name string, data []byte, perm fs.FileMode) (string, error) {
	for i := 0; i < 100; i++ {
		p := filepath.Join(dir, name)
		if i > 0 {
			p = fmt.Sprintf("%s_%d", p, i)
		}
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(p)
			return "", err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(p)
			return "", err
		}
		if err := f.Close(); err != nil {
			os.Remove(p)
			return "", err
		}
		return p, nil
	}
	return "", fmt.Errorf("too many backups named %s", name)
}

// writeAtomic replaces path through a temporary file in the same directory.
func writeAtomic(path string, data []byte, perm fs.FileMode) error {
	if err := renameio.WriteFile(path, data, perm, renameio.WithTempDir(filepath.Dir(path))); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func (c *Controller) verifyValue(path string, req Request) *VerificationWarning {
	w := &VerificationWarning{AppID: req.AppID, Want: req.Value, Remove: req.Clear}
	if req.Clear {
		w.Want = ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		w.Err = err
		return w
	}
	got, found, err := Read(data, req.AppID)
	if err != nil {
		w.Err = err
		return w
	}
	w.Got, w.Found = got, found
	if req.Clear {
		if found {
			return w
		}
		return nil
	}
	if !found || got != req.Value {
		return w
	}
	return nil
}

// record journals an edit and returns its id, or "" when nothing was stored.
func (c *Controller) record(configPath, appID, action string, res Result, cause error) string {
	if c.journal == nil || res.BackupPath == "" {
		return ""
	}
	e := storage.Edit{
		ID:            uuid.New().String(),
		CreatedAt:     c.clock.Now().UTC(),
		ConfigPath:    configPath,
		AppID:         appID,
		Action:        action,
		PreviousValue: res.Previous,
		HadPrevious:   res.HadPrevious,
		NewValue:      res.Value,
		BackupPath:    res.BackupPath,
		Status:        res.State.String(),
	}
	switch {
	case cause != nil:
		e.Message = cause.Error()
	case res.Warning != nil:
		e.Message = res.Warning.Error()
	}
	if err := c.journal.SaveEdit(e); err != nil {
		c.logger.Warn("failed to journal edit", "path", configPath, "error", err)
		return ""
	}
	return e.ID
}

// resolveLink follows a symlinked config so the rename replaces the real
// file, not the link.
func resolveLink(path string) string {
	if p, err := filepath.EvalSymlinks(path); err == nil {
		return p
	}
	return path
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
