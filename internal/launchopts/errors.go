package launchopts

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAppID is returned for app ids that are not decimal numbers.
	ErrInvalidAppID = errors.New("app id must be a decimal number")
	// ErrNoBackup is returned when a restore source does not exist.
	ErrNoBackup = errors.New("backup not found")
)

// StructureError means the file parsed but does not look like a Steam user
// config, so no write is attempted.
type StructureError struct {
	Path string
	Msg  string
}

func (e *StructureError) Error() string {
	if e.Path == "" {
		return "unexpected config structure: " + e.Msg
	}
	return fmt.Sprintf("unexpected config structure at %s: %s", e.Path, e.Msg)
}

// BackupError means the live file could not be snapshotted. Nothing was
// modified.
type BackupError struct {
	Path string
	Err  error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backing up %s: %v", e.Path, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// WriteError means the replacement file could not be written or renamed into
// place. The live file still holds its previous contents.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// VerificationWarning reports that the re-read file does not hold the value
// that was written. The write itself succeeded.
type VerificationWarning struct {
	AppID  string
	Want   string
	Remove bool
	Got    string
	Found  bool
	Err    error
}

func (w *VerificationWarning) Error() string {
	switch {
	case w.Err != nil:
		return fmt.Sprintf("could not verify app %s: %v", w.AppID, w.Err)
	case w.Remove && w.Found:
		return fmt.Sprintf("app %s still has LaunchOptions %q after removal", w.AppID, w.Got)
	case !w.Remove && !w.Found:
		return fmt.Sprintf("app %s has no LaunchOptions after write", w.AppID)
	default:
		return fmt.Sprintf("app %s LaunchOptions = %q, want %q", w.AppID, w.Got, w.Want)
	}
}

func (w *VerificationWarning) Unwrap() error { return w.Err }
