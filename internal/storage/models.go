package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Edit is one journaled change to a Steam localconfig.vdf.
type Edit struct {
	ID            string
	CreatedAt     time.Time
	ConfigPath    string
	AppID         string
	Action        string // "set", "clear", "restore"
	PreviousValue string
	HadPrevious   bool
	NewValue      string
	BackupPath    string
	Status        string // final controller state: "verified", "written", "failed", ...
	Message       string
}

// ManagedApp records the launch options this tool last applied to an app.
type ManagedApp struct {
	ConfigPath    string
	AppID         string
	Preset        string
	LaunchOptions string
	UpdatedAt     time.Time
}
