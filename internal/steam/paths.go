// Package steam finds the local Steam installation, its per-user
// localconfig.vdf files and whether the client is running.
package steam

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrSteamNotFound = errors.New("steam installation not found")
	ErrNoUsers       = errors.New("no steam users found")
	ErrUserNotFound  = errors.New("steam user not found")
)

// Candidates lists the Steam roots probed under home, in order.
func Candidates(home string) []string {
	return []string{
		filepath.Join(home, ".local", "share", "Steam"),                                  // native Steam (XDG)
		filepath.Join(home, ".steam", "steam"),                                           // legacy
		filepath.Join(home, ".steam", "root"),                                            // legacy
		filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", "data", "Steam"),   // Flatpak
		filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".steam", "steam"), // Flatpak, legacy
	}
}

// FindRoot returns the first candidate with a userdata directory, or failing
// that the first candidate that exists at all.
func FindRoot(home string) (string, error) {
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return "", err
		}
	}
	var fallback string
	for _, c := range Candidates(home) {
		if dirExists(filepath.Join(c, "userdata")) {
			return resolve(c), nil
		}
		if fallback == "" && dirExists(c) {
			fallback = c
		}
	}
	if fallback != "" {
		return resolve(fallback), nil
	}
	return "", ErrSteamNotFound
}

// User is one numeric directory under userdata.
type User struct {
	ID         string
	Dir        string
	ConfigPath string
	HasConfig  bool
	ModTime    time.Time
}

// ConfigPath returns userdata/<id>/config/localconfig.vdf under root.
func ConfigPath(root, userID string) string {
	return filepath.Join(root, "userdata", userID, "config", "localconfig.vdf")
}

// Users lists the Steam users under root, most recently modified first.
func Users(root string) ([]User, error) {
	dir := filepath.Join(root, "userdata")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoUsers
		}
		return nil, err
	}

	var users []User
	for _, e := range entries {
		if !e.IsDir() || !isNumeric(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		u := User{
			ID:         e.Name(),
			Dir:        filepath.Join(dir, e.Name()),
			ConfigPath: ConfigPath(root, e.Name()),
			ModTime:    info.ModTime(),
		}
		if fi, err := os.Stat(u.ConfigPath); err == nil && fi.Mode().IsRegular() {
			u.HasConfig = true
		}
		users = append(users, u)
	}
	if len(users) == 0 {
		return nil, ErrNoUsers
	}
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].ModTime.Equal(users[j].ModTime) {
			return users[i].ModTime.After(users[j].ModTime)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// SelectUser picks userID from users, or the most recently used user when
// userID is empty.
func SelectUser(users []User, userID string) (User, error) {
	if len(users) == 0 {
		return User{}, ErrNoUsers
	}
	if userID == "" {
		return users[0], nil
	}
	for _, u := range users {
		if u.ID == userID {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	return strings.Trim(s, "0123456789") == ""
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// resolve collapses the ~/.steam/steam style symlinks so the same install
// is reported under one path.
func resolve(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	return p
}
