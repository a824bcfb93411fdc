package steam

import (
	"bytes"
	"os"
	"path/filepath"
)

// clientNames are process names of a running Steam client.
var clientNames = map[string]bool{
	"steam":          true,
	"steamwebhelper": true,
}

// Running reports whether a Steam client process is visible under procRoot
// (normally "/proc"). Steam rewrites localconfig.vdf on exit, so edits made
// while it runs are lost.
func Running(procRoot string) (bool, error) {
	if procRoot == "" {
		procRoot = "/proc"
	}
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() || !isNumeric(e.Name()) {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(procRoot, e.Name(), "comm"))
		if err != nil {
			// The process exited or belongs to another user.
			continue
		}
		if clientNames[string(bytes.TrimSpace(comm))] {
			return true, nil
		}
	}
	return false, nil
}
