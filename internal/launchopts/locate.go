// Package launchopts edits the per-game LaunchOptions field of a Steam
// localconfig.vdf. Edits go through Controller, which snapshots the file,
// parses it, changes exactly one value, swaps the new file into place
// atomically and re-reads it to confirm.
package launchopts

import (
	"fmt"
	"strings"

	"github.com/optiscaler-linux/optiscaler-manager/internal/vdf"
)

// Key is the name of the field holding a game's launch options.
const Key = "LaunchOptions"

// RootKeys are the accepted top-level block names.
var RootKeys = []string{"UserLocalConfigStore", "UserRoamingConfigStore"}

// appsPath leads from the root block to the per-game blocks.
var appsPath = []string{"Software", "Valve", "Steam", "apps"}

// ValidateAppID checks that id is a non-empty decimal number.
func ValidateAppID(id string) error {
	if id == "" {
		return ErrInvalidAppID
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidAppID, id)
		}
	}
	return nil
}

// Root returns the first top-level block whose name is one of RootKeys,
// compared case-insensitively.
func Root(doc *vdf.Node) (*vdf.Node, error) {
	for _, n := range doc.Nodes() {
		for _, k := range RootKeys {
			if strings.EqualFold(n.Key, k) {
				return n, nil
			}
		}
	}
	first := "<none>"
	if nodes := doc.Nodes(); len(nodes) > 0 {
		first = fmt.Sprintf("%q", nodes[0].Key)
	}
	return nil, &StructureError{Msg: fmt.Sprintf("root block %s is not one of %s", first, strings.Join(RootKeys, ", "))}
}

// LocateApp returns the block for appID, creating it and any missing
// Software/Valve/Steam/apps levels on the way.
func LocateApp(doc *vdf.Node, appID string) (*vdf.Node, error) {
	return walk(doc, appID, true)
}

// LookupApp is LocateApp without creation. It returns nil when any level is
// missing.
func LookupApp(doc *vdf.Node, appID string) (*vdf.Node, error) {
	return walk(doc, appID, false)
}

func walk(doc *vdf.Node, appID string, create bool) (*vdf.Node, error) {
	if err := ValidateAppID(appID); err != nil {
		return nil, err
	}
	n, err := Root(doc)
	if err != nil {
		return nil, err
	}
	path := []string{n.Key}
	for _, seg := range appsPath {
		path = append(path, seg)
		next := n.ChildFold(seg)
		if next == nil {
			if hasValueFold(n, seg) {
				return nil, &StructureError{Path: strings.Join(path, "/"), Msg: "expected a block, found a value"}
			}
			if !create {
				return nil, nil
			}
			next = n.AppendNode(seg)
		}
		n = next
	}

	path = append(path, appID)
	app := n.Child(appID)
	if app == nil {
		if _, ok := n.Value(appID); ok {
			return nil, &StructureError{Path: strings.Join(path, "/"), Msg: "expected a block, found a value"}
		}
		if !create {
			return nil, nil
		}
		app = n.AppendNode(appID)
	}
	return app, nil
}

func hasValueFold(n *vdf.Node, key string) bool {
	for _, e := range n.Children {
		if !e.IsNode() && strings.EqualFold(e.Key, key) {
			return true
		}
	}
	return false
}

// Get returns the LaunchOptions value of app.
func Get(app *vdf.Node) (string, bool) {
	if app == nil {
		return "", false
	}
	return app.Value(Key)
}

// Set replaces the first LaunchOptions entry in place or appends one. It
// returns the previous value, if any. No other child is touched.
func Set(app *vdf.Node, value string) (prev string, had bool) {
	prev, had = app.Value(Key)
	app.SetValue(Key, value)
	return prev, had
}

// Remove deletes the first LaunchOptions entry, if present.
func Remove(app *vdf.Node) (prev string, had bool) {
	prev, had = app.Value(Key)
	if had {
		app.DeleteValue(Key)
	}
	return prev, had
}

// Read parses data and returns the LaunchOptions of appID without creating
// anything.
func Read(data []byte, appID string) (string, bool, error) {
	doc, err := vdf.Parse(data)
	if err != nil {
		return "", false, err
	}
	app, err := LookupApp(doc, appID)
	if err != nil {
		return "", false, err
	}
	v, ok := Get(app)
	return v, ok, nil
}
