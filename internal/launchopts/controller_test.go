package launchopts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/optiscaler-linux/optiscaler-manager/internal/storage"
	"github.com/optiscaler-linux/optiscaler-manager/internal/vdf"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type memJournal struct {
	edits []storage.Edit
	err   error
}

func (j *memJournal) SaveEdit(e storage.Edit) error {
	if j.err != nil {
		return j.err
	}
	j.edits = append(j.edits, e)
	return nil
}

var testTime = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

const fsrValue = `WINEDLLOVERRIDES="dxgi=n,b" PROTON_FSR4_UPGRADE=1 %command%`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "localconfig.vdf")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func newTestController(j Journal) *Controller {
	return NewController(Options{Journal: j, Clock: fixedClock{testTime}})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestApply_EndToEnd(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore"{"Software"{"Valve"{"Steam"{"apps"{"570"{"LastPlayed" "123"}}}}}}`)
	j := &memJournal{}
	c := newTestController(j)

	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: fsrValue})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.State != StateVerified {
		t.Errorf("State = %v, want verified", res.State)
	}
	if res.Warning != nil {
		t.Errorf("Warning = %v, want nil", res.Warning)
	}
	if res.HadPrevious {
		t.Errorf("HadPrevious = true, want false")
	}

	want := "\"UserLocalConfigStore\"\n" +
		"{\n" +
		"\t\"Software\"\n" +
		"\t{\n" +
		"\t\t\"Valve\"\n" +
		"\t\t{\n" +
		"\t\t\t\"Steam\"\n" +
		"\t\t\t{\n" +
		"\t\t\t\t\"apps\"\n" +
		"\t\t\t\t{\n" +
		"\t\t\t\t\t\"570\"\n" +
		"\t\t\t\t\t{\n" +
		"\t\t\t\t\t\t\"LastPlayed\"\t\t\"123\"\n" +
		"\t\t\t\t\t\t\"LaunchOptions\"\t\t\"WINEDLLOVERRIDES=\\\"dxgi=n,b\\\" PROTON_FSR4_UPGRADE=1 %command%\"\n" +
		"\t\t\t\t\t}\n" +
		"\t\t\t\t}\n" +
		"\t\t\t}\n" +
		"\t\t}\n" +
		"\t}\n" +
		"}\n"
	if diff := cmp.Diff(want, readFile(t, path)); diff != "" {
		t.Errorf("written file mismatch (-want +got):\n%s", diff)
	}

	v, ok, err := Read([]byte(readFile(t, path)), "570")
	if err != nil || !ok || v != fsrValue {
		t.Errorf("re-read = (%q, %v, %v), want (%q, true, nil)", v, ok, err, fsrValue)
	}

	if len(j.edits) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(j.edits))
	}
	e := j.edits[0]
	if e.ID != res.EditID || e.Action != ActionSet || e.AppID != "570" || e.NewValue != fsrValue || e.Status != "verified" {
		t.Errorf("journal entry = %+v", e)
	}
}

func TestApply_BackupIsExactCopy(t *testing.T) {
	original := "\"UserLocalConfigStore\" {   \"x\" \"1\" }"
	path := writeConfig(t, original)
	c := newTestController(nil)

	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantName := "localconfig.vdf.backup_20260314_150926"
	if filepath.Base(res.BackupPath) != wantName {
		t.Errorf("backup name = %q, want %q", filepath.Base(res.BackupPath), wantName)
	}
	if filepath.Dir(res.BackupPath) != filepath.Dir(path) {
		t.Errorf("backup dir = %q, want sibling of config", filepath.Dir(res.BackupPath))
	}
	if got := readFile(t, res.BackupPath); got != original {
		t.Errorf("backup = %q, want %q", got, original)
	}
}

func TestApply_BackupCollisionGetsSuffix(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { }`)
	c := newTestController(nil)

	var backups []string
	for i := 0; i < 3; i++ {
		res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"})
		if err != nil {
			t.Fatalf("Apply #%d: %v", i, err)
		}
		backups = append(backups, filepath.Base(res.BackupPath))
	}
	want := []string{
		"localconfig.vdf.backup_20260314_150926",
		"localconfig.vdf.backup_20260314_150926_1",
		"localconfig.vdf.backup_20260314_150926_2",
	}
	if diff := cmp.Diff(want, backups); diff != "" {
		t.Errorf("backup names (-want +got):\n%s", diff)
	}

	listed, err := c.ListBackups(path)
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(listed) != 3 || filepath.Base(listed[0]) != want[2] {
		t.Errorf("ListBackups = %v, want newest first", listed)
	}
}

func TestApply_BackupDir(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { }`)
	dir := filepath.Join(t.TempDir(), "backups")
	c := NewController(Options{BackupDir: dir, Clock: fixedClock{testTime}})

	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := filepath.Dir(filepath.Dir(res.BackupPath)); got != dir {
		t.Errorf("backup parent = %q, want a subdirectory of %q", got, dir)
	}
}

func TestApply_SharedBackupDirKeepsConfigsApart(t *testing.T) {
	root := t.TempDir()
	mk := func(user string) string {
		p := filepath.Join(root, "userdata", user, "config", "localconfig.vdf")
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(`"UserLocalConfigStore" { }`), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}
	a, b := mk("100"), mk("200")
	c := NewController(Options{BackupDir: filepath.Join(t.TempDir(), "backups"), Clock: fixedClock{testTime}})

	res, err := c.Apply(context.Background(), Request{ConfigPath: b, AppID: "570", Value: "v"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(filepath.Dir(res.BackupPath)), "200-") {
		t.Errorf("backup dir = %q, want one named after user 200", filepath.Dir(res.BackupPath))
	}

	listedA, err := c.ListBackups(a)
	if err != nil {
		t.Fatalf("ListBackups(a): %v", err)
	}
	if len(listedA) != 0 {
		t.Errorf("ListBackups(a) = %v, want none", listedA)
	}
	listedB, err := c.ListBackups(b)
	if err != nil {
		t.Fatalf("ListBackups(b): %v", err)
	}
	if diff := cmp.Diff([]string{res.BackupPath}, listedB); diff != "" {
		t.Errorf("ListBackups(b) (-want +got):\n%s", diff)
	}
}

func TestListBackups_NumericSuffixOrder(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { }`)
	dir := filepath.Dir(path)
	names := []string{
		"localconfig.vdf.backup_20260314_150925",
		"localconfig.vdf.backup_20260314_150926",
		"localconfig.vdf.backup_20260314_150926_2",
		"localconfig.vdf.backup_20260314_150926_10",
		"localconfig.vdf.backup_garbage",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	c := newTestController(nil)

	listed, err := c.ListBackups(path)
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	var got []string
	for _, p := range listed {
		got = append(got, filepath.Base(p))
	}
	want := []string{
		"localconfig.vdf.backup_20260314_150926_10",
		"localconfig.vdf.backup_20260314_150926_2",
		"localconfig.vdf.backup_20260314_150926",
		"localconfig.vdf.backup_20260314_150925",
		"localconfig.vdf.backup_garbage",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListBackups order (-want +got):\n%s", diff)
	}
}

func TestApply_MissingStructure(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { }`)
	c := newTestController(nil)

	if _, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	doc, err := vdf.ParseString(readFile(t, path))
	if err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	want := parse(t, `"UserLocalConfigStore" { "Software" { "Valve" { "Steam" { "apps" { "570" { "LaunchOptions" "v" } } } } } }`)
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_RoamingRoot(t *testing.T) {
	path := writeConfig(t, `"UserRoamingConfigStore" { "Software" { "Valve" { "Steam" { "apps" { } } } } }`)
	c := newTestController(nil)

	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.State != StateVerified {
		t.Errorf("State = %v, want verified", res.State)
	}
	if !strings.HasPrefix(readFile(t, path), "\"UserRoamingConfigStore\"\n") {
		t.Errorf("root renamed:\n%s", readFile(t, path))
	}
}

func TestApply_Idempotent(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { "Software" { "Valve" { "Steam" { "apps" { "570" { "a" "b" } } } } } }`)
	c := newTestController(nil)

	if _, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: fsrValue}); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	once := readFile(t, path)
	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: fsrValue})
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if twice := readFile(t, path); twice != once {
		t.Errorf("second apply changed output:\n%s\nvs\n%s", once, twice)
	}
	if !res.HadPrevious || res.Previous != fsrValue {
		t.Errorf("second apply Previous = (%q, %v), want (%q, true)", res.Previous, res.HadPrevious, fsrValue)
	}
}

func TestApply_Clear(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { "Software" { "Valve" { "Steam" { "apps" { "570" { "LaunchOptions" "old" "x" "y" } } } } } }`)
	j := &memJournal{}
	c := newTestController(j)

	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Clear: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.State != StateVerified || res.Previous != "old" || !res.HadPrevious {
		t.Errorf("result = %+v", res)
	}
	_, ok, err := Read([]byte(readFile(t, path)), "570")
	if err != nil || ok {
		t.Errorf("LaunchOptions still present after clear (err %v)", err)
	}
	if len(j.edits) != 1 || j.edits[0].Action != ActionClear {
		t.Errorf("journal = %+v, want one clear entry", j.edits)
	}
}

func TestApply_ClearAbsentLeavesFileUntouched(t *testing.T) {
	tests := map[string]string{
		"no apps block":         `"UserLocalConfigStore"{"friends"{"x" "y"}}`,
		"no app block":          `"UserLocalConfigStore"{"Software"{"Valve"{"Steam"{"apps"{"10"{"a" "b"}}}}}}`,
		"app without the field": `"UserLocalConfigStore"{"Software"{"Valve"{"Steam"{"apps"{"570"{"a" "b"}}}}}}`,
	}
	for name, original := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, original)
			j := &memJournal{}
			c := newTestController(j)

			res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Clear: true})
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got := readFile(t, path); got != original {
				t.Errorf("file changed:\n%s\nwant\n%s", got, original)
			}
			if res.State != StateVerified || res.HadPrevious {
				t.Errorf("result = %+v, want verified with nothing removed", res)
			}
			if len(j.edits) != 1 || j.edits[0].Action != ActionClear {
				t.Errorf("journal = %+v, want one clear entry", j.edits)
			}
		})
	}
}

func TestApply_WriteFailure(t *testing.T) {
	original := `"UserLocalConfigStore" { "Software" { "Valve" { "Steam" { "apps" { "570" { "LaunchOptions" "old" } } } } } }`
	path := writeConfig(t, original)
	j := &memJournal{}
	c := newTestController(j)
	c.write = func(p string, data []byte, perm fs.FileMode) error {
		return &WriteError{Path: p, Err: errors.New("no space left on device")}
	}

	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: fsrValue})
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("err = %v, want *WriteError", err)
	}
	if res.State != StateFailed {
		t.Errorf("State = %v, want failed", res.State)
	}
	if got := readFile(t, path); got != original {
		t.Errorf("live file changed after failed write:\n%s", got)
	}
	if readFile(t, res.BackupPath) != original {
		t.Error("backup is not a copy of the original")
	}
	if len(j.edits) != 1 || j.edits[0].Status != "failed" || !strings.Contains(j.edits[0].Message, "no space") {
		t.Errorf("journal = %+v, want one failed entry", j.edits)
	}
}

func TestWriteAtomic_Error(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "localconfig.vdf")

	err := writeAtomic(path, []byte("x"), 0o600)
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("err = %v, want *WriteError", err)
	}
	if we.Path != path {
		t.Errorf("WriteError.Path = %q, want %q", we.Path, path)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("target exists after failed write: %v", err)
	}
}

func TestApply_ParseFailureLeavesFileUntouched(t *testing.T) {
	original := `"UserLocalConfigStore" { "Software" {`
	path := writeConfig(t, original)
	j := &memJournal{}
	c := newTestController(j)

	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"})
	var pe *vdf.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *vdf.ParseError", err)
	}
	if res.State != StateFailed {
		t.Errorf("State = %v, want failed", res.State)
	}
	if got := readFile(t, path); got != original {
		t.Errorf("live file modified: %q", got)
	}
	if len(j.edits) != 1 || j.edits[0].Status != "failed" || j.edits[0].Message == "" {
		t.Errorf("journal = %+v, want one failed entry with a message", j.edits)
	}
}

func TestApply_StructureErrorLeavesFileUntouched(t *testing.T) {
	original := `"SomethingElse" { "a" "b" }`
	path := writeConfig(t, original)
	c := newTestController(nil)

	_, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"})
	var se *StructureError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StructureError", err)
	}
	if got := readFile(t, path); got != original {
		t.Errorf("live file modified: %q", got)
	}
}

func TestApply_BackupFailure(t *testing.T) {
	c := newTestController(nil)
	missing := filepath.Join(t.TempDir(), "localconfig.vdf")

	_, err := c.Apply(context.Background(), Request{ConfigPath: missing, AppID: "570", Value: "v"})
	var be *BackupError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BackupError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want wrapped fs.ErrNotExist", err)
	}
	if _, statErr := os.Stat(missing); !errors.Is(statErr, fs.ErrNotExist) {
		t.Errorf("config file was created")
	}
}

func TestApply_BackupDirUnusable(t *testing.T) {
	original := `"UserLocalConfigStore" { }`
	path := writeConfig(t, original)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	c := NewController(Options{BackupDir: filepath.Join(blocker, "sub"), Clock: fixedClock{testTime}})

	_, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"})
	var be *BackupError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BackupError", err)
	}
	if got := readFile(t, path); got != original {
		t.Errorf("live file modified: %q", got)
	}
}

func TestApply_InvalidAppID(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { }`)
	c := newTestController(nil)

	_, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "../570", Value: "v"})
	if !errors.Is(err, ErrInvalidAppID) {
		t.Fatalf("err = %v, want ErrInvalidAppID", err)
	}
	backups, _ := c.ListBackups(path)
	if len(backups) != 0 {
		t.Errorf("backups = %v, want none", backups)
	}
}

func TestApply_CanceledContext(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { }`)
	c := newTestController(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Apply(ctx, Request{ConfigPath: path, AppID: "570", Value: "v"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestApply_FollowsSymlink(t *testing.T) {
	target := writeConfig(t, `"UserLocalConfigStore" { }`)
	link := filepath.Join(t.TempDir(), "localconfig.vdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	c := newTestController(nil)

	if _, err := c.Apply(context.Background(), Request{ConfigPath: link, AppID: "570", Value: "v"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	fi, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode()&fs.ModeSymlink == 0 {
		t.Error("symlink was replaced by a regular file")
	}
	if v, ok, _ := Read([]byte(readFile(t, target)), "570"); !ok || v != "v" {
		t.Errorf("target LaunchOptions = (%q, %v), want (v, true)", v, ok)
	}
}

func TestApply_PreservesPermissions(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { }`)
	if err := os.Chmod(path, 0o640); err != nil {
		t.Fatal(err)
	}
	c := newTestController(nil)

	if _, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", fi.Mode().Perm())
	}
}

func TestApply_JournalFailureIsNotFatal(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { }`)
	c := newTestController(&memJournal{err: errors.New("disk full")})

	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "v"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.EditID != "" {
		t.Errorf("EditID = %q, want empty when journaling fails", res.EditID)
	}
}

func TestVerifyValue(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { "Software" { "Valve" { "Steam" { "apps" { "570" { "LaunchOptions" "other" } } } } } }`)
	c := newTestController(nil)

	w := c.verifyValue(path, Request{AppID: "570", Value: "wanted"})
	if w == nil {
		t.Fatal("verifyValue = nil, want mismatch warning")
	}
	if w.Got != "other" || !w.Found {
		t.Errorf("warning = %+v", w)
	}
	if !strings.Contains(w.Error(), `"wanted"`) {
		t.Errorf("warning text = %q", w.Error())
	}

	if w := c.verifyValue(path, Request{AppID: "570", Clear: true}); w == nil || !strings.Contains(w.Error(), "still has") {
		t.Errorf("clear verification = %v, want still-present warning", w)
	}
	if w := c.verifyValue(path, Request{AppID: "570", Value: "other"}); w != nil {
		t.Errorf("matching verification = %v, want nil", w)
	}
}

func TestRestore(t *testing.T) {
	original := `"UserLocalConfigStore" { "Software" { "Valve" { "Steam" { "apps" { "570" { "LaunchOptions" "orig" } } } } } }`
	path := writeConfig(t, original)
	j := &memJournal{}
	c := newTestController(j)

	res, err := c.Apply(context.Background(), Request{ConfigPath: path, AppID: "570", Value: "changed"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	restored, err := c.Restore(context.Background(), path, res.BackupPath)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.State != StateVerified {
		t.Errorf("State = %v, want verified", restored.State)
	}
	if got := readFile(t, path); got != original {
		t.Errorf("restored file = %q, want %q", got, original)
	}
	if restored.BackupPath == res.BackupPath {
		t.Error("restore did not snapshot the live file first")
	}
	if v, _, _ := Read([]byte(readFile(t, restored.BackupPath)), "570"); v != "changed" {
		t.Errorf("pre-restore snapshot LaunchOptions = %q, want changed", v)
	}
	if len(j.edits) != 2 || j.edits[1].Action != ActionRestore {
		t.Errorf("journal = %+v", j.edits)
	}
}

func TestRestore_Errors(t *testing.T) {
	path := writeConfig(t, `"UserLocalConfigStore" { }`)
	c := newTestController(nil)

	_, err := c.Restore(context.Background(), path, filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrNoBackup) {
		t.Errorf("missing backup err = %v, want ErrNoBackup", err)
	}

	bad := filepath.Join(t.TempDir(), "bad")
	if err := os.WriteFile(bad, []byte(`"x" {`), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = c.Restore(context.Background(), path, bad)
	var pe *vdf.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("malformed backup err = %v, want *vdf.ParseError", err)
	}
	if got := readFile(t, path); got != `"UserLocalConfigStore" { }` {
		t.Errorf("live file modified: %q", got)
	}
}

func TestStateString(t *testing.T) {
	want := []string{"idle", "backed-up", "parsed", "mutated", "written", "verified", "failed"}
	for i, w := range want {
		if got := State(i).String(); got != w {
			t.Errorf("State(%d) = %q, want %q", i, got, w)
		}
	}
}
