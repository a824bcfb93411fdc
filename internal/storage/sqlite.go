package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps a SQLite database holding the edit journal and the set of
// managed apps.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "optiscaler.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Edits ---

const editColumns = `id, created_at, config_path, app_id, action, previous_value, had_previous, new_value, backup_path, status, message`

func (s *Store) SaveEdit(e Edit) error {
	_, err := s.db.Exec(`
		INSERT INTO edits (`+editColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UTC().Format(timeLayout), e.ConfigPath, e.AppID, e.Action,
		e.PreviousValue, e.HadPrevious, e.NewValue, e.BackupPath, e.Status, e.Message,
	)
	return err
}

func (s *Store) GetEdit(id string) (Edit, error) {
	row := s.db.QueryRow(`SELECT `+editColumns+` FROM edits WHERE id = ?`, id)
	e, err := scanEdit(row)
	if err == sql.ErrNoRows {
		return Edit{}, ErrNotFound
	}
	return e, err
}

// FindEdit resolves a full id or a unique id prefix (as printed by the CLI).
func (s *Store) FindEdit(prefix string) (Edit, error) {
	if prefix == "" {
		return Edit{}, ErrNotFound
	}
	rows, err := s.db.Query(`SELECT `+editColumns+` FROM edits WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return Edit{}, err
	}
	edits, err := collectEdits(rows)
	if err != nil {
		return Edit{}, err
	}
	switch len(edits) {
	case 0:
		return Edit{}, ErrNotFound
	case 1:
		return edits[0], nil
	default:
		return Edit{}, fmt.Errorf("edit id prefix %q is ambiguous", prefix)
	}
}

// RecentEdits returns the newest edits first. An empty appID matches all apps.
func (s *Store) RecentEdits(appID string, limit int) ([]Edit, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if appID == "" {
		rows, err = s.db.Query(`SELECT `+editColumns+` FROM edits ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(`SELECT `+editColumns+` FROM edits WHERE app_id = ? ORDER BY created_at DESC LIMIT ?`, appID, limit)
	}
	if err != nil {
		return nil, err
	}
	return collectEdits(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEdit(r rowScanner) (Edit, error) {
	var e Edit
	var createdAt string
	if err := r.Scan(&e.ID, &createdAt, &e.ConfigPath, &e.AppID, &e.Action, &e.PreviousValue,
		&e.HadPrevious, &e.NewValue, &e.BackupPath, &e.Status, &e.Message); err != nil {
		return Edit{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Edit{}, fmt.Errorf("parsing created_at: %w", err)
	}
	e.CreatedAt = t
	return e, nil
}

func collectEdits(rows *sql.Rows) ([]Edit, error) {
	defer rows.Close()
	var out []Edit
	for rows.Next() {
		e, err := scanEdit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Managed apps ---

func (s *Store) UpsertManagedApp(m ManagedApp) error {
	_, err := s.db.Exec(`
		INSERT INTO managed_apps (config_path, app_id, preset, launch_options, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(config_path, app_id) DO UPDATE SET
			preset = excluded.preset,
			launch_options = excluded.launch_options,
			updated_at = excluded.updated_at`,
		m.ConfigPath, m.AppID, m.Preset, m.LaunchOptions, m.UpdatedAt.UTC().Format(timeLayout),
	)
	return err
}

func (s *Store) DeleteManagedApp(configPath, appID string) error {
	_, err := s.db.Exec(`DELETE FROM managed_apps WHERE config_path = ? AND app_id = ?`, configPath, appID)
	return err
}

func (s *Store) ListManagedApps(configPath string) ([]ManagedApp, error) {
	rows, err := s.db.Query(`
		SELECT config_path, app_id, preset, launch_options, updated_at
		FROM managed_apps WHERE config_path = ? ORDER BY app_id`, configPath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ManagedApp
	for rows.Next() {
		var m ManagedApp
		var updatedAt string
		if err := rows.Scan(&m.ConfigPath, &m.AppID, &m.Preset, &m.LaunchOptions, &updatedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		m.UpdatedAt = t
		out = append(out, m)
	}
	return out, rows.Err()
}
