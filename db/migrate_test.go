package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-migrate/migrate/v4"
)

// fakeMigrator records every migrator call so tests can assert exactly what
// the command asked for.
type fakeMigrator struct {
	calls      []string
	upErr      error
	downErr    error
	stepsErr   error
	forceErr   error
	version    uint
	dirty      bool
	versionErr error
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.downErr
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, fmt.Sprintf("steps(%d)", n))
	return f.stepsErr
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, fmt.Sprintf("force(%d)", v))
	return f.forceErr
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}

func (f *fakeMigrator) assertCalls(t *testing.T, want ...string) {
	t.Helper()
	got := strings.Join(f.calls, ",")
	if got != strings.Join(want, ",") {
		t.Fatalf("migrator calls = %q, want %q", got, strings.Join(want, ","))
	}
}

// testDeps wires the command to a fake migrator over a sqlmock connection so
// no Postgres server is needed.
func testDeps(t *testing.T, m migrator) deps {
	t.Helper()
	return deps{
		loadEnv: func(...string) error { return nil },
		getenv: func(key string) string {
			if key == "DATABASE_URL" {
				return "postgres://localhost/publish_test"
			}
			return ""
		},
		openDB: func(driverName, dataSourceName string) (*sql.DB, error) {
			if driverName != "postgres" {
				t.Fatalf("driver = %q, want postgres", driverName)
			}
			db, _, err := sqlmock.New()
			return db, err
		},
		newMigrator: func(*sql.DB) (migrator, error) { return m, nil },
	}
}

func TestParseArgs(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{name: "defaults", args: nil, want: options{direction: "up", force: -1}},
		{name: "down with steps", args: []string{"-direction=down", "-steps=2"}, want: options{direction: "down", steps: 2, force: -1}},
		{name: "force version", args: []string{"-force=7"}, want: options{direction: "up", force: 7}},
		{name: "force dirty", args: []string{"-force-dirty"}, want: options{direction: "up", force: -1, forceDirty: true}},
		{name: "sideways is not a direction", args: []string{"-direction=sideways"}, wantErr: true},
		{name: "unknown flag", args: []string{"-turbo"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgs(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs: %v", err)
			}
			if got != tc.want {
				t.Fatalf("options = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRun_RequiresDatabaseURL(t *testing.T) {
	d := testDeps(t, &fakeMigrator{})
	d.getenv = func(string) string { return "" }
	if _, err := run(nil, d); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestRun_OpenDBError(t *testing.T) {
	d := testDeps(t, &fakeMigrator{})
	d.openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("refused") }
	if _, err := run(nil, d); err == nil || !strings.Contains(err.Error(), "Failed to connect") {
		t.Fatalf("expected connect error, got %v", err)
	}
}

func TestRun_MigratorFactoryError(t *testing.T) {
	d := testDeps(t, &fakeMigrator{})
	d.newMigrator = func(*sql.DB) (migrator, error) { return nil, errors.New("bad source") }
	if _, err := run(nil, d); err == nil || !strings.Contains(err.Error(), "bad source") {
		t.Fatalf("expected factory error, got %v", err)
	}
}

func TestRun_UpAppliesAllMigrations(t *testing.T) {
	fm := &fakeMigrator{}
	msg, err := run(nil, testDeps(t, fm))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if msg != "Migration up completed successfully" {
		t.Fatalf("msg = %q", msg)
	}
	fm.assertCalls(t, "up")
}

func TestRun_NoChange(t *testing.T) {
	fm := &fakeMigrator{upErr: migrate.ErrNoChange}
	msg, err := run(nil, testDeps(t, fm))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if msg != "No migrations to apply" {
		t.Fatalf("msg = %q", msg)
	}
}

func TestRun_DownWithSteps(t *testing.T) {
	fm := &fakeMigrator{}
	msg, err := run([]string{"-direction=down", "-steps=1"}, testDeps(t, fm))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if msg != "Migration down completed successfully" {
		t.Fatalf("msg = %q", msg)
	}
	fm.assertCalls(t, "steps(-1)")
}

func TestRun_UpWithSteps(t *testing.T) {
	fm := &fakeMigrator{}
	if _, err := run([]string{"-steps=3"}, testDeps(t, fm)); err != nil {
		t.Fatalf("run: %v", err)
	}
	fm.assertCalls(t, "steps(3)")
}

func TestRun_MigrationFailure(t *testing.T) {
	fm := &fakeMigrator{downErr: errors.New("boom")}
	if _, err := run([]string{"-direction=down"}, testDeps(t, fm)); err == nil || !strings.Contains(err.Error(), "Migration failed") {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
}

func TestRun_ForceVersion(t *testing.T) {
	fm := &fakeMigrator{}
	msg, err := run([]string{"-force=12"}, testDeps(t, fm))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if msg != "Forced database to version 12" {
		t.Fatalf("msg = %q", msg)
	}
	fm.assertCalls(t, "force(12)")
}

func TestRun_ForceVersionError(t *testing.T) {
	fm := &fakeMigrator{forceErr: errors.New("locked")}
	if _, err := run([]string{"-force=12"}, testDeps(t, fm)); err == nil || !strings.Contains(err.Error(), "Failed to force version 12") {
		t.Fatalf("expected force error, got %v", err)
	}
}

func TestRun_ForceDirty(t *testing.T) {
	fm := &fakeMigrator{version: 4, dirty: true}
	msg, err := run([]string{"-force-dirty"}, testDeps(t, fm))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if msg != "Forced dirty database to version 4" {
		t.Fatalf("msg = %q", msg)
	}
	fm.assertCalls(t, "force(4)")
}

func TestRun_ForceDirtyOnCleanDatabase(t *testing.T) {
	fm := &fakeMigrator{version: 4}
	msg, err := run([]string{"-force-dirty"}, testDeps(t, fm))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if msg != "Database is not dirty (no force needed)" {
		t.Fatalf("msg = %q", msg)
	}
	fm.assertCalls(t)
}

func TestRun_ForceDirtyVersionError(t *testing.T) {
	fm := &fakeMigrator{versionErr: errors.New("no schema_migrations table")}
	if _, err := run([]string{"-force-dirty"}, testDeps(t, fm)); err == nil || !strings.Contains(err.Error(), "Failed to read migration version") {
		t.Fatalf("expected version error, got %v", err)
	}
}

// The scheduler's due sweep relies on the partial index over scheduled posts,
// so the initial migration must create it alongside the two tables.
func TestInitMigration_DefinesSchedulerIndex(t *testing.T) {
	up, err := os.ReadFile("migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS accounts",
		"CREATE TABLE IF NOT EXISTS posts",
		"idx_posts_due",
		"(options->>'scheduledFor')::timestamptz",
		"WHERE status = 'scheduled'",
	} {
		if !strings.Contains(string(up), want) {
			t.Fatalf("up migration missing %q", want)
		}
	}

	down, err := os.ReadFile("migrations/000001_init.down.sql")
	if err != nil {
		t.Fatalf("read down migration: %v", err)
	}
	// Posts reference accounts, so they are dropped first.
	posts := strings.Index(string(down), "DROP TABLE IF EXISTS posts")
	accounts := strings.Index(string(down), "DROP TABLE IF EXISTS accounts")
	if posts < 0 || accounts < 0 || posts > accounts {
		t.Fatalf("down migration should drop posts before accounts:\n%s", down)
	}
}

func TestDefaultDeps(t *testing.T) {
	d := defaultDeps()
	if d.loadEnv == nil || d.getenv == nil || d.openDB == nil || d.newMigrator == nil {
		t.Fatalf("defaultDeps left a nil seam: %+v", d)
	}
}
