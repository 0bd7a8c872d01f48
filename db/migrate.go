// Command migrate manages the publishing schema under db/migrations: the
// accounts and posts tables plus the partial indexes the scheduler's due
// sweep depends on. It reads DATABASE_URL (a .env file works too) and
// supports stepping, forcing a version, and repairing a dirty state.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const migrationSource = "file://db/migrations"

func main() {
	msg, err := run(os.Args[1:], defaultDeps())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(msg)
}

// deps carries the seams swapped out in tests: environment access, the
// database handle, and the migrator built on top of it.
type deps struct {
	loadEnv     func(...string) error
	getenv      func(string) string
	openDB      func(driverName, dataSourceName string) (*sql.DB, error)
	newMigrator func(db *sql.DB) (migrator, error)
}

func defaultDeps() deps {
	return deps{
		loadEnv:     godotenv.Load,
		getenv:      os.Getenv,
		openDB:      sql.Open,
		newMigrator: openMigrator,
	}
}

// migrator is the slice of *migrate.Migrate this command uses.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
}

func openMigrator(db *sql.DB) (migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("Failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(migrationSource, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("Failed to create migrate instance: %w", err)
	}
	return m, nil
}

type options struct {
	direction  string
	steps      int
	force      int
	forceDirty bool
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	var o options
	fs.StringVar(&o.direction, "direction", "up", "Migration direction: up or down")
	fs.IntVar(&o.steps, "steps", 0, "Number of migration steps (0 = all)")
	fs.IntVar(&o.force, "force", -1, "Force set migration version (clears dirty state). Example: -force=12")
	fs.BoolVar(&o.forceDirty, "force-dirty", false, "If the database is dirty, force it to the current version and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.direction != "up" && o.direction != "down" {
		return options{}, fmt.Errorf("Invalid direction: %s (must be 'up' or 'down')", o.direction)
	}
	return o, nil
}

func run(args []string, d deps) (string, error) {
	o, err := parseArgs(args)
	if err != nil {
		return "", err
	}

	if d.loadEnv != nil {
		_ = d.loadEnv()
	}

	databaseURL := ""
	if d.getenv != nil {
		databaseURL = d.getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := d.openDB("postgres", databaseURL)
	if err != nil {
		return "", fmt.Errorf("Failed to connect to database: %w", err)
	}
	defer db.Close()

	m, err := d.newMigrator(db)
	if err != nil {
		return "", err
	}

	switch {
	case o.forceDirty:
		return repairDirty(m)
	case o.force >= 0:
		if err := m.Force(o.force); err != nil {
			return "", fmt.Errorf("Failed to force version %d: %w", o.force, err)
		}
		return fmt.Sprintf("Forced database to version %d", o.force), nil
	default:
		return apply(m, o.direction, o.steps)
	}
}

// repairDirty clears a dirty flag left by an interrupted migration by
// re-forcing the current version. A clean database is left untouched.
func repairDirty(m migrator) (string, error) {
	v, dirty, err := m.Version()
	if err != nil {
		return "", fmt.Errorf("Failed to read migration version: %w", err)
	}
	if !dirty {
		return "Database is not dirty (no force needed)", nil
	}
	if err := m.Force(int(v)); err != nil {
		return "", fmt.Errorf("Failed to force dirty version %d: %w", v, err)
	}
	return fmt.Sprintf("Forced dirty database to version %d", v), nil
}

func apply(m migrator, direction string, steps int) (string, error) {
	var err error
	switch {
	case direction == "up" && steps > 0:
		err = m.Steps(steps)
	case direction == "up":
		err = m.Up()
	case steps > 0:
		err = m.Steps(-steps)
	default:
		err = m.Down()
	}
	if err == migrate.ErrNoChange {
		return "No migrations to apply", nil
	}
	if err != nil {
		return "", fmt.Errorf("Migration failed: %w", err)
	}
	return fmt.Sprintf("Migration %s completed successfully", direction), nil
}
