package app

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the default home directory
const HomeEnv = "FIELDSVC_HOME"

// Paths holds all resolved paths below the fieldsvc home directory
type Paths struct {
	Home     string // ~/.fieldsvc
	Var      string // <home>/var
	Lock     string // <home>/var/lock
	Evidence string // <home>/evidence

	// Key files
	Setting  string // <home>/setting.yaml
	Session  string // <home>/session.json
	Database string // <home>/fieldsvc.db
	Journal  string // <home>/var/journal.ndjson
}

// DefaultHome returns $FIELDSVC_HOME, falling back to ~/.fieldsvc and
// then ./.fieldsvc when the user home is unknown
func DefaultHome() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	if dir, err := os.UserHomeDir(); err == nil && dir != "" {
		return filepath.Join(dir, ".fieldsvc")
	}
	return ".fieldsvc"
}

// ResolvePaths returns all paths for home; an empty home means DefaultHome
func ResolvePaths(home string) Paths {
	if home == "" {
		home = DefaultHome()
	}

	p := Paths{
		Home:     home,
		Var:      filepath.Join(home, "var"),
		Evidence: filepath.Join(home, "evidence"),
	}
	p.Lock = filepath.Join(p.Var, "lock")

	p.Setting = filepath.Join(home, "setting.yaml")
	p.Session = filepath.Join(home, "session.json")
	p.Database = filepath.Join(home, "fieldsvc.db")
	p.Journal = filepath.Join(p.Var, "journal.ndjson")
	return p
}
