package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 {
		t.Fatal("no migrations embedded")
	}

	up := map[string]bool{}
	down := map[string]bool{}
	for _, name := range names {
		base := strings.TrimPrefix(name, "migrations/")
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			up[strings.TrimSuffix(base, ".up.sql")] = true
		case strings.HasSuffix(base, ".down.sql"):
			down[strings.TrimSuffix(base, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}
	for version := range up {
		if !down[version] {
			t.Errorf("migration %s has no down file", version)
		}
	}
	for version := range down {
		if !up[version] {
			t.Errorf("migration %s has no up file", version)
		}
	}
}
