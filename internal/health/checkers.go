package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Pinger is anything with a database-style connectivity probe, such as the
// dataset catalog.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database returns a checker that probes p. A nil p yields a checker that
// always passes, so callers can register it unconditionally.
func Database(p Pinger) Checker {
	return Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			if p == nil {
				return nil
			}
			return p.Ping(ctx)
		},
	}
}

// OutputDir returns a checker that verifies the dataset output directory
// exists and is writable, by creating and removing a probe file.
func OutputDir(dir string) Checker {
	return Checker{
		Name: "output_dir",
		Check: func(ctx context.Context) error {
			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("stat %s: %w", dir, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			probe := filepath.Join(dir, ".cutforge-probe")
			if err := os.WriteFile(probe, nil, 0o644); err != nil {
				return fmt.Errorf("write probe: %w", err)
			}
			return os.Remove(probe)
		},
	}
}
