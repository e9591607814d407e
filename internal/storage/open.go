package storage

import (
	"context"
	"fmt"
)

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*PGStore)(nil)
)

// OpenBackend opens the backend named by driver: "sqlite" (default) or "postgres".
func OpenBackend(ctx context.Context, driver, dataDir, databaseURL string) (Backend, error) {
	switch driver {
	case "", "sqlite":
		return Open(dataDir)
	case "postgres", "postgresql":
		if databaseURL == "" {
			return nil, fmt.Errorf("missing required config: storage.database_url (set JOBPORTAL_DATABASE_URL)")
		}
		return OpenPostgres(ctx, databaseURL)
	}
	return nil, fmt.Errorf("unknown storage driver %q (want sqlite or postgres)", driver)
}
