package database

import (
	"fmt"

	"github.com/aurora-shield/aurora-shield/config"
)

// Open builds the store selected by env.DBDriver. It is called once at
// startup; nothing downstream inspects the concrete type.
func Open(env *config.Env) (Store, error) {
	opts := Options{Location: env.Location}

	switch env.DBDriver {
	case config.DriverPostgres:
		pgClient, err := NewPostgresClient(env.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return NewPostgresStore(pgClient, opts)
	case config.DriverSQLite:
		return NewSQLiteStore(env.SQLitePath, opts)
	default:
		return nil, fmt.Errorf("unsupported driver %q", env.DBDriver)
	}
}
