package db

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateSchema rejects anything that is not a bare SQL identifier. Schema
// names are interpolated into DDL, so this is the only guard against injection.
func ValidateSchema(schema string) error {
	if !schemaPattern.MatchString(schema) {
		return fmt.Errorf("invalid schema identifier: %q", schema)
	}
	return nil
}

func searchPath(schema string) string {
	if schema == "public" {
		return "public"
	}
	return schema + ", public"
}

// EnsureSchema creates schema if needed and applies every pending migration
// from migrationsDir to it. An empty migrationsDir only creates the schema.
// It returns the number of migrations applied.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, schema, migrationsDir string) (int, error) {
	if err := ValidateSchema(schema); err != nil {
		return 0, err
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return 0, fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir == "" {
		return 0, nil
	}

	count, err := NewMigrator(pool, migrationsDir).Up(ctx, schema)
	if err != nil {
		return count, fmt.Errorf("run migrations for %s: %w", schema, err)
	}
	return count, nil
}
