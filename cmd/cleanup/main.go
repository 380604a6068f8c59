// Retention job. Hard-deletes rows in a tenant data source that were
// soft-deleted longer ago than the retention window, purges old
// communication records, and removes expired sessions from the directory
// database. Run against each data source on a schedule.
//
// Usage: cleanup <postgres-conn-string>
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/venuecore/venuecore/internal/config"
)

var softDeletedTables = []string{
	"accounts",
	"contacts",
	"leads",
	"opportunities",
	"events",
	"invoices",
	"quotes",
	"contracts",
	"inventory_items",
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cleanup <postgres-conn-string>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cutoff := time.Now().Add(-cfg.Retention.SoftDeleteMaxAge)

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	for _, table := range softDeletedTables {
		tag, err := conn.Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE deleted_at IS NOT NULL AND deleted_at < $1", table), cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Purge of %s failed: %v\n", table, err)
			os.Exit(1)
		}
		if tag.RowsAffected() > 0 {
			fmt.Printf("Purged %d rows from %s\n", tag.RowsAffected(), table)
		}
	}

	tag, err := conn.Exec(ctx, "DELETE FROM communications WHERE created_at < $1", cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Purge of communications failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Purged %d communication records\n", tag.RowsAffected())

	if err := cleanupSessions(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Session cleanup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Cleanup completed.")
}

// cleanupSessions removes expired sessions from the directory database.
// The in-server ticker does the same hourly; this covers deployments
// where the server is down or cycled faster than the ticker fires.
func cleanupSessions(ctx context.Context, cfg *config.Config) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Directory.User, cfg.Directory.Password,
		cfg.Directory.Host, cfg.Directory.Port,
		cfg.Directory.Database, cfg.Directory.SSLMode)

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("unable to connect to directory database: %w", err)
	}
	defer conn.Close(ctx)

	tag, err := conn.Exec(ctx, "DELETE FROM sessions WHERE expires_at < NOW()")
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d expired sessions\n", tag.RowsAffected())
	return nil
}
