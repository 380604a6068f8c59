// Applies the tenant business schema to a data source database. The
// directory schema is applied by `server migrate`; this tool is run once
// against each physical database registered as a data source.
//
// Usage: migrate <postgres-conn-string>
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/venuecore/venuecore/internal/store/postgres"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate <postgres-conn-string>")
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	fmt.Println("Applying tenant schema...")
	if _, err := conn.Exec(ctx, postgres.TenantSchema); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Tenant schema applied successfully.")
}
