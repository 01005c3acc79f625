// Command migrate applies goose SQL migrations. Usage:
//
//	migrate up|down|status [-dir migrations]
//
// The database DSN comes from DATABASE_DSN (or a .env file).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "migrations", "directory with migration files")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|status [-dir migrations]")
		os.Exit(2)
	}
	command := flag.Arg(0)

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "migrate: DATABASE_DSN is not set")
		os.Exit(1)
	}

	if err := run(context.Background(), command, *dir, dsn); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command, dir, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("applied %s\n", r.Source.Path)
		}
	case "down":
		if _, err := provider.Down(ctx); err != nil {
			return err
		}
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			if s.State == goose.StateApplied {
				state = "applied"
			}
			fmt.Printf("%-10s %s\n", state, s.Source.Path)
		}
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
