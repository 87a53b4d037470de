// Command initdb creates the users table outside the server process and
// reports on it. It reads the same DB_* environment (and .env file) as the
// server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Skryldev/user-records/config"
	"github.com/Skryldev/user-records/db"
	"github.com/Skryldev/user-records/repo"
)

func main() {
	envFile := flag.String("env", ".env", "path to a .env file (missing is fine)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fatalf("config: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	database, err := db.OpenWithDriver(cfg.DBDriver, cfg.DriverOptions(), cfg.Pool())
	if err != nil {
		fatalf("connect failed: %v", err)
	}
	defer database.Close()

	switch args[0] {
	case "up":
		if err := repo.EnsureSchema(ctx, database, database.DriverName()); err != nil {
			database.Close()
			fatalf("up failed: %v", err)
		}
		slog.Info("initdb: users table ready", "driver", database.DriverName(), "database", cfg.DBName)

	case "status":
		n, err := repo.NewUserRepo(database).Count(ctx)
		if err != nil {
			database.Close()
			fatalf("status failed (run 'initdb up' first?): %v", err)
		}
		fmt.Printf("users: %d rows\n", n)

	default:
		database.Close()
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: initdb [-env FILE] [-timeout D] <command>

Commands:
  up        Create the users table if it does not exist
  status    Print the number of rows in the users table

Environment:
  DB_DRIVER, DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE`)
}

func fatalf(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
