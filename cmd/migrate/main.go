package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"c2d.dev/portal/internal/config"
	"c2d.dev/portal/internal/migrate"
	"c2d.dev/portal/internal/obs"
	"c2d.dev/portal/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	var (
		dsn   = flag.String("dsn", cfg.PostgresDSN, "PostgreSQL DSN (default PORTAL_PG_DSN)")
		table = flag.String("table", "", "Migrations bookkeeping table (default schema_migrations)")
	)
	flag.Parse()
	log := obs.Logger()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or PORTAL_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|status|pending]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	mgr := migrate.NewManager(db, migrations.FS(),
		migrate.WithMigrationsTable(*table),
		migrate.WithLogger(log),
	)

	var out []string
	switch flag.Arg(0) {
	case "up":
		out, err = mgr.Up(ctx)
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if name != "" {
			out = []string{name}
		}
	case "status":
		out, err = mgr.Status(ctx)
	case "pending":
		out, err = mgr.Pending(ctx)
	default:
		log.Fatal("unknown command", zap.String("command", flag.Arg(0)))
	}
	if err != nil {
		log.Fatal("migrate", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
	for _, item := range out {
		fmt.Println(item)
	}
}
