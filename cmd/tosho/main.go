// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command tosho is the operator CLI for library maintenance.
//
// Subcommands:
//
//	import-books   scan the book directory and catalog new archives
//	flush-books    drop catalog rows whose archive file vanished
//	create-user    create a reader account (optionally admin)
//
// The CLI shares the server's configuration environment: it connects
// to the same database and book directory the API serves from.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tosho/internal/auth"
	"github.com/taibuivan/tosho/internal/book"
	"github.com/taibuivan/tosho/internal/epub"
	"github.com/taibuivan/tosho/internal/platform/config"
	"github.com/taibuivan/tosho/internal/platform/migration"
	pgstore "github.com/taibuivan/tosho/internal/platform/postgres"
	"github.com/taibuivan/tosho/internal/platform/sec"
	"github.com/taibuivan/tosho/internal/tags"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	must(log, err, "load configuration")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer pool.Close()

	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	switch os.Args[1] {
	case "import-books":
		flags := flag.NewFlagSet("import-books", flag.ExitOnError)
		dir := flags.String("dir", cfg.BookDir, "directory to scan for .epub archives")
		accessLevel := flags.String("access-level", string(sec.RoleStandard), "access tier for the new rows (standard|admin)")
		flags.Parse(os.Args[2:])

		access := sec.UserRole(*accessLevel)
		if access != sec.RoleStandard && access != sec.RoleAdmin {
			fmt.Fprintf(os.Stderr, "unknown access level %q\n", *accessLevel)
			os.Exit(2)
		}

		imported, err := bookService(pool, *dir, log).ImportDirectory(ctx, access)
		must(log, err, "import books")
		fmt.Printf("imported %d new book(s) from %s\n", imported, *dir)

	case "flush-books":
		flags := flag.NewFlagSet("flush-books", flag.ExitOnError)
		dir := flags.String("dir", cfg.BookDir, "directory holding the .epub archives")
		flags.Parse(os.Args[2:])

		flushed, err := bookService(pool, *dir, log).FlushMissing(ctx)
		must(log, err, "flush books")
		fmt.Printf("flushed %d orphaned catalog row(s)\n", flushed)

	case "create-user":
		createUser(ctx, log, pool)

	default:
		usage()
		os.Exit(2)
	}
}

func bookService(pool *pgxpool.Pool, dir string, log *slog.Logger) *book.Service {
	return book.NewService(
		book.NewPostgresRepository(pool),
		tags.NewService(tags.NewPostgresRepository(pool), log),
		epub.NewExtractor(log),
		noopCache{},
		dir,
		log,
	)
}

func createUser(ctx context.Context, log *slog.Logger, pool *pgxpool.Pool) {
	flags := flag.NewFlagSet("create-user", flag.ExitOnError)
	username := flags.String("username", "", "account username (required)")
	email := flags.String("email", "", "account email (required)")
	password := flags.String("password", "", "account password (required)")
	admin := flags.Bool("admin", false, "grant the admin role")
	flags.Parse(os.Args[2:])

	if *username == "" || *email == "" || *password == "" {
		flags.Usage()
		os.Exit(2)
	}

	role := sec.RoleStandard
	if *admin {
		role = sec.RoleAdmin
	}

	service := auth.NewService(auth.NewPostgresRepository(pool), nil)
	user, err := service.Register(ctx, auth.RegisterInput{
		Username: *username,
		Email:    *email,
		Password: *password,
		Role:     role,
	})
	must(log, err, "create user")
	fmt.Printf("created %s user %s (%s)\n", user.Role, user.Username, user.ID)
}

// noopCache satisfies the book service's cache dependency; CLI runs
// have no Redis and nothing cached to invalidate.
type noopCache struct{}

func (noopCache) Invalidate(context.Context, string) error { return nil }

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tosho <import-books|flush-books|create-user> [flags]")
}

func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("command failed", slog.String("context", context), slog.Any("error", err))
		os.Exit(1)
	}
}
