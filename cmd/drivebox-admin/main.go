// Package main is the entry point for the Drivebox admin CLI.
// This tool provides administrative commands for managing users directly
// against the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/drivebox/internal/config"
	"github.com/prn-tf/drivebox/internal/repository"
	"github.com/prn-tf/drivebox/internal/repository/postgres"
	"github.com/prn-tf/drivebox/internal/repository/sqlite"
	"github.com/prn-tf/drivebox/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Drivebox Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		if err := runUserCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runUserCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user subcommand required: create, list, delete")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("user create", flag.ExitOnError)
		username := fs.String("username", "", "username for the new user")
		password := fs.String("password", "", "password for the new user")
		configPath := fs.String("config", "", "path to config file")
		_ = fs.Parse(args[1:])

		if *username == "" || *password == "" {
			return fmt.Errorf("both -username and -password are required")
		}

		userRepo, closeDB, err := openUserRepo(ctx, *configPath)
		if err != nil {
			return err
		}
		defer closeDB()

		users := service.NewUserService(userRepo, zerolog.Nop())
		user, err := users.Register(ctx, service.RegisterInput{
			Username: *username,
			Password: *password,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created user %q (id %d)\n", user.Username, user.ID)
		return nil

	case "list":
		fs := flag.NewFlagSet("user list", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		_ = fs.Parse(args[1:])

		userRepo, closeDB, err := openUserRepo(ctx, *configPath)
		if err != nil {
			return err
		}
		defer closeDB()

		users, err := userRepo.List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tCREATED")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()

	case "delete":
		fs := flag.NewFlagSet("user delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "id of the user to delete")
		configPath := fs.String("config", "", "path to config file")
		_ = fs.Parse(args[1:])

		if *id == 0 {
			return fmt.Errorf("-id is required")
		}

		userRepo, closeDB, err := openUserRepo(ctx, *configPath)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := userRepo.Delete(ctx, *id); err != nil {
			return err
		}

		fmt.Printf("Deleted user %d\n", *id)
		return nil

	default:
		return fmt.Errorf("unknown user subcommand: %s", args[0])
	}
}

// openUserRepo opens the configured database and returns a user repository.
func openUserRepo(ctx context.Context, configPath string) (repository.UserRepository, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := zerolog.Nop()

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			CacheSize:       cfg.Database.CacheSize,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewUserRepository(db), func() { _ = db.Close() }, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewUserRepository(db), func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func printUsage() {
	fmt.Println(`Drivebox Admin CLI

Usage:
  drivebox-admin <command> [arguments]

Commands:
  user        Manage users (create, list, delete)
  version     Print version information
  help        Show this help message

Examples:
  drivebox-admin user create -username alice -password secret123
  drivebox-admin user list
  drivebox-admin user delete -id 3

Configuration is read the same way the server reads it: from an optional
YAML file (-config) and DRIVEBOX_* environment variables.`)
}
