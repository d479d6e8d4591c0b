package main

import (
	"fmt"
	"os"
	"strconv"

	infraconfig "github.com/jonesrussell/task-registry/infrastructure/config"
	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	"github.com/jonesrussell/task-registry/internal/config"
	"github.com/jonesrussell/task-registry/internal/database"
)

// Exit codes for the migrate command.
const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: migrate <up|down [steps]|version>")
		return exitFailure
	}

	command := args[0]
	if command != "up" && command != "down" && command != "version" {
		fmt.Fprintf(os.Stderr, "Invalid command: %q (must be \"up\", \"down\" or \"version\")\n", command)
		return exitFailure
	}

	steps := 1
	if command == "down" && len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "Invalid steps: %q\n", args[1])
			return exitFailure
		}
		steps = n
	}

	cfg, err := config.Load(infraconfig.GetConfigPath("config.yml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}

	log, err := infralogger.New(infralogger.Config{Level: cfg.Logging.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return exitFailure
	}
	defer func() { _ = log.Sync() }()

	migrator, err := database.NewMigrator(cfg.Database.URL(), cfg.Database.MigrationsPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		return exitFailure
	}
	defer func() { _ = migrator.Close() }()

	switch command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down(steps)
	case "version":
		version, dirty, versionErr := migrator.Version()
		if versionErr == nil {
			fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		}
		err = versionErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", command, err)
		return exitFailure
	}

	return exitSuccess
}
