// ABOUTME: Entry point for the summon-share operator CLI
// ABOUTME: Dispatches subcommands that migrate, inspect and vote on the site database

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"github.com/2389/summon-share/internal/config"
	"github.com/2389/summon-share/internal/store"
)

// Version is set at build time.
var version = "dev"

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: summon-share <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  migrate                        Bring the database schema up to date")
	fmt.Fprintln(w, "  init [--path FILE]             Write a default config file")
	fmt.Fprintln(w, "  monsters [-q TEXT] [--element E] [--type T] [--page N]")
	fmt.Fprintln(w, "                                 List monsters")
	fmt.Fprintln(w, "  boards [-q TEXT] [--sort newest|popular] [--page N]")
	fmt.Fprintln(w, "                                 List weapon boards")
	fmt.Fprintln(w, "  summons [-q ID] [--sort newest|popular] [--page N]")
	fmt.Fprintln(w, "                                 List friend summons")
	fmt.Fprintln(w, "  like board|summon ID [--voter V]")
	fmt.Fprintln(w, "                                 Cast a like")
	fmt.Fprintln(w, "  skill-code CODE                Decode a skill-share code")
	fmt.Fprintln(w, "  version                        Print the version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every command accepts --config FILE (default: $"+config.EnvConfigPath+", ./config.yaml, ./config.toml).")
}

// cli carries the process streams and injectable dependencies of a run.
type cli struct {
	out        io.Writer
	errOut     io.Writer
	newVoterID func() string
}

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := &cli{out: os.Stdout, errOut: os.Stderr, newVoterID: uuid.NewString}
	os.Exit(c.run(ctx, os.Args[1:]))
}

// run executes one command and returns the process exit code.
func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		usage(c.errOut)
		return 2
	}

	var err error
	switch args[0] {
	case "migrate":
		err = c.runMigrate(ctx, args[1:])
	case "init":
		err = c.runInit(args[1:])
	case "monsters":
		err = c.runMonsters(ctx, args[1:])
	case "boards":
		err = c.runBoards(ctx, args[1:])
	case "summons":
		err = c.runSummons(ctx, args[1:])
	case "like":
		err = c.runLike(ctx, args[1:])
	case "skill-code":
		err = c.runSkillCode(args[1:])
	case "version":
		fmt.Fprintln(c.out, version)
	case "help", "-h", "--help":
		usage(c.out)
	default:
		fmt.Fprintf(c.errOut, "Unknown command: %s\n", args[0])
		usage(c.errOut)
		return 2
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(c.errOut, "%s %v\n", color.RedString("Error:"), err)
		return 2
	default:
		fmt.Fprintf(c.errOut, "%s %v\n", color.RedString("Error:"), err)
		return 1
	}
}

var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// newFlagSet returns a flag set with the shared --config flag registered.
func (c *cli) newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	cfgPath := fs.String("config", "", "Path to a YAML or TOML config file")
	return fs, cfgPath
}

func (c *cli) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError("%v", err)
	}
	return nil
}

// loadConfig reads the explicit config path, or the located one, or falls
// back to defaults when no file exists.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.Locate(".")
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// openStore loads configuration and opens the store it names. The schema is
// brought up to date as part of opening.
func (c *cli) openStore(cfgPath string) (*store.SQLiteStore, *config.Config, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	logger := setupLogger(cfg.Logging, c.errOut)

	s, err := store.NewSQLiteStore(cfg.Database.Path,
		store.WithLogger(logger),
		store.WithDriver(cfg.Database.Driver),
		store.WithBusyTimeout(cfg.Database.BusyTimeout),
		store.WithPageSizes(cfg.Listing.PageSize, cfg.Listing.MaxPageSize),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return s, cfg, nil
}
