package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittohandle/internal/logger"
	"github.com/marmos91/dittohandle/pkg/client"
	"github.com/marmos91/dittohandle/pkg/config"
	"github.com/marmos91/dittohandle/pkg/handle"
)

const usage = `dittohandle - handle record client

Usage:
  dittohandle [global flags] <command> [flags] [arguments]

Commands:
  init       Write a default configuration file
  get        Print a handle record or one of its values
  register   Register a handle with a URL, checksum and extra values
  generate   Register a handle with a random suffix under a prefix
  modify     Change values of an existing handle (adding missing ones)
  add        Add values to an existing handle
  delete     Delete values, or the whole handle when no key is given
  search     Find handles whose values match KEY=PATTERN pairs
  list       List handles, optionally under a prefix

Global flags:
`

// command is one CLI subcommand.
type command struct {
	// needsClient is false for commands that work without a record store
	needsClient bool
	run         func(ctx context.Context, env *env, args []string) error
}

// env carries what every command needs.
type env struct {
	cfg        *config.Config
	configPath string
	client     *client.Client
	stdout     io.Writer
	stderr     io.Writer
}

var commands = map[string]command{
	"init":     {needsClient: false, run: runInit},
	"get":      {needsClient: true, run: runGet},
	"register": {needsClient: true, run: runRegister},
	"generate": {needsClient: true, run: runGenerate},
	"modify":   {needsClient: true, run: runModify},
	"add":      {needsClient: true, run: runAdd},
	"delete":   {needsClient: true, run: runDelete},
	"search":   {needsClient: true, run: runSearch},
	"list":     {needsClient: true, run: runList},
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("dittohandle", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/dittohandle/config.yaml)")
	logLevel := global.String("log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	global.Usage = func() {
		_, _ = fmt.Fprint(stderr, usage)
		global.PrintDefaults()
	}

	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	name := global.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		global.Usage()
		return 2
	}

	e := &env{configPath: *configPath, stdout: stdout, stderr: stderr}

	if cmd.needsClient {
		cfg, err := config.Load(*configPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return 1
		}
		if *logLevel != "" {
			cfg.Logging.Level = *logLevel
		}
		if err := configureLogging(cfg, stderr); err != nil {
			_, _ = fmt.Fprintf(stderr, "Failed to configure logging: %v\n", err)
			return 1
		}
		e.cfg = cfg

		m := config.InitializeMetrics(cfg)
		defer func() {
			if err := m.Flush(); err != nil {
				logger.Warn("Failed to write metrics: %v", err)
			}
		}()

		rs, err := config.CreateRecordStore(ctx, &cfg.Store, m.StoreMetrics)
		if err != nil {
			logger.Error("Failed to create record store: %v", err)
			return 1
		}
		c, err := client.New(rs, cfg.ClientOptions())
		if err != nil {
			_ = rs.Close()
			logger.Error("Failed to create client: %v", err)
			return 1
		}
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("Failed to close record store: %v", err)
			}
		}()
		e.client = c
		logger.Debug("Using %s record store", cfg.Store.Type)
	}

	if err := cmd.run(ctx, e, global.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errUsage) {
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// configureLogging applies the logging section of cfg.
func configureLogging(cfg *config.Config, stderr io.Writer) error {
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if cfg.Logging.Output == "stderr" {
		logger.SetWriter(stderr)
		return nil
	}
	return logger.SetOutput(cfg.Logging.Output)
}

// exitCode maps handle errors to exit codes: 3 not found, 4 already exists,
// 5 authentication, 1 anything else.
func exitCode(err error) int {
	switch {
	case handle.IsCode(err, handle.ErrNotFound):
		return 3
	case handle.IsCode(err, handle.ErrAlreadyExists):
		return 4
	case handle.IsCode(err, handle.ErrAuthentication):
		return 5
	default:
		return 1
	}
}
