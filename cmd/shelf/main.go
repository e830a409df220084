package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/shelf/internal/app"
	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/logger"
	"github.com/hpungsan/shelf/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// dataDirEnv overrides the default data directory (~/.shelf).
const dataDirEnv = "SHELF_DATA_DIR"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"add": true, "update": true, "archive": true, "unarchive": true,
	"delete": true, "duplicate": true, "get": true, "list": true, "tags": true,
	"export": true, "import": true, "lookup": true, "check": true,
	"settings": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	switch arg {
	case "--help", "-h", "--version", "-v", "--data-dir", "-d", "--quiet", "-q":
		return true
	}
	return false // Default → MCP server
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
       _          _  __
   ___| |__   ___| |/ _|
  / __| '_ \ / _ \ |  _|
  \__ \ | | |  __/ | |
  |___/_| |_|\___|_|_|

  Bookmark cards, kept locally

  Usage: shelf <command> [options]
         shelf --help

  MCP server mode requires piped input.`)
}

// defaultDataDir resolves $SHELF_DATA_DIR, falling back to ~/.shelf.
func defaultDataDir() (string, error) {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".shelf"), nil
}

// openApp loads config and the logger for dataDir and opens the app on it.
func openApp(ctx context.Context, dataDir string) (*app.App, error) {
	if dataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	a, err := app.Open(ctx, dataDir, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("failed to open data store: %w", err)
	}
	return a, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// CLI mode: known subcommand or global flag. The app opens lazily,
	// so --help and --version never touch the data store.
	if isCLIMode(os.Args) {
		cliApp := newCLIApp(openApp)
		if err := cliApp.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'shelf --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	a, err := openApp(context.Background(), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := mcp.Run(a, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}
