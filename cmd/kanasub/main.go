package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkt0401/kanasub/internal/config"
	"github.com/pkt0401/kanasub/internal/history"
	"github.com/pkt0401/kanasub/internal/mcp"
	"github.com/pkt0401/kanasub/internal/ops"
	"github.com/pkt0401/kanasub/internal/oracle"
	"github.com/pkt0401/kanasub/internal/rules"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// ruleFileName is the per-project rule file, looked up in the working
// directory so each subtitle project carries its own tables.
const ruleFileName = "correction_rules.json"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"correct": true, "restore": true,
	"add-term": true, "add-hint": true, "add-rule": true, "add-reading": true,
	"remove-term": true, "remove-reading": true, "remove-hint": true, "remove-rule": true,
	"list-rules": true, "import-rules": true, "runs": true,
	"help": true,
}

// appEnv bundles the process-wide state the CLI commands share.
type appEnv struct {
	cfg   *config.Config
	store *rules.Store
	db    *sql.DB
}

// deps assembles ops.Deps for a command invocation.
func (e *appEnv) deps(orc oracle.Oracle, model string) ops.Deps {
	return ops.Deps{
		Store:  e.store,
		Oracle: orc,
		DB:     e.db,
		Cfg:    e.cfg,
		Model:  model,
	}
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _                             _
  | | ____ _ _ __   __ _ ___ _  _| |__
  | |/ / _' | '_ \ / _' / __| || | '_ \
  |   < (_| | | | | (_| \__ \ || | |_) |
  |_|\_\__,_|_| |_|\__,_|___/\_,_|_.__/

  Kana correction for Japanese SRT subtitles

  Usage: kanasub <command> [options]
         kanasub --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any state init
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".kanasub")

	database, err := history.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize run history: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	store, err := rules.Load(ruleFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load rule file: %v\n", err)
		os.Exit(1)
	}

	env := &appEnv{cfg: cfg, store: store, db: database}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'kanasub --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default). The oracle is built eagerly; if the
	// provider is misconfigured the rewrite tools report the error and the
	// rule/history tools keep working.
	orc, oracleErr := buildOracle(cfg, cfg.Model)
	if oracleErr != nil {
		fmt.Fprintf(os.Stderr, "warning: oracle unavailable: %v\n", oracleErr)
	}
	if err := mcp.Run(env.deps(orc, cfg.Model), Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
