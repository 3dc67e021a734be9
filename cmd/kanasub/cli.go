package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pkt0401/kanasub/internal/config"
	"github.com/pkt0401/kanasub/internal/errors"
	"github.com/pkt0401/kanasub/internal/ops"
	"github.com/pkt0401/kanasub/internal/oracle"
	"github.com/pkt0401/kanasub/internal/oracle/ollama"
	"github.com/pkt0401/kanasub/internal/oracle/openai"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "kanasub",
		Usage:   "Correct and restore kana readings in Japanese SRT subtitles",
		Version: Version,
		Commands: []*cli.Command{
			correctCmd(env),
			restoreCmd(env),
			addTermCmd(env),
			addHintCmd(env),
			addRuleCmd(env),
			addReadingCmd(env),
			removeTermCmd(env),
			removeReadingCmd(env),
			removeHintCmd(env),
			removeRuleCmd(env),
			listRulesCmd(env),
			importRulesCmd(env),
			runsCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// runFlags are shared by correct and restore.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "batch-size", Aliases: []string{"b"}, Usage: "Cues per rewrite request"},
		&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "Model name (overrides config)"},
		&cli.BoolFlag{Name: "strict", Usage: "Fail the whole file when any batch fails"},
	}
}

// correctCmd creates the correct command.
func correctCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "correct",
		Usage:     "Rewrite ambiguous kanji/numerals into kana readings",
		ArgsUsage: "<input.srt> [output.srt]",
		Flags:     runFlags(),
		Action: func(c *cli.Context) error {
			return runAction(c, env, ops.Correct)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Map kana readings back to the original orthography",
		ArgsUsage: "<input.srt> [output.srt]",
		Flags:     runFlags(),
		Action: func(c *cli.Context) error {
			return runAction(c, env, ops.Restore)
		},
	}
}

// runAction drives a correct or restore invocation end to end.
func runAction(
	c *cli.Context,
	env *appEnv,
	run func(ctx context.Context, deps ops.Deps, input ops.RunInput) (*ops.RunOutput, error),
) error {
	if c.NArg() < 1 {
		return outputError(errors.NewInvalidRequest("input file is required"))
	}

	model := c.String("model")
	if model == "" {
		model = env.cfg.Model
	}

	orc, err := buildOracle(env.cfg, model)
	if err != nil {
		return outputError(err)
	}

	deps := env.deps(orc, model)
	input := ops.RunInput{
		InputPath: c.Args().Get(0),
		BatchSize: c.Int("batch-size"),
		Strict:    c.Bool("strict"),
	}
	if c.NArg() > 1 {
		input.OutputPath = c.Args().Get(1)
	}

	output, err := run(c.Context, deps, input)
	if err != nil {
		return outputError(err)
	}

	if err := outputJSON(output); err != nil {
		return err
	}
	if len(output.Failures) > 0 {
		for _, f := range output.Failures {
			fmt.Fprintf(os.Stderr, "batch %d (cues %d-%d) failed: %s\n",
				f.Batch, f.CueStart, f.CueEnd, f.Message)
		}
		return cli.Exit(fmt.Sprintf("%d of %d batches failed; failed cues left unmodified",
			len(output.Failures), output.Batches), 1)
	}
	return nil
}

// buildOracle constructs the configured rewrite backend.
func buildOracle(cfg *config.Config, model string) (oracle.Oracle, error) {
	timeout := time.Duration(cfg.OracleTimeoutSecs) * time.Second
	switch cfg.Provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.NewInvalidRequest("OPENAI_API_KEY is not set")
		}
		opts := []openai.Option{openai.WithTimeout(timeout)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		orc, err := openai.New(apiKey, model, opts...)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		return orc, nil
	case "ollama":
		orc, err := ollama.New(cfg.BaseURL, model, timeout)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		return orc, nil
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown provider %q (want openai or ollama)", cfg.Provider))
	}
}

// Rule management commands

// addTermCmd creates the add-term command.
func addTermCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "add-term",
		Usage:     "Record a term correction (misrecognized form → correct form)",
		ArgsUsage: "<wrong> <correct>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("usage: add-term <wrong> <correct>"))
			}
			output, err := ops.AddTerm(env.deps(nil, ""), c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// addHintCmd creates the add-hint command.
func addHintCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "add-hint",
		Usage:     "Record a context hint passed to the rewrite model",
		ArgsUsage: "<text>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: add-hint <text>"))
			}
			output, err := ops.AddHint(env.deps(nil, ""), c.Args().Get(0))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// addRuleCmd creates the add-rule command.
func addRuleCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "add-rule",
		Usage:     "Record a free-form rewrite directive",
		ArgsUsage: "<text>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: add-rule <text>"))
			}
			output, err := ops.AddCustomRule(env.deps(nil, ""), c.Args().Get(0))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// addReadingCmd creates the add-reading command.
func addReadingCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "add-reading",
		Usage:     "Record a reading example (original form → kana reading)",
		ArgsUsage: "<form> <reading>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("usage: add-reading <form> <reading>"))
			}
			output, err := ops.AddReading(env.deps(nil, ""), c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// removeTermCmd creates the remove-term command.
func removeTermCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "remove-term",
		Usage:     "Delete a term correction by its misrecognized form",
		ArgsUsage: "<wrong>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: remove-term <wrong>"))
			}
			output, err := ops.RemoveTerm(env.deps(nil, ""), c.Args().Get(0))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// removeReadingCmd creates the remove-reading command.
func removeReadingCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "remove-reading",
		Usage:     "Delete a reading example by its original form",
		ArgsUsage: "<form>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: remove-reading <form>"))
			}
			output, err := ops.RemoveReading(env.deps(nil, ""), c.Args().Get(0))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// removeHintCmd creates the remove-hint command.
func removeHintCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "remove-hint",
		Usage:     "Delete a context hint by exact text",
		ArgsUsage: "<text>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: remove-hint <text>"))
			}
			output, err := ops.RemoveHint(env.deps(nil, ""), c.Args().Get(0))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// removeRuleCmd creates the remove-rule command.
func removeRuleCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "remove-rule",
		Usage:     "Delete a custom rule by exact text",
		ArgsUsage: "<text>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: remove-rule <text>"))
			}
			output, err := ops.RemoveCustomRule(env.deps(nil, ""), c.Args().Get(0))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listRulesCmd creates the list-rules command.
func listRulesCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list-rules",
		Usage: "List all correction rule tables",
		Action: func(c *cli.Context) error {
			return outputJSON(ops.ListRules(env.deps(nil, "")))
		},
	}
}

// importRulesCmd creates the import-rules command.
func importRulesCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import-rules",
		Usage:     "Import rule entries from a markdown glossary file",
		ArgsUsage: "<glossary.md>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: import-rules <glossary.md>"))
			}
			output, err := ops.ImportRules(env.deps(nil, ""), c.Args().Get(0))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// runsCmd creates the runs command.
func runsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recent correction/restoration runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultRunsLimit, Usage: "Maximum runs to return"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Runs(env.deps(nil, ""), ops.RunsInput{Limit: c.Int("limit")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if kErr, ok := err.(*errors.Error); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", kErr.Code, kErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
