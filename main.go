package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/tluyben/huntflow/chain"
	"github.com/tluyben/huntflow/completion"
	"github.com/tluyben/huntflow/config"
	"github.com/tluyben/huntflow/flow"
	"github.com/tluyben/huntflow/hunt"
	"github.com/tluyben/huntflow/logging"
	"github.com/tluyben/huntflow/schema"
	"github.com/tluyben/huntflow/search"
)

type app struct {
	cfg      *config.Config
	registry *flow.Registry
	executor *flow.Executor
	cleanup  func() error
}

func main() {
	a := &app{}

	cliApp := &cli.App{
		Name:  "huntflow",
		Usage: "Typed AI flows for attack-path hunting",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "flows",
				Usage: "Directory containing additional flow definitions",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the completion cache",
			},
		},
		Before: a.setup,
		After:  a.teardown,
		Commands: []*cli.Command{
			{
				Name:   "flows",
				Usage:  "List available flows",
				Action: a.listFlows,
			},
			{
				Name:      "describe",
				Usage:     "Show a flow's input and output schemas and its prompt",
				ArgsUsage: "FLOW",
				Action:    a.describeFlow,
			},
			{
				Name:      "run",
				Usage:     "Run a flow with a JSON input object",
				ArgsUsage: "FLOW [JSON]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input-file", Aliases: []string{"f"}, Usage: "Read the input object from `FILE`"},
					&cli.BoolFlag{Name: "chain", Usage: "Follow the flow steps declared by the flow"},
					&cli.StringFlag{Name: "jq", Usage: "Filter the result with a jq `EXPR`"},
				},
				Action: a.runFlow,
			},
			{
				Name:      "triage",
				Usage:     "Judge every observable in a JSON file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent invocations (default TRIAGE_WORKERS)"},
				},
				Action: a.triage,
			},
			{
				Name:      "index",
				Usage:     "Index or reindex all text files under DIR (default .)",
				ArgsUsage: "[DIR]",
				Action:    a.indexFiles,
			},
			{
				Name:      "suggest",
				Usage:     "Search indexed evidence and suggest graph queries for the hits",
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "environment", Aliases: []string{"e"}, Usage: "Environment description", Value: "Enterprise Active Directory environment"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of evidence hits", Value: 10},
				},
				Action: a.suggest,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cliApp.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup(c *cli.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	a.cfg = config.Load()

	cleanup, err := logging.Setup(a.cfg.Logging())
	if err != nil {
		return fmt.Errorf("error setting up logging: %w", err)
	}
	a.cleanup = cleanup

	defs, err := flow.Builtin()
	if err != nil {
		return fmt.Errorf("error loading built-in flows: %w", err)
	}
	if dir := c.String("flows"); dir != "" {
		extra, err := flow.LoadDir(dir)
		if err != nil {
			return fmt.Errorf("error loading flows: %w", err)
		}
		defs = append(defs, extra...)
	}
	a.registry, err = flow.NewRegistry(defs...)
	if err != nil {
		return err
	}
	return nil
}

func (a *app) teardown(*cli.Context) error {
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}

// executorFor builds the executor on first use so that commands which never
// call a service work without credentials.
func (a *app) executorFor(c *cli.Context) (*flow.Executor, error) {
	if a.executor != nil {
		return a.executor, nil
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	var client completion.Client
	switch a.cfg.Provider {
	case config.ProviderGemini:
		g, err := completion.NewGemini(c.Context, a.cfg.GeminiKey, a.cfg.GeminiModel, a.cfg.CompletionTimeout)
		if err != nil {
			return nil, err
		}
		client = g
	default:
		client = completion.NewOpenRouter(a.cfg.OpenRouterKey, a.cfg.OpenRouterModel,
			completion.WithBaseURL(a.cfg.OpenRouterBaseURL),
			completion.WithTimeout(a.cfg.CompletionTimeout),
			completion.WithMaxRetries(a.cfg.CompletionMaxRetries),
		)
	}

	if a.cfg.CompletionCacheSize > 0 && !c.Bool("no-cache") {
		cache, err := completion.NewCache(client, a.cfg.CompletionCacheSize)
		if err != nil {
			return nil, err
		}
		client = cache
	}

	a.executor = flow.NewExecutor(a.registry, client)
	return a.executor, nil
}

func (a *app) listFlows(c *cli.Context) error {
	for _, name := range a.registry.Names() {
		def, _ := a.registry.Lookup(name)
		fmt.Fprintf(c.App.Writer, "%-32s %s\n", name, def.Description())
	}
	return nil
}

func (a *app) describeFlow(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("please provide a flow name")
	}
	def, ok := a.registry.Lookup(c.Args().First())
	if !ok {
		return fmt.Errorf("flow %s not found", c.Args().First())
	}

	in, err := json.MarshalIndent(schema.Describe(def.Input()), "", "  ")
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(schema.Describe(def.Output()), "", "  ")
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s\n%s\n\nInput:\n%s\n\nOutput:\n%s\n\nPrompt:\n%s\n", def.Name(), def.Description(), in, out, def.Template().Source())
	for _, step := range def.Steps() {
		fmt.Fprintf(w, "\nStep: if %s -> %s\n", step.Validate, step.Next)
	}
	return nil
}

func (a *app) runFlow(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("please provide a flow name")
	}
	name := c.Args().First()

	raw := c.Args().Get(1)
	if path := c.String("input-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("error reading file %s: %w", path, err)
		}
		raw = string(data)
	}
	input, err := parseInput(raw)
	if err != nil {
		return err
	}

	ex, err := a.executorFor(c)
	if err != nil {
		return err
	}

	var result any
	if c.Bool("chain") {
		hops, err := chain.New(ex).Run(c.Context, name, input)
		if err != nil {
			if len(hops) > 0 {
				_ = printJSON(c, hops)
			}
			return err
		}
		result = hops
	} else {
		result, err = ex.Execute(c.Context, name, input)
		if err != nil {
			return err
		}
	}

	if expr := c.String("jq"); expr != "" {
		values, err := applyJQ(result, expr)
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := printJSON(c, v); err != nil {
				return err
			}
		}
		return nil
	}
	return printJSON(c, result)
}

type triageLine struct {
	hunt.Verdict
	Error string `json:"error,omitempty"`
}

func (a *app) triage(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("please provide an observables file")
	}
	observables, err := hunt.ReadObservables(c.Args().First())
	if err != nil {
		return err
	}
	ex, err := a.executorFor(c)
	if err != nil {
		return err
	}

	workers := c.Int("workers")
	if workers <= 0 {
		workers = a.cfg.TriageWorkers
	}

	failed := 0
	enc := json.NewEncoder(c.App.Writer)
	for _, v := range hunt.TriageObservables(c.Context, ex, observables, workers) {
		line := triageLine{Verdict: v}
		if v.Err != nil {
			line.Error = v.Err.Error()
			failed++
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d observables could not be triaged", failed, len(observables))
	}
	return nil
}

func (a *app) indexFiles(c *cli.Context) error {
	dir := "."
	if c.NArg() > 0 {
		dir = c.Args().First()
	}

	if err := search.Remove(a.cfg.IndexPath); err != nil {
		return err
	}
	idx, err := search.Open(a.cfg.IndexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := idx.IndexDir(dir)
	if err != nil {
		return err
	}
	slog.Info("indexing complete", slog.String("dir", dir), slog.Int("files", n))
	fmt.Fprintf(c.App.Writer, "indexed %d files into %s\n", n, a.cfg.IndexPath)
	return nil
}

func (a *app) suggest(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("please provide a search query")
	}
	query := strings.Join(c.Args().Slice(), " ")

	idx, err := search.Open(a.cfg.IndexPath)
	if err != nil {
		return err
	}
	hits, err := idx.Search(query, c.Int("limit"))
	idx.Close()
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		return fmt.Errorf("no indexed evidence matches %q", query)
	}

	observables := make([]string, 0, len(hits))
	for _, h := range hits {
		observables = append(observables, fmt.Sprintf("%s: %s", h.ID, h.Snippet))
	}

	ex, err := a.executorFor(c)
	if err != nil {
		return err
	}
	out, err := hunt.SuggestGraphQueries(c.Context, ex, hunt.SuggestGraphQueriesInput{
		EnvironmentDescription: c.String("environment"),
		Observables:            observables,
	})
	if err != nil {
		return err
	}
	return printJSON(c, out)
}

func printJSON(c *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
