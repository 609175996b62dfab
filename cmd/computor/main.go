// Command computor solves polynomial equations of degree two or lower.
// It also runs equation files in batch, keeps a history of solved
// equations and serves the solver over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/computor/core/computor"
	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/format"
	"github.com/FocuswithJustin/computor/core/sqlite"
	"github.com/FocuswithJustin/computor/internal/api"
	"github.com/FocuswithJustin/computor/internal/batch"
	"github.com/FocuswithJustin/computor/internal/config"
	"github.com/FocuswithJustin/computor/internal/history"
	"github.com/FocuswithJustin/computor/internal/logging"
	"github.com/FocuswithJustin/computor/internal/validation"
)

const version = "1.0.0"

// CLI defines the command-line interface for computor.
type CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (auto, json, text)"`
	HistoryDB string `name:"history-db" help:"History database path" type:"path"`

	Solve   SolveCmd     `cmd:"" default:"withargs" help:"Solve one equation"`
	Batch   BatchCmd     `cmd:"" help:"Solve every equation in a file"`
	History HistoryGroup `cmd:"" help:"Solved equation history"`
	Serve   ServeCmd     `cmd:"" help:"Start REST API server"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// Globals is bound into every command's Run.
type Globals struct {
	Ctx    context.Context
	Config config.Config
	Out    io.Writer
}

// OpenHistory opens the configured history store.
func (g *Globals) OpenHistory() (*history.Store, error) {
	store, err := history.Open(g.Config.HistoryDB)
	if err != nil {
		return nil, cerrors.Wrap(err, "open history")
	}
	return store, nil
}

// OpenHistoryReadOnly opens the configured history store for queries.
func (g *Globals) OpenHistoryReadOnly() (*history.Store, error) {
	store, err := history.OpenReadOnly(g.Config.HistoryDB)
	if err != nil {
		return nil, cerrors.Wrap(err, "open history")
	}
	return store, nil
}

func (g *Globals) printJSON(v any) error {
	enc := json.NewEncoder(g.Out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// SolveCmd solves one equation.
type SolveCmd struct {
	Equation  string `arg:"" help:"Equation to solve, e.g. \"5 * X^0 + 4 * X^1 = 4 * X^0\""`
	Verbose   bool   `short:"v" help:"Show coefficients and discriminant"`
	JSON      bool   `name:"json" help:"Print the result as JSON"`
	NoHistory bool   `name:"no-history" help:"Do not record the equation"`
}

// solveError is the JSON form of a failed solve.
type solveError struct {
	Input   string `json:"input"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Reduced string `json:"reduced,omitempty"`
}

func (c *SolveCmd) Run(g *Globals) error {
	start := time.Now()
	result, err := computor.Solve(c.Equation)
	if err != nil {
		logging.SolveEvent(g.Ctx, c.Equation, "", time.Since(start), err)
		return c.reportError(g, err)
	}
	logging.SolveEvent(g.Ctx, c.Equation, result.Kind.String(), time.Since(start), nil)

	opts := format.Options{Verbose: c.Verbose}
	if c.JSON {
		if err := g.printJSON(result.Summarize(opts)); err != nil {
			return err
		}
	} else {
		fmt.Fprint(g.Out, result.Text(opts))
	}

	if !c.NoHistory {
		c.record(g, result)
	}
	return nil
}

// reportError prints what is known about a failed equation and returns
// err so the process exits non-zero.
func (c *SolveCmd) reportError(g *Globals, err error) error {
	var degErr *cerrors.UnsupportedDegreeError
	isDegree := errors.As(err, &degErr)

	if c.JSON {
		out := solveError{Input: c.Equation, Error: err.Error(), Code: cerrors.Kind(err)}
		if isDegree {
			out.Reduced = degErr.Reduced
		}
		if jerr := g.printJSON(out); jerr != nil {
			return jerr
		}
		return err
	}
	if isDegree {
		fmt.Fprintf(g.Out, "Reduced form: %s\n", degErr.Reduced)
		fmt.Fprintf(g.Out, "Polynomial degree: %d\n", degErr.Degree)
	}
	return err
}

// record stores the result. History problems never fail a solve.
func (c *SolveCmd) record(g *Globals, result *computor.Result) {
	store, err := g.OpenHistory()
	if err != nil {
		logging.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()
	if _, err := store.Record(g.Ctx, result); err != nil {
		logging.Warn("history record failed", "error", err)
	}
}

// BatchCmd solves every equation in a file.
type BatchCmd struct {
	File    string `arg:"" help:"Equation file (.txt, .xml, .yaml, optionally .xz compressed)" type:"existingfile"`
	XPath   string `name:"xpath" help:"XPath selecting equations in XML files" default:"//equation"`
	Workers int    `short:"w" help:"Number of parallel workers (default from COMPUTOR_WORKERS)"`
	JSON    bool   `name:"json" help:"Print results as JSON"`
}

func (c *BatchCmd) Run(g *Globals) error {
	eqs, err := batch.Load(c.File, batch.LoadOptions{XPath: c.XPath})
	if err != nil {
		return err
	}

	workers := c.Workers
	if workers <= 0 {
		workers = g.Config.Workers
	}

	start := time.Now()
	outcomes, runErr := batch.Run(g.Ctx, eqs, workers)
	failed := batch.Failed(outcomes)
	logging.BatchEvent(c.File, len(outcomes), failed, time.Since(start), "workers", workers)

	if c.JSON {
		reports := make([]batch.Report, len(outcomes))
		for i, o := range outcomes {
			reports[i] = o.Report(format.Options{})
		}
		if err := g.printJSON(reports); err != nil {
			return err
		}
	} else {
		for i, o := range outcomes {
			if i > 0 {
				fmt.Fprintln(g.Out)
			}
			writeOutcome(g.Out, o)
		}
	}

	if runErr != nil {
		return cerrors.Wrap(runErr, "batch interrupted")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d equations failed", failed, len(outcomes))
	}
	return nil
}

func writeOutcome(w io.Writer, o batch.Outcome) {
	if o.Equation.Line > 0 {
		fmt.Fprintf(w, "[line %d] %s\n", o.Equation.Line, o.Equation.Text)
	} else {
		fmt.Fprintf(w, "%s\n", o.Equation.Text)
	}
	if o.Err != nil {
		var degErr *cerrors.UnsupportedDegreeError
		if errors.As(o.Err, &degErr) {
			fmt.Fprintf(w, "Reduced form: %s\nPolynomial degree: %d\n", degErr.Reduced, degErr.Degree)
		}
		fmt.Fprintf(w, "error: %v\n", o.Err)
		return
	}
	fmt.Fprint(w, o.Result.Text(format.Options{}))
}

// HistoryGroup contains history operations.
type HistoryGroup struct {
	List HistoryListCmd `cmd:"" help:"List recent equations"`
	Show HistoryShowCmd `cmd:"" help:"Show one history entry"`
	Rm   HistoryRmCmd   `cmd:"" help:"Delete one history entry"`
}

// HistoryListCmd lists recent history entries.
type HistoryListCmd struct {
	Limit int  `short:"n" help:"Maximum entries to show" default:"20"`
	JSON  bool `name:"json" help:"Print entries as JSON"`
}

func (c *HistoryListCmd) Run(g *Globals) error {
	store, err := g.OpenHistoryReadOnly()
	if errors.Is(err, cerrors.ErrNotFound) {
		fmt.Fprintln(g.Out, "No history entries")
		return nil
	}
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(g.Ctx, c.Limit)
	if err != nil {
		return err
	}
	if c.JSON {
		return g.printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(g.Out, "No history entries")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(g.Out, "%s  %s  %-13s %s\n",
			e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Input)
	}
	return nil
}

// HistoryShowCmd shows one history entry.
type HistoryShowCmd struct {
	ID   string `arg:"" help:"History entry ID"`
	JSON bool   `name:"json" help:"Print the entry as JSON"`
}

func (c *HistoryShowCmd) Run(g *Globals) error {
	store, err := g.OpenHistoryReadOnly()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Get(g.Ctx, c.ID)
	if err != nil {
		return err
	}
	if c.JSON {
		return g.printJSON(e)
	}

	fmt.Fprintf(g.Out, "ID:           %s\n", e.ID)
	fmt.Fprintf(g.Out, "Recorded:     %s\n", e.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(g.Out, "Input:        %s\n", e.Input)
	fmt.Fprintf(g.Out, "Reduced form: %s\n", e.Reduced)
	fmt.Fprintf(g.Out, "Kind:         %s\n", e.Kind)
	fmt.Fprintf(g.Out, "Fingerprint:  %s\n", e.Fingerprint)
	if len(e.Solutions) > 0 {
		displays := make([]string, len(e.Solutions))
		for i, s := range e.Solutions {
			displays[i] = s.Display
		}
		fmt.Fprintf(g.Out, "Solutions:    %s\n", strings.Join(displays, ", "))
	} else {
		fmt.Fprintf(g.Out, "Solutions:    %s\n", e.SolutionSet)
	}
	return nil
}

// HistoryRmCmd deletes a history entry.
type HistoryRmCmd struct {
	ID string `arg:"" help:"History entry ID"`
}

func (c *HistoryRmCmd) Run(g *Globals) error {
	store, err := g.OpenHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(g.Ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(g.Out, "Deleted %s\n", c.ID)
	return nil
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port      int  `help:"HTTP server port (default from COMPUTOR_PORT)"`
	NoHistory bool `name:"no-history" help:"Serve without a history database"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg := api.Config{
		Port:           g.Config.Port,
		Version:        version,
		AllowedOrigins: g.Config.AllowedOrigins,
		CacheTTL:       g.Config.CacheTTL,
		CacheSize:      g.Config.CacheSize,
		Workers:        g.Config.Workers,
	}
	if c.Port > 0 {
		cfg.Port = c.Port
	}

	var store *history.Store
	if !c.NoHistory {
		var err error
		if store, err = g.OpenHistory(); err != nil {
			return err
		}
		defer store.Close()
		logging.Info("history enabled", "path", g.Config.HistoryDB, "driver", sqlite.DriverType())
	}

	return api.New(cfg, store).Start(g.Ctx)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(g.Out, "computor version %s\n", version)
	fmt.Fprintf(g.Out, "sqlite driver: %s (%s)\n", info.Package, info.DriverType)
	return nil
}

// setup merges environment configuration with global flags and
// initializes logging.
func setup(cli *CLI) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.LogFormat = cli.LogFormat
	}
	if cli.HistoryDB != "" {
		cfg.HistoryDB = cli.HistoryDB
	}
	if err := validation.ValidatePath(cfg.HistoryDB); err != nil {
		return config.Config{}, cerrors.Wrapf(err, "history database %q", cfg.HistoryDB)
	}
	logging.InitLogger(logging.ParseLevel(cfg.LogLevel), logging.ParseFormat(cfg.LogFormat, os.Stderr))
	return cfg, nil
}

// equationArgs moves arguments that look like equations starting with '-'
// (such as "-X^2 + 1 = 0") behind a "--" so kong does not read them as
// short flags. Arguments already after a "--" are left alone.
func equationArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	var equations []string
	rest := []string(nil)
	for i, arg := range args {
		if arg == "--" {
			rest = args[i+1:]
			break
		}
		if isNegativeEquation(arg) {
			equations = append(equations, arg)
			continue
		}
		out = append(out, arg)
	}
	if len(equations) == 0 && rest == nil {
		return out
	}
	out = append(out, "--")
	out = append(out, equations...)
	return append(out, rest...)
}

func isNegativeEquation(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' || !strings.Contains(arg, "=") {
		return false
	}
	return strings.ContainsRune("0123456789.Xx \t", rune(arg[1]))
}

func main() {
	var cli CLI
	parser := kong.Must(&cli,
		kong.Name("computor"),
		kong.Description("Polynomial equation solver for degree two or lower"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	kctx, err := parser.Parse(equationArgs(os.Args[1:]))
	parser.FatalIfErrorf(err)

	cfg, err := setup(&cli)
	kctx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&Globals{
		Ctx:    ctx,
		Config: cfg,
		Out:    os.Stdout,
	})
	stop()
	kctx.FatalIfErrorf(err)
}
