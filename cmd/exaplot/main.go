// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command exaplot loads and runs plotting scripts without a graphical front
// end.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"nickandperla.net/exaplot/internal/app"
	"nickandperla.net/exaplot/internal/config"
	"nickandperla.net/exaplot/internal/datafile"
	"nickandperla.net/exaplot/internal/present"
	"nickandperla.net/exaplot/pkg/exaplot"
)

const usage = `usage: exaplot [flags] script.js

Runs the script's run function once and exits. With -watch the script is
reloaded and run again whenever it changes; with -i commands are read from
the console instead.

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

var errNoScript = errors.New("no script given")

type options struct {
	config     string
	args       string
	db         string
	noDatafile bool
	watch      bool
	console    bool
	params     bool
	verbose    bool
	script     string
}

func parseFlags(argv []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("exaplot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.config, "config", "", "Configuration file (default $"+config.FileEnv+" or the user config dir)")
	fs.StringVar(&o.args, "args", "", "Run arguments as name=value pairs, shell quoted")
	fs.StringVar(&o.db, "db", "", "Datafile path, may contain {timestamp}")
	fs.BoolVar(&o.noDatafile, "no-datafile", false, "Do not persist run data")
	fs.BoolVar(&o.watch, "watch", false, "Reload and run again when the script changes")
	fs.BoolVar(&o.console, "i", false, "Read commands from the console")
	fs.BoolVar(&o.params, "params", false, "List the script's run parameters and exit")
	fs.BoolVar(&o.verbose, "v", false, "Verbose output and debug logging")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
		if !o.console {
			fs.Usage()
			return nil, errNoScript
		}
	case 1:
		o.script = fs.Arg(0)
	default:
		fs.Usage()
		return nil, errors.Errorf("expected one script, got %d", fs.NArg())
	}
	return &o, nil
}

func run(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(argv, stderr)
	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cfg, err := config.Load(o.config)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	level, _ := cfg.Level()
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	if cfg.File != "" {
		logger.Debug("config loaded", "file", cfg.File)
	}

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	if err := exaplot.Initialize(exe, cfg.Prefix, cfg.SearchPaths); err != nil {
		fmt.Fprintf(stderr, "Fatal: %v\n", err)
		return 1
	}
	defer exaplot.Shutdown()

	var sink datafile.Sink = datafile.NewSQLite(cfg.Datafile.BufferSize)
	if cfg.Datafile.Driver == config.DriverMemory {
		sink = datafile.NewMemory()
	}
	pattern := cfg.Datafile.Path
	if o.db != "" {
		pattern = o.db
	}

	interactive := isTerminal(stdin)
	appOpts := []app.Option{
		app.WithLogger(logger),
		app.WithPresenter(present.NewText(stdout, present.WithVerbose(o.verbose))),
		app.WithSink(sink),
		app.WithDatafile(cfg.Datafile.Enabled && !o.noDatafile, pattern),
	}
	prompter := &linePrompter{}
	if interactive {
		appOpts = append(appOpts, app.WithPrompter(prompter))
	}
	a, err := app.New(appOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopSignals := handleSignals(a, cancel, logger)
	defer stopSignals()

	if o.console {
		return runConsole(ctx, a, o.script, stdin, stdout, prompter, interactive)
	}

	if err := a.Load(o.script); err != nil {
		return 1
	}
	if o.params {
		printParams(stdout, a.Params())
		return 0
	}
	words, err := splitArgs(o.args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	status := runOnce(a, words, stderr)
	if !o.watch {
		return status
	}
	if err := watch(ctx, o.script, cfg.Run.WatchDebounce, logger, func() {
		if err := a.Load(o.script); err == nil {
			runOnce(a, words, stderr)
		}
	}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runOnce runs the loaded script and returns the exit status.
func runOnce(a *app.App, words []string, stderr io.Writer) int {
	args, err := bindArgs(a.Params(), words)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if res := a.Run(args); !res.Ok() {
		return 1
	}
	return 0
}

// handleSignals maps SIGINT onto the application: the first one during a
// run requests a stop, a second one force quits; while idle it cancels ctx.
func handleSignals(a *app.App, cancel context.CancelFunc, logger *slog.Logger) func() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stops := 0
		for {
			select {
			case <-sigc:
				if a.State() == app.Idle {
					cancel()
					stops = 0
					continue
				}
				if stops > 0 && !a.Core().StopRequested() {
					// a new run started since the last interrupt
					stops = 0
				}
				stops++
				if stops == 1 {
					a.RequestStop()
				} else {
					logger.Warn("second interrupt, terminating script")
					a.ForceQuit()
					stops = 0
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigc)
		close(done)
		wg.Wait()
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
