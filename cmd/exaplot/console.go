package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/peterh/liner"

	"nickandperla.net/exaplot/internal/app"
)

const historyFile = ".exaplot_history"

const consoleHelp = `commands:
  load PATH           load a script
  reload              reload the current script
  params              list run parameters
  run [NAME=VALUE..]  run the script, unnamed parameters keep their default
  plot ID             show a plot's state
  help                this text
  quit                leave the console
`

type console struct {
	a      *app.App
	out    io.Writer
	script string
}

// runConsole reads commands until EOF, quit or ctx is done. A terminal gets
// line editing and history.
func runConsole(ctx context.Context, a *app.App, script string, in io.Reader, out io.Writer, prompter *linePrompter, interactive bool) int {
	c := &console{a: a, out: out}
	if script != "" {
		c.exec("load " + shellquote.Join(script))
	}
	fmt.Fprint(out, "exaplot console (help for commands, Ctrl+D to exit)\n")

	if !interactive {
		scanner := bufio.NewScanner(in)
		for ctx.Err() == nil && scanner.Scan() {
			if c.exec(scanner.Text()) {
				break
			}
		}
		return 0
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	prompter.ln = ln
	defer func() { prompter.ln = nil }()

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				ln.WriteHistory(f)
				f.Close()
			}
		}()
	}

	for ctx.Err() == nil {
		line, err := ln.Prompt("exaplot> ")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err != nil {
			fmt.Fprintln(out)
			break
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if c.exec(line) {
			break
		}
	}
	return 0
}

// exec runs one console command and reports whether the console should exit.
func (c *console) exec(line string) bool {
	words, err := shellquote.Split(line)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return false
	}
	if len(words) == 0 {
		return false
	}

	switch cmd, args := words[0], words[1:]; cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprint(c.out, consoleHelp)
	case "load":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "usage: load PATH")
			return false
		}
		if err := c.a.Load(args[0]); err == nil {
			c.script = args[0]
			fmt.Fprintf(c.out, "loaded %s\n", args[0])
		}
	case "reload":
		if c.script == "" {
			fmt.Fprintln(c.out, "no script loaded")
			return false
		}
		if err := c.a.Load(c.script); err == nil {
			fmt.Fprintf(c.out, "reloaded %s\n", c.script)
		}
	case "params":
		printParams(c.out, c.a.Params())
	case "run":
		if c.script == "" {
			fmt.Fprintln(c.out, "no script loaded")
			return false
		}
		runArgs, err := bindArgs(c.a.Params(), args)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return false
		}
		c.a.Run(runArgs)
	case "plot":
		c.showPlot(args)
	default:
		fmt.Fprintf(c.out, "unknown command %q, try help\n", cmd)
	}
	return false
}

func (c *console) showPlot(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: plot ID")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: invalid plot ID %q\n", args[0])
		return
	}
	s, err := c.a.Plot(id)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "plot %d %q: %s, %d points, %d of %dx%d cells\n",
		s.ID, s.Attrs.Title, s.Type, len(s.Points), s.Written(),
		s.Attrs.ColorMap.DataSize.X, s.Attrs.ColorMap.DataSize.Y)
}
