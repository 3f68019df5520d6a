package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/host"
)

// splitArgs splits a shell-quoted argument string into words.
func splitArgs(s string) ([]string, error) {
	words, err := shellquote.Split(s)
	if err != nil {
		return nil, errors.Wrap(err, "run arguments")
	}
	return words, nil
}

// bindArgs orders name=value words by parameter declaration. Parameters
// without a word keep their default.
func bindArgs(params []host.RunParam, words []string) ([]string, error) {
	index := make(map[string]int, len(params))
	args := make([]string, len(params))
	for i, p := range params {
		index[p.Identifier] = i
		args[i] = p.Value
	}
	for _, w := range words {
		name, value, ok := strings.Cut(w, "=")
		if !ok {
			return nil, errors.Errorf("run argument %q is not name=value", w)
		}
		i, ok := index[name]
		if !ok {
			return nil, errors.Errorf("unknown parameter %q", name)
		}
		args[i] = value
	}
	return args, nil
}

func printParams(w io.Writer, params []host.RunParam) {
	if len(params) == 0 {
		fmt.Fprintln(w, "no parameters")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tDEFAULT\tDISPLAY")
	for _, p := range params {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Identifier, p.Type, shellquote.Join(p.Value), p.Display)
	}
	tw.Flush()
}
