package main

import (
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
)

// linePrompter asks for the datafile path on the terminal.
type linePrompter struct {
	ln *liner.State // shared with the console, or nil for a one-off prompt
}

func (p *linePrompter) PromptPath(def string) (string, error) {
	ln := p.ln
	if ln == nil {
		ln = liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)
	}
	path, err := ln.PromptWithSuggestion("datafile (empty to skip): ", def, -1)
	if err == liner.ErrPromptAborted {
		return "", errors.New("datafile prompt aborted")
	}
	if err != nil {
		return "", errors.Wrap(err, "datafile prompt")
	}
	return strings.TrimSpace(path), nil
}
