// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package bridge

import (
	"fmt"

	"github.com/pkg/errors"
)

// Class selects the script-visible error class a failed host call raises.
type Class int

const (
	ClassType Class = iota
	ClassValue
	ClassIndex
	ClassKey
	ClassOverflow
	ClassSystem
)

var classNames = [...]string{
	ClassType:     "TypeError",
	ClassValue:    "ValueError",
	ClassIndex:    "IndexError",
	ClassKey:      "KeyError",
	ClassOverflow: "OverflowError",
	ClassSystem:   "SystemError",
}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return "Error"
	}
	return classNames[c]
}

// ScriptError is an error destined for the script that made the call.
type ScriptError struct {
	Class Class
	Msg   string
}

func (e *ScriptError) Error() string { return e.Msg }

func newScriptError(c Class, format string, args []any) error {
	return &ScriptError{Class: c, Msg: fmt.Sprintf(format, args...)}
}

// TypeErrorf reports a value of the wrong type.
func TypeErrorf(format string, args ...any) error { return newScriptError(ClassType, format, args) }

// ValueErrorf reports a value of the right type but an unacceptable content.
func ValueErrorf(format string, args ...any) error { return newScriptError(ClassValue, format, args) }

// IndexErrorf reports an out-of-range plot or element index.
func IndexErrorf(format string, args ...any) error { return newScriptError(ClassIndex, format, args) }

// KeyErrorf reports an unknown key.
func KeyErrorf(format string, args ...any) error { return newScriptError(ClassKey, format, args) }

// OverflowErrorf reports a number that does not fit its destination.
func OverflowErrorf(format string, args ...any) error {
	return newScriptError(ClassOverflow, format, args)
}

// SystemErrorf reports a host-side failure or a call made in the wrong state.
func SystemErrorf(format string, args ...any) error { return newScriptError(ClassSystem, format, args) }

// ArgError describes an argument that could not be converted to the shape a
// host call expects.
type ArgError struct {
	Call string // host function name, without parentheses
	Name string // parameter name or element path, e.g. "frame[2][0]"
	Pos  int    // 1-based positional index, 0 when passed by name
	Want string
	Got  string
}

func (e *ArgError) Error() string {
	switch {
	case e.Name != "" && e.Got != "":
		return fmt.Sprintf("%s() '%s' argument must be type '%s', not '%s'", e.Call, e.Name, e.Want, e.Got)
	case e.Name != "":
		return fmt.Sprintf("%s() '%s' argument must be type '%s'", e.Call, e.Name, e.Want)
	default:
		return fmt.Sprintf("%s() argument #%d must be type '%s', not '%s'", e.Call, e.Pos, e.Want, e.Got)
	}
}

// ClassOf returns the class an error should be raised as in the script.
// Errors that are neither ScriptError nor ArgError are system errors.
func ClassOf(err error) Class {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Class
	}
	var ae *ArgError
	if errors.As(err, &ae) {
		return ClassType
	}
	return ClassSystem
}
