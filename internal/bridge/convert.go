// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package bridge

import "fmt"

// Arg identifies the argument being converted, for error messages.
type Arg struct {
	Call string
	Name string
	Pos  int
}

func (a Arg) mismatch(want string, v Value) error {
	return &ArgError{Call: a.Call, Name: a.Name, Pos: a.Pos, Want: want, Got: v.kind.String()}
}

// Elem returns the Arg for element i of a sequence argument.
func (a Arg) Elem(i int) Arg {
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("#%d", a.Pos)
	}
	return Arg{Call: a.Call, Name: fmt.Sprintf("%s[%d]", name, i), Pos: a.Pos}
}

// Float converts an int or float.
func Float(a Arg, v Value) (float64, error) {
	if !v.IsNumber() {
		return 0, a.mismatch("float", v)
	}
	return v.raw.ToFloat(), nil
}

// Int converts an int, or a float with no fractional part.
func Int(a Arg, v Value) (int64, error) {
	if !v.IsIntegral() {
		return 0, a.mismatch("int", v)
	}
	return v.raw.ToInteger(), nil
}

// String converts a str.
func String(a Arg, v Value) (string, error) {
	if v.kind != KindString {
		return "", a.mismatch("str", v)
	}
	return v.raw.String(), nil
}

// Bool converts a bool.
func Bool(a Arg, v Value) (bool, error) {
	if v.kind != KindBool {
		return false, a.mismatch("bool", v)
	}
	return v.raw.ToBoolean(), nil
}

// Floats converts any list or iterable of numbers. Length constraints are the caller's.
func Floats(a Arg, v Value) ([]float64, error) {
	if v.kind != KindList {
		return nil, a.mismatch("list", v)
	}
	n := v.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		f, err := Float(a.Elem(i), v.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Frame converts a list of equally sized lists of numbers. An empty outer
// list converts to nil without error.
func Frame(a Arg, v Value) ([][]float64, error) {
	if v.kind != KindList {
		return nil, TypeErrorf("%s() '%s' argument must be type 'list[list[Real]]'", a.Call, a.Name)
	}
	n := v.Len()
	if n == 0 {
		return nil, nil
	}
	rows := make([]Value, n)
	for i := range rows {
		rows[i] = v.Index(i)
	}
	if rows[0].kind != KindList {
		return nil, TypeErrorf("%s() '%s' argument must be type 'list[list[Real]]'", a.Call, a.Name)
	}
	cols := rows[0].Len()
	frame := make([][]float64, n)
	for i, row := range rows {
		if row.kind != KindList {
			return nil, TypeErrorf("%s() '%s' argument contains non-list type object (%s[%d])", a.Call, a.Name, a.Name, i)
		}
		if row.Len() != cols {
			return nil, ValueErrorf("%s() '%s' argument must contain lists of equal size (%s[%d])", a.Call, a.Name, a.Name, i)
		}
		values, err := Floats(a.Elem(i), row)
		if err != nil {
			return nil, err
		}
		frame[i] = values
	}
	return frame, nil
}
