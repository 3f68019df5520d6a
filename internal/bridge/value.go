// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package bridge converts between script values and host values.
//
// Every value crossing from the script into the host is first classified into
// a Value, then converted with the function for the shape the host expects.
// Shapes are never inferred beyond what Classify reports.
package bridge

import (
	"math"
	"strconv"

	"github.com/dop251/goja"
)

// Kind is the boundary classification of a script value.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindObject
	KindFunction
	KindSymbol
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindString:    "str",
	KindList:      "list",
	KindObject:    "object",
	KindFunction:  "function",
	KindSymbol:    "symbol",
}

func (k Kind) String() string { return kindNames[k] }

// Value is a classified script value.
type Value struct {
	kind  Kind
	raw   goja.Value
	obj   *goja.Object
	elems []goja.Value // iterated elements of a non-array list
}

// maxIterable bounds how many elements are drawn from a script iterator.
const maxIterable = 1 << 24

// Classify tags a raw script value with its boundary kind.
func Classify(v goja.Value) Value {
	if v == nil || goja.IsUndefined(v) {
		return Value{kind: KindUndefined, raw: v}
	}
	if goja.IsNull(v) {
		return Value{kind: KindNull, raw: v}
	}
	if _, ok := v.(*goja.Symbol); ok {
		return Value{kind: KindSymbol, raw: v}
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, ok := goja.AssertFunction(v); ok {
			return Value{kind: KindFunction, raw: v, obj: obj}
		}
		switch obj.ClassName() {
		case "Array", "Arguments":
			return Value{kind: KindList, raw: v, obj: obj}
		}
		if elems, ok := iterate(obj); ok {
			return Value{kind: KindList, raw: v, obj: obj, elems: elems}
		}
		return Value{kind: KindObject, raw: v, obj: obj}
	}
	switch v.Export().(type) {
	case bool:
		return Value{kind: KindBool, raw: v}
	case int64:
		return Value{kind: KindInt, raw: v}
	case float64:
		return Value{kind: KindFloat, raw: v}
	case string:
		return Value{kind: KindString, raw: v}
	}
	return Value{kind: KindObject, raw: v}
}

// iterate drains obj through its Symbol.iterator method. Typed arrays, sets
// and generators are lists this way; plain objects have no iterator.
func iterate(obj *goja.Object) ([]goja.Value, bool) {
	method, ok := goja.AssertFunction(obj.GetSymbol(goja.SymIterator))
	if !ok {
		return nil, false
	}
	it, err := method(obj)
	if err != nil {
		return nil, false
	}
	iter, ok := it.(*goja.Object)
	if !ok {
		return nil, false
	}
	next, ok := goja.AssertFunction(iter.Get("next"))
	if !ok {
		return nil, false
	}
	elems := []goja.Value{}
	for len(elems) < maxIterable {
		r, err := next(iter)
		if err != nil {
			return nil, false
		}
		res, ok := r.(*goja.Object)
		if !ok {
			return nil, false
		}
		if done := res.Get("done"); done != nil && done.ToBoolean() {
			return elems, true
		}
		v := res.Get("value")
		if v == nil {
			v = goja.Undefined()
		}
		elems = append(elems, v)
	}
	return nil, false
}

// Kind returns the classification.
func (v Value) Kind() Kind { return v.kind }

// Raw returns the underlying script value.
func (v Value) Raw() goja.Value { return v.raw }

// Object returns the underlying object for list, object and function kinds.
func (v Value) Object() *goja.Object { return v.obj }

// Absent reports whether the value is undefined or null.
func (v Value) Absent() bool { return v.kind == KindUndefined || v.kind == KindNull }

// IsNumber reports whether the value is an int or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// IsIntegral reports whether the value is a number without a fractional part.
func (v Value) IsIntegral() bool {
	switch v.kind {
	case KindInt:
		return true
	case KindFloat:
		f := v.raw.ToFloat()
		return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) &&
			f >= math.MinInt64 && f <= math.MaxInt64
	}
	return false
}

// Len returns the element count of a list, or 0 for other kinds.
func (v Value) Len() int {
	if v.kind != KindList {
		return 0
	}
	if v.elems != nil {
		return len(v.elems)
	}
	return int(v.obj.Get("length").ToInteger())
}

// Index returns element i of a list.
func (v Value) Index(i int) Value {
	if v.kind != KindList {
		return Value{kind: KindUndefined}
	}
	if v.elems != nil {
		if i < 0 || i >= len(v.elems) {
			return Value{kind: KindUndefined, raw: goja.Undefined()}
		}
		return Classify(v.elems[i])
	}
	return Classify(v.obj.Get(strconv.Itoa(i)))
}

// Keys returns the own enumerable keys of a plain object.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	return v.obj.Keys()
}

// Get returns the named property of a plain object.
func (v Value) Get(key string) Value {
	if v.kind != KindObject {
		return Value{kind: KindUndefined}
	}
	return Classify(v.obj.Get(key))
}
