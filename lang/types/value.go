// Some of the value protocol interfaces are adapted from the Starlark
// source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package types defines the runtime representation of the values
// manipulated by the machine, and the protocol by which types expose their
// operators: a set of interfaces that a value may implement, with
// standalone dispatch functions (Binary, Unary, Compare) that perform the
// numeric promotions and produce the errors.
package types

import "github.com/evilcandy-lang/evilcandy/lang/token"

// Value is the interface implemented by any value manipulated by the
// machine.
type Value interface {
	// String returns the string representation of the value.
	String() string

	// Type returns a short string describing the value's type.
	Type() string

	// Truth returns the truth value of the object: the inverse of the
	// "compares equal to zero" test.
	Truth() bool
}

// An Ordered type is a type whose values are ordered: if x and y are of the
// same Ordered type, then x must be less than y, greater than y, or equal
// to y.
type Ordered interface {
	Value

	// Cmp compares two values x and y of the same ordered type. It returns
	// negative if x < y, positive if x > y, and zero if the values are
	// equal. Client code should not call this method. Instead, use the
	// standalone Compare function, which is defined for all pairs of
	// operands.
	Cmp(y Value) (int, error)
}

// A HasEqual type defines custom equality for its values. An Ordered type
// should not implement HasEqual; a type whose values are not ordered but
// should not fall back to identity equality should.
type HasEqual interface {
	Value
	// Equals returns true if the receiver value is considered equal to y.
	// Client code should use the standalone Compare function instead.
	Equals(y Value) (bool, error)
}

// An Iterable abstracts a sequence of values. Unlike a Sequence, the length
// of an Iterable is not necessarily known in advance of iteration.
type Iterable interface {
	Value
	// Iterate returns an Iterator. It must be followed by a call to
	// Iterator.Done.
	Iterate() Iterator
}

// A Sequence is a sequence of values of known length.
type Sequence interface {
	Iterable
	// Len returns the number of elements in the sequence.
	Len() int
}

// An Indexable is a sequence of known length that supports efficient random
// access.
type Indexable interface {
	Value
	// Index returns the value at the specified index, which must satisfy
	// 0 <= i < Len().
	Index(i int) Value
	// Len returns the number of elements in the sequence.
	Len() int
}

// A HasSetIndex is an Indexable value whose elements may be assigned
// (x[i] = y). The implementation should not add Len to a negative index as
// the machine does this before the call.
type HasSetIndex interface {
	Indexable
	SetIndex(index int, v Value) error
}

// A Sliceable is a sequence that can be cut into pieces. All native
// indexable values are sliceable.
type Sliceable interface {
	Indexable
	// For positive strides (step > 0), 0 <= start <= end <= n.
	// For negative strides (step < 0), -1 <= end <= start < n.
	// The caller must ensure that the start and end indices are valid and
	// that step is non-zero.
	Slice(start, end, step int) Value
}

// An Iterator provides a sequence of values to the caller. The caller must
// call Done when the iterator is no longer needed. Operations that modify a
// sequence will fail if it has active iterators.
//
// Example usage:
//
//	iter := iterable.Iterate()
//	defer iter.Done()
//	var x Value
//	for iter.Next(&x) {
//		...
//	}
type Iterator interface {
	// If the iterator is exhausted, Next returns false. Otherwise it sets
	// *p to the current element of the sequence, advances the iterator, and
	// returns true.
	Next(p *Value) bool
	// Done must be called on the Iterator once it is no longer needed.
	Done()
}

// A Mapping is a mapping from string keys to values, such as a dict.
type Mapping interface {
	Value
	// Get returns the value corresponding to the specified key, or !found
	// if the mapping does not contain the key.
	Get(k string) (v Value, found bool)
}

// A HasSetKey supports update of a Mapping using x[k]=v syntax.
type HasSetKey interface {
	Mapping
	SetKey(k string, v Value) error
}

// A HasBinary value may be used as either operand of the binary operators.
// The Side argument indicates whether the receiver is the left or right
// operand. An implementation may decline to handle an operation by
// returning (nil, nil). For this reason, clients should always call the
// standalone Binary function rather than calling the method directly.
type HasBinary interface {
	Value
	Binary(op token.Token, y Value, side Side) (Value, error)
}

type Side bool

const (
	Left  Side = false
	Right Side = true
)

// A HasUnary value may be used as the operand of the unary operators. An
// implementation may decline to handle an operation by returning (nil,
// nil); clients should always call the standalone Unary function.
type HasUnary interface {
	Value
	Unary(op token.Token) (Value, error)
}

// A HasAttrs value has fields or methods that may be read by a dot
// expression (y = x.f). A result of (nil, nil) from Attr is interpreted as
// a "no such attribute" error; implementations are free to return a more
// precise error.
type HasAttrs interface {
	Value
	// Attr returns the field or method value corresponding to the
	// attribute name.
	Attr(name string) (Value, error)
	// AttrNames returns a slice of strings of valid attribute names. The
	// caller must not modify the results.
	AttrNames() []string
}

// A HasSetField value has fields that may be written by a dot expression
// (x.f = y).
type HasSetField interface {
	HasAttrs
	SetField(name string, val Value) error
}
