package types

import (
	"strings"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

// dictEntry is the payload of one dict bucket: the value and the per-entry
// flags of object literals.
type dictEntry struct {
	v       Value
	konst   bool
	private bool
}

// A Dict is a mapping of string keys to values, backed by an open-addressed
// (swiss table) hash map. Entries may individually be marked const (writes
// fail) or private.
type Dict struct {
	m *swiss.Map[string, dictEntry]
}

var (
	_ Value     = (*Dict)(nil)
	_ Mapping   = (*Dict)(nil)
	_ HasSetKey = (*Dict)(nil)
	_ Iterable  = (*Dict)(nil)
	_ HasEqual  = (*Dict)(nil)
)

// NewDict returns a dict with initial capacity for at least size items.
func NewDict(size int) *Dict {
	return &Dict{m: swiss.NewMap[string, dictEntry](uint32(size))}
}

func (d *Dict) String() string {
	keys := d.Keys()
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		e, _ := d.m.Get(k)
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(e.v.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (d *Dict) Type() string { return "dict" }
func (d *Dict) Truth() bool  { return d.Len() > 0 }

// Len returns the number of live entries; tombstones left by deletions are
// not counted.
func (d *Dict) Len() int { return d.m.Count() }

func (d *Dict) Get(k string) (Value, bool) {
	e, ok := d.m.Get(k)
	if !ok {
		return nil, false
	}
	return e.v, true
}

// SetKey stores v under k. Overwriting an entry marked const is a runtime
// error.
func (d *Dict) SetKey(k string, v Value) error {
	if e, ok := d.m.Get(k); ok && e.konst {
		return NewRuntimeError("attribute %q is const", k)
	}
	d.m.Put(k, dictEntry{v: v})
	return nil
}

// SetKeyFlags stores v under k with the object-literal entry flags.
func (d *Dict) SetKeyFlags(k string, v Value, konst, private bool) error {
	if e, ok := d.m.Get(k); ok && e.konst {
		return NewRuntimeError("attribute %q is const", k)
	}
	d.m.Put(k, dictEntry{v: v, konst: konst, private: private})
	return nil
}

// IsPrivate reports whether the entry for k was marked private.
func (d *Dict) IsPrivate(k string) bool {
	e, ok := d.m.Get(k)
	return ok && e.private
}

// Delete removes the entry for k, reporting whether it was present.
func (d *Dict) Delete(k string) bool {
	return d.m.Delete(k)
}

// Keys returns a sorted snapshot of the keys. Iteration works from such a
// snapshot, so entries inserted mid-iteration are not visited.
func (d *Dict) Keys() []string {
	keys := make([]string, 0, d.m.Count())
	d.m.Iter(func(k string, _ dictEntry) bool {
		keys = append(keys, k)
		return false
	})
	slices.Sort(keys)
	return keys
}

// Iterate yields (key, value) tuples from a key snapshot taken now.
func (d *Dict) Iterate() Iterator {
	return &dictIterator{d: d, keys: d.Keys()}
}

func (d *Dict) Equals(y Value) (bool, error) {
	yd, ok := y.(*Dict)
	if !ok {
		return false, nil
	}
	if d.Len() != yd.Len() {
		return false, nil
	}
	var err error
	eq := true
	d.m.Iter(func(k string, e dictEntry) bool {
		var yv Value
		var found bool
		if yv, found = yd.Get(k); !found {
			eq = false
			return true
		}
		eq, err = Equal(e.v, yv)
		return !eq || err != nil
	})
	return eq, err
}

type dictIterator struct {
	d    *Dict
	keys []string
}

func (it *dictIterator) Next(p *Value) bool {
	for len(it.keys) > 0 {
		k := it.keys[0]
		it.keys = it.keys[1:]
		if v, ok := it.d.Get(k); ok {
			*p = NewTuple([]Value{String(k), v})
			return true
		}
		// deleted mid-iteration, skip
	}
	return false
}

func (it *dictIterator) Done() {}
