package vm

// Table is an open-addressing, linear-probing hash table keyed by interned
// string identity. It has to cooperate with the GC's weak-intern-table
// sweep (gc.go), which rules out a plain Go map here; see DESIGN.md.
type Table struct {
	count    int
	entries  []entry
}

type entry struct {
	key   *ObjString // nil key + present=false is empty; nil key + present=true is a tombstone
	value Value
	present bool
}

const tableMaxLoad = 0.75

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Get looks up key, returning (value, true) if present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return Value{}, false
	}
	e := t.find(key)
	if e.key == nil {
		return Value{}, false
	}
	return e.value, true
}

// Set inserts or overwrites key's value, returning true if this was a new
// key (not previously present).
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow()
	}
	e := t.find(key)
	isNew := e.key == nil
	if isNew && !e.present {
		t.count++
	}
	e.key = key
	e.value = value
	e.present = true
	return isNew
}

// Delete removes key, leaving a tombstone so later probes past it still
// succeed. Returns true if key was present.
func (t *Table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.find(key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.present = true // tombstone: present but no key
	return true
}

// Count returns the number of occupied slots: live entries plus the
// tombstones left by Delete since the last grow. The load-factor check
// relies on tombstones being counted.
func (t *Table) Count() int { return t.count }

// Each calls fn for every live entry. fn must not mutate the table.
func (t *Table) Each(fn func(key *ObjString, value Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}

// AddAll bulk-copies every live entry of other into t, overwriting
// existing keys. Used by INHERIT to seed a subclass's method table.
func (t *Table) AddAll(other *Table) {
	other.Each(func(k *ObjString, v Value) {
		t.Set(k, v)
	})
}

// FindInterned looks up a string by raw content+hash without allocating an
// ObjString, used by the interner (intern.go) to test "do we already have
// this string" before allocating one.
func (t *Table) FindInterned(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	index := hash & mask
	for {
		e := &t.entries[index]
		if e.key == nil {
			if !e.present {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) & mask
	}
}

func (t *Table) find(key *ObjString) *entry {
	mask := uint32(len(t.entries) - 1)
	index := key.Hash & mask
	var tombstone *entry
	for {
		e := &t.entries[index]
		if e.key == nil {
			if !e.present {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) & mask
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	old := t.entries
	t.entries = make([]entry, newCap)
	t.count = 0
	for _, e := range old {
		if e.key == nil {
			continue
		}
		dst := t.find(e.key)
		dst.key = e.key
		dst.value = e.value
		dst.present = true
		t.count++
	}
}

// removeUnmarkedKeys deletes every entry whose key object is unmarked,
// giving the string-intern table weak-reference semantics: run it between
// mark and sweep so the intern table never keeps a soon-to-be-freed string
// artificially alive, and never holds a dangling pointer after sweep.
func (t *Table) removeUnmarkedKeys() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.marked {
			e.key = nil
			e.present = true // tombstone, still counted as in Delete
		}
	}
}
