// Package symtab implements the two-table (class + subroutine) symbol
// scoping used by the Jack compiler: each identifier is recorded with a
// type name, a Kind, and a monotonically increasing per-kind index.
//
// Each table keeps an explicit set of per-kind counters rather than
// recomputing a kind's count by rescanning the whole map on every Define,
// so Count stays O(1) and isn't a side-effecting observation.
package symtab

// Kind classifies a symbol by its storage segment.
type Kind string

const (
	Invalid  Kind = ""
	Static   Kind = "static"
	Field    Kind = "field"
	Argument Kind = "argument"
	Local    Kind = "local"
)

// Segment returns the VM segment name a push/pop of this kind is lowered
// to: Static -> static, Field -> this, Argument -> argument, Local -> local.
func (k Kind) Segment() string {
	switch k {
	case Static:
		return "static"
	case Field:
		return "this"
	case Argument:
		return "argument"
	case Local:
		return "local"
	default:
		return ""
	}
}

// Entry is one declared identifier.
type Entry struct {
	TypeName string
	Kind     Kind
	Index    uint16
}

// Table is a single scope: a map of name -> Entry, with a running index per
// Kind.
type Table struct {
	entries map[string]Entry
	counts  map[Kind]uint16
}

func newTable() *Table {
	return &Table{entries: make(map[string]Entry), counts: make(map[Kind]uint16)}
}

// Define inserts name with the given type and kind, assigning the next
// index for that kind. Redefining an existing name in the same table is
// not checked here; the caller owns that guarantee.
func (t *Table) Define(name, typeName string, kind Kind) Entry {
	entry := Entry{TypeName: typeName, Kind: kind, Index: t.counts[kind]}
	t.counts[kind]++
	t.entries[name] = entry
	return entry
}

// Lookup returns the entry for name, if declared in this table.
func (t *Table) Lookup(name string) (Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// Count returns how many symbols of the given kind have been defined.
func (t *Table) Count(kind Kind) uint16 {
	return t.counts[kind]
}

// SymbolTable holds the class-scope table (lifetime: one class) and the
// subroutine-scope table (reset at each subroutine boundary). Lookup always
// checks the subroutine table first.
type SymbolTable struct {
	class      *Table
	subroutine *Table
}

// New creates an empty SymbolTable.
func New() *SymbolTable {
	return &SymbolTable{class: newTable(), subroutine: newTable()}
}

// DefineClass declares a class-scope symbol (static or field).
func (s *SymbolTable) DefineClass(name, typeName string, kind Kind) Entry {
	return s.class.Define(name, typeName, kind)
}

// DefineSubroutine declares a subroutine-scope symbol (argument or local).
func (s *SymbolTable) DefineSubroutine(name, typeName string, kind Kind) Entry {
	return s.subroutine.Define(name, typeName, kind)
}

// Lookup searches the subroutine table, then the class table.
func (s *SymbolTable) Lookup(name string) (Entry, bool) {
	if e, ok := s.subroutine.Lookup(name); ok {
		return e, true
	}
	return s.class.Lookup(name)
}

// ClassCount returns the number of class-scope symbols of the given kind —
// with Field, used for the constructor's Memory.alloc argument.
func (s *SymbolTable) ClassCount(kind Kind) uint16 {
	return s.class.Count(kind)
}

// SubroutineCount returns the number of subroutine-scope symbols of the
// given kind — used for the function prologue's local count.
func (s *SymbolTable) SubroutineCount(kind Kind) uint16 {
	return s.subroutine.Count(kind)
}

// ResetSubroutine clears the subroutine table and its counters, in
// preparation for compiling the next subroutine.
func (s *SymbolTable) ResetSubroutine() {
	s.subroutine = newTable()
}

// ResetClass clears both tables — used at the start of each new class.
func (s *SymbolTable) ResetClass() {
	s.class = newTable()
	s.subroutine = newTable()
}
