package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libklein/hackjack/internal/symtab"
)

func TestSymbolTable_DefineClassAssignsPerKindIndices(t *testing.T) {
	st := symtab.New()
	a := st.DefineClass("x", "int", symtab.Field)
	b := st.DefineClass("y", "int", symtab.Field)
	c := st.DefineClass("count", "int", symtab.Static)

	require.Equal(t, uint16(0), a.Index)
	require.Equal(t, uint16(1), b.Index)
	require.Equal(t, uint16(0), c.Index)
	require.Equal(t, uint16(2), st.ClassCount(symtab.Field))
	require.Equal(t, uint16(1), st.ClassCount(symtab.Static))
}

func TestSymbolTable_LookupPrefersSubroutineScope(t *testing.T) {
	st := symtab.New()
	st.DefineClass("x", "int", symtab.Field)
	st.DefineSubroutine("x", "boolean", symtab.Argument)

	entry, ok := st.Lookup("x")
	require.True(t, ok)
	require.Equal(t, symtab.Argument, entry.Kind)
	require.Equal(t, "boolean", entry.TypeName)
}

func TestSymbolTable_LookupFallsBackToClassScope(t *testing.T) {
	st := symtab.New()
	st.DefineClass("balance", "int", symtab.Field)

	entry, ok := st.Lookup("balance")
	require.True(t, ok)
	require.Equal(t, symtab.Field, entry.Kind)
}

func TestSymbolTable_LookupMissingReturnsFalse(t *testing.T) {
	st := symtab.New()
	_, ok := st.Lookup("nope")
	require.False(t, ok)
}

func TestSymbolTable_ResetSubroutineClearsOnlySubroutineScope(t *testing.T) {
	st := symtab.New()
	st.DefineClass("field1", "int", symtab.Field)
	st.DefineSubroutine("local1", "int", symtab.Local)

	st.ResetSubroutine()

	_, ok := st.Lookup("local1")
	require.False(t, ok)
	_, ok = st.Lookup("field1")
	require.True(t, ok)
	require.Equal(t, uint16(0), st.SubroutineCount(symtab.Local))
}

func TestSymbolTable_ResetClassClearsBothScopes(t *testing.T) {
	st := symtab.New()
	st.DefineClass("field1", "int", symtab.Field)
	st.DefineSubroutine("local1", "int", symtab.Local)

	st.ResetClass()

	_, ok := st.Lookup("field1")
	require.False(t, ok)
	_, ok = st.Lookup("local1")
	require.False(t, ok)
}

func TestKind_Segment(t *testing.T) {
	require.Equal(t, "static", symtab.Static.Segment())
	require.Equal(t, "this", symtab.Field.Segment())
	require.Equal(t, "argument", symtab.Argument.Segment())
	require.Equal(t, "local", symtab.Local.Segment())
	require.Equal(t, "", symtab.Invalid.Segment())
}
