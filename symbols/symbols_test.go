package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLibraryHasBaseTypesAndGlobalTable(t *testing.T) {
	lib := NewLibrary()

	for _, name := range []string{"Nil", "Boolean", "Number", "String", "Function", "Userdata", "Thread", "Table", "VariableArgument"} {
		assert.NotNil(t, lib.BaseType(name), name)
	}

	require.NotNil(t, lib.GlobalTable)
	assert.Equal(t, "_G", lib.GlobalTable.Name)
	assert.Equal(t, "Table", lib.GlobalTable.GetResolvedType().Name)
}

func TestResolvedTypeChain(t *testing.T) {
	lib := NewLibrary()

	a := lib.CreateBlankType("A")
	b := lib.CreateBlankType("B")
	c := lib.CreateBlankType("C")

	a.ResolvedType = b
	b.ResolvedType = c

	resolved := a.GetResolvedType()
	assert.Equal(t, c, resolved)
	assert.Equal(t, resolved, resolved.ResolvedType)
}

func TestNilReceiversResolveToNil(t *testing.T) {
	var typ *Type
	var variable *Variable

	assert.Nil(t, typ.GetResolvedType())
	assert.Nil(t, variable.GetResolvedType())
}

func TestCopyTypePreservesIdentityAndMembers(t *testing.T) {
	lib := NewLibrary()

	predictive := lib.CreatePredictiveType()
	early := lib.CreateTableEntry()
	early.Index = StringData("early")
	predictive.Members = append(predictive.Members, early)

	concrete := lib.CreateBlankType("Table")
	late := lib.CreateTableEntry()
	late.Index = StringData("late")
	concrete.Members = append(concrete.Members, late)

	holder := predictive
	predictive.CopyType(concrete)

	// Same pointer, new content: outstanding references stay valid.
	assert.Equal(t, holder, predictive)
	assert.Equal(t, "Table", predictive.Name)
	assert.Len(t, predictive.Members, 2)
}

func TestCopyTypeSelfAndNilAreNoops(t *testing.T) {
	lib := NewLibrary()
	typ := lib.CreateBlankType("X")

	typ.CopyType(nil)
	typ.CopyType(typ)
	assert.Equal(t, "X", typ.Name)
}

func TestCreateVariableGlobalReuse(t *testing.T) {
	lib := NewLibrary()
	ref := lib.NewReference()
	lib.CurrentRef = ref

	first := lib.CreateVariable("shared", true)
	second := lib.CreateVariable("shared", true)
	assert.Equal(t, first, second)
	assert.Equal(t, uint(2), first.RefCount)

	// Globals land in the global table's shape.
	found := false
	for _, member := range lib.GlobalTable.GetResolvedType().Members {
		if member == first {
			found = true
		}
	}
	assert.True(t, found)

	lib.CurrentRef = nil
}

func TestMultipleTypeNaming(t *testing.T) {
	lib := NewLibrary()

	number := lib.BaseType("Number")
	str := lib.BaseType("String")

	single := lib.CreateMultipleType([]*Type{number})
	assert.Equal(t, number, single)

	multi := lib.CreateMultipleType([]*Type{number, str})
	assert.Equal(t, "MultipleType(Number, String)", multi.Name)
	assert.Len(t, multi.MultipleTypes, 2)
}

func TestAddPossibleTypeCollapsesSingleton(t *testing.T) {
	lib := NewLibrary()

	union := lib.CreateBlankType("")
	number := lib.BaseType("Number")
	str := lib.BaseType("String")

	lib.AddPossibleType(union, number)
	assert.Equal(t, number, union.GetResolvedType())

	lib.AddPossibleType(union, str)
	assert.Equal(t, union, union.GetResolvedType())
	assert.Equal(t, "PossibleType(Number OR String)", union.Name)
}

func TestValueDataEquality(t *testing.T) {
	assert.True(t, NumberData(5).Equals(NumberData(5)))
	assert.False(t, NumberData(5).Equals(NumberData(6)))
	assert.True(t, StringData("x").Equals(StringData("x")))
	assert.False(t, StringData("x").Equals(NumberData(5)))
	assert.True(t, BooleanData(true).Equals(BooleanData(true)))

	// Nil and invalid values never compare equal, even to themselves.
	assert.False(t, NilData().Equals(NilData()))
	assert.False(t, ValueData{}.Equals(ValueData{}))
}

func TestReferenceReleaseSweepsSymbols(t *testing.T) {
	lib := NewLibrary()

	ref := lib.NewReference()
	lib.CurrentRef = ref

	global := lib.CreateVariable("doomed", true)
	entry := lib.CreateTableEntry()
	entry.Index = StringData("member")
	resolved := global.GetResolvedType()
	if resolved == nil {
		typ := lib.CreateBlankType("Table")
		global.ResolvedType = typ
		resolved = typ
	}
	resolved.Members = append(resolved.Members, entry)

	lib.CurrentRef = nil
	ref.Release()

	_, ok := lib.GlobalsByName["doomed"]
	assert.False(t, ok)
	assert.Equal(t, uint(0), global.RefCount)
	assert.Equal(t, uint(0), entry.RefCount)

	// Base types and the global table are pinned.
	assert.NotNil(t, lib.BaseType("Number"))
	assert.Greater(t, lib.GlobalTable.RefCount, uint(0))
}

func TestReleaseIsIdempotent(t *testing.T) {
	lib := NewLibrary()

	ref := lib.NewReference()
	lib.CurrentRef = ref
	variable := lib.CreateVariable("once", true)
	lib.CurrentRef = nil

	ref.Release()
	ref.Release()

	assert.Equal(t, uint(0), variable.RefCount)
}
