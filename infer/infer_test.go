package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/luma/ast"
	"github.com/termfx/luma/lexer"
	"github.com/termfx/luma/parser"
	"github.com/termfx/luma/symbols"
)

// resolveSource lexes, parses and infers one document into lib.
func resolveSource(t *testing.T, lib *symbols.Library, src string) (*ast.Function, *symbols.LibraryReference) {
	t.Helper()

	tokens := lexer.StripTrivia(lexer.Tokenize(lexer.NewLuaDfa(), []byte(src)))
	root, _ := parser.Parse(tokens, false)
	require.NotNil(t, root)

	ref := lib.NewReference()
	Resolve(root, lib, ref)
	return root, ref
}

func globalVariable(t *testing.T, lib *symbols.Library, name string) *symbols.Variable {
	t.Helper()
	v, ok := lib.GlobalsByName[name]
	require.True(t, ok, "global %q not found", name)
	return v
}

func memberByIndex(resolved *symbols.Type, name string) *symbols.Variable {
	if resolved == nil {
		return nil
	}
	for _, member := range resolved.Members {
		if member.TableEntry && member.Index.EqualsString(name) {
			return member
		}
	}
	return nil
}

func TestGlobalAssignmentCreatesShape(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, "GameObject = {}")

	g := globalVariable(t, lib, "GameObject")
	resolved := g.GetResolvedType()
	require.NotNil(t, resolved)
	assert.Equal(t, "Table", resolved.Name)
}

func TestNestedTableGrowth(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, `
GameObject = {}
GameObject.position = {}
GameObject.position.x = 5
GameObject.position.y = 10
`)

	g := globalVariable(t, lib, "GameObject")
	position := memberByIndex(g.GetResolvedType(), "position")
	require.NotNil(t, position)
	assert.Equal(t, "Table", position.GetResolvedType().Name)

	x := memberByIndex(position.GetResolvedType(), "x")
	require.NotNil(t, x)
	assert.Equal(t, "Number", x.GetResolvedType().Name)
	assert.True(t, x.Value.Equals(symbols.NumberData(5)))
}

func TestAssignmentOrderConverges(t *testing.T) {
	// Write-then-shape and shape-then-write must land on the same result.
	forward := symbols.NewLibrary()
	resolveSource(t, forward, "foo = {}\nfoo.x = 1")

	backward := symbols.NewLibrary()
	resolveSource(t, backward, "foo.x = 1\nfoo = {}")

	for name, lib := range map[string]*symbols.Library{"forward": forward, "backward": backward} {
		g := globalVariable(t, lib, "foo")
		x := memberByIndex(g.GetResolvedType(), "x")
		require.NotNil(t, x, "%s: member x missing", name)
	}
}

func TestMethodDeclaration(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, `
GameObject = {}
function GameObject:load() self.new_var = 15 end
`)

	g := globalVariable(t, lib, "GameObject")
	resolved := g.GetResolvedType()

	load := memberByIndex(resolved, "load")
	require.NotNil(t, load)
	assert.Equal(t, symbols.Method, load.ValueKind)

	// self resolved to the owning table, so the body's write landed there.
	newVar := memberByIndex(resolved, "new_var")
	require.NotNil(t, newVar)
	assert.Equal(t, "Number", newVar.GetResolvedType().Name)
}

func TestFunctionDeclarationOnTable(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, `
GameObject = {}
function GameObject.third() end
`)

	g := globalVariable(t, lib, "GameObject")
	third := memberByIndex(g.GetResolvedType(), "third")
	require.NotNil(t, third)
	assert.Equal(t, symbols.Function, third.ValueKind)
}

func TestDeepFunctionNamePrediction(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, "function love.graphics.draw() end")

	love := globalVariable(t, lib, "love")
	graphics := memberByIndex(love.GetResolvedType(), "graphics")
	require.NotNil(t, graphics)
	assert.True(t, graphics.Predictive)

	draw := memberByIndex(graphics.GetResolvedType(), "draw")
	require.NotNil(t, draw)
	assert.Equal(t, symbols.Function, draw.ValueKind)
}

func TestLocalVariables(t *testing.T) {
	lib := symbols.NewLibrary()
	root, _ := resolveSource(t, lib, `local a, b = 1, "s"`)

	locals := root.Block.Locals
	require.Len(t, locals, 2)

	assert.Equal(t, "a", locals[0].Name)
	assert.Equal(t, "Number", locals[0].GetResolvedType().Name)
	assert.Equal(t, "b", locals[1].Name)
	assert.Equal(t, "String", locals[1].GetResolvedType().Name)

	// Locals do not leak into the globals.
	_, ok := lib.GlobalsByName["a"]
	assert.False(t, ok)
}

func TestLocalWithoutInitializerIsNil(t *testing.T) {
	lib := symbols.NewLibrary()
	root, _ := resolveSource(t, lib, "local a, b = 1")

	locals := root.Block.Locals
	require.Len(t, locals, 2)
	assert.Equal(t, "Nil", locals[1].GetResolvedType().Name)
}

func TestVarargExpansion(t *testing.T) {
	lib := symbols.NewLibrary()
	root, _ := resolveSource(t, lib, "function f(...) local x, y = ... end")

	fn := root.Block.Statements[0].(*ast.Function)
	locals := fn.Block.Locals
	// The vararg parameter plus the two expanded locals.
	require.Len(t, locals, 3)

	varargType := lib.BaseType("VariableArgument")
	for _, name := range []string{"x", "y"} {
		var found *symbols.Variable
		for _, local := range locals {
			if local.Name == name {
				found = local
			}
		}
		require.NotNil(t, found, "local %q missing", name)

		resolved := found.GetResolvedType()
		require.NotNil(t, resolved)
		assert.True(t, resolved.Predictive, "local %q should be predictive", name)
		assert.NotEqual(t, varargType, resolved)
	}
}

func TestTableConstructorIndexes(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, `t = {10, a = "s", 20, [5] = true}`)

	g := globalVariable(t, lib, "t")
	resolved := g.GetResolvedType()
	require.NotNil(t, resolved)
	require.Len(t, resolved.Members, 4)

	// Positional entries take successive integer keys; explicit entries do
	// not advance the counter.
	assert.True(t, resolved.Members[0].Index.Equals(symbols.NumberData(1)))
	assert.True(t, resolved.Members[1].Index.EqualsString("a"))
	assert.True(t, resolved.Members[2].Index.Equals(symbols.NumberData(2)))
	assert.True(t, resolved.Members[3].Index.Equals(symbols.NumberData(5)))
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		src      string
		expected float64
	}{
		{"x = 1 + 2", 3},
		{"x = 10 - 4", 6},
		{"x = 3 * 5", 15},
		{"x = 8 / 2", 4},
		{"x = 7 % 3", 1},
		{"x = 2 ^ 10", 1024},
	}

	for _, tt := range tests {
		lib := symbols.NewLibrary()
		resolveSource(t, lib, tt.src)

		g := globalVariable(t, lib, "x")
		assert.True(t, g.Value.Equals(symbols.NumberData(tt.expected)), tt.src)
	}
}

func TestLiteralParsing(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, `a = 0x10
b = 2.5
c = "hi"
d = [[long]]
e = true
`)

	assert.True(t, globalVariable(t, lib, "a").Value.Equals(symbols.NumberData(16)))
	assert.True(t, globalVariable(t, lib, "b").Value.Equals(symbols.NumberData(2.5)))
	assert.True(t, globalVariable(t, lib, "c").Value.EqualsString("hi"))
	assert.True(t, globalVariable(t, lib, "d").Value.EqualsString("long"))
	assert.True(t, globalVariable(t, lib, "e").Value.Equals(symbols.BooleanData(true)))
}

func TestFunctionReturnTypePrediction(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, `
function make() return {} end
obj = make()
obj.field = 1
`)

	obj := globalVariable(t, lib, "obj")
	field := memberByIndex(obj.GetResolvedType(), "field")
	require.NotNil(t, field)
	assert.Equal(t, "Number", field.GetResolvedType().Name)
}

func TestReturnUnion(t *testing.T) {
	lib := symbols.NewLibrary()
	root, _ := resolveSource(t, lib, `
function f()
	if x then
		return 1
	end
	return "s"
end
`)

	fn := root.Block.Statements[0].(*ast.Function)
	require.NotNil(t, fn.ReturnType)
	assert.Len(t, fn.ReturnType.PossibleTypes, 2)
	assert.Contains(t, fn.ReturnType.Name, "PossibleType(")
	assert.Contains(t, fn.ReturnType.Name, " OR ")
}

func TestReadBeforeWritePrediction(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, "foo = {}\nbar = foo.missing")

	foo := globalVariable(t, lib, "foo")
	missing := memberByIndex(foo.GetResolvedType(), "missing")
	require.NotNil(t, missing)
	assert.True(t, missing.Predictive)
}

func TestEmptyIndexNameCreatesNoSymbol(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, "foo = {}\nfoo.")

	foo := globalVariable(t, lib, "foo")
	assert.Empty(t, foo.GetResolvedType().Members)
}

func TestConcatTyping(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, `x = "a" .. 1`)

	g := globalVariable(t, lib, "x")
	assert.Equal(t, "String", g.GetResolvedType().Name)
}

func TestComparisonTyping(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, "x = 1 < 2")

	g := globalVariable(t, lib, "x")
	assert.Equal(t, "Boolean", g.GetResolvedType().Name)
}

func TestGlobalAliasUnderscore(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, "_G.Registry = 1")

	// Writes through _G land on the global table's shape.
	entry := memberByIndex(lib.GlobalTable.GetResolvedType(), "Registry")
	require.NotNil(t, entry)
	assert.Equal(t, "Number", entry.GetResolvedType().Name)
}

func TestReferenceRelease(t *testing.T) {
	lib := symbols.NewLibrary()
	_, refA := resolveSource(t, lib, "Alpha = {}\nAlpha.one = 1")
	_, refB := resolveSource(t, lib, "Beta = {}")

	require.Contains(t, lib.GlobalsByName, "Alpha")
	require.Contains(t, lib.GlobalsByName, "Beta")

	refA.Release()

	_, ok := lib.GlobalsByName["Alpha"]
	assert.False(t, ok, "Alpha should be swept after its reference dropped")
	assert.Contains(t, lib.GlobalsByName, "Beta")

	refB.Release()
	_, ok = lib.GlobalsByName["Beta"]
	assert.False(t, ok)
}

func TestResolvedTypeChainsCompress(t *testing.T) {
	lib := symbols.NewLibrary()
	resolveSource(t, lib, "a = {}\nb = a")

	for _, name := range []string{"a", "b"} {
		g := globalVariable(t, lib, name)
		resolved := g.GetResolvedType()
		require.NotNil(t, resolved, name)
		assert.Equal(t, resolved, resolved.GetResolvedType(), name)
	}
}

func TestParentPointersPopulated(t *testing.T) {
	lib := symbols.NewLibrary()
	root, _ := resolveSource(t, lib, "function f() local x = 1 end")

	count := 0
	ast.Walk(root, func(n ast.Node) bool {
		if n != ast.Node(root) && n.ParentNode() != nil {
			count++
		}
		return true
	})
	assert.Greater(t, count, 3)
}
