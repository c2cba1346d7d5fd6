package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/luma/ast"
	"github.com/termfx/luma/lexer"
)

func parse(t *testing.T, src string) (*ast.Function, []ParseError) {
	t.Helper()
	tokens := lexer.StripTrivia(lexer.Tokenize(lexer.NewLuaDfa(), []byte(src)))
	return Parse(tokens, false)
}

func mustParse(t *testing.T, src string) *ast.Function {
	t.Helper()
	root, errs := parse(t, src)
	require.Empty(t, errs, "unexpected parse errors for %q", src)
	require.NotNil(t, root)
	return root
}

func TestStatementCallAmbiguity(t *testing.T) {
	t.Run("call statement", func(t *testing.T) {
		root := mustParse(t, "a.b.c(x)(y)")
		require.Len(t, root.Block.Statements, 1)

		call, ok := root.Block.Statements[0].(*ast.FunctionCall)
		require.True(t, ok, "expected FunctionCall, got %T", root.Block.Statements[0])

		// The trailing calls moved off the suffix spine.
		assert.Len(t, call.Calls, 2)
		require.NotNil(t, call.Variable.Suffix)
		assert.Empty(t, call.Variable.Suffix.Calls)
	})

	t.Run("assignment statement", func(t *testing.T) {
		root := mustParse(t, "a.b.c(x)(y).d = 1")
		require.Len(t, root.Block.Statements, 1)

		assignment, ok := root.Block.Statements[0].(*ast.Assignment)
		require.True(t, ok, "expected Assignment, got %T", root.Block.Statements[0])
		require.Len(t, assignment.Left, 1)
		require.Len(t, assignment.Right, 1)

		suffix := assignment.Left[0].Suffix
		require.NotNil(t, suffix)

		index, ok := suffix.Index.(*ast.IdentifiedIndex)
		require.True(t, ok)
		assert.Equal(t, "d", index.Name.Text)
		assert.Len(t, suffix.Calls, 2)
	})
}

func TestTrailingDotTolerance(t *testing.T) {
	root, errs := parse(t, "GameObject.")

	// Partial input: the assignment operator is missing.
	assert.NotEmpty(t, errs)
	require.Len(t, root.Block.Statements, 1)

	assignment, ok := root.Block.Statements[0].(*ast.Assignment)
	require.True(t, ok)
	assert.Equal(t, lexer.Invalid, assignment.Operator.Kind)

	suffix := assignment.Left[0].Suffix
	require.NotNil(t, suffix)

	index, ok := suffix.Index.(*ast.IdentifiedIndex)
	require.True(t, ok)
	assert.Equal(t, "", index.Name.Text)
}

func TestTrailingColonTolerance(t *testing.T) {
	root, errs := parse(t, "obj:")
	assert.NotEmpty(t, errs)
	require.Len(t, root.Block.Statements, 1)

	call, ok := root.Block.Statements[0].(*ast.FunctionCall)
	require.True(t, ok)
	require.Len(t, call.Calls, 1)
	assert.True(t, call.Calls[0].Member)
	assert.Equal(t, "", call.Calls[0].Name.Text)
}

func TestMultiAssignment(t *testing.T) {
	root := mustParse(t, "a, b = 1, 2")

	assignment := root.Block.Statements[0].(*ast.Assignment)
	assert.Len(t, assignment.Left, 2)
	assert.Len(t, assignment.Right, 2)
	assert.Equal(t, lexer.Assignment, assignment.Operator.Kind)
}

func TestCompoundAssignmentOperators(t *testing.T) {
	for _, tt := range []struct {
		src  string
		kind lexer.Kind
	}{
		{"x += 1", lexer.AssignmentPlus},
		{"x -= 1", lexer.AssignmentMinus},
		{"x *= 2", lexer.AssignmentMultiply},
		{"x /= 2", lexer.AssignmentDivide},
	} {
		root := mustParse(t, tt.src)
		assignment := root.Block.Statements[0].(*ast.Assignment)
		assert.Equal(t, tt.kind, assignment.Operator.Kind, tt.src)
	}
}

func TestFunctionDeclarations(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		root := mustParse(t, "function f() end")
		fn := root.Block.Statements[0].(*ast.Function)
		require.Len(t, fn.Name, 1)
		assert.Equal(t, "f", fn.Name[0].Name.Text)
		assert.False(t, fn.Local)
	})

	t.Run("dotted path with method", func(t *testing.T) {
		root := mustParse(t, "function a.b.c:d() end")
		fn := root.Block.Statements[0].(*ast.Function)
		require.Len(t, fn.Name, 4)
		assert.False(t, fn.Name[2].Member)
		assert.True(t, fn.Name[3].Member)
		assert.Equal(t, "d", fn.Name[3].Name.Text)
	})

	t.Run("local function", func(t *testing.T) {
		root := mustParse(t, "local function f() end")
		fn := root.Block.Statements[0].(*ast.Function)
		assert.True(t, fn.Local)
	})

	t.Run("parameters and vararg", func(t *testing.T) {
		root := mustParse(t, "function f(a, b, ...) end")
		fn := root.Block.Statements[0].(*ast.Function)
		require.Len(t, fn.Parameters, 3)
		assert.Equal(t, "a", fn.Parameters[0].Text)
		assert.Equal(t, lexer.VariableDot, fn.Parameters[2].Kind)
	})
}

func TestTableConstructor(t *testing.T) {
	root := mustParse(t, `t = {1, a = 2, [3] = 4}`)

	assignment := root.Block.Statements[0].(*ast.Assignment)
	table := assignment.Right[0].(*ast.Table)
	require.Len(t, table.Entries, 3)

	assert.Nil(t, table.Entries[0].Index)
	require.NotNil(t, table.Entries[0].Value)

	named, ok := table.Entries[1].Index.(*ast.IdentifiedIndex)
	require.True(t, ok)
	assert.Equal(t, "a", named.Name.Text)

	_, ok = table.Entries[2].Index.(*ast.ExpressionIndex)
	assert.True(t, ok)
}

func TestControlFlow(t *testing.T) {
	root := mustParse(t, `
if x then
	a = 1
elseif y then
	b = 2
else
	c = 3
end
while x do d = 4 end
repeat e = 5 until x
for i = 1, 10 do f = 6 end
for k, v in pairs(t) do g = 7 end
do h = 8 end
`)

	statements := root.Block.Statements
	require.Len(t, statements, 6)

	ifStmt := statements[0].(*ast.If)
	require.NotNil(t, ifStmt.Else)
	require.NotNil(t, ifStmt.Else.Else)
	assert.Nil(t, ifStmt.Else.Else.Condition)

	_ = statements[1].(*ast.While)
	_ = statements[2].(*ast.Repeat)
	_ = statements[3].(*ast.NumericFor)
	_ = statements[4].(*ast.GenericFor)
	_ = statements[5].(*ast.Block)
}

func TestIfEndMarkerPropagation(t *testing.T) {
	root := mustParse(t, "if x then a = 1 elseif y then b = 2 end")

	ifStmt := root.Block.Statements[0].(*ast.If)
	require.NotNil(t, ifStmt.Else)

	// The first clause's end marker anchors at the elseif clause; the leaf
	// clause gets the real end.
	assert.Equal(t, ifStmt.Else.Position, ifStmt.Block.End.Position)
	assert.NotEqual(t, ifStmt.Block.End.Position, ifStmt.Else.Block.End.Position)
}

func TestExpressionPrecedence(t *testing.T) {
	root := mustParse(t, "x = 1 + 2 * 3")

	assignment := root.Block.Statements[0].(*ast.Assignment)
	top, ok := assignment.Right[0].(*ast.BinaryOperator)
	require.True(t, ok)
	assert.Equal(t, lexer.Plus, top.Operator.Kind)

	right, ok := top.Right.(*ast.BinaryOperator)
	require.True(t, ok)
	assert.Equal(t, lexer.Multiply, right.Operator.Kind)
}

func TestUnaryStacking(t *testing.T) {
	root := mustParse(t, "x = not not #t")

	assignment := root.Block.Statements[0].(*ast.Assignment)
	outer, ok := assignment.Right[0].(*ast.UnaryOperator)
	require.True(t, ok)
	assert.Equal(t, lexer.KeywordNot, outer.Operator.Kind)

	middle, ok := outer.Right.(*ast.UnaryOperator)
	require.True(t, ok)
	assert.Equal(t, lexer.KeywordNot, middle.Operator.Kind)

	inner, ok := middle.Right.(*ast.UnaryOperator)
	require.True(t, ok)
	assert.Equal(t, lexer.Length, inner.Operator.Kind)
}

func TestReturnAndBreak(t *testing.T) {
	root := mustParse(t, "function f() return 1, 2 end")
	fn := root.Block.Statements[0].(*ast.Function)

	ret := fn.Block.Statements[0].(*ast.Return)
	assert.Len(t, ret.Values, 2)

	root = mustParse(t, "while x do break end")
	loop := root.Block.Statements[0].(*ast.While)
	_ = loop.Block.Statements[0].(*ast.Break)
}

func TestThrowingModeStopsEarly(t *testing.T) {
	tokens := lexer.StripTrivia(lexer.Tokenize(lexer.NewLuaDfa(), []byte("if x then")))

	_, errs := Parse(tokens, true)
	require.Len(t, errs, 1)
}

func TestCollectingModeAccumulates(t *testing.T) {
	_, errs := parse(t, "if x then\nfor\n")
	assert.GreaterOrEqual(t, len(errs), 2)
}

func TestLeftoverTokensReported(t *testing.T) {
	_, errs := parse(t, "x = 1 end")
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[len(errs)-1].Message, "Syntax error")
}

func TestParenthesizedCallHead(t *testing.T) {
	root := mustParse(t, "(f)(1)")

	call, ok := root.Block.Statements[0].(*ast.FunctionCall)
	require.True(t, ok)
	assert.Len(t, call.Calls, 1)

	_, ok = call.Variable.Variable.(*ast.ExpressionVariable)
	assert.True(t, ok)
}

func TestStringAndTableArguments(t *testing.T) {
	root := mustParse(t, `f "text"`)
	call := root.Block.Statements[0].(*ast.FunctionCall)
	require.Len(t, call.Calls, 1)
	_, ok := call.Calls[0].Argument.(*ast.StringArgument)
	assert.True(t, ok)

	root = mustParse(t, "f {a = 1}")
	call = root.Block.Statements[0].(*ast.FunctionCall)
	require.Len(t, call.Calls, 1)
	_, ok = call.Calls[0].Argument.(*ast.TableArgument)
	assert.True(t, ok)
}
