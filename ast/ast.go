// Package ast defines the syntax tree produced by the parser. Node variants
// mirror the grammar: statements, expressions, variables, suffix chains,
// calls, indexes and arguments. Every node records its source position and,
// after SetParents, a pointer to its parent.
package ast

import (
	"github.com/termfx/luma/lexer"
	"github.com/termfx/luma/symbols"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() lexer.Position
	ParentNode() Node
	setParent(Node)
}

// Base carries the position and parent pointer shared by all nodes.
type Base struct {
	Position lexer.Position
	Parent   Node
}

func (b *Base) Pos() lexer.Position { return b.Position }
func (b *Base) ParentNode() Node    { return b.Parent }
func (b *Base) setParent(p Node)    { b.Parent = p }

// Marker is a synthetic node with no content. Blocks carry one at their end
// so completions between statements can anchor to the enclosing scope.
type Marker struct {
	Base
}

// Block is an ordered sequence of statements. Locals holds the variables
// declared directly inside the block, attached during inference.
type Block struct {
	Base
	Statements []Node
	End        *Marker

	Locals []*symbols.Variable
}

// Assignment is one or more left-hand variables, an assignment operator and
// the right-hand expression list.
type Assignment struct {
	Base
	Operator lexer.Token
	Left     []*VariableStatement
	Right    []Node
}

// VariableStatement is a variable head (identifier or parenthesized
// expression) plus an optional suffix chain.
type VariableStatement struct {
	Base
	Variable Node // *IdentifiedVariable or *ExpressionVariable
	Suffix   *VariableSuffix

	ResolvedType *symbols.Type
	Symbol       *symbols.Variable
}

// IdentifiedVariable is a bare identifier in variable position.
type IdentifiedVariable struct {
	Base
	Name lexer.Token

	ResolvedType *symbols.Type
	Symbol       *symbols.Variable
}

// ExpressionVariable is a parenthesized expression in variable position.
type ExpressionVariable struct {
	Base
	Expression Node
	Suffix     *VariableSuffix

	ResolvedType *symbols.Type
}

// VariableSuffix is one link of a left-leaning suffix spine: zero or more
// calls followed by an optional index. LeftSuffix points at the link to the
// left; a nil Index means the suffix ends on calls.
type VariableSuffix struct {
	Base
	LeftSuffix *VariableSuffix
	Calls      []*Call
	Index      Node // *IdentifiedIndex or *ExpressionIndex, may be nil

	ResolvedType *symbols.Type
	Symbol       *symbols.Variable
}

// Call applies arguments to the value to its left. Name is set for member
// calls (obj:name(...)); an invalid Name token with Member true records a
// colon the user has typed but not completed.
type Call struct {
	Base
	Member   bool
	Name     lexer.Token
	Argument Node // *ExpressionArgument, *TableArgument or *StringArgument

	ResolvedType *symbols.Type
}

// ExpressionArgument is a parenthesized, comma-separated argument list.
type ExpressionArgument struct {
	Base
	Expressions []Node
}

// TableArgument is a table constructor used directly as a call argument.
type TableArgument struct {
	Base
	Table *Table
}

// StringArgument is a string literal used directly as a call argument.
type StringArgument struct {
	Base
	String lexer.Token
}

// IdentifiedIndex is a .name index. An invalid Name token records a dot the
// user has typed but not completed.
type IdentifiedIndex struct {
	Base
	Name lexer.Token

	Symbol *symbols.Variable
}

// ExpressionIndex is a [expr] index.
type ExpressionIndex struct {
	Base
	Expression Node

	Symbol *symbols.Variable
}

// Break is the break statement.
type Break struct {
	Base
}

// Return is the return statement with its value list.
type Return struct {
	Base
	Values []Node
}

// Value is a literal, identifier or vararg expression atom.
type Value struct {
	Base
	Token lexer.Token

	ResolvedType *symbols.Type
	Value        symbols.ValueData
}

// TableEntry is one constructor entry. A nil Index means a positional entry.
type TableEntry struct {
	Index Node // *IdentifiedIndex or *ExpressionIndex, may be nil
	Value Node // may be nil for a dangling `name =`
}

// Table is a table constructor.
type Table struct {
	Base
	Entries []TableEntry

	ResolvedType *symbols.Type
}

// FunctionExpression is an anonymous function literal.
type FunctionExpression struct {
	Base
	Function *Function

	ResolvedType *symbols.Type
}

// FunctionCall is a call statement or expression: a variable spine plus the
// trailing calls that were peeled off it.
type FunctionCall struct {
	Base
	Variable *VariableStatement
	Calls    []*Call

	ResolvedType *symbols.Type
}

// PrefixExpression is a variable-or-call used inside an expression.
type PrefixExpression struct {
	Base
	LeftVar *VariableStatement
	Calls   []*Call

	ResolvedType *symbols.Type
	Value        symbols.ValueData
}

// UnaryOperator applies - not or # to its operand.
type UnaryOperator struct {
	Base
	Operator lexer.Token
	Right    Node

	ResolvedType *symbols.Type
	Value        symbols.ValueData
}

// BinaryOperator applies an infix operator to two operands.
type BinaryOperator struct {
	Base
	Operator lexer.Token
	Left     Node
	Right    Node

	ResolvedType *symbols.Type
	Value        symbols.ValueData
}

// FunctionName is one segment of a declared function's dotted name path.
// Member marks a segment introduced by ':'.
type FunctionName struct {
	Base
	Name   lexer.Token
	Member bool
}

// Function is a function declaration or the body of a function expression.
// Name is empty for anonymous functions.
type Function struct {
	Base
	Local      bool
	Name       []*FunctionName
	Parameters []lexer.Token
	Block      *Block

	ReturnType *symbols.Type
	Variable   *symbols.Variable
}

// While is the while loop.
type While struct {
	Base
	Condition Node
	Block     *Block
}

// Repeat is the repeat/until loop.
type Repeat struct {
	Base
	Block     *Block
	Condition Node
}

// If is an if statement. Else chains elseif/else clauses; an else clause has
// a nil Condition.
type If struct {
	Base
	Condition Node
	Block     *Block
	Else      *If
}

// NumericFor is the numeric for loop.
type NumericFor struct {
	Base
	VarName lexer.Token
	Var     Node
	Limit   Node
	Step    Node
	Block   *Block
}

// GenericFor is the generic for-in loop.
type GenericFor struct {
	Base
	Names       []lexer.Token
	Expressions []Node
	Block       *Block
}

// LocalVariable is a local declaration with an optional initializer list.
type LocalVariable struct {
	Base
	Names       []lexer.Token
	Expressions []Node
}
