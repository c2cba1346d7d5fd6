// Package parser turns a filtered token stream into a syntax tree. The
// parser is error-tolerant: in collecting mode it records every problem and
// keeps going, so partial editor input still yields a usable tree.
package parser

import (
	"fmt"

	"github.com/termfx/luma/ast"
	"github.com/termfx/luma/lexer"
)

// ParseError is a single syntax problem with its source position.
type ParseError struct {
	Position lexer.Position
	Message  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Position.Line, e.Position.Col, e.Message)
}

// bailout aborts the parse in throwing mode.
type bailout struct{}

// Parse consumes a token stream (whitespace and comments already stripped)
// and returns the root of the tree plus collected errors. The root is a
// synthetic top-level function whose block is the chunk. With throwOnError
// set, parsing stops at the first error.
func Parse(tokens []lexer.Token, throwOnError bool) (root *ast.Function, errs []ParseError) {
	p := &parser{tokens: tokens, throwOnError: throwOnError}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			errs = p.errors
		}
	}()

	root = p.start()
	return root, p.errors
}

type parser struct {
	tokens       []lexer.Token
	pos          int
	throwOnError bool
	errors       []ParseError
}

// currentPosition is the position of the most recently consumed token.
func (p *parser) currentPosition() lexer.Position {
	if p.pos == 0 || p.pos-1 >= len(p.tokens) {
		return lexer.Position{}
	}
	return p.tokens[p.pos-1].Position
}

func (p *parser) accept(kind lexer.Kind) (lexer.Token, bool) {
	if p.pos >= len(p.tokens) {
		return lexer.Token{}, false
	}
	if p.tokens[p.pos].Kind == kind {
		tok := p.tokens[p.pos]
		p.pos++
		return tok, true
	}
	return lexer.Token{}, false
}

func (p *parser) fail(message string) {
	var pos lexer.Position
	if p.pos < len(p.tokens) {
		pos = p.tokens[p.pos].Position
	} else if len(p.tokens) > 0 {
		pos = p.tokens[len(p.tokens)-1].Position
	}

	p.errors = append(p.errors, ParseError{Position: pos, Message: message})
	if p.throwOnError {
		panic(bailout{})
	}
}

func (p *parser) expect(kind lexer.Kind) (lexer.Token, bool) {
	if tok, ok := p.accept(kind); ok {
		return tok, true
	}

	if p.pos >= len(p.tokens) {
		p.fail("End of token stream!")
	} else {
		p.fail(fmt.Sprintf("Expected %s, found %s.", kind, p.tokens[p.pos].Kind))
	}
	return lexer.Token{}, false
}

// start parses the whole stream as a chunk wrapped in a synthetic top-level
// function.
func (p *parser) start() *ast.Function {
	main := &ast.Function{}
	main.Position = p.currentPosition()

	main.Block = p.chunk()

	if p.pos != len(p.tokens) {
		p.fail(fmt.Sprintf("Syntax error near '%s'", p.tokens[p.pos].Text))
	}

	// The top-level chunk has no end marker; the document end is the scope.
	main.Block.End = nil

	return main
}

func (p *parser) chunk() *ast.Block {
	block := &ast.Block{}
	block.Position = p.currentPosition()
	block.Position.Col++

	for {
		stmt := p.statement()
		if stmt == nil {
			break
		}
		p.accept(lexer.Semicolon)
		block.Statements = append(block.Statements, stmt)
	}

	if last := p.lastStatement(); last != nil {
		p.accept(lexer.Semicolon)
		block.Statements = append(block.Statements, last)
	}

	block.End = &ast.Marker{}
	block.End.Position = p.currentPosition()

	return block
}

func (p *parser) statement() ast.Node {
	// An identifier or parenthesized head is ambiguous between assignment
	// and call statement; consume the variable spine first and decide by
	// whether its trailing suffix carries an index.
	if variable := p.variableStatement(); variable != nil {
		if suffixEndsOnCalls(variable) {
			call := &ast.FunctionCall{}
			call.Position = p.currentPosition()

			call.Calls = variable.Suffix.Calls
			variable.Suffix.Calls = nil
			call.Variable = variable

			return call
		}

		assignment := &ast.Assignment{}
		assignment.Left = append(assignment.Left, variable)
		if p.assignment(assignment) {
			assignment.Position = p.currentPosition()
		}
		return assignment
	}

	if _, ok := p.accept(lexer.KeywordDo); ok {
		block := p.chunk()
		p.expect(lexer.KeywordEnd)
		block.End.Position = p.currentPosition()
		return block
	}

	if _, ok := p.accept(lexer.KeywordWhile); ok {
		stmt := &ast.While{}
		stmt.Position = p.currentPosition()
		stmt.Condition = p.requireExpression()

		p.expect(lexer.KeywordDo)
		stmt.Block = p.chunk()
		p.expect(lexer.KeywordEnd)
		stmt.Block.End.Position = p.currentPosition()

		return stmt
	}

	if _, ok := p.accept(lexer.KeywordRepeat); ok {
		stmt := &ast.Repeat{}
		stmt.Position = p.currentPosition()
		stmt.Block = p.chunk()

		p.expect(lexer.KeywordUntil)
		stmt.Condition = p.requireExpression()
		stmt.Block.End.Position = p.currentPosition()

		return stmt
	}

	if _, ok := p.accept(lexer.KeywordIf); ok {
		stmt := &ast.If{}
		stmt.Position = p.currentPosition()
		stmt.Condition = p.requireExpression()

		p.expect(lexer.KeywordThen)
		stmt.Block = p.chunk()
		stmt.Else = p.elseClause()

		p.expect(lexer.KeywordEnd)
		if stmt.Else == nil {
			stmt.Block.End.Position = p.currentPosition()
		} else {
			// Each sub-block's end marker points at the start of the next
			// clause; the final clause gets the real `end`.
			stmt.Block.End.Position = stmt.Else.Position

			leaf := stmt
			for leaf.Else != nil {
				leaf = leaf.Else
			}
			leaf.Block.End.Position = p.currentPosition()
		}

		return stmt
	}

	if _, ok := p.accept(lexer.KeywordFor); ok {
		return p.forStatement()
	}

	if _, ok := p.accept(lexer.KeywordFunction); ok {
		fn := &ast.Function{}
		fn.Position = p.currentPosition()

		name := &ast.FunctionName{}
		name.Name, _ = p.expect(lexer.Identifier)
		name.Position = p.currentPosition()
		fn.Name = append(fn.Name, name)

		for {
			if _, ok := p.accept(lexer.Dot); ok {
				segment := &ast.FunctionName{}
				segment.Name, _ = p.expect(lexer.Identifier)
				segment.Position = p.currentPosition()
				fn.Name = append(fn.Name, segment)
				continue
			}

			if _, ok := p.accept(lexer.Colon); ok {
				segment := &ast.FunctionName{Member: true}
				segment.Name, _ = p.expect(lexer.Identifier)
				segment.Position = p.currentPosition()
				fn.Name = append(fn.Name, segment)
			}

			break
		}

		p.functionBody(fn)
		return fn
	}

	if _, ok := p.accept(lexer.KeywordLocal); ok {
		if _, ok := p.accept(lexer.KeywordFunction); ok {
			fn := &ast.Function{Local: true}
			fn.Position = p.currentPosition()

			name := &ast.FunctionName{}
			name.Name, _ = p.expect(lexer.Identifier)
			name.Position = p.currentPosition()
			fn.Name = append(fn.Name, name)

			p.functionBody(fn)
			return fn
		}

		local := &ast.LocalVariable{}
		local.Position = p.currentPosition()
		p.identifierList(&local.Names)

		if _, ok := p.accept(lexer.Assignment); ok {
			p.expressionList(&local.Expressions)
		}

		return local
	}

	return nil
}

func (p *parser) forStatement() ast.Node {
	var names []lexer.Token
	p.identifierList(&names)

	if _, ok := p.accept(lexer.Assignment); ok {
		stmt := &ast.NumericFor{}
		stmt.Position = p.currentPosition()
		if len(names) > 0 {
			stmt.VarName = names[0]
		}
		stmt.Var = p.requireExpression()
		p.expect(lexer.Comma)
		stmt.Limit = p.requireExpression()

		if _, ok := p.accept(lexer.Comma); ok {
			stmt.Step = p.requireExpression()
		}

		p.expect(lexer.KeywordDo)
		stmt.Block = p.chunk()
		p.expect(lexer.KeywordEnd)
		stmt.Block.End.Position = p.currentPosition()

		return stmt
	}

	if _, ok := p.accept(lexer.KeywordIn); ok {
		stmt := &ast.GenericFor{}
		stmt.Position = p.currentPosition()
		stmt.Names = names

		p.expressionList(&stmt.Expressions)

		p.expect(lexer.KeywordDo)
		stmt.Block = p.chunk()
		p.expect(lexer.KeywordEnd)
		stmt.Block.End.Position = p.currentPosition()

		return stmt
	}

	found := lexer.Invalid
	if p.pos < len(p.tokens) {
		found = p.tokens[p.pos].Kind
	}
	p.fail(fmt.Sprintf("Expected = or in, found %s.", found))
	return nil
}

func (p *parser) lastStatement() ast.Node {
	if _, ok := p.accept(lexer.KeywordBreak); ok {
		stmt := &ast.Break{}
		stmt.Position = p.currentPosition()
		return stmt
	}

	if _, ok := p.accept(lexer.KeywordReturn); ok {
		stmt := &ast.Return{}
		stmt.Position = p.currentPosition()
		p.expressionList(&stmt.Values)
		return stmt
	}

	return nil
}

// assignment parses the rest of an assignment after its first LHS variable.
// It returns false when no assignment operator follows; the node is still
// usable (the invalid operator marks partial input for inference).
func (p *parser) assignment(node *ast.Assignment) bool {
	for {
		if _, ok := p.accept(lexer.Comma); ok {
			if variable := p.variableStatement(); variable != nil {
				node.Left = append(node.Left, variable)
				continue
			}
		}
		break
	}

	operator, ok := p.accept(lexer.Assignment)
	if !ok {
		operator, ok = p.accept(lexer.AssignmentPlus)
	}
	if !ok {
		operator, ok = p.accept(lexer.AssignmentMinus)
	}
	if !ok {
		operator, ok = p.accept(lexer.AssignmentMultiply)
	}
	if !ok {
		operator, ok = p.accept(lexer.AssignmentDivide)
	}
	if !ok {
		found := lexer.Invalid
		if p.pos < len(p.tokens) {
			found = p.tokens[p.pos].Kind
		}
		p.fail(fmt.Sprintf("Expected =, +=, -=, *=, or /=, found %s.", found))
		return false
	}
	node.Operator = operator

	p.expressionList(&node.Right)
	return true
}

// suffixEndsOnCalls reports whether the variable's trailing suffix ends on
// calls with no index, which makes the statement a function call.
func suffixEndsOnCalls(variable *ast.VariableStatement) bool {
	return variable.Suffix != nil && variable.Suffix.Index == nil
}

func (p *parser) variableStatement() *ast.VariableStatement {
	variable := &ast.VariableStatement{}
	variable.Position = p.currentPosition()

	if name, ok := p.accept(lexer.Identifier); ok {
		head := &ast.IdentifiedVariable{Name: name}
		head.Position = p.currentPosition()
		variable.Variable = head
	} else if _, ok := p.accept(lexer.OpenParentheses); ok {
		head := &ast.ExpressionVariable{}
		head.Position = p.currentPosition()

		head.Expression = p.requireExpression()
		p.expect(lexer.CloseParentheses)

		head.Suffix = p.variableSuffix()

		// A call-only suffix belongs to the statement, so the rewrite into
		// a function call can see it.
		if head.Suffix != nil && head.Suffix.Index == nil {
			variable.Suffix = head.Suffix
			head.Suffix = nil
			variable.Variable = head
			return variable
		}

		variable.Variable = head
	} else {
		return nil
	}

	var current *ast.VariableSuffix
	for {
		next := p.variableSuffix()
		if next == nil {
			break
		}
		next.LeftSuffix = current
		current = next
	}
	variable.Suffix = current

	return variable
}

func (p *parser) variableSuffix() *ast.VariableSuffix {
	suffix := &ast.VariableSuffix{}
	suffix.Position = p.currentPosition()

	for {
		call := p.call()
		if call == nil {
			break
		}
		suffix.Calls = append(suffix.Calls, call)
	}

	if _, ok := p.accept(lexer.OpenSquare); ok {
		index := &ast.ExpressionIndex{}
		index.Position = p.currentPosition()

		index.Expression = p.requireExpression()
		p.expect(lexer.CloseSquare)

		suffix.Index = index
		return suffix
	}

	if _, ok := p.accept(lexer.Dot); ok {
		index := &ast.IdentifiedIndex{}
		index.Position = p.currentPosition()

		// A missing identifier still yields the index node; the completion
		// engine anchors on a freshly typed dot.
		index.Name, _ = p.accept(lexer.Identifier)

		suffix.Index = index
		return suffix
	}

	if len(suffix.Calls) > 0 {
		return suffix
	}
	return nil
}

func (p *parser) call() *ast.Call {
	if _, ok := p.accept(lexer.Colon); ok {
		call := &ast.Call{Member: true}
		call.Position = p.currentPosition()

		name, valid := p.expect(lexer.Identifier)
		call.Name = name

		// An incomplete member call is kept for completion.
		if !valid {
			return call
		}

		call.Argument = p.arguments()
		if call.Argument == nil {
			return nil
		}
		return call
	}

	call := &ast.Call{}
	call.Position = p.currentPosition()

	call.Argument = p.arguments()
	if call.Argument == nil {
		return nil
	}
	return call
}

func (p *parser) arguments() ast.Node {
	if _, ok := p.accept(lexer.OpenParentheses); ok {
		arg := &ast.ExpressionArgument{}
		arg.Position = p.currentPosition()

		p.expressionList(&arg.Expressions)
		p.expect(lexer.CloseParentheses)

		return arg
	}

	if str, ok := p.accept(lexer.StringLiteral); ok {
		arg := &ast.StringArgument{String: str}
		arg.Position = p.currentPosition()
		return arg
	}

	table := p.table()
	if table == nil {
		return nil
	}
	arg := &ast.TableArgument{Table: table}
	arg.Position = p.currentPosition()
	return arg
}

func (p *parser) table() *ast.Table {
	if _, ok := p.accept(lexer.OpenCurley); ok {
		table := &ast.Table{}
		table.Position = p.currentPosition()

		p.fieldList(table)
		p.expect(lexer.CloseCurley)

		return table
	}
	return nil
}

func (p *parser) fieldList(table *ast.Table) {
	index, value, ok := p.field()
	if !ok {
		return
	}
	table.Entries = append(table.Entries, ast.TableEntry{Index: index, Value: value})

	for {
		if _, ok := p.accept(lexer.Comma); !ok {
			if _, ok := p.accept(lexer.Semicolon); !ok {
				break
			}
		}

		index, value, ok = p.field()
		if !ok {
			return
		}
		table.Entries = append(table.Entries, ast.TableEntry{Index: index, Value: value})
	}

	// Optional trailing separator.
	if _, ok := p.accept(lexer.Comma); !ok {
		p.accept(lexer.Semicolon)
	}
}

func (p *parser) field() (index, value ast.Node, ok bool) {
	if _, found := p.accept(lexer.OpenSquare); found {
		expr := &ast.ExpressionIndex{}
		expr.Position = p.currentPosition()

		expr.Expression = p.requireExpression()
		p.expect(lexer.CloseSquare)
		p.expect(lexer.Assignment)

		return expr, p.requireExpression(), true
	}

	if name, found := p.accept(lexer.Identifier); found {
		ident := &ast.IdentifiedIndex{Name: name}
		ident.Position = p.currentPosition()

		if _, found := p.accept(lexer.Assignment); found {
			value = p.requireExpression()
		}

		return ident, value, true
	}

	expr := p.expression()
	if expr == nil {
		return nil, nil, false
	}
	return nil, expr, true
}

func (p *parser) expressionList(out *[]ast.Node) bool {
	expr := p.expression()
	if expr == nil {
		return false
	}
	*out = append(*out, expr)

	if _, ok := p.accept(lexer.Comma); ok {
		for {
			expr = p.requireExpression()
			if expr != nil {
				*out = append(*out, expr)
			}

			if _, ok := p.accept(lexer.Comma); !ok {
				break
			}
		}
	}

	return true
}

func (p *parser) identifierList(out *[]lexer.Token) bool {
	name, ok := p.accept(lexer.Identifier)
	if !ok {
		return false
	}
	*out = append(*out, name)

	if _, ok := p.accept(lexer.Comma); ok {
		for {
			name, _ = p.expect(lexer.Identifier)
			if name.Valid() {
				*out = append(*out, name)
			}

			if _, ok := p.accept(lexer.Comma); !ok {
				break
			}
		}
	}

	return true
}

// requireExpression parses an expression and records an error when none is
// present.
func (p *parser) requireExpression() ast.Node {
	expr := p.expression()
	if expr == nil {
		p.fail("Expected an expression.")
	}
	return expr
}

// expression parses at the lowest precedence level. The ladder below runs
// or, and, relational, concat, additive, multiplicative, unary, exponent,
// atom.
func (p *parser) expression() ast.Node {
	return p.expressionOr()
}

func (p *parser) binaryLadder(next func() ast.Node, kinds ...lexer.Kind) ast.Node {
	expr := next()
	if expr == nil {
		return nil
	}

	for {
		matched := false
		for _, kind := range kinds {
			if operator, ok := p.accept(kind); ok {
				node := &ast.BinaryOperator{}
				node.Position = p.currentPosition()
				node.Operator = operator
				node.Left = expr
				node.Right = next()
				if node.Right == nil {
					p.fail("Expected an expression.")
				}
				expr = node
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}

	return expr
}

func (p *parser) expressionOr() ast.Node {
	return p.binaryLadder(p.expressionAnd, lexer.KeywordOr)
}

func (p *parser) expressionAnd() ast.Node {
	return p.binaryLadder(p.expressionRelational, lexer.KeywordAnd)
}

func (p *parser) expressionRelational() ast.Node {
	return p.binaryLadder(p.expressionConcat,
		lexer.LessThan, lexer.GreaterThan,
		lexer.LessThanOrEqualTo, lexer.GreaterThanOrEqualTo,
		lexer.EqualsTo, lexer.NotEqualsTo)
}

func (p *parser) expressionConcat() ast.Node {
	return p.binaryLadder(p.expressionAdditive, lexer.Concat)
}

func (p *parser) expressionAdditive() ast.Node {
	return p.binaryLadder(p.expressionMultiplicative, lexer.Plus, lexer.Minus)
}

func (p *parser) expressionMultiplicative() ast.Node {
	return p.binaryLadder(p.expressionUnary, lexer.Multiply, lexer.Divide, lexer.Modulo)
}

// expressionUnary handles arbitrary stacking of - not and #.
func (p *parser) expressionUnary() ast.Node {
	var first, innermost *ast.UnaryOperator

	for {
		operator, ok := p.accept(lexer.Minus)
		if !ok {
			operator, ok = p.accept(lexer.KeywordNot)
		}
		if !ok {
			operator, ok = p.accept(lexer.Length)
		}
		if !ok {
			break
		}

		node := &ast.UnaryOperator{Operator: operator}
		node.Position = p.currentPosition()

		if innermost != nil {
			innermost.Right = node
		} else {
			first = node
		}
		innermost = node
	}

	expr := p.expressionExponent()

	if innermost != nil {
		innermost.Right = expr
		return first
	}
	return expr
}

func (p *parser) expressionExponent() ast.Node {
	return p.binaryLadder(p.atom, lexer.Exponent)
}

func (p *parser) atom() ast.Node {
	if value := p.value(); value != nil {
		return value
	}
	if fn := p.functionExpression(); fn != nil {
		return fn
	}
	if prefix := p.prefixExpression(); prefix != nil {
		return prefix
	}
	if table := p.table(); table != nil {
		return table
	}
	return nil
}

func (p *parser) value() ast.Node {
	for _, kind := range []lexer.Kind{
		lexer.KeywordNil, lexer.KeywordFalse, lexer.KeywordTrue,
		lexer.IntegerLiteral, lexer.FloatLiteral, lexer.StringLiteral,
		lexer.VariableDot,
	} {
		if tok, ok := p.accept(kind); ok {
			node := &ast.Value{Token: tok}
			node.Position = p.currentPosition()
			return node
		}
	}
	return nil
}

func (p *parser) functionExpression() *ast.FunctionExpression {
	node := &ast.FunctionExpression{}
	node.Position = p.currentPosition()

	if _, ok := p.accept(lexer.KeywordFunction); !ok {
		return nil
	}

	node.Function = &ast.Function{}
	p.functionBody(node.Function)

	return node
}

func (p *parser) functionBody(fn *ast.Function) {
	fn.Position = p.currentPosition()

	p.expect(lexer.OpenParentheses)
	p.parameterList(fn)
	p.expect(lexer.CloseParentheses)

	fn.Block = p.chunk()

	p.expect(lexer.KeywordEnd)
	fn.Block.End.Position = p.currentPosition()
}

func (p *parser) parameterList(fn *ast.Function) {
	if name, ok := p.accept(lexer.Identifier); ok {
		fn.Parameters = append(fn.Parameters, name)

		for {
			if _, ok := p.accept(lexer.Comma); ok {
				if name, ok := p.accept(lexer.Identifier); ok {
					fn.Parameters = append(fn.Parameters, name)
					continue
				}

				// A vararg must end the list.
				if vararg, ok := p.accept(lexer.VariableDot); ok {
					fn.Parameters = append(fn.Parameters, vararg)
				}
			}
			break
		}
		return
	}

	if vararg, ok := p.accept(lexer.VariableDot); ok {
		fn.Parameters = append(fn.Parameters, vararg)
	}
}

func (p *parser) prefixExpression() *ast.PrefixExpression {
	node := &ast.PrefixExpression{}
	node.Position = p.currentPosition()

	node.LeftVar = p.variableStatement()
	if node.LeftVar == nil {
		return nil
	}

	if suffixEndsOnCalls(node.LeftVar) {
		node.Calls = node.LeftVar.Suffix.Calls
		node.LeftVar.Suffix.Calls = nil
	}

	for {
		call := p.call()
		if call == nil {
			break
		}
		node.Calls = append(node.Calls, call)
	}

	return node
}

func (p *parser) elseClause() *ast.If {
	if _, ok := p.accept(lexer.KeywordElseif); ok {
		clause := &ast.If{}
		clause.Position = p.currentPosition()

		clause.Condition = p.requireExpression()
		p.expect(lexer.KeywordThen)
		clause.Block = p.chunk()
		clause.Else = p.elseClause()

		if clause.Else != nil {
			clause.Block.End.Position = clause.Else.Position
		}

		return clause
	}

	if _, ok := p.accept(lexer.KeywordElse); ok {
		clause := &ast.If{}
		clause.Position = p.currentPosition()
		clause.Block = p.chunk()
		return clause
	}

	return nil
}
