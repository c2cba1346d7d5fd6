// Package infer implements the flow-sensitive shape inference walk. One pass
// per document materializes and unifies variables, table entries and types
// into a shared symbols.Library, speculating predictively where the code has
// not yet been written.
package infer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/termfx/luma/ast"
	"github.com/termfx/luma/lexer"
	"github.com/termfx/luma/symbols"
)

// Resolve walks the tree, populating semantic fields on the nodes and
// growing the library. Every symbol the walk observes is recorded on ref so
// the document's contribution can be withdrawn later. A second pass sets
// parent pointers for the completion engine.
func Resolve(root ast.Node, lib *symbols.Library, ref *symbols.LibraryReference) {
	lib.CurrentRef = ref

	r := &resolver{lib: lib, validAssignment: true}
	r.walk(root)

	ast.SetParents(root)

	lib.CurrentRef = nil
}

type resolver struct {
	lib *symbols.Library

	functionStack []*ast.Function
	blockStack    []*ast.Block
	parentStack   []*symbols.Symbol

	// resolveAssignment is set while walking a left-hand side; it makes
	// suffix resolution materialize table entries for writes.
	resolveAssignment bool

	// validAssignment is cleared while walking the left side of a partial
	// assignment (no operator yet); predictive members are then only
	// materialized where completion needs them.
	validAssignment bool
}

func (r *resolver) baseType(name string) *symbols.Type {
	return r.lib.BaseType(name)
}

// findVariable resolves a name against the scope stack, then the globals.
// _G is a hard alias for the global table.
func (r *resolver) findVariable(name string) *symbols.Variable {
	if name == "_G" {
		return r.lib.GlobalTable
	}

	for i := len(r.parentStack) - 1; i >= 0; i-- {
		for _, member := range r.parentStack[i].Members {
			if member.Name == name {
				return member
			}
		}
	}

	if resolved := r.lib.GlobalTable.GetResolvedType(); resolved != nil {
		for _, member := range resolved.Members {
			if member.Name == name {
				return member
			}
		}
	}

	return nil
}

// predictCall tries to predict the outcome of calling a value of the given
// type. It reports whether the prediction succeeded and the called type.
func (r *resolver) predictCall(current *symbols.Type) (*symbols.Type, bool) {
	if current == nil {
		return nil, false
	}

	// A tuple calls its first member and discards the rest.
	if len(current.MultipleTypes) > 0 {
		return r.predictCall(current.MultipleTypes[0])
	}

	// A union keeps only callable branches: one branch wins outright,
	// several become a new possibility space.
	resolved := current.GetResolvedType()
	if resolved != nil && len(resolved.PossibleTypes) > 0 {
		var callable []*symbols.Type
		for _, branch := range resolved.PossibleTypes {
			if _, ok := r.predictCall(branch); ok {
				callable = append(callable, branch)
			}
		}

		if len(callable) == 1 {
			return callable[0], true
		}
		if len(callable) > 0 {
			union := r.lib.CreateBlankType("")
			for _, branch := range callable {
				r.lib.AddPossibleType(union, branch)
			}
			return union, true
		}
	}

	if current.ReturnType != nil {
		return current.ReturnType, true
	}

	return nil, false
}

// exprType reads the resolved type recorded on an expression node.
func exprType(n ast.Node) *symbols.Type {
	switch v := n.(type) {
	case *ast.Value:
		return v.ResolvedType
	case *ast.Table:
		return v.ResolvedType
	case *ast.FunctionExpression:
		return v.ResolvedType
	case *ast.FunctionCall:
		return v.ResolvedType
	case *ast.PrefixExpression:
		return v.ResolvedType
	case *ast.UnaryOperator:
		return v.ResolvedType
	case *ast.BinaryOperator:
		return v.ResolvedType
	}
	return nil
}

// exprValue reads the constant-folded value recorded on an expression node.
func exprValue(n ast.Node) symbols.ValueData {
	switch v := n.(type) {
	case *ast.Value:
		return v.Value
	case *ast.PrefixExpression:
		return v.Value
	case *ast.UnaryOperator:
		return v.Value
	case *ast.BinaryOperator:
		return v.Value
	}
	return symbols.ValueData{}
}

func (r *resolver) walk(n ast.Node) {
	switch v := n.(type) {
	case *ast.Function:
		r.visitFunction(v)
	case *ast.Block:
		r.visitBlock(v)
	case *ast.Assignment:
		r.visitAssignment(v)
	case *ast.VariableStatement:
		r.visitVariableStatement(v)
	case *ast.IdentifiedVariable:
		r.visitIdentifiedVariable(v)
	case *ast.ExpressionVariable:
		r.visitExpressionVariable(v)
	case *ast.VariableSuffix:
		r.visitSuffix(v)
	case *ast.Call:
		r.visitCall(v)
	case *ast.ExpressionArgument:
		for _, e := range v.Expressions {
			r.walk(e)
		}
	case *ast.TableArgument:
		r.walk(v.Table)
	case *ast.ExpressionIndex:
		r.walk(v.Expression)
	case *ast.Return:
		r.visitReturn(v)
	case *ast.Value:
		r.visitValue(v)
	case *ast.Table:
		r.visitTable(v)
	case *ast.FunctionExpression:
		r.walk(v.Function)
		v.ResolvedType = v.Function.Variable.GetResolvedType()
	case *ast.FunctionCall:
		r.visitFunctionCall(v)
	case *ast.PrefixExpression:
		r.visitPrefixExpression(v)
	case *ast.UnaryOperator:
		r.walk(v.Right)
	case *ast.BinaryOperator:
		r.visitBinaryOperator(v)
	case *ast.While:
		r.walk(v.Condition)
		r.walk(v.Block)
	case *ast.Repeat:
		r.walk(v.Block)
		r.walk(v.Condition)
	case *ast.If:
		if v.Condition != nil {
			r.walk(v.Condition)
		}
		r.walk(v.Block)
		if v.Else != nil {
			r.walk(v.Else)
		}
	case *ast.NumericFor:
		r.walk(v.Var)
		r.walk(v.Limit)
		if v.Step != nil {
			r.walk(v.Step)
		}
		r.walk(v.Block)
	case *ast.GenericFor:
		for _, e := range v.Expressions {
			r.walk(e)
		}
		r.walk(v.Block)
	case *ast.LocalVariable:
		r.visitLocalVariable(v)
	}
}

func (r *resolver) visitBlock(node *ast.Block) {
	r.blockStack = append(r.blockStack, node)
	for _, stmt := range node.Statements {
		r.walk(stmt)
	}
	r.blockStack = r.blockStack[:len(r.blockStack)-1]
}

func (r *resolver) visitAssignment(node *ast.Assignment) {
	for _, rhs := range node.Right {
		r.walk(rhs)
	}

	expressionTypes := make([]*symbols.Type, 0, len(node.Right))
	expressionData := make([]symbols.ValueData, 0, len(node.Right))
	varargs := 0

	varargType := r.baseType("VariableArgument")
	for _, rhs := range node.Right {
		t := exprType(rhs)
		if t != nil && t.GetResolvedType() == varargType {
			varargs++
		}
		expressionTypes = append(expressionTypes, t)
		expressionData = append(expressionData, exprValue(rhs))
	}

	if varargs > 0 {
		expressionTypes, expressionData = r.expandVarargs(
			expressionTypes, expressionData, varargs, len(node.Left))
	}

	r.validAssignment = node.Operator.Kind != lexer.Invalid

	for i, lhs := range node.Left {
		r.resolveAssignment = true
		r.walk(lhs)
		r.resolveAssignment = false

		if i < len(expressionTypes) {
			lhs.ResolvedType = expressionTypes[i]

			if lhs.Symbol != nil {
				lhs.Symbol.Value = expressionData[i]

				if lhs.Symbol.ResolvedType != nil && lhs.Symbol.ResolvedType.Predictive {
					// Upgrade the speculation in place so references to
					// the predictive type stay valid.
					lhs.Symbol.ResolvedType.CopyType(expressionTypes[i])
				} else {
					lhs.Symbol.ResolvedType = expressionTypes[i]
				}
			}
		} else {
			lhs.ResolvedType = r.baseType("Nil")
		}
	}

	r.validAssignment = true
}

// expandVarargs spreads each vararg expression across the unclaimed
// left-hand slots, replacing it with fresh predictive types. The per-vararg
// width uses truncated integer division.
func (r *resolver) expandVarargs(
	types []*symbols.Type, data []symbols.ValueData, varargs, variables int,
) ([]*symbols.Type, []symbols.ValueData) {
	others := len(types) - varargs
	width := (variables - others) / varargs

	varargType := r.baseType("VariableArgument")
	newTypes := make([]*symbols.Type, 0, len(types))
	newData := make([]symbols.ValueData, 0, len(data))

	for i, t := range types {
		if t != nil && t.GetResolvedType() == varargType {
			for v := 0; v < width; v++ {
				newTypes = append(newTypes, r.lib.CreatePredictiveType())
				newData = append(newData, symbols.ValueData{})
			}
		} else {
			newTypes = append(newTypes, t)
			newData = append(newData, data[i])
		}
	}

	return newTypes, newData
}

func (r *resolver) visitVariableStatement(node *ast.VariableStatement) {
	if node.Variable != nil {
		r.walk(node.Variable)
	}

	switch head := node.Variable.(type) {
	case *ast.IdentifiedVariable:
		node.ResolvedType = head.ResolvedType
		node.Symbol = head.Symbol
	case *ast.ExpressionVariable:
		node.ResolvedType = head.ResolvedType
	}

	if node.Suffix != nil {
		node.Suffix.ResolvedType = node.ResolvedType
		r.walk(node.Suffix)
		node.ResolvedType = node.Suffix.ResolvedType.GetResolvedType()
		node.Symbol = node.Suffix.Symbol
	}
}

func (r *resolver) visitIdentifiedVariable(node *ast.IdentifiedVariable) {
	if variable := r.findVariable(node.Name.Text); variable != nil {
		node.ResolvedType = variable.GetResolvedType()
		node.Symbol = variable
		return
	}

	// Unknown name in a live assignment: grow a predictive global.
	if r.validAssignment {
		variable := r.lib.CreateVariable(node.Name.Text, true)
		variable.Kind = symbols.Field
		variable.ResolvedType = r.lib.CreatePredictiveType()

		node.ResolvedType = variable.GetResolvedType()
		node.Symbol = variable
	}
}

func (r *resolver) visitExpressionVariable(node *ast.ExpressionVariable) {
	r.walk(node.Expression)
	node.ResolvedType = exprType(node.Expression)

	if node.Suffix != nil {
		node.Suffix.ResolvedType = node.ResolvedType
		r.walk(node.Suffix)
		node.ResolvedType = node.Suffix.ResolvedType.GetResolvedType()
	}
}

func (r *resolver) visitSuffix(node *ast.VariableSuffix) {
	// The left spine resolves in read mode even inside an assignment; only
	// the final index is a write.
	resolveAssignment := r.resolveAssignment
	r.resolveAssignment = false
	if node.LeftSuffix != nil {
		node.LeftSuffix.ResolvedType = node.ResolvedType
		r.walk(node.LeftSuffix)
		node.ResolvedType = node.LeftSuffix.ResolvedType
		node.Symbol = node.LeftSuffix.Symbol
	}
	r.resolveAssignment = resolveAssignment

	// Fold calls: each call rebinds the resolved symbol to its return.
	for _, call := range node.Calls {
		call.ResolvedType = node.ResolvedType
		r.walk(call)
		node.ResolvedType = call.ResolvedType
		node.Symbol = nil
	}

	if node.Index == nil {
		return
	}
	r.walk(node.Index)

	if node.ResolvedType != nil {
		if r.resolveAssignment {
			r.resolveIndexWrite(node)
			return
		}
		r.resolveIndexRead(node)
		return
	}

	// No resolved type, but a variable to the left: predict that the
	// parent is a table and hang the indexed member off it. This is what
	// lets foo.bar.baz. grow both foo and foo.bar at once.
	if node.LeftSuffix != nil && node.LeftSuffix.Symbol != nil {
		parentPrediction := r.lib.CreatePredictiveType()
		node.LeftSuffix.Symbol.ResolvedType = parentPrediction
		node.LeftSuffix.ResolvedType = parentPrediction
		node.ResolvedType = parentPrediction

		index, ok := node.Index.(*ast.IdentifiedIndex)
		if !ok || index.Name.Text == "" {
			return
		}

		entry := r.newPredictiveEntry(symbols.StringData(index.Name.Text), node.ResolvedType)
		node.Symbol = entry
		node.ResolvedType = entry.ResolvedType
		index.Symbol = entry
	}
}

// newPredictiveEntry materializes a predictive table entry under parent.
func (r *resolver) newPredictiveEntry(index symbols.ValueData, parent *symbols.Type) *symbols.Variable {
	entry := r.lib.CreateTableEntry()
	entry.Predictive = true
	entry.Index = index

	entry.Parent = &parent.Symbol
	parent.Members = append(parent.Members, entry)

	entry.ResolvedType = r.lib.CreatePredictiveType()
	return entry
}

// resolveIndexWrite handles the final index of a left-hand side: table
// entries are created or rebound before the assignment lands.
func (r *resolver) resolveIndexWrite(node *ast.VariableSuffix) {
	// Predictive types count as tables here: entries written before the
	// table itself is assigned survive the later CopyType upgrade, so both
	// assignment orders converge on the same shape.
	if node.ResolvedType.Name != "Table" && !node.ResolvedType.Predictive {
		return
	}

	var newIndex symbols.ValueData
	var identified *ast.IdentifiedIndex
	var expression *ast.ExpressionIndex

	switch index := node.Index.(type) {
	case *ast.IdentifiedIndex:
		identified = index
		newIndex = symbols.StringData(index.Name.Text)
		if index.Name.Text == "" {
			// An index the user has not typed yet produces no symbol.
			return
		}
	case *ast.ExpressionIndex:
		expression = index
		newIndex = exprValue(index.Expression)
	}

	// Reuse an entry with the same key when one exists.
	var existing *symbols.Variable
	for _, member := range node.ResolvedType.Members {
		if member.TableEntry && member.Index.Equals(newIndex) {
			existing = member
			break
		}
	}

	if existing != nil {
		if existing.Predictive {
			if expression != nil {
				existing.IndexExpression = true
				expression.Symbol = existing
			} else {
				identified.Symbol = existing
			}
			existing.Index = newIndex
		}

		node.Symbol = existing
		node.ResolvedType = existing.GetResolvedType()
		return
	}

	entry := r.lib.CreateTableEntry()
	if expression != nil {
		entry.IndexExpression = true
		expression.Symbol = entry
	} else {
		identified.Symbol = entry
	}
	entry.Index = newIndex

	entry.Parent = &node.ResolvedType.Symbol
	node.ResolvedType.Members = append(node.ResolvedType.Members, entry)
	node.Symbol = entry
}

// resolveIndexRead looks an index up among the table's entries; in live
// assignment context a miss materializes a predictive entry so completion
// has something to offer.
func (r *resolver) resolveIndexRead(node *ast.VariableSuffix) {
	switch index := node.Index.(type) {
	case *ast.IdentifiedIndex:
		for _, member := range node.ResolvedType.Members {
			if member.Kind == symbols.TableValue && member.TableEntry &&
				member.Index.EqualsString(index.Name.Text) {
				node.ResolvedType = member.GetResolvedType()
				node.Symbol = member
				return
			}
		}

		if r.validAssignment {
			if index.Name.Text != "" {
				entry := r.newPredictiveEntry(symbols.StringData(index.Name.Text), node.ResolvedType)
				node.Symbol = entry
				node.ResolvedType = entry.ResolvedType
				index.Symbol = entry
				return
			}

			node.ResolvedType = nil
		}

	case *ast.ExpressionIndex:
		value := exprValue(index.Expression)
		for _, member := range node.ResolvedType.Members {
			if member.Kind == symbols.TableValue && member.TableEntry &&
				member.Index.Equals(value) {
				node.ResolvedType = member.GetResolvedType()
				node.Symbol = member
				return
			}
		}

		node.ResolvedType = nil
	}
}

func (r *resolver) visitCall(node *ast.Call) {
	if node.ResolvedType == nil {
		return
	}

	if node.Member {
		// obj:name(...) first resolves the named member, then calls it.
		found := false
		for _, member := range node.ResolvedType.Members {
			if member.TableEntry && member.Index.EqualsString(node.Name.Text) {
				node.ResolvedType = member.GetResolvedType()
				found = true
				break
			}
		}
		if !found {
			return
		}
		if node.ResolvedType == nil {
			return
		}
	}

	if node.Argument != nil {
		r.walk(node.Argument)
	}

	resType := node.ResolvedType.GetResolvedType()

	if resType != nil && resType.ReturnType != nil {
		resType = resType.ReturnType.GetResolvedType()
	} else if resType != nil {
		predicted, ok := r.predictCall(resType.GetResolvedType())
		if !ok {
			resType = nil
		} else if len(predicted.PossibleTypes) > 0 {
			union := r.lib.CreateBlankType("")
			for _, branch := range predicted.PossibleTypes {
				r.lib.AddPossibleType(union, branch.ReturnType.GetResolvedType())
			}
			resType = union
		} else if len(predicted.MultipleTypes) > 0 {
			resType = predicted.MultipleTypes[0].ReturnType.GetResolvedType()
		} else {
			resType = predicted.ReturnType.GetResolvedType()
		}
	}

	node.ResolvedType = resType.GetResolvedType()
}

func (r *resolver) visitReturn(node *ast.Return) {
	var returnTypes []*symbols.Type
	for _, value := range node.Values {
		r.walk(value)
		returnTypes = append(returnTypes, exprType(value))
	}

	if len(r.functionStack) == 0 {
		return
	}

	returnType := r.lib.CreateMultipleType(returnTypes)
	r.lib.AddPossibleType(r.functionStack[len(r.functionStack)-1].ReturnType, returnType)
}

func (r *resolver) visitValue(node *ast.Value) {
	switch node.Token.Kind {
	case lexer.IntegerLiteral:
		node.ResolvedType = r.baseType("Number")
		node.Value = symbols.NumberData(parseInteger(node.Token.Text))

	case lexer.FloatLiteral:
		node.ResolvedType = r.baseType("Number")
		parsed, _ := strconv.ParseFloat(node.Token.Text, 64)
		node.Value = symbols.NumberData(parsed)

	case lexer.StringLiteral:
		node.ResolvedType = r.baseType("String")
		node.Value = symbols.StringData(stripQuotes(node.Token.Text))

	case lexer.KeywordTrue, lexer.KeywordFalse:
		node.ResolvedType = r.baseType("Boolean")
		node.Value = symbols.BooleanData(node.Token.Kind == lexer.KeywordTrue)

	case lexer.KeywordNil:
		node.ResolvedType = r.baseType("Nil")
		node.Value = symbols.NilData()

	case lexer.Identifier:
		if variable := r.findVariable(node.Token.Text); variable != nil {
			node.ResolvedType = variable.GetResolvedType()
			node.Value = symbols.ReferenceData(variable)
		}

	case lexer.VariableDot:
		node.ResolvedType = r.baseType("VariableArgument")
		node.Value = symbols.ValueData{Kind: symbols.VariableArgumentValue}
	}
}

// parseInteger handles both decimal and 0x-prefixed hexadecimal literals.
func parseInteger(text string) float64 {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		parsed, _ := strconv.ParseUint(text[2:], 16, 64)
		return float64(parsed)
	}
	parsed, _ := strconv.ParseUint(text, 10, 64)
	return float64(parsed)
}

// stripQuotes removes quoting marks or long-bracket delimiters from a string
// literal's text.
func stripQuotes(text string) string {
	if text == "" {
		return text
	}

	if text[0] == '"' || text[0] == '\'' {
		if len(text) >= 2 {
			return text[1 : len(text)-1]
		}
		return text[1:]
	}

	if text[0] == '[' {
		open := 1
		for open < len(text) && text[open] == '=' {
			open++
		}
		if open < len(text) && text[open] == '[' {
			open++
		}

		close := len(text)
		if close > open {
			end := close - 1
			if end >= 0 && text[end] == ']' {
				end--
				for end >= 0 && text[end] == '=' {
					end--
				}
				if end >= 0 && text[end] == ']' {
					close = end
				}
			}
		}
		if close >= open {
			return text[open:close]
		}
	}

	return text
}

func (r *resolver) visitTable(node *ast.Table) {
	for _, entry := range node.Entries {
		if entry.Index != nil {
			r.walk(entry.Index)
		}
	}
	for _, entry := range node.Entries {
		if entry.Value != nil {
			r.walk(entry.Value)
		}
	}

	tableType := r.lib.CreateBlankType("Table")

	arrayIndex := 1
	for _, entry := range node.Entries {
		// An entry with no value contributes nothing.
		if entry.Value == nil {
			continue
		}

		member := r.lib.CreateTableEntry()

		switch index := entry.Index.(type) {
		case nil:
			member.Index = symbols.NumberData(float64(arrayIndex))
			arrayIndex++
		case *ast.IdentifiedIndex:
			member.Index = symbols.StringData(index.Name.Text)
		case *ast.ExpressionIndex:
			member.Index = exprValue(index.Expression)
		}

		member.ResolvedType = exprType(entry.Value).GetResolvedType()
		member.Value = exprValue(entry.Value)
		member.Parent = &tableType.Symbol
		tableType.Members = append(tableType.Members, member)
	}

	node.ResolvedType = tableType
}

func (r *resolver) visitFunctionCall(node *ast.FunctionCall) {
	r.walk(node.Variable)
	node.ResolvedType = node.Variable.ResolvedType.GetResolvedType()

	for _, call := range node.Calls {
		call.ResolvedType = node.ResolvedType
		r.walk(call)
		node.ResolvedType = call.ResolvedType.GetResolvedType()
	}
}

func (r *resolver) visitPrefixExpression(node *ast.PrefixExpression) {
	r.walk(node.LeftVar)

	if node.LeftVar.Symbol != nil {
		node.Value = node.LeftVar.Symbol.Value
	}

	if node.LeftVar.ResolvedType != nil {
		node.ResolvedType = node.LeftVar.ResolvedType.GetResolvedType()

		for _, call := range node.Calls {
			call.ResolvedType = node.ResolvedType
			r.walk(call)
			node.ResolvedType = call.ResolvedType.GetResolvedType()
		}
	}
}

func (r *resolver) visitBinaryOperator(node *ast.BinaryOperator) {
	r.walk(node.Left)
	r.walk(node.Right)

	numberType := r.baseType("Number")
	stringType := r.baseType("String")
	booleanType := r.baseType("Boolean")

	leftType := exprType(node.Left)
	rightType := exprType(node.Right)
	leftValue := exprValue(node.Left)
	rightValue := exprValue(node.Right)

	switch node.Operator.Kind {
	case lexer.Plus, lexer.Minus, lexer.Multiply, lexer.Divide, lexer.Modulo, lexer.Exponent:
		if leftType == numberType && rightType == numberType {
			node.ResolvedType = numberType

			// Fold when both sides are constants.
			if leftValue.Kind == symbols.NumberValue && rightValue.Kind == symbols.NumberValue {
				node.Value = symbols.NumberData(foldArithmetic(
					node.Operator.Kind, leftValue.Number, rightValue.Number))
			}
		}
		// Non-numeric operands would go through metamethods; the type
		// stays unresolved.

	case lexer.Concat:
		leftStringy := leftType == numberType || leftType == stringType
		rightStringy := rightType == numberType || rightType == stringType
		if leftStringy && rightStringy {
			node.ResolvedType = stringType
		}

	case lexer.EqualsTo, lexer.NotEqualsTo:
		node.ResolvedType = booleanType

	case lexer.LessThan, lexer.GreaterThan, lexer.LessThanOrEqualTo, lexer.GreaterThanOrEqualTo:
		if (leftType == numberType && rightType == numberType) ||
			(leftType == stringType && rightType == stringType) {
			node.ResolvedType = booleanType
		}

	case lexer.KeywordAnd, lexer.KeywordOr:
		if leftType == booleanType && rightType == booleanType {
			node.ResolvedType = booleanType
		}
	}
}

func foldArithmetic(op lexer.Kind, left, right float64) float64 {
	switch op {
	case lexer.Plus:
		return left + right
	case lexer.Minus:
		return left - right
	case lexer.Multiply:
		return left * right
	case lexer.Divide:
		return left / right
	case lexer.Modulo:
		return math.Mod(left, right)
	case lexer.Exponent:
		return math.Pow(left, right)
	}
	return 0
}

func (r *resolver) visitFunction(node *ast.Function) {
	if len(r.parentStack) == 0 {
		// The synthetic top-level function.
		node.Variable = r.lib.CreateVariable("GlobalChunk", false)
	} else {
		r.declareFunction(node)
	}

	r.parentStack = append(r.parentStack, &node.Variable.Symbol)

	// Parameters become locals with predictive types.
	for _, param := range node.Parameters {
		variable := r.lib.CreateVariable(param.Text, false)
		variable.IsParameter = true
		variable.ResolvedType = r.lib.CreatePredictiveType()

		parent := r.parentStack[len(r.parentStack)-1]
		parent.Members = append(parent.Members, variable)
		variable.Parent = parent
		node.Block.Locals = append(node.Block.Locals, variable)
	}

	node.ReturnType = r.lib.CreateBlankType("")
	node.ReturnType.ResolvedType = r.baseType("Nil")

	r.functionStack = append(r.functionStack, node)
	r.walk(node.Block)
	r.functionStack = r.functionStack[:len(r.functionStack)-1]

	r.parentStack = r.parentStack[:len(r.parentStack)-1]

	node.Variable.ResolvedType = r.lib.CreateFunctionType(node.ReturnType)
}

// declareFunction resolves the dotted/colon name path of a declared
// function, predicting missing segments, and creates the function's symbol.
func (r *resolver) declareFunction(node *ast.Function) {
	var functionName string
	isMember := false
	var functionVar *symbols.Variable

	for i := 0; i < len(node.Name); i++ {
		segment := node.Name[i]
		functionName = segment.Name.Text
		isMember = segment.Member

		if i >= len(node.Name)-1 {
			break
		}

		if i == 0 {
			functionVar = r.findVariable(functionName)

			if functionVar == nil && functionName != "" {
				variable := r.lib.CreateVariable(functionName, !node.Local)
				variable.Kind = symbols.Field
				variable.ResolvedType = r.lib.CreatePredictiveType()
				functionVar = variable
			}
			continue
		}

		if functionVar == nil {
			continue
		}

		previous := functionVar
		functionVar = nil

		resolved := previous.GetResolvedType()
		if resolved != nil {
			for _, member := range resolved.Members {
				if member.Kind == symbols.TableValue && member.TableEntry &&
					member.Index.EqualsString(functionName) {
					functionVar = member
				}
			}
		}

		if functionVar == nil && functionName != "" && resolved != nil {
			functionVar = r.newPredictiveEntry(symbols.StringData(functionName), resolved)
		}
	}

	if functionVar != nil {
		// The terminal segment lands on the owning table's type.
		entry := r.lib.CreateTableEntry()
		entry.Index = symbols.StringData(functionName)
		entry.ValueKind = symbols.Function

		node.Variable = entry
		if resolved := functionVar.GetResolvedType(); resolved != nil {
			resolved.Members = append(resolved.Members, entry)
		}

		if isMember {
			entry.ValueKind = symbols.Method

			self := r.lib.CreateVariable("self", false)
			self.ResolvedType = functionVar.GetResolvedType()
			entry.Members = append(entry.Members, self)
			node.Block.Locals = append(node.Block.Locals, self)
		}
		return
	}

	anonymous := functionName == ""
	if anonymous {
		functionName = fmt.Sprintf("Un-named function #%d", r.lib.NextFunctionID())
	}

	variable := r.lib.CreateVariable(functionName, !anonymous && !node.Local)
	variable.Kind = symbols.Function
	node.Variable = variable

	if node.Local && !anonymous {
		parent := r.parentStack[len(r.parentStack)-1]
		parent.Members = append(parent.Members, variable)
		variable.Parent = parent
	}
}

func (r *resolver) visitLocalVariable(node *ast.LocalVariable) {
	var expressionTypes []*symbols.Type
	var expressionData []symbols.ValueData
	varargs := 0

	varargType := r.baseType("VariableArgument")
	for _, expr := range node.Expressions {
		r.walk(expr)

		t := exprType(expr)
		if t != nil && len(t.MultipleTypes) > 0 {
			// A tuple spreads into separate slots.
			for _, member := range t.MultipleTypes {
				if member != nil && member.GetResolvedType() == varargType {
					varargs++
				}
				expressionTypes = append(expressionTypes, member)
				expressionData = append(expressionData, symbols.ValueData{})
			}
			continue
		}

		if t != nil && t.GetResolvedType() == varargType {
			varargs++
		}
		expressionTypes = append(expressionTypes, t)
		expressionData = append(expressionData, exprValue(expr))
	}

	if varargs > 0 {
		expressionTypes, expressionData = r.expandVarargs(
			expressionTypes, expressionData, varargs, len(node.Names))
	}

	for i, name := range node.Names {
		variable := r.lib.CreateVariable(name.Text, false)
		variable.Kind = symbols.Field

		if i < len(expressionTypes) {
			variable.ResolvedType = expressionTypes[i]
			variable.Value = expressionData[i]
		} else {
			variable.ResolvedType = r.baseType("Nil")
		}

		parent := r.parentStack[len(r.parentStack)-1]
		parent.Members = append(parent.Members, variable)
		variable.Parent = parent

		if len(r.blockStack) > 0 {
			block := r.blockStack[len(r.blockStack)-1]
			block.Locals = append(block.Locals, variable)
		}
	}
}
