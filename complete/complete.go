// Package complete produces ranked completion candidates for a cursor
// position: members after '.' and ':', locals, globals and keywords
// everywhere else.
package complete

import (
	"github.com/termfx/luma/ast"
	"github.com/termfx/luma/lexer"
	"github.com/termfx/luma/symbols"
)

// ItemKind carries the LSP-compatible completion item kind codes.
type ItemKind int

const (
	Text        ItemKind = 1
	Method      ItemKind = 2
	Function    ItemKind = 3
	Constructor ItemKind = 4
	Field       ItemKind = 5
	Variable    ItemKind = 6
	Class       ItemKind = 7
	Interface   ItemKind = 8
	Module      ItemKind = 9
	Property    ItemKind = 10
	Unit        ItemKind = 11
	Value       ItemKind = 12
	Enum        ItemKind = 13
	Keyword     ItemKind = 14
	Snippet     ItemKind = 15
	Color       ItemKind = 16
	File        ItemKind = 17
	Reference   ItemKind = 18
)

// Item is a single completion candidate.
type Item struct {
	Label string   `json:"label"`
	Kind  ItemKind `json:"kind"`
}

// At produces the ordered completion candidates for a cursor position.
// tokens is the unfiltered token stream; it is used to detect whether the
// cursor sits on a ':' so the result can be restricted to methods.
func At(root ast.Node, tokens []lexer.Token, lib *symbols.Library, line, col int) []Item {
	if root == nil || lib == nil {
		return nil
	}

	cursor := lexer.Position{Line: line, Col: col}

	tokenKind := lexer.Invalid
	for _, tok := range tokens {
		if tok.Position == cursor {
			tokenKind = tok.Kind
		}
	}

	found := locate(root, cursor)
	if found == nil {
		return nil
	}

	g := &generator{lib: lib, tokenKind: tokenKind}
	g.visit(found)
	return g.items
}

// locate walks the tree retaining the last node whose position is at or
// before the cursor.
func locate(root ast.Node, cursor lexer.Position) ast.Node {
	var found ast.Node

	ast.Walk(root, func(n ast.Node) bool {
		if found == nil {
			found = n
		}

		pos := n.Pos()
		foundPos := found.Pos()
		if pos == cursor || (pos.Before(cursor) && (foundPos == pos || foundPos.Before(pos))) {
			found = n
		}

		return true
	})

	return found
}

type generator struct {
	lib       *symbols.Library
	tokenKind lexer.Kind
	items     []Item
}

func (g *generator) add(item Item) {
	for _, existing := range g.items {
		if existing.Label == item.Label {
			return
		}
	}

	// After a ':' only methods apply.
	if g.tokenKind == lexer.Colon && item.Kind != Method {
		return
	}

	g.items = append(g.items, item)
}

// entryKind maps a variable onto its completion item kind.
func entryKind(v *symbols.Variable) ItemKind {
	if v == nil {
		return Text
	}

	if t := v.GetResolvedType(); t != nil && (t.Name == "Table" || t.Name == "Predictive") {
		return Module
	}

	kind := v.ValueKind
	if kind == symbols.Default {
		kind = v.Kind
	}

	switch kind {
	case symbols.Method:
		return Method
	case symbols.Field:
		return Field
	case symbols.TableValue:
		return Field
	case symbols.Function:
		return Function
	}
	return Text
}

// addMembers emits every named member of the symbol's resolved type.
func (g *generator) addMembers(resolved *symbols.Type) {
	if resolved == nil {
		return
	}

	for _, member := range resolved.Members {
		if member.TableEntry {
			if member.Index.Kind == symbols.StringValue && member.Index.String != "" {
				g.add(Item{Label: member.Index.String, Kind: entryKind(member)})
			}
			continue
		}

		if member.Name != "" {
			g.add(Item{Label: member.Name, Kind: entryKind(member)})
		}
	}
}

// findVariable resolves a name against the block scopes enclosing node, then
// the global table.
func (g *generator) findVariable(node ast.Node, name string) *symbols.Variable {
	var blocks []*ast.Block
	for current := node; current != nil; current = current.ParentNode() {
		if block, ok := current.(*ast.Block); ok {
			blocks = append(blocks, block)
		}
	}

	for i := len(blocks) - 1; i >= 0; i-- {
		for _, local := range blocks[i].Locals {
			if local.Name == name {
				return local
			}
		}
	}

	if resolved := g.lib.GlobalTable.GetResolvedType(); resolved != nil {
		for _, member := range resolved.Members {
			if member.Name == name {
				return member
			}
		}
	}

	return nil
}

func indexSymbol(index ast.Node) *symbols.Variable {
	switch v := index.(type) {
	case *ast.IdentifiedIndex:
		return v.Symbol
	case *ast.ExpressionIndex:
		return v.Symbol
	}
	return nil
}

func (g *generator) visit(node ast.Node) {
	switch v := node.(type) {
	case *ast.FunctionName:
		g.visitFunctionName(v)
	case *ast.Call:
		if v.Member {
			g.visitMemberCall(v)
			return
		}
		g.visitDefault(node)
	case *ast.IdentifiedIndex:
		g.visitIndex(v)
	case *ast.VariableSuffix:
		if v.Index != nil {
			g.visit(v.Index)
			return
		}
		g.visitDefault(node)
	default:
		g.visitDefault(node)
	}
}

// visitFunctionName completes inside a declared function's name path: the
// segments left of the cursor resolve table members step by step, and the
// resolved tail's members are offered.
func (g *generator) visitFunctionName(node *ast.FunctionName) {
	fn, ok := node.ParentNode().(*ast.Function)
	if !ok {
		return
	}

	position := 0
	for i, segment := range fn.Name {
		position = i
		if segment == node {
			break
		}
	}
	if position >= len(fn.Name) {
		position = len(fn.Name) - 1
	}

	var functionVar *symbols.Variable
	for i := 0; i <= position; i++ {
		segment := fn.Name[i]
		name := segment.Name.Text

		if i >= len(fn.Name)-1 {
			break
		}

		if i == 0 {
			functionVar = g.findVariable(node, name)
			continue
		}

		if functionVar == nil {
			continue
		}

		previous := functionVar
		functionVar = nil

		if resolved := previous.GetResolvedType(); resolved != nil {
			for _, member := range resolved.Members {
				if member.Kind == symbols.TableValue && member.TableEntry &&
					member.Index.EqualsString(name) {
					functionVar = member
				}
			}
		}
	}

	if functionVar != nil {
		g.addMembers(functionVar.GetResolvedType())
	}
}

// visitMemberCall completes after ':'.
func (g *generator) visitMemberCall(node *ast.Call) {
	call, ok := node.ParentNode().(*ast.FunctionCall)
	if !ok {
		return
	}

	switch {
	case call.Variable.Symbol != nil:
		g.addMembers(call.Variable.Symbol.GetResolvedType())
	case call.Variable.ResolvedType != nil:
		g.addMembers(call.Variable.ResolvedType.GetResolvedType())
	default:
		g.visitDefault(node)
	}
}

// visitIndex completes after '.': members of whatever the left suffix
// resolved to, falling back to a call's return type for foo().bar. chains.
func (g *generator) visitIndex(node *ast.IdentifiedIndex) {
	suffix, ok := node.ParentNode().(*ast.VariableSuffix)
	if !ok {
		return
	}

	if suffix.LeftSuffix != nil && suffix.LeftSuffix.Index != nil {
		if sym := indexSymbol(suffix.LeftSuffix.Index); sym != nil {
			g.addMembers(sym.GetResolvedType())
			return
		}
		if suffix.Symbol != nil {
			g.addMembers(suffix.Symbol.GetResolvedType())
			return
		}
		g.addMembers(suffix.ResolvedType.GetResolvedType())
		return
	}

	if resolved := suffix.ResolvedType.GetResolvedType(); resolved != nil && resolved.ReturnType != nil {
		g.addMembers(resolved.ReturnType.GetResolvedType())
		return
	}

	if statement, ok := suffix.ParentNode().(*ast.VariableStatement); ok {
		if head, ok := statement.Variable.(*ast.IdentifiedVariable); ok {
			// Re-resolve by name: the library may have moved on since this
			// document's inference pass recorded its symbol.
			if fresh := g.findVariable(head, head.Name.Text); fresh != nil {
				g.addMembers(fresh.GetResolvedType())
				return
			}
			g.addMembers(head.Symbol.GetResolvedType())
		}
	}
}

// visitDefault emits every visible local, every global, the global table's
// members and the language keywords.
func (g *generator) visitDefault(node ast.Node) {
	for current := node; current != nil; current = current.ParentNode() {
		if block, ok := current.(*ast.Block); ok {
			for _, local := range block.Locals {
				g.add(Item{Label: local.Name, Kind: entryKind(local)})
			}
		}
	}

	for _, global := range g.lib.Globals {
		g.add(Item{Label: global.Name, Kind: entryKind(global)})
	}

	g.addMembers(g.lib.GlobalTable.GetResolvedType())

	for _, keyword := range lexer.Keywords() {
		g.add(Item{Label: keyword, Kind: Keyword})
	}
}
