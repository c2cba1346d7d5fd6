package ast

// Children returns the direct child nodes of n in source order. Nil children
// are omitted.
func Children(n Node) []Node {
	var out []Node
	add := func(children ...Node) {
		for _, c := range children {
			switch v := c.(type) {
			case nil:
				continue
			case *VariableSuffix:
				if v == nil {
					continue
				}
			case *Call:
				if v == nil {
					continue
				}
			case *Block:
				if v == nil {
					continue
				}
			case *If:
				if v == nil {
					continue
				}
			case *Marker:
				if v == nil {
					continue
				}
			}
			out = append(out, c)
		}
	}

	switch v := n.(type) {
	case *Block:
		for _, s := range v.Statements {
			add(s)
		}
		if v.End != nil {
			add(v.End)
		}
	case *Assignment:
		for _, l := range v.Left {
			add(l)
		}
		for _, r := range v.Right {
			add(r)
		}
	case *VariableStatement:
		add(v.Variable)
		if v.Suffix != nil {
			add(v.Suffix)
		}
	case *ExpressionVariable:
		add(v.Expression)
		if v.Suffix != nil {
			add(v.Suffix)
		}
	case *VariableSuffix:
		if v.LeftSuffix != nil {
			add(v.LeftSuffix)
		}
		for _, c := range v.Calls {
			add(c)
		}
		add(v.Index)
	case *Call:
		add(v.Argument)
	case *ExpressionArgument:
		for _, e := range v.Expressions {
			add(e)
		}
	case *TableArgument:
		add(v.Table)
	case *ExpressionIndex:
		add(v.Expression)
	case *Return:
		for _, e := range v.Values {
			add(e)
		}
	case *Table:
		for _, entry := range v.Entries {
			add(entry.Index)
			add(entry.Value)
		}
	case *FunctionExpression:
		add(v.Function)
	case *FunctionCall:
		add(v.Variable)
		for _, c := range v.Calls {
			add(c)
		}
	case *PrefixExpression:
		add(v.LeftVar)
		for _, c := range v.Calls {
			add(c)
		}
	case *UnaryOperator:
		add(v.Right)
	case *BinaryOperator:
		add(v.Left, v.Right)
	case *Function:
		for _, name := range v.Name {
			add(name)
		}
		add(v.Block)
	case *While:
		add(v.Condition, v.Block)
	case *Repeat:
		add(v.Block, v.Condition)
	case *If:
		add(v.Condition)
		add(v.Block)
		if v.Else != nil {
			add(v.Else)
		}
	case *NumericFor:
		add(v.Var, v.Limit, v.Step, v.Block)
	case *GenericFor:
		for _, e := range v.Expressions {
			add(e)
		}
		add(v.Block)
	case *LocalVariable:
		for _, e := range v.Expressions {
			add(e)
		}
	}

	return out
}

// Walk visits n and its descendants in source order. The callback returns
// false to skip a node's children.
func Walk(n Node, visit func(Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, visit)
	}
}

// SetParents populates parent pointers across the tree. Block end markers
// are short-circuited to the block's parent so that cursor positions between
// statements resolve to the enclosing scope rather than the block itself.
func SetParents(root Node) {
	var walk func(n Node)
	walk = func(n Node) {
		for _, child := range Children(n) {
			child.setParent(n)
			walk(child)
		}
	}
	walk(root)

	Walk(root, func(n Node) bool {
		if block, ok := n.(*Block); ok && block.End != nil {
			block.End.setParent(block.Parent)
		}
		return true
	})
}
