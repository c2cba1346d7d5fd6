package lexer

var symbolKinds = map[string]Kind{
	"=":   Assignment,
	"+=":  AssignmentPlus,
	"-=":  AssignmentMinus,
	"*=":  AssignmentMultiply,
	"/=":  AssignmentDivide,
	"==":  EqualsTo,
	"~=":  NotEqualsTo,
	"<":   LessThan,
	"<=":  LessThanOrEqualTo,
	">":   GreaterThan,
	">=":  GreaterThanOrEqualTo,
	"+":   Plus,
	"-":   Minus,
	"*":   Multiply,
	"/":   Divide,
	"%":   Modulo,
	"^":   Exponent,
	"#":   Length,
	"..":  Concat,
	".":   Dot,
	"...": VariableDot,
	":":   Colon,
	",":   Comma,
	";":   Semicolon,
	"(":   OpenParentheses,
	")":   CloseParentheses,
	"[":   OpenSquare,
	"]":   CloseSquare,
	"{":   OpenCurley,
	"}":   CloseCurley,
}

var keywordKinds = map[string]Kind{
	"and":      KeywordAnd,
	"break":    KeywordBreak,
	"do":       KeywordDo,
	"else":     KeywordElse,
	"elseif":   KeywordElseif,
	"end":      KeywordEnd,
	"false":    KeywordFalse,
	"for":      KeywordFor,
	"function": KeywordFunction,
	"if":       KeywordIf,
	"in":       KeywordIn,
	"local":    KeywordLocal,
	"nil":      KeywordNil,
	"not":      KeywordNot,
	"or":       KeywordOr,
	"repeat":   KeywordRepeat,
	"return":   KeywordReturn,
	"then":     KeywordThen,
	"true":     KeywordTrue,
	"until":    KeywordUntil,
	"while":    KeywordWhile,
}

// NewLuaDfa constructs the language DFA: symbols, identifiers, numeric
// literals, quoted and long-bracket strings, and comments. The returned root
// state carries the keyword table used to retype identifiers.
func NewLuaDfa() *State {
	root := NewState(Invalid)
	root.keywords = keywordKinds

	// Symbols share prefix states, forming a tree off the root.
	symbolStates := make(map[byte]*State)
	for symbol, kind := range symbolKinds {
		first := symbol[0]
		state, ok := symbolStates[first]
		if !ok {
			state = NewState(Invalid)
			root.AddEdge(state, first)
			symbolStates[first] = state
		}

		for i := 1; i < len(symbol); i++ {
			next, ok := state.Edges[symbol[i]]
			if !ok {
				next = NewState(Invalid)
				state.AddEdge(next, symbol[i])
			}
			state = next
		}
		state.Accept = kind
	}

	// Whitespace.
	whitespace := NewState(Whitespace)
	for _, c := range []byte{' ', '\t', '\r', '\n'} {
		root.AddEdge(whitespace, c)
		whitespace.AddEdge(whitespace, c)
	}

	// Identifiers.
	identifier := NewState(Identifier)
	root.AddEdge(identifier, '_')
	root.AddEdgeRange(identifier, 'a', 'z')
	root.AddEdgeRange(identifier, 'A', 'Z')
	identifier.AddEdge(identifier, '_')
	identifier.AddEdgeRange(identifier, 'a', 'z')
	identifier.AddEdgeRange(identifier, 'A', 'Z')
	identifier.AddEdgeRange(identifier, '0', '9')

	// Integer literals. Zero gets its own state so hex can hang off it.
	intZero := NewState(IntegerLiteral)
	root.AddEdge(intZero, '0')

	intLiteral := NewState(IntegerLiteral)
	root.AddEdgeRange(intLiteral, '1', '9')
	intLiteral.AddEdgeRange(intLiteral, '0', '9')
	intZero.AddEdgeRange(intLiteral, '0', '9')

	// Float literals.
	decimal := NewState(Invalid)
	intZero.AddEdge(decimal, '.')
	intLiteral.AddEdge(decimal, '.')

	floatLiteral := NewState(FloatLiteral)
	decimal.AddEdgeRange(floatLiteral, '0', '9')
	floatLiteral.AddEdgeRange(floatLiteral, '0', '9')

	// A leading dot followed by digits is also a float.
	root.Edges['.'].AddEdgeRange(floatLiteral, '0', '9')

	exponentStart := NewState(Invalid)
	intLiteral.AddEdge(exponentStart, 'e')
	intLiteral.AddEdge(exponentStart, 'E')
	floatLiteral.AddEdge(exponentStart, 'e')
	floatLiteral.AddEdge(exponentStart, 'E')

	exponentSign := NewState(Invalid)
	exponentStart.AddEdge(exponentSign, '-')

	exponent := NewState(FloatLiteral)
	exponentStart.AddEdgeRange(exponent, '0', '9')
	exponentSign.AddEdgeRange(exponent, '0', '9')
	exponent.AddEdgeRange(exponent, '0', '9')

	// Hex literals.
	hexStart := NewState(Invalid)
	intZero.AddEdge(hexStart, 'x')

	hexDigits := NewState(IntegerLiteral)
	hexStart.AddEdgeRange(hexDigits, '0', '9')
	hexStart.AddEdgeRange(hexDigits, 'a', 'f')
	hexDigits.AddEdgeRange(hexDigits, '0', '9')
	hexDigits.AddEdgeRange(hexDigits, 'a', 'f')

	// Double-quoted strings with escapes.
	stringBody := NewState(Invalid)
	stringEscape := NewState(Invalid)
	stringEnd := NewState(StringLiteral)

	root.AddEdge(stringBody, '"')
	stringBody.Default = stringBody
	stringBody.AddEdge(stringEnd, '"')
	stringBody.AddEdge(stringEscape, '\\')

	for _, c := range []byte{'b', 't', 'n', 'f', 'r', '"', '\'', '\\'} {
		stringEscape.AddEdge(stringBody, c)
	}

	// Hex escape: \x followed by hex digits.
	escapeHexStart := NewState(Invalid)
	escapeHexDigit := NewState(Invalid)
	stringEscape.AddEdge(escapeHexStart, 'x')
	escapeHexStart.AddEdgeRange(escapeHexDigit, '0', '9')
	escapeHexStart.AddEdgeRange(escapeHexDigit, 'a', 'f')
	escapeHexStart.AddEdgeRange(escapeHexDigit, 'A', 'F')
	escapeHexDigit.AddEdgeRange(stringBody, '0', '9')
	escapeHexDigit.AddEdgeRange(stringBody, 'a', 'f')
	escapeHexDigit.AddEdgeRange(stringBody, 'A', 'F')

	// Octal escape: one to three digits. One or two digits are already a
	// complete escape, so the extra states fail back into the string body
	// without consuming the terminating byte.
	escapeOctal1 := NewState(Invalid)
	escapeOctal2 := NewState(Invalid)
	escapeOctal1.Failure = stringBody
	escapeOctal2.Failure = stringBody
	stringEscape.AddEdgeRange(escapeOctal1, '0', '7')
	escapeOctal1.AddEdgeRange(escapeOctal2, '0', '7')
	escapeOctal2.AddEdgeRange(stringBody, '0', '7')

	// Character strings: clone the string machine and swap the terminator.
	charstringBody := stringBody.deepCopy()
	charstringEnd := charstringBody.Edges['"']
	charstringBody.AddEdge(charstringEnd, '\'')
	delete(charstringBody.Edges, '"')
	root.AddEdge(charstringBody, '\'')

	// Long strings hang off the '[' symbol state.
	longstringBegin := root.Edges['[']
	longstringEquals := NewState(Invalid)
	longstringEnd := NewState(StringLiteral)

	longstringBody := stringBody.deepCopy()
	longstringEndEquals := longstringBody.Edges['"']
	longstringBody.AddEdge(longstringEndEquals, ']')
	delete(longstringBody.Edges, '"')

	longstringBegin.AddEdge(longstringBody, '[')

	// Zero or more '=' between the opening brackets.
	longstringBegin.AddEdge(longstringEquals, '=')
	longstringEquals.AddEdge(longstringEquals, '=')
	longstringEquals.AddEdge(longstringBody, '[')

	// Closing ']' then '=' runs then ']'. A run without the final bracket
	// falls back into the body.
	longstringEndEquals.Failure = longstringBody
	longstringEndEquals.AddEdge(longstringEndEquals, '=')
	longstringEndEquals.AddEdge(longstringEnd, ']')

	// Single-line comments off the '-' symbol state.
	commentBegin := root.Edges['-']
	commentMaybeLong := NewState(Comment)
	commentLine := NewState(Comment)
	commentOptionalCR := NewState(Comment)
	commentEnd := NewState(Comment)

	commentBegin.AddEdge(commentMaybeLong, '-')

	commentLine.Default = commentLine
	commentLine.AddEdge(commentOptionalCR, '\r')
	commentLine.AddEdge(commentEnd, '\n')

	commentMaybeLong.Failure = commentLine

	commentOptionalCR.AddEdge(commentEnd, '\n')

	// Long comments: --[[ ... ]].
	longCommentStart := NewState(Invalid)
	commentMaybeLong.AddEdge(longCommentStart, '[')

	longComment := NewState(Invalid)
	longCommentStart.AddEdge(longComment, '[')
	longComment.Default = longComment

	longCommentEndBracket := NewState(Invalid)
	longCommentEndBracket.Failure = longComment
	longComment.AddEdge(longCommentEndBracket, ']')

	longCommentEnd := NewState(Comment)
	longCommentEndBracket.AddEdge(longCommentEnd, ']')

	// The --[==[ form gets its own body so a bare ]] inside it does not
	// terminate; the closer needs at least one '='.
	longCommentEquals := NewState(Invalid)
	longCommentStart.AddEdge(longCommentEquals, '=')
	longCommentEquals.AddEdge(longCommentEquals, '=')

	eqBody := NewState(Invalid)
	eqBody.Default = eqBody
	longCommentEquals.AddEdge(eqBody, '[')

	eqEndBracket := NewState(Invalid)
	eqEndBracket.Failure = eqBody
	eqBody.AddEdge(eqEndBracket, ']')

	eqEndEquals := NewState(Invalid)
	eqEndEquals.Failure = eqBody
	eqEndBracket.AddEdge(eqEndEquals, '=')
	eqEndEquals.AddEdge(eqEndEquals, '=')
	eqEndEquals.AddEdge(longCommentEnd, ']')

	return root
}
