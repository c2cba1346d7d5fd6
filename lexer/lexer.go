// Package lexer implements the table-driven DFA tokenizer for Lua source.
// The machine is built once (NewLuaDfa) and shared; tokenization applies
// maximal munch, tracking zero-indexed line/column positions as it goes.
package lexer

// Tokenize scans src into its full token stream, including whitespace and
// comment tokens. When the machine rejects without ever reaching an
// accepting state, one byte is skipped and scanning resumes.
func Tokenize(root *State, src []byte) []Token {
	var tokens []Token

	offset := 0
	line, col := 0, 0

	for offset < len(src) {
		tok, length, endLine, endCol := root.Next(src, offset, line, col)
		if length == 0 {
			// Zero-length invalid token: skip a single byte.
			if src[offset] == '\n' {
				line++
				col = 0
			} else {
				col++
			}
			offset++
			continue
		}

		tokens = append(tokens, tok)
		offset += length
		line, col = endLine, endCol
	}

	return tokens
}

// StripTrivia removes whitespace and comment tokens, leaving the stream the
// parser consumes.
func StripTrivia(tokens []Token) []Token {
	filtered := tokens[:0:0]
	for _, tok := range tokens {
		if tok.Kind == Whitespace || tok.Kind == Comment {
			continue
		}
		filtered = append(filtered, tok)
	}
	return filtered
}
