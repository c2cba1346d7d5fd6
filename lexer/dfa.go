package lexer

// State is a single DFA state. Besides keyed byte edges, a state may carry a
// default edge (taken when no keyed edge matches, consuming the byte) and a
// failure edge (taken when no keyed edge matches, returning the byte to the
// stream). The failure edge wins over the default edge.
type State struct {
	Accept   Kind
	Edges    map[byte]*State
	Default  *State
	Failure  *State
	keywords map[string]Kind
}

// NewState creates a state that accepts the given kind. Invalid marks a
// non-accepting state.
func NewState(accept Kind) *State {
	return &State{
		Accept: accept,
		Edges:  make(map[byte]*State),
	}
}

// AddEdge adds a keyed transition on byte c.
func (s *State) AddEdge(to *State, c byte) {
	s.Edges[c] = to
}

// AddEdgeRange adds keyed transitions for every byte in [lo, hi].
func (s *State) AddEdgeRange(to *State, lo, hi byte) {
	for c := lo; c <= hi; c++ {
		s.Edges[c] = to
	}
}

// deepCopy clones the subgraph reachable from s, walking keyed, failure and
// default edges. The clone shares nothing with the original, so terminator
// edges can be rewired without disturbing the source machine.
func (s *State) deepCopy() *State {
	return copyState(s, make(map[*State]*State))
}

func copyState(s *State, replacements map[*State]*State) *State {
	if s == nil {
		return nil
	}
	if existing, ok := replacements[s]; ok {
		return existing
	}

	clone := NewState(s.Accept)
	replacements[s] = clone

	for c, to := range s.Edges {
		clone.Edges[c] = copyState(to, replacements)
	}
	clone.Failure = copyState(s.Failure, replacements)
	clone.Default = copyState(s.Default, replacements)

	return clone
}

// scan runs the DFA over src starting at offset, applying maximal munch. It
// returns the byte length of the accepted prefix, the accepted kind, and the
// updated line/column trackers. A zero length with kind Invalid means no
// accepting prefix exists; the caller recovers by skipping one byte.
func (s *State) scan(src []byte, offset int, line, col int) (length int, kind Kind, endLine, endCol int) {
	pos := offset
	lastCol := col

	lastAcceptedPos := pos
	var lastAccepted *State

	current := s
	for current != nil && pos < len(src) {
		c := src[pos]
		next, keyed := current.Edges[c]

		if c == '\n' {
			line++
			lastCol = col
			col = 0
		} else {
			col++
		}
		pos++

		if keyed {
			current = next
		} else if current.Failure != nil {
			// The failure edge returns the byte to the stream.
			pos--
			if src[pos] == '\n' {
				col = lastCol
				line--
			} else {
				col--
			}
			current = current.Failure
		} else {
			current = current.Default
		}

		if current != nil && current.Accept != Invalid {
			lastAcceptedPos = pos
			lastAccepted = current
		}
	}

	// Undo the byte that drove the machine off its last edge.
	if current == nil {
		pos--
		if src[pos] == '\n' {
			line--
			col = lastCol
		} else {
			col--
		}
	}

	if lastAccepted != nil {
		return lastAcceptedPos - offset, lastAccepted.Accept, line, col
	}
	return 0, Invalid, line, col
}

// Next scans the next token from src at offset. Identifiers are post-checked
// against the root state's keyword table and retyped.
func (s *State) Next(src []byte, offset int, line, col int) (Token, int, int, int) {
	length, kind, endLine, endCol := s.scan(src, offset, line, col)

	tok := Token{
		Text:     string(src[offset : offset+length]),
		Kind:     kind,
		Position: Position{Line: endLine, Col: endCol - 1},
	}

	if kind == Identifier {
		if keyword, ok := s.keywords[tok.Text]; ok {
			tok.Kind = keyword
		}
	}

	return tok, length, endLine, endCol
}
