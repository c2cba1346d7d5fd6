// Package engine ties the pipeline together: it owns the shared symbol
// library and the set of parsed documents, and exposes the two operations an
// editor front-end needs — parse a document, complete at a position.
package engine

import (
	"sync"

	"github.com/termfx/luma/ast"
	"github.com/termfx/luma/complete"
	"github.com/termfx/luma/infer"
	"github.com/termfx/luma/lexer"
	"github.com/termfx/luma/parser"
	"github.com/termfx/luma/symbols"
)

// Document is one parsed source file tracked by URI.
type Document struct {
	URI    string
	Text   string
	Tokens []lexer.Token
	Root   *ast.Function
	Errors []parser.ParseError

	ref *symbols.LibraryReference
}

// Diagnostic is a parse problem surfaced to the client.
type Diagnostic struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Session is a language-intelligence session over a set of documents that
// share one symbol library. Methods serialize internally; a Session is safe
// for use from one goroutine at a time per operation.
type Session struct {
	mu        sync.Mutex
	dfa       *lexer.State
	library   *symbols.Library
	documents map[string]*Document
}

// NewSession creates an empty session with a fresh library.
func NewSession() *Session {
	return &Session{
		dfa:       lexer.NewLuaDfa(),
		library:   symbols.NewLibrary(),
		documents: make(map[string]*Document),
	}
}

// Library exposes the shared symbol library.
func (s *Session) Library() *symbols.Library {
	return s.library
}

// Document returns the tracked document for a URI, or nil.
func (s *Session) Document(uri string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents[uri]
}

// Documents returns the URIs currently tracked.
func (s *Session) Documents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	return uris
}

// ParseDocument parses or re-parses a document. Replacing an existing entry
// first withdraws the prior parse's symbol references, so the library never
// double-counts a document.
func (s *Session) ParseDocument(uri, text string) []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.documents[uri]; ok {
		previous.ref.Release()
		delete(s.documents, uri)
	}

	doc := &Document{URI: uri, Text: text}
	doc.Tokens = lexer.Tokenize(s.dfa, []byte(text))

	filtered := lexer.StripTrivia(doc.Tokens)
	doc.Root, doc.Errors = parser.Parse(filtered, false)

	doc.ref = s.library.NewReference()
	infer.Resolve(doc.Root, s.library, doc.ref)

	s.documents[uri] = doc

	return diagnostics(doc)
}

// RemoveDocument forgets a document and withdraws its symbol references.
// Removing an unknown URI is a no-op.
func (s *Session) RemoveDocument(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[uri]
	if !ok {
		return
	}

	doc.ref.Release()
	delete(s.documents, uri)
}

// Complete returns the completion candidates at (line, col) in the given
// document. The call is total: an unknown URI yields an empty list.
func (s *Session) Complete(uri string, line, col int) []complete.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[uri]
	if !ok {
		return []complete.Item{}
	}

	items := complete.At(doc.Root, doc.Tokens, s.library, line, col)
	if items == nil {
		items = []complete.Item{}
	}
	return items
}

// Diagnostics returns the parse errors recorded for a document.
func (s *Session) Diagnostics(uri string) []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[uri]
	if !ok {
		return nil
	}
	return diagnostics(doc)
}

func diagnostics(doc *Document) []Diagnostic {
	out := make([]Diagnostic, 0, len(doc.Errors))
	for _, err := range doc.Errors {
		out = append(out, Diagnostic{
			Line:    err.Position.Line,
			Col:     err.Position.Col,
			Message: err.Message,
		})
	}
	return out
}
