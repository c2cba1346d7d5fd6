package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/luma/lexer"
)

// dotCursor returns the position of the last '.' token in a document.
func dotCursor(t *testing.T, s *Session, uri string) lexer.Position {
	t.Helper()

	doc := s.Document(uri)
	require.NotNil(t, doc)

	var pos lexer.Position
	found := false
	for _, tok := range doc.Tokens {
		if tok.Kind == lexer.Dot {
			pos = tok.Position
			found = true
		}
	}
	require.True(t, found)
	return pos
}

func itemLabels(s *Session, uri string, pos lexer.Position) []string {
	items := s.Complete(uri, pos.Line, pos.Col)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Label)
	}
	return out
}

func TestParseAndCompleteAcrossDocuments(t *testing.T) {
	s := NewSession()

	s.ParseDocument("a.lua", `GameObject = {}
GameObject.position = {}
GameObject.position.x = 5
GameObject.position.y = 10
function GameObject:load() self.new_var = 15 end`)
	s.ParseDocument("b.lua", "function GameObject.third() self.t_var = 11 end")
	s.ParseDocument("c.lua", "GameObject.")

	cursor := dotCursor(t, s, "c.lua")
	got := itemLabels(s, "c.lua", cursor)

	assert.Contains(t, got, "position")
	assert.Contains(t, got, "load")
	assert.Contains(t, got, "third")
}

func TestCompleteUnknownURI(t *testing.T) {
	s := NewSession()
	assert.Empty(t, s.Complete("missing.lua", 0, 0))
}

func TestReparseIdempotent(t *testing.T) {
	s := NewSession()

	text := "GameObject = {}\nGameObject.position = {}\nGameObject."
	s.ParseDocument("a.lua", text)
	cursor := dotCursor(t, s, "a.lua")
	first := itemLabels(s, "a.lua", cursor)

	s.ParseDocument("a.lua", text)
	second := itemLabels(s, "a.lua", cursor)

	assert.Equal(t, first, second)
}

func TestReparseDoesNotDuplicate(t *testing.T) {
	s := NewSession()

	s.ParseDocument("a.lua", "Thing = {}\nThing.alpha = 1")
	s.ParseDocument("b.lua", "Thing.")

	for i := 0; i < 3; i++ {
		s.ParseDocument("a.lua", "Thing = {}\nThing.alpha = 1")
	}

	cursor := dotCursor(t, s, "b.lua")
	got := itemLabels(s, "b.lua", cursor)

	count := 0
	for _, label := range got {
		if label == "alpha" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRemoveDocumentDropsContribution(t *testing.T) {
	s := NewSession()

	s.ParseDocument("a.lua", `GameObject = {}
GameObject.position = {}
function GameObject:load() end`)
	s.ParseDocument("b.lua", "function GameObject.third() end")
	s.ParseDocument("c.lua", "GameObject.")

	cursor := dotCursor(t, s, "c.lua")
	require.Contains(t, itemLabels(s, "c.lua", cursor), "third")

	s.RemoveDocument("b.lua")

	got := itemLabels(s, "c.lua", cursor)
	assert.NotContains(t, got, "third")
	assert.Contains(t, got, "position")
	assert.Contains(t, got, "load")
}

func TestRemoveUnknownURIIsNoop(t *testing.T) {
	s := NewSession()
	s.ParseDocument("a.lua", "x = 1")
	s.RemoveDocument("missing.lua")
	assert.NotNil(t, s.Document("a.lua"))
}

func TestDiagnostics(t *testing.T) {
	s := NewSession()

	diags := s.ParseDocument("bad.lua", "if x then")
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "End of token stream")

	assert.Equal(t, diags, s.Diagnostics("bad.lua"))
	assert.Empty(t, s.Diagnostics("missing.lua"))
}

func TestCleanDiagnosticsForValidSource(t *testing.T) {
	s := NewSession()
	diags := s.ParseDocument("ok.lua", "local x = 1\nreturn x")
	assert.Empty(t, diags)
}

func TestDocumentsListing(t *testing.T) {
	s := NewSession()
	s.ParseDocument("a.lua", "x = 1")
	s.ParseDocument("b.lua", "y = 2")

	uris := s.Documents()
	assert.ElementsMatch(t, []string{"a.lua", "b.lua"}, uris)
}
