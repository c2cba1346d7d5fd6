// Package server exposes a Session over newline-delimited JSON-RPC 2.0 on a
// byte stream, the transport an editor extension drives.
package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/termfx/luma/db"
	"github.com/termfx/luma/engine"
)

// Server dispatches JSON-RPC requests onto one engine session. Store is
// optional; when present, parses and completions are recorded.
type Server struct {
	session *engine.Session
	store   *db.Store
}

// New creates a server over a fresh session.
func New(store *db.Store) *Server {
	return &Server{
		session: engine.NewSession(),
		store:   store,
	}
}

// Session exposes the underlying engine session.
func (s *Server) Session() *engine.Session {
	return s.session
}

type parseParams struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

type removeParams struct {
	URI string `json:"uri"`
}

type completeParams struct {
	URI  string `json:"uri"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

type diagnosticsParams struct {
	URI string `json:"uri"`
}

// Serve reads requests line by line until EOF, writing one response per
// request. Malformed input yields an error response, never a crash.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var request RequestMessage
		if err := json.Unmarshal(line, &request); err != nil {
			if err := encoder.Encode(NewErrorResponse(nil, CodeParseError, "parse error")); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			continue
		}

		response := s.Handle(request)
		if err := encoder.Encode(response); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request stream: %w", err)
	}
	return nil
}

// Handle dispatches a single request to its method handler.
func (s *Server) Handle(request RequestMessage) ResponseMessage {
	if request.JSONRPC != JSONRPCVersion {
		return NewErrorResponse(request.ID, CodeInvalidRequest, "unsupported jsonrpc version")
	}

	switch request.Method {
	case "document/parse":
		var params parseParams
		if err := decodeParams(request.Params, &params); err != nil {
			return NewErrorResponse(request.ID, CodeInvalidParams, err.Error())
		}

		diagnostics := s.session.ParseDocument(params.URI, params.Text)

		if s.store != nil {
			if err := s.store.RecordDocument(params.URI, params.Text, diagnostics); err != nil {
				return NewErrorResponse(request.ID, CodeInternalError, err.Error())
			}
		}

		return NewResponse(request.ID, map[string]any{"diagnostics": diagnostics})

	case "document/remove":
		var params removeParams
		if err := decodeParams(request.Params, &params); err != nil {
			return NewErrorResponse(request.ID, CodeInvalidParams, err.Error())
		}

		s.session.RemoveDocument(params.URI)
		return NewResponse(request.ID, map[string]any{"removed": params.URI})

	case "document/complete":
		var params completeParams
		if err := decodeParams(request.Params, &params); err != nil {
			return NewErrorResponse(request.ID, CodeInvalidParams, err.Error())
		}

		items := s.session.Complete(params.URI, params.Line, params.Col)

		if s.store != nil {
			if err := s.store.RecordCompletion(params.URI, params.Line, params.Col, items); err != nil {
				return NewErrorResponse(request.ID, CodeInternalError, err.Error())
			}
		}

		return NewResponse(request.ID, map[string]any{"items": items})

	case "document/diagnostics":
		var params diagnosticsParams
		if err := decodeParams(request.Params, &params); err != nil {
			return NewErrorResponse(request.ID, CodeInvalidParams, err.Error())
		}

		return NewResponse(request.ID, map[string]any{
			"diagnostics": s.session.Diagnostics(params.URI),
		})

	case "session/info":
		info := map[string]any{
			"documents": s.session.Documents(),
		}
		if s.store != nil {
			info["sessionId"] = s.store.SessionID()
		}
		return NewResponse(request.ID, info)
	}

	return NewErrorResponse(request.ID, CodeMethodNotFound,
		fmt.Sprintf("unknown method: %s", request.Method))
}
