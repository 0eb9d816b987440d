// Package rpcserver serves library resources over line-delimited JSON-RPC:
// one request object per input line, one response object per output line.
package rpcserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/starford/avatars/internal/resources"
)

const Version = "2.0"

// Error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
)

// Methods.
const (
	MethodInitialize    = "initialize"
	MethodResourcesList = "resources/list"
	MethodResourcesRead = "resources/read"
)

// Info is reported by initialize.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Response is a single output line. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type initializeResult struct {
	ServerInfo   Info `json:"serverInfo"`
	Capabilities struct {
		Resources bool `json:"resources"`
	} `json:"capabilities"`
}

type resourceRef struct {
	URI string `json:"uri"`
}

type listResult struct {
	Resources []resourceRef `json:"resources"`
}

type readResult struct {
	Contents string `json:"contents"`
}

type readParams struct {
	URI *string `json:"uri"`
}

// Server answers initialize, resources/list and resources/read.
type Server struct {
	res    *resources.Service
	info   Info
	logger *slog.Logger
}

// New creates a Server backed by res.
func New(res *resources.Service, info Info, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{res: res, info: info, logger: logger}
}

// Serve reads requests from in until end of stream and writes one response
// line per non-blank input line to out, in order. A bad line only affects
// its own response.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := r.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("rpcserver: read: %w", readErr)
		}

		if strings.TrimSpace(line) != "" {
			resp := s.Handle(ctx, []byte(line))
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("rpcserver: write: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("rpcserver: flush: %w", err)
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

// Handle produces the response for one request line.
func (s *Server) Handle(ctx context.Context, line []byte) (resp Response) {
	resp.JSONRPC = Version

	var payload any
	if err := json.Unmarshal(line, &payload); err != nil {
		resp.Error = &Error{Code: CodeParseError, Message: "Parse error: " + err.Error()}
		s.logger.Warn("rpc: parse error", slog.String("error", err.Error()))
		return resp
	}

	// Non-object payloads are treated as requests without fields.
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(line, &fields)

	resp.ID = fields["id"]
	var method string
	_ = json.Unmarshal(fields["method"], &method)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("rpc: panic", slog.String("method", method), slog.Any("panic", r))
			resp.Result = nil
			resp.Error = &Error{Code: CodeServerError, Message: "internal error"}
		}
	}()

	result, rpcErr := s.dispatch(ctx, method, fields["params"])
	if rpcErr != nil {
		s.logger.Debug("rpc: request failed",
			slog.String("method", method),
			slog.Int("code", rpcErr.Code),
			slog.String("message", rpcErr.Message))
		resp.Error = rpcErr
		return resp
	}
	resp.Result = result
	return resp
}

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, *Error) {
	switch method {
	case MethodInitialize:
		res := initializeResult{ServerInfo: s.info}
		res.Capabilities.Resources = true
		return res, nil

	case MethodResourcesList:
		uris, err := s.res.List()
		if err != nil {
			s.logger.Warn("rpc: list failed", slog.String("error", err.Error()))
			return nil, &Error{Code: CodeServerError, Message: resources.ClientMessage(err)}
		}
		refs := make([]resourceRef, 0, len(uris))
		for _, u := range uris {
			refs = append(refs, resourceRef{URI: u})
		}
		return listResult{Resources: refs}, nil

	case MethodResourcesRead:
		var p readParams
		if len(params) > 0 {
			_ = json.Unmarshal(params, &p)
		}
		if p.URI == nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "Missing uri"}
		}
		content, err := s.res.Read(ctx, *p.URI)
		if err != nil {
			s.logger.Warn("rpc: read failed", slog.String("uri", *p.URI), slog.String("error", err.Error()))
			return nil, &Error{Code: CodeServerError, Message: resources.ClientMessage(err)}
		}
		return readResult{Contents: content}, nil

	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: "Unknown method"}
	}
}
