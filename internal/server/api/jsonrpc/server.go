// Package jsonrpc exposes the marketplace over JSON-RPC 2.0.
package jsonrpc

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Server serves marketplace JSON-RPC requests.
type Server struct {
	handler *Handler
	log     *zap.Logger
}

// NewServer creates a new JSON-RPC server instance.
func NewServer(handler *Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{handler: handler, log: log}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		JsonRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      any             `json:"id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, codeParseError, "Parse error")
		return
	}
	if req.Method == "" {
		writeError(w, req.ID, codeInvalidRequest, "Missing method")
		return
	}

	result, rpcErr := s.handler.Handle(req.Method, req.Params)
	if rpcErr != nil {
		s.log.Debug("rpc error",
			zap.String("method", req.Method),
			zap.Int("code", rpcErr.Code),
			zap.String("message", rpcErr.Message))
		writeError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}

	response := map[string]any{
		"jsonrpc": "2.0",
		"result":  result,
		"id":      req.ID,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, id any, code int, message string) {
	response := map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
