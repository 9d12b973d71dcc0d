package server

import (
	"encoding/json"
	"net/http"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests on /rpc. Supported methods:
// fit.start, fit.status, fit.cancel.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.rpcError(w, nil, rpcParseError, "parse error")
		return
	}
	if req.JSONRPC != "2.0" {
		s.rpcError(w, req.ID, rpcInvalidRequest, "invalid request")
		return
	}

	switch req.Method {
	case "fit.start":
		var params fitRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.rpcError(w, req.ID, rpcInvalidParams, "invalid params: "+err.Error())
			return
		}
		j, err := s.start(params)
		if err != nil {
			s.rpcError(w, req.ID, rpcInvalidParams, err.Error())
			return
		}
		s.rpcResult(w, req.ID, map[string]string{"job_id": j.id, "status": StatusPending})

	case "fit.status":
		id, ok := s.rpcJobID(w, req)
		if !ok {
			return
		}
		j, found := s.lookup(id)
		if !found {
			s.rpcError(w, req.ID, rpcServerError, "job not found")
			return
		}
		s.rpcResult(w, req.ID, j.snapshot())

	case "fit.cancel":
		id, ok := s.rpcJobID(w, req)
		if !ok {
			return
		}
		j, found := s.lookup(id)
		if !found {
			s.rpcError(w, req.ID, rpcServerError, "job not found")
			return
		}
		if !j.requestCancel() {
			s.rpcError(w, req.ID, rpcServerError, "job already finished")
			return
		}
		s.rpcResult(w, req.ID, map[string]string{"status": StatusCancelled})

	default:
		s.rpcError(w, req.ID, rpcMethodNotFound, "method not found")
	}
}

// rpcJobID extracts {"job_id": ...} from the request params, writing an
// error response itself on failure.
func (s *Server) rpcJobID(w http.ResponseWriter, req rpcRequest) (string, bool) {
	var params struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.JobID == "" {
		s.rpcError(w, req.ID, rpcInvalidParams, "job_id is required")
		return "", false
	}
	return params.JobID, true
}

func (s *Server) rpcResult(w http.ResponseWriter, id, result interface{}) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func (s *Server) rpcError(w http.ResponseWriter, id interface{}, code int, message string) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}
