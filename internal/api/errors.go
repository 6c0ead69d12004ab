package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
)

// errorResponse is the wire shape for every non-2xx response: a stable
// code plus a human-readable message, per spec's "single code+message
// pair" propagation policy. No secret value is ever placed in Message.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("failed to encode json response", "error", err)
		}
	}
}

// writeError maps err to its HTTP status and renders {code, message}.
// Any error that isn't a *sandboxerr.Error is logged with its full
// detail and rendered as an opaque 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	se, ok := sandboxerr.As(err)
	if !ok {
		slog.Error("unclassified error reached http boundary", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    string(sandboxerr.UnknownError),
			Message: "internal server error",
		})
		return
	}
	if se.Cause != nil {
		slog.Error("request failed", "code", se.Code, "message", se.Message, "cause", se.Cause)
	}
	writeJSON(w, se.HTTPStatus(), errorResponse{
		Code:    string(se.Code),
		Message: se.Message,
	})
}
