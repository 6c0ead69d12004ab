package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
	"github.com/opensandbox/control-plane/internal/sandboxmodel"
	"github.com/opensandbox/control-plane/internal/validate"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.authStore.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleCreateSandbox(w http.ResponseWriter, r *http.Request) {
	var body createRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, sandboxerr.New(sandboxerr.InvalidParameter, "malformed request body: %v", err))
		return
	}

	sbx, err := s.svc.Create(r.Context(), body.toCreateRequest())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSandboxDTO(sbx))
}

func (s *Server) handleGetSandbox(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sbx, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSandboxDTO(sbx))
}

func (s *Server) handleListSandboxes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := sandboxmodel.ListFilter{State: q["state"]}
	if raw := q.Get("metadata"); raw != "" {
		filter.Metadata = parseMetadataFilter(raw)
	}

	page := sandboxmodel.Pagination{Page: 1, PageSize: 20}
	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, sandboxerr.New(sandboxerr.InvalidParameter, "page query parameter must be an integer"))
			return
		}
		page.Page = v
	}
	if raw := q.Get("pageSize"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, sandboxerr.New(sandboxerr.InvalidParameter, "pageSize query parameter must be an integer"))
			return
		}
		page.PageSize = v
	}
	if verr := validate.EnsurePagination(page.Page, page.PageSize); verr != nil {
		writeError(w, verr)
		return
	}

	res, err := s.svc.List(r.Context(), filter, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponseDTO(res))
}

// parseMetadataFilter parses the single metadata query param as
// "key=value,key2=value2". Each key/value is double URL-encoded by the
// client: net/url's query parsing removes the outer layer, and each key
// and value is unescaped once more here. Pairs that fail to unescape
// are skipped.
func parseMetadataFilter(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, kerr := url.QueryUnescape(kv[0])
		value, verr := url.QueryUnescape(kv[1])
		if kerr != nil || verr != nil {
			continue
		}
		out[key] = value
	}
	return out
}

func (s *Server) handleDeleteSandbox(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePauseSandbox(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Pause(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResumeSandbox(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Resume(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenewSandbox(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body renewRequestDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, sandboxerr.New(sandboxerr.InvalidParameter, "malformed request body: %v", err))
			return
		}
	}

	expiresAt, err := s.svc.Renew(r.Context(), id, validate.ParseTimestamp(body.ExpiresAt))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renewResponseDTO{ExpiresAt: formatTime(expiresAt)})
}

func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	port, err := strconv.Atoi(r.URL.Query().Get("port"))
	if err != nil {
		writeError(w, sandboxerr.New(sandboxerr.InvalidPort, "port query parameter must be an integer"))
		return
	}
	if verr := validate.EnsurePort(port); verr != nil {
		writeError(w, verr)
		return
	}
	resolveInternal := r.URL.Query().Get("resolveInternal") == "true"

	endpoint, verr := s.svc.GetEndpoint(r.Context(), id, port, resolveInternal)
	if verr != nil {
		writeError(w, verr)
		return
	}
	writeJSON(w, http.StatusOK, endpointResponseDTO{Endpoint: endpoint.Endpoint})
}
