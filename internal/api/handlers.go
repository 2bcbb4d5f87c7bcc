package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxSelectionBody bounds PUT /selection payloads.
const maxSelectionBody = 64 << 10

// Handler holds API route handlers.
type Handler struct {
	svc FacetService
}

// NewHandler creates a new Handler.
func NewHandler(svc FacetService) *Handler {
	return &Handler{svc: svc}
}

// nodeID extracts the node id from the URL (everything after /facets/nodes/).
// Value ids contain slashes, so clients send the id path-escaped.
func nodeID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if r.URL.RawPath == "" {
		// chi matched on the already decoded path.
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// includeDescendants reads the include_descendants query flag, falling back
// to the configured default.
func (h *Handler) includeDescendants(r *http.Request) (bool, bool) {
	v := r.URL.Query().Get("include_descendants")
	if v == "" {
		return h.svc.IncludeDescendants(), true
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

// GetFacets handles GET /api/facets.
//
//	@Summary		Get the facet tree with counts
//	@Tags			facets
//	@Produce		json
//	@Success		200	{object}	FacetsResponse
//	@Security		BearerAuth
//	@Router			/facets [get]
func (h *Handler) GetFacets(w http.ResponseWriter, r *http.Request) {
	last, err := h.svc.LastRebuild(r.Context())
	if err != nil {
		slog.Warn("last rebuild lookup failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, FacetsResponse{
		Overview:    h.svc.Overview(),
		LastRebuild: rebuildInfo(last),
	})
}

// GetNode handles GET /api/facets/nodes/*.
//
//	@Summary		List the notes behind a facet node
//	@Tags			facets
//	@Produce		json
//	@Param			id					path		string	true	"Path-escaped node id"
//	@Param			include_descendants	query		bool	false	"Count descendant values"
//	@Success		200					{object}	NodeResponse
//	@Failure		400					{object}	errResponse
//	@Failure		404					{object}	errResponse
//	@Security		BearerAuth
//	@Router			/facets/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id := nodeID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	descendants, ok := h.includeDescendants(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("include_descendants must be a boolean"))
		return
	}
	view, err := h.svc.NodeNotes(id, descendants)
	if err != nil {
		writeError(w, "get node", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetSelection handles GET /api/selection.
//
//	@Summary		Get the persisted selection, reconciled with the current tree
//	@Tags			selection
//	@Produce		json
//	@Success		200	{object}	SelectionResponse
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.Selection(r.Context())
	if err != nil {
		writeError(w, "get selection", err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{ID: id})
}

// PutSelection handles PUT /api/selection.
//
// The body is a JSON string id, a bare id, or a legacy {"key","value"} record.
//
//	@Summary		Persist the selected node
//	@Tags			selection
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	SelectionResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection [put]
func (h *Handler) PutSelection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSelectionBody)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	id, err := h.svc.SetSelection(r.Context(), raw)
	if err != nil {
		writeError(w, "put selection", err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{ID: id})
}

// Reveal handles GET /api/reveal.
//
//	@Summary		Pick the node to highlight for a note
//	@Tags			selection
//	@Produce		json
//	@Param			path				query		string	true	"Vault-relative note path"
//	@Param			include_descendants	query		bool	false	"Count descendant values"
//	@Success		200					{object}	SelectionResponse
//	@Success		204
//	@Failure		400					{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reveal [get]
func (h *Handler) Reveal(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	descendants, ok := h.includeDescendants(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("include_descendants must be a boolean"))
		return
	}
	id, found, err := h.svc.Reveal(r.Context(), path, descendants)
	if err != nil {
		writeError(w, "reveal", err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{ID: id})
}

// Rebuild handles POST /api/rebuild.
//
//	@Summary		Rebuild the facet tree now
//	@Tags			facets
//	@Produce		json
//	@Success		200	{object}	RebuildResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rebuild [post]
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Rebuild(r.Context())
	if err != nil {
		writeError(w, "rebuild", err)
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse(sum))
}

// PutKeys handles PUT /api/facets/keys.
//
//	@Summary		Replace the indexed property keys and rebuild when they change
//	@Tags			facets
//	@Accept			json
//	@Produce		json
//	@Param			body	body		KeysRequest	true	"Comma-separated keys"
//	@Success		200		{object}	KeysResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/facets/keys [put]
func (h *Handler) PutKeys(w http.ResponseWriter, r *http.Request) {
	var req KeysRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSelectionBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	resp := KeysResponse{Changed: h.svc.SetKeys(req.Keys)}
	if resp.Changed {
		sum, err := h.svc.Rebuild(r.Context())
		if err != nil {
			writeError(w, "put keys", err)
			return
		}
		resp.Rebuild = rebuildResponse(sum)
	}
	resp.Keys = h.svc.KeySet().Keys()
	if resp.Keys == nil {
		resp.Keys = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}
