package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc FacetService, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Facet tree.
	r.Get("/facets", h.GetFacets)
	r.Get("/facets/nodes/*", h.GetNode)
	r.Put("/facets/keys", h.PutKeys)

	// Navigator state.
	r.Get("/selection", h.GetSelection)
	r.Put("/selection", h.PutSelection)
	r.Get("/reveal", h.Reveal)

	r.Post("/rebuild", h.Rebuild)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
