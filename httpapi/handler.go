// Package httpapi exposes the marketplace query facade as a JSON HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/goliatone/go-carmarket/marketplace"
	"github.com/goliatone/go-carmarket/metrics"
	"github.com/goliatone/go-carmarket/remote"
)

// Handler routes HTTP requests to a marketplace.Service.
type Handler struct {
	svc     *marketplace.Service
	logger  *slog.Logger
	metrics *metrics.Recorder
	mux     *http.ServeMux
}

// New wires the routes. rec may be nil, in which case /metrics answers 503.
func New(svc *marketplace.Service, rec *metrics.Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{
		svc:     svc,
		logger:  logger.With(slog.String("agent", "httpapi")),
		metrics: rec,
		mux:     http.NewServeMux(),
	}
	h.routes()
	return h
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /v1/listings", h.listListings)
	h.mux.HandleFunc("POST /v1/listings", h.createListing)
	h.mux.HandleFunc("GET /v1/listings/{id}", h.getListing)
	h.mux.HandleFunc("GET /v1/listings/{id}/reviews", h.listReviews)
	h.mux.HandleFunc("GET /v1/featured", h.listFeatured)
	h.mux.HandleFunc("GET /v1/search", h.search)
	h.mux.HandleFunc("GET /v1/recent-searches", h.recentSearches)

	h.mux.HandleFunc("POST /v1/auth/signin", h.signIn)
	h.mux.HandleFunc("POST /v1/auth/signup", h.signUp)
	h.mux.HandleFunc("POST /v1/auth/signout", h.signOut)
	h.mux.HandleFunc("GET /v1/auth/user", h.currentUser)

	h.mux.HandleFunc("GET /v1/bookmarks", h.listBookmarks)
	h.mux.HandleFunc("POST /v1/bookmarks", h.addBookmark)
	h.mux.HandleFunc("DELETE /v1/bookmarks", h.removeBookmark)

	h.mux.HandleFunc("GET /v1/debug/cache", h.cacheStats)
	h.mux.HandleFunc("DELETE /v1/debug/cache", h.clearCache)

	h.mux.Handle("GET /metrics", h.metrics.Handler())
}

// ServeHTTP scopes every request to the session named by its bearer token.
// Requests without one are anonymous; they never fall back to a session
// opened by another request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := remote.WithAccessToken(r.Context(), bearerToken(r))
	h.mux.ServeHTTP(w, r.WithContext(ctx))
}

func (h *Handler) listListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q, "page", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := intParam(q, "limit", marketplace.DefaultPageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	listings, err := h.svc.FetchListings(r.Context(), page, limit, q.Get("search"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *Handler) createListing(w http.ResponseWriter, r *http.Request) {
	var in marketplace.NewListing
	if err := decodeBody(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	listing, err := h.svc.CreateListing(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

// getListing answers 404 with a null body when the listing does not exist.
func (h *Handler) getListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.FetchListingByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if listing == nil {
		writeJSON(w, http.StatusNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q, "page", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := intParam(q, "limit", marketplace.DefaultPageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	reviews, err := h.svc.FetchReviews(r.Context(), r.PathValue("id"), page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *Handler) listFeatured(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.FetchFeatured(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	listings, err := h.svc.SearchWithFilters(r.Context(), filters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *Handler) recentSearches(w http.ResponseWriter, r *http.Request) {
	terms, err := h.svc.RecentSearches(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, terms)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.svc.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.svc.SignUp(r.Context(), in.Email, in.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if bearerToken(r) == "" {
		h.writeError(w, r, remote.NotAuthenticated())
		return
	}
	if err := h.svc.SignOut(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if user == nil {
		h.writeError(w, r, remote.NotAuthenticated())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type bookmarkRequest struct {
	ItemType string `json:"item_type"`
	ItemID   string `json:"item_id"`
}

func (h *Handler) listBookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := h.svc.FetchBookmarks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

func (h *Handler) addBookmark(w http.ResponseWriter, r *http.Request) {
	var in bookmarkRequest
	if err := decodeBody(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	bookmark, err := h.svc.AddBookmark(r.Context(), in.ItemType, in.ItemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookmark)
}

func (h *Handler) removeBookmark(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.svc.RemoveBookmark(r.Context(), q.Get("item_type"), q.Get("item_id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.CacheStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCache(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
