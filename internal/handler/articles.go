package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/service"
)

// ArticleHandler serves /api/articles.
type ArticleHandler struct {
	articles *service.ArticleService
	logger   *slog.Logger
}

// NewArticleHandler creates an ArticleHandler.
func NewArticleHandler(articles *service.ArticleService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, logger: logger}
}

// HandleList lists published articles.
//
// HTTP: GET /api/articles?tags=&author=&q=&sort=&skip=&limit=
func (h *ArticleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	q := r.URL.Query()
	list, err := h.articles.List(r.Context(), model.ArticleQuery{
		Tags:   q["tags"],
		Author: q.Get("author"),
		Search: q.Get("q"),
		Sort:   q.Get("sort"),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleDrafts lists the caller's drafts, most recently edited first.
// The body stays a bare array; the full count travels in X-Total-Count.
//
// HTTP: GET /api/articles/drafts?skip=&limit= (auth required) → bare JSON array
func (h *ArticleHandler) HandleDrafts(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	list, err := h.articles.Drafts(r.Context(), viewerID(r), skip, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set(TotalCountHeader, strconv.Itoa(list.Total))
	writeJSON(w, http.StatusOK, list.Articles)
}

// HandleGet returns one article by id or slug.
//
// HTTP: GET /api/articles/{key}
func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.Get(r.Context(), viewerID(r), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleCreate stores a new draft.
//
// HTTP: POST /api/articles (auth required) → 201
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.ArticleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	a, err := h.articles.Create(r.Context(), viewerID(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleUpdate applies a partial update.
//
// HTTP: PATCH /api/articles/{key} (auth required)
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var upd model.ArticleUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, h.logger, err)
		return
	}
	a, err := h.articles.Update(r.Context(), viewerID(r), chi.URLParam(r, "key"), upd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleDelete removes an article.
//
// HTTP: DELETE /api/articles/{key} (auth required) → 204
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.articles.Delete(r.Context(), viewerID(r), chi.URLParam(r, "key")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePublish makes an article public.
//
// HTTP: POST /api/articles/{key}/publish (auth required)
func (h *ArticleHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.Publish(r.Context(), viewerID(r), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleUnpublish turns an article back into a draft.
//
// HTTP: POST /api/articles/{key}/unpublish (auth required)
func (h *ArticleHandler) HandleUnpublish(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.Unpublish(r.Context(), viewerID(r), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
