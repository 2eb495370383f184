package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/service"
)

// FeedHandler serves /api/feed and /api/tags.
type FeedHandler struct {
	feed     *service.FeedService
	recorder Recorder
	logger   *slog.Logger
}

// NewFeedHandler creates a FeedHandler.
func NewFeedHandler(feed *service.FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, recorder: nopRecorder{}, logger: logger}
}

// WithRecorder makes the handler count recorded interactions on rec.
func (h *FeedHandler) WithRecorder(rec Recorder) *FeedHandler {
	h.recorder = rec
	return h
}

// HandleFeed returns one feed page.
//
// HTTP: GET /api/feed?view=&tags=&time_range=&skip=&limit=
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	q := r.URL.Query()
	out, err := h.feed.Feed(r.Context(), viewerID(r), model.FeedQuery{
		View:      q.Get("view"),
		Tags:      q["tags"],
		TimeRange: q.Get("time_range"),
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleTrending ranks content.
//
// HTTP: GET /api/feed/trending?type=&time_range=&limit=
func (h *FeedHandler) HandleTrending(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	q := r.URL.Query()
	out, err := h.feed.Trending(r.Context(), q.Get("type"), q.Get("time_range"), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDiscover returns one discovery category.
//
// HTTP: GET /api/feed/discover?category=&limit=
func (h *FeedHandler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := h.feed.Discover(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleInteraction records a view, click, share or save.
//
// HTTP: POST /api/feed/interactions → 204
func (h *FeedHandler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	var in model.Interaction
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.feed.RecordInteraction(r.Context(), viewerID(r), in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.recorder.ObserveInteraction(in.Type, in.TargetType)
	w.WriteHeader(http.StatusNoContent)
}

// HandleTags returns the tag taxonomy.
//
// HTTP: GET /api/tags
func (h *FeedHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Taxonomy())
}
