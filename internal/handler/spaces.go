package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/service"
)

// SpaceHandler serves /api/spaces.
type SpaceHandler struct {
	spaces *service.SpaceService
	logger *slog.Logger
}

// NewSpaceHandler creates a SpaceHandler.
func NewSpaceHandler(spaces *service.SpaceService, logger *slog.Logger) *SpaceHandler {
	return &SpaceHandler{spaces: spaces, logger: logger}
}

// HandleList lists visible spaces.
//
// HTTP: GET /api/spaces?tags=&q=&my_spaces=true&skip=&limit=
func (h *SpaceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	q := r.URL.Query()
	list, err := h.spaces.List(r.Context(), viewerID(r), model.SpaceQuery{
		Tags:     q["tags"],
		Search:   q.Get("q"),
		MySpaces: q.Get("my_spaces") == "true",
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet returns one space by slug or id.
//
// HTTP: GET /api/spaces/{key}
func (h *SpaceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sp, err := h.spaces.Get(r.Context(), viewerID(r), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

// HandleCreate creates a space owned by the caller.
//
// HTTP: POST /api/spaces (auth required) → 201
func (h *SpaceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.SpaceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sp, err := h.spaces.Create(r.Context(), viewerID(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

// HandleJoin adds the caller as a member.
//
// HTTP: POST /api/spaces/{key}/join (auth required)
func (h *SpaceHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	res, err := h.spaces.Join(r.Context(), viewerID(r), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleLeave removes the caller from a space.
//
// HTTP: POST /api/spaces/{key}/leave (auth required) → 204
func (h *SpaceHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	if err := h.spaces.Leave(r.Context(), viewerID(r), chi.URLParam(r, "key")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMembers lists members.
//
// HTTP: GET /api/spaces/{key}/members?role=&skip=&limit=
func (h *SpaceHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	role := model.Role(r.URL.Query().Get("role"))
	list, err := h.spaces.Members(r.Context(), viewerID(r), chi.URLParam(r, "key"), role, skip, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleUpdateRole changes a member's role.
//
// HTTP: PATCH /api/spaces/{key}/members/{userID} (auth required)
func (h *SpaceHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var body model.RoleUpdate
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.spaces.UpdateMemberRole(r.Context(), viewerID(r),
		chi.URLParam(r, "key"), chi.URLParam(r, "userID"), body.Role)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleMember returns one membership.
//
// HTTP: GET /api/spaces/{key}/members/{userID}
func (h *SpaceHandler) HandleMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.spaces.Member(r.Context(), viewerID(r), chi.URLParam(r, "key"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleArticles lists the articles shared to a space.
//
// HTTP: GET /api/spaces/{key}/articles?pinned_first=true&skip=&limit=
func (h *SpaceHandler) HandleArticles(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pinnedFirst := r.URL.Query().Get("pinned_first") == "true"
	list, err := h.spaces.Articles(r.Context(), viewerID(r), chi.URLParam(r, "key"), pinnedFirst, skip, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleShareArticle shares a published article to a space.
//
// HTTP: POST /api/spaces/{key}/articles (auth required) → 201
func (h *SpaceHandler) HandleShareArticle(w http.ResponseWriter, r *http.Request) {
	var body model.ShareArticle
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sa, err := h.spaces.ShareArticle(r.Context(), viewerID(r), chi.URLParam(r, "key"), body.ArticleID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sa)
}

// HandlePinArticle pins or unpins a shared article.
//
// HTTP: PATCH /api/spaces/{key}/articles/{articleID} (auth required)
func (h *SpaceHandler) HandlePinArticle(w http.ResponseWriter, r *http.Request) {
	var body model.PinUpdate
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.spaces.SetPinned(r.Context(), viewerID(r),
		chi.URLParam(r, "key"), chi.URLParam(r, "articleID"), body.Pinned)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRemoveArticle takes an article out of a space.
//
// HTTP: DELETE /api/spaces/{key}/articles/{articleID} (auth required) → 204
func (h *SpaceHandler) HandleRemoveArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.spaces.RemoveArticle(r.Context(), viewerID(r), chi.URLParam(r, "key"), chi.URLParam(r, "articleID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
