package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/brforum/forum-backend/internal/http/middleware"
	"github.com/brforum/forum-backend/internal/http/response"
	"github.com/brforum/forum-backend/internal/repository"
	"github.com/brforum/forum-backend/internal/service"
	"github.com/brforum/forum-backend/internal/session"
)

// Form actions accepted by the posts endpoint.
const (
	PostActionCreate = "Create"
	PostActionEdit   = "Edit"
	PostActionDelete = "Delete"
)

type PostHandler struct {
	posts    *service.PostService
	sessions *session.Store
	logger   *slog.Logger
}

func NewPostHandler(posts *service.PostService, sessions *session.Store, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, sessions: sessions, logger: logger}
}

// Dispatch routes POST /posts on the form's action field. All post writes
// require a logged-in session.
func (h *PostHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r.Context())
	if identity == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed form")
		return
	}

	switch r.FormValue("action") {
	case PostActionCreate:
		res, _ := h.posts.Create(r.Context(), identity.UserID, r.FormValue("message"))
		h.finish(w, r, res)
	case PostActionEdit:
		id, ok := formPostID(r)
		if !ok {
			h.finish(w, r, service.Result{Message: "invalid post id"})
			return
		}
		h.finish(w, r, h.posts.Edit(r.Context(), identity.UserID, id, r.FormValue("message")))
	case PostActionDelete:
		id, ok := formPostID(r)
		if !ok {
			h.finish(w, r, service.Result{Message: "invalid post id"})
			return
		}
		h.finish(w, r, h.posts.Delete(r.Context(), identity.UserID, id))
	default:
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unknown post action")
	}
}

// List answers GET /posts. ?q= searches messages; ?mine=1 narrows to the
// caller's own posts.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("mine") == "1" {
		identity := middleware.CurrentIdentity(r.Context())
		if identity == nil {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in")
			return
		}
		posts, err := h.posts.ListByUser(r.Context(), identity.UserID)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "listing own posts failed", "error", err)
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not list posts")
			return
		}
		response.JSON(w, r, http.StatusOK, posts)
		return
	}

	posts, err := h.posts.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing posts failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not list posts")
		return
	}
	response.JSON(w, r, http.StatusOK, posts)
}

// Author answers GET /posts/{id}/author.
func (h *PostHandler) Author(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id")
		return
	}
	author, err := h.posts.Author(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "resolving post author failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not resolve author")
		return
	}
	response.JSON(w, r, http.StatusOK, author)
}

func (h *PostHandler) finish(w http.ResponseWriter, r *http.Request, res service.Result) {
	sid := middleware.SessionID(r.Context())
	if err := h.sessions.SetFlash(r.Context(), sid, session.Flash{OK: res.OK, Message: res.Message}); err != nil {
		h.logger.ErrorContext(r.Context(), "storing flash failed", "error", err)
	}
	http.Redirect(w, r, "/result", http.StatusSeeOther)
}

func formPostID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.FormValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
