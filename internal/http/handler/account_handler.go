// Package handler wires the multipart account and post forms to the service
// layer. Form flows answer with a redirect plus a session flash; JSON
// endpoints answer in place.
package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/brforum/forum-backend/internal/http/middleware"
	"github.com/brforum/forum-backend/internal/http/response"
	"github.com/brforum/forum-backend/internal/security"
	"github.com/brforum/forum-backend/internal/service"
	"github.com/brforum/forum-backend/internal/session"
	"github.com/brforum/forum-backend/internal/storage"
)

// Form actions accepted by the account endpoint.
const (
	ActionRegister       = "Register"
	ActionLogin          = "Login"
	ActionLogout         = "Logout"
	ActionEditPhoto      = "EditPhoto"
	ActionEditProfile    = "EditProfile"
	ActionEditCredential = "EditCredential"
	ActionDelete         = "Delete"
)

const multipartMemoryLimit = 1 << 20

type AccountHandler struct {
	accounts *service.AccountService
	sessions *session.Store
	cookies  *security.CookieManager
	limiter  service.LoginLimiter
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, sessions *session.Store, cookies *security.CookieManager, limiter service.LoginLimiter, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, sessions: sessions, cookies: cookies, limiter: limiter, logger: logger}
}

// Dispatch routes POST /account on the form's action field.
func (h *AccountHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "expected a multipart form")
		return
	}

	switch r.FormValue("action") {
	case ActionRegister:
		h.register(w, r)
	case ActionLogin:
		h.login(w, r)
	case ActionLogout:
		h.logout(w, r)
	case ActionEditProfile:
		h.editProfile(w, r)
	case ActionEditCredential:
		h.editCredential(w, r)
	case ActionEditPhoto:
		h.editPhoto(w, r)
	case ActionDelete:
		h.delete(w, r)
	default:
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unknown account action")
	}
}

func (h *AccountHandler) register(w http.ResponseWriter, r *http.Request) {
	photo, err := readPhoto(r)
	if err != nil {
		h.finish(w, r, service.Result{Message: storage.ErrInvalidUpload.Error()})
		return
	}
	res := h.accounts.Register(r.Context(), r.FormValue("login"), r.FormValue("name"), r.FormValue("password"), photo)
	h.finish(w, r, res)
}

func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request) {
	login := r.FormValue("login")
	if !h.limiter.Allow(r.Context(), login) {
		h.finish(w, r, service.Result{Message: "too many login attempts, try again in a minute"})
		return
	}

	res, identity := h.accounts.Login(r.Context(), login, r.FormValue("password"))
	if res.OK {
		if err := h.sessions.SetIdentity(r.Context(), middleware.SessionID(r.Context()), *identity); err != nil {
			h.logger.ErrorContext(r.Context(), "storing session identity failed", "error", err)
			res = service.Result{Message: "something went wrong, please try again"}
		}
	}
	h.finish(w, r, res)
}

func (h *AccountHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), middleware.SessionID(r.Context())); err != nil {
		h.logger.WarnContext(r.Context(), "destroying session failed", "error", err)
	}
	h.cookies.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AccountHandler) editProfile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r.Context())
	if identity == nil {
		h.redirectAnonymous(w, r)
		return
	}
	res, updated := h.accounts.UpdateProfile(r.Context(), identity, r.FormValue("login"), r.FormValue("name"), r.FormValue("password"))
	if updated != nil {
		h.commitIdentity(w, r, res, *updated)
		return
	}
	h.finish(w, r, res)
}

func (h *AccountHandler) editCredential(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r.Context())
	if identity == nil {
		h.redirectAnonymous(w, r)
		return
	}
	res := h.accounts.UpdatePassword(r.Context(), identity, r.FormValue("password"), r.FormValue("confirm_password"))
	h.finish(w, r, res)
}

func (h *AccountHandler) editPhoto(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r.Context())
	if identity == nil {
		h.redirectAnonymous(w, r)
		return
	}
	photo, err := readPhoto(r)
	if err != nil || photo == nil {
		h.finish(w, r, service.Result{Message: storage.ErrInvalidUpload.Error()})
		return
	}
	res, updated := h.accounts.UpdatePhoto(r.Context(), identity, photo, r.FormValue("password"))
	if updated != nil {
		h.commitIdentity(w, r, res, *updated)
		return
	}
	h.finish(w, r, res)
}

// delete removes the caller's own account, or the account named by the id
// field when one is submitted.
func (h *AccountHandler) delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r.Context())
	if identity == nil {
		h.redirectAnonymous(w, r)
		return
	}

	if rawID := r.FormValue("id"); rawID != "" {
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			h.finish(w, r, service.Result{Message: "invalid account id"})
			return
		}
		if uint(id) != identity.UserID {
			h.finish(w, r, h.accounts.DeleteByID(r.Context(), uint(id)))
			return
		}
	}

	res := h.accounts.DeleteSelf(r.Context(), identity)
	if res.OK {
		if err := h.sessions.Destroy(r.Context(), middleware.SessionID(r.Context())); err != nil {
			h.logger.WarnContext(r.Context(), "destroying session failed", "error", err)
		}
		h.cookies.ClearSessionCookie(w)
	}
	h.finish(w, r, res)
}

// Me answers with the logged-in identity.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r.Context())
	if identity == nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in")
		return
	}
	response.JSON(w, r, http.StatusOK, identity)
}

// Result pops the pending flash. Reading it consumes it.
func (h *AccountHandler) Result(w http.ResponseWriter, r *http.Request) {
	flash, err := h.sessions.PopFlash(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "reading flash failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not read result")
		return
	}
	if flash == nil {
		response.JSON(w, r, http.StatusNoContent, nil)
		return
	}
	response.JSON(w, r, http.StatusOK, flash)
}

// commitIdentity refreshes the session after a successful profile or photo
// edit so later requests see the new values.
func (h *AccountHandler) commitIdentity(w http.ResponseWriter, r *http.Request, res service.Result, identity session.Identity) {
	if err := h.sessions.SetIdentity(r.Context(), middleware.SessionID(r.Context()), identity); err != nil {
		h.logger.ErrorContext(r.Context(), "refreshing session identity failed", "error", err)
	}
	h.finish(w, r, res)
}

// finish stores the flash and redirects; the client fetches GET /result to
// learn how the flow went.
func (h *AccountHandler) finish(w http.ResponseWriter, r *http.Request, res service.Result) {
	sid := middleware.SessionID(r.Context())
	if err := h.sessions.SetFlash(r.Context(), sid, session.Flash{OK: res.OK, Message: res.Message}); err != nil {
		h.logger.ErrorContext(r.Context(), "storing flash failed", "error", err)
	}
	http.Redirect(w, r, "/result", http.StatusSeeOther)
}

func (h *AccountHandler) redirectAnonymous(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// readPhoto pulls the optional photo file out of the multipart form. A
// missing file is not an error; the account service treats nil as "keep the
// sentinel".
func readPhoto(r *http.Request) (*storage.Upload, error) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	return uploadFromPart(file, header)
}

func uploadFromPart(file multipart.File, header *multipart.FileHeader) (*storage.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	return &storage.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
