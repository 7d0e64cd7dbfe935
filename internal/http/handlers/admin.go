package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Revology-Analytics/revify-portal/internal/auth"
	"github.com/Revology-Analytics/revify-portal/internal/db"
	"github.com/Revology-Analytics/revify-portal/internal/filelist"
	"github.com/Revology-Analytics/revify-portal/internal/http/middleware"
	"github.com/Revology-Analytics/revify-portal/internal/models"
	"github.com/Revology-Analytics/revify-portal/internal/security"
)

type UserAdmin interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
	SearchUsers(ctx context.Context, searchTerm string) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Approver interface {
	Approve(ctx context.Context, id string) error
}

type AdminHandler struct {
	files    *filelist.Controller
	users    UserAdmin
	approver Approver
	sec      *security.SessionStore
	logger   *logrus.Entry
}

func NewAdminHandler(files *filelist.Controller, users UserAdmin, approver Approver, sec *security.SessionStore, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		files:    files,
		users:    users,
		approver: approver,
		sec:      sec,
		logger:   logger.WithField("component", "admin_handler"),
	}
}

// The term rides in the session cookie.
const maxSearchTermLength = 256

type fileListResponse struct {
	Files      []filelist.Row   `json:"files"`
	Summary    filelist.Summary `json:"summary"`
	SearchTerm string           `json:"searchTerm"`
}

// ListFiles serves the cached file list. ?q= filters this request only;
// without it the session's search term applies.
func (h *AdminHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	term := h.sec.SearchTerm(r)
	if q, ok := r.URL.Query()["q"]; ok {
		term = q[0]
	}
	writeJSON(w, http.StatusOK, h.fileList(term))
}

func (h *AdminHandler) fileList(term string) fileListResponse {
	return fileListResponse{
		Files:      filelist.Rows(h.files.Search(term)),
		Summary:    h.files.Summary(),
		SearchTerm: term,
	}
}

// SetSearchTerm stores the filter in the caller's session, so each admin
// keeps their own.
func (h *AdminHandler) SetSearchTerm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Term string `json:"term"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidationError, "Invalid request")
		return
	}
	if len(req.Term) > maxSearchTermLength {
		WriteError(w, http.StatusBadRequest, CodeValidationError, "Search term is too long")
		return
	}

	h.sec.SetSearchTerm(r, req.Term)
	if err := h.sec.Save(w, r); err != nil {
		h.logger.WithError(err).Error("failed to save session")
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Failed to save search term")
		return
	}
	writeJSON(w, http.StatusOK, h.fileList(req.Term))
}

func (h *AdminHandler) RefreshFiles(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Refresh(r.Context()); err != nil {
		h.logger.WithError(err).Error("manual refresh failed")
		WriteError(w, http.StatusBadGateway, CodeInternalError, "Failed to refresh files")
		return
	}
	h.ListFiles(w, r)
}

func (h *AdminHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := h.files.DeleteFile(r.Context(), id, h.sec.Notifier(r))
	h.respondMutation(w, r, err, "Failed to delete the file.")
}

func (h *AdminHandler) SetFileStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Status models.FileStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidationError, "Invalid request")
		return
	}
	if !req.Status.Valid() {
		WriteError(w, http.StatusBadRequest, CodeValidationError, "Unknown status")
		return
	}

	err := h.files.SetStatus(r.Context(), id, req.Status, h.sec.Notifier(r))
	h.respondMutation(w, r, err, "Failed to update the file.")
}

// respondMutation saves the queued toast and reports the outcome. The
// store's cause is logged by the controller and not echoed here.
func (h *AdminHandler) respondMutation(w http.ResponseWriter, r *http.Request, err error, failure string) {
	if saveErr := h.sec.Save(w, r); saveErr != nil {
		h.logger.WithError(saveErr).Error("failed to save session")
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.fileList(h.sec.SearchTerm(r)))
	case errors.Is(err, filelist.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, CodeConflict, failure)
	case errors.Is(err, db.ErrNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, failure)
	default:
		WriteError(w, http.StatusInternalServerError, CodeInternalError, failure)
	}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var (
		users []models.User
		err   error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		users, err = h.users.SearchUsers(r.Context(), q)
	} else {
		users, err = h.users.GetAllUsers(r.Context())
	}
	if err != nil {
		h.logger.WithError(err).Error("list users failed")
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Failed to get users")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := h.approver.Approve(r.Context(), id)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, "User not found")
	case err != nil:
		h.logger.WithError(err).WithField("user_id", id).Error("approve user failed")
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Failed to approve user")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "User approved"})
	}
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if admin, ok := middleware.UserFrom(r.Context()); ok && admin.ID == id {
		WriteError(w, http.StatusConflict, CodeConflict, "Admins cannot delete their own account")
		return
	}

	err := h.users.DeleteUser(r.Context(), id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, "User not found")
	case err != nil:
		h.logger.WithError(err).WithField("user_id", id).Error("delete user failed")
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Failed to delete user")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
	}
}
