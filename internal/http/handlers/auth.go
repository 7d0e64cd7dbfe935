package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Revology-Analytics/revify-portal/internal/auth"
	"github.com/Revology-Analytics/revify-portal/internal/models"
	"github.com/Revology-Analytics/revify-portal/internal/registration"
	"github.com/Revology-Analytics/revify-portal/internal/security"
)

// Authenticator is the subset of auth.Service used for login.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
}

type AuthHandler struct {
	auth   Authenticator
	forms  *registration.Registry
	sec    *security.SessionStore
	logger *logrus.Entry
}

func NewAuthHandler(authn Authenticator, forms *registration.Registry, sec *security.SessionStore, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authn,
		forms:  forms,
		sec:    sec,
		logger: logger.WithField("component", "auth_handler"),
	}
}

type registrationResponse struct {
	State  registration.State       `json:"state"`
	Values models.RegistrationInput `json:"values"`
	Errors registration.FieldErrors `json:"errors,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// form returns the caller's registration form and remembers its key in
// the session.
func (h *AuthHandler) form(r *http.Request) *registration.Form {
	key, form := h.forms.Get(h.sec.FormKey(r))
	h.sec.SetFormKey(r, key)
	return form
}

func (h *AuthHandler) respond(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	if err := h.sec.Save(w, r); err != nil {
		h.logger.WithError(err).Error("failed to save session")
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Failed to save session")
		return
	}
	writeJSON(w, status, body)
}

// report writes the outcome of an action that has already taken effect.
// A session that cannot be saved only loses its queued toasts.
func (h *AuthHandler) report(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	if err := h.sec.Save(w, r); err != nil {
		h.logger.WithError(err).Warn("failed to save session, queued notifications dropped")
	}
	writeJSON(w, status, body)
}

func formState(form *registration.Form) registrationResponse {
	return registrationResponse{
		State:  form.State(),
		Values: form.Values(),
		Error:  form.LastError(),
	}
}

func (h *AuthHandler) RegistrationState(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, formState(h.form(r)))
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationInput
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidationError, "Invalid request")
		return
	}

	form := h.form(r)
	if err := form.Fill(req); err != nil {
		h.respond(w, r, http.StatusConflict, formState(form))
		return
	}

	err := form.Submit(r.Context(), h.sec.Notifier(r))
	resp := formState(form)

	var fieldErrs registration.FieldErrors
	switch {
	case err == nil:
		h.report(w, r, http.StatusCreated, resp)
	case errors.As(err, &fieldErrs):
		resp.Errors = fieldErrs
		h.report(w, r, http.StatusBadRequest, resp)
	case errors.Is(err, registration.ErrSubmitInProgress),
		errors.Is(err, registration.ErrFormComplete),
		errors.Is(err, auth.ErrEmailTaken):
		h.report(w, r, http.StatusConflict, resp)
	default:
		h.report(w, r, http.StatusInternalServerError, resp)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidationError, "Invalid request")
		return
	}

	user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid credentials")
		return
	case errors.Is(err, auth.ErrPendingApproval):
		WriteError(w, http.StatusForbidden, CodeForbidden, "Your account is pending admin approval")
		return
	case err != nil:
		h.logger.WithError(err).Error("login failed")
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error")
		return
	}

	h.sec.Login(r, user.ID)
	h.respond(w, r, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sec.Logout(r)
	h.respond(w, r, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Notifications drains the toasts queued for this session.
func (h *AuthHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	toasts := h.sec.Flashes(r)
	h.respond(w, r, http.StatusOK, toasts)
}
