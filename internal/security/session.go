package security

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/Revology-Analytics/revify-portal/internal/toast"
)

const (
	sessionName = "revify_session"

	keyUserID  = "user_id"
	keyFormKey = "registration_form"
	keySearch  = "file_search"
	keyFlashes = "_flash"

	// Older toasts are dropped past this so the cookie stays under the
	// 4096 byte securecookie limit.
	maxFlashes = 5
)

// SessionStore wraps the cookie session. Changes are buffered on the
// request's session and written by Save.
type SessionStore struct {
	store *sessions.CookieStore
}

func NewSessionStore(secret []byte, secure bool) *SessionStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// session returns the request's session. A cookie that fails to decode
// yields a fresh session.
func (s *SessionStore) session(r *http.Request) *sessions.Session {
	sess, _ := s.store.Get(r, sessionName)
	return sess
}

func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request) error {
	return s.session(r).Save(r, w)
}

func (s *SessionStore) Login(r *http.Request, userID string) {
	sess := s.session(r)
	sess.Values[keyUserID] = userID
}

// Logout clears the session and expires the cookie on the next Save.
func (s *SessionStore) Logout(r *http.Request) {
	sess := s.session(r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
}

func (s *SessionStore) UserID(r *http.Request) (string, bool) {
	id, ok := s.session(r).Values[keyUserID].(string)
	return id, ok && id != ""
}

func (s *SessionStore) FormKey(r *http.Request) string {
	key, _ := s.session(r).Values[keyFormKey].(string)
	return key
}

func (s *SessionStore) SetFormKey(r *http.Request, key string) {
	s.session(r).Values[keyFormKey] = key
}

// SearchTerm is the admin file list filter for this session.
func (s *SessionStore) SearchTerm(r *http.Request) string {
	term, _ := s.session(r).Values[keySearch].(string)
	return term
}

func (s *SessionStore) SetSearchTerm(r *http.Request, term string) {
	s.session(r).Values[keySearch] = term
}

// Notifier queues toasts as session flashes, keeping the newest maxFlashes.
func (s *SessionStore) Notifier(r *http.Request) toast.Notifier {
	return toast.NotifierFunc(func(t toast.Toast) {
		data, err := json.Marshal(t)
		if err != nil {
			return
		}
		sess := s.session(r)
		sess.AddFlash(string(data), keyFlashes)
		if queued, ok := sess.Values[keyFlashes].([]interface{}); ok && len(queued) > maxFlashes {
			sess.Values[keyFlashes] = queued[len(queued)-maxFlashes:]
		}
	})
}

// Flashes drains the queued toasts.
func (s *SessionStore) Flashes(r *http.Request) []toast.Toast {
	out := []toast.Toast{}
	for _, raw := range s.session(r).Flashes(keyFlashes) {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var t toast.Toast
		if err := json.Unmarshal([]byte(str), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}
