// Package registration implements the sign-up form: field validation, a
// single in-flight submission to the Registrar, and the terminal Complete
// state once the account is created.
package registration

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Revology-Analytics/revify-portal/internal/auth"
	"github.com/Revology-Analytics/revify-portal/internal/metrics"
	"github.com/Revology-Analytics/revify-portal/internal/models"
	"github.com/Revology-Analytics/revify-portal/internal/toast"
)

var (
	ErrFormComplete     = errors.New("registration already completed")
	ErrSubmitInProgress = errors.New("registration submission in progress")
	ErrUnknownField     = errors.New("unknown field")
)

const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"

	minNameLength     = 2
	minPasswordLength = 8

	// bcrypt ignores input past 72 bytes and the hasher refuses it.
	maxPasswordBytes = 72
)

type State string

const (
	Editing    State = "editing"
	Submitting State = "submitting"
	Complete   State = "complete"
)

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// Validate checks input against the form rules. It returns nil when every
// field passes.
func Validate(input models.RegistrationInput) FieldErrors {
	errs := FieldErrors{}
	if utf8.RuneCountInString(input.Name) < minNameLength {
		errs[FieldName] = "Name must be at least 2 characters"
	}
	if !validEmail(input.Email) {
		errs[FieldEmail] = "Invalid email address"
	}
	switch {
	case utf8.RuneCountInString(input.Password) < minPasswordLength:
		errs[FieldPassword] = "Password must be at least 8 characters"
	case len(input.Password) > maxPasswordBytes:
		errs[FieldPassword] = "Password must be at most 72 bytes"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validEmail accepts a bare addr-spec with a dotted domain. Display names
// ("Jane <jane@example.com>") are rejected.
func validEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, input models.RegistrationInput) error
}

type Form struct {
	registrar Registrar
	logger    *logrus.Entry

	mu        sync.Mutex
	state     State
	input     models.RegistrationInput
	lastError string
}

func NewForm(registrar Registrar, logger *logrus.Logger) *Form {
	return &Form{
		registrar: registrar,
		logger:    logger.WithField("component", "registration"),
		state:     Editing,
	}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastError is the registrar's message from the most recent failed
// submission, or empty.
func (f *Form) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}

// Values returns the current input with the password blanked.
func (f *Form) Values() models.RegistrationInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.input
	v.Password = ""
	return v
}

func (f *Form) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return err
	}

	switch field {
	case FieldName:
		f.input.Name = value
	case FieldEmail:
		f.input.Email = value
	case FieldPassword:
		f.input.Password = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Fill sets every field at once.
func (f *Form) Fill(input models.RegistrationInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return err
	}
	f.input = input
	return nil
}

func (f *Form) Validate() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Validate(f.input)
}

// Submit validates the input and, if it passes, sends it to the registrar.
// Only one submission may be in flight. On success the form is Complete and
// the input is discarded; on failure it returns to Editing.
func (f *Form) Submit(ctx context.Context, n toast.Notifier) error {
	f.mu.Lock()
	if err := f.editableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	if errs := Validate(f.input); errs != nil {
		f.mu.Unlock()
		return errs
	}
	f.state = Submitting
	f.lastError = ""
	input := f.input
	f.mu.Unlock()

	err := f.registrar.Register(ctx, input)
	metrics.Registrations.WithLabelValues(metrics.Result(err)).Inc()

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = Editing
		f.lastError = publicMessage(err)
		f.logger.WithError(err).WithField("email", input.Email).Warn("registration failed")
		n.Notify(toast.Failure("Registration failed", genericFailure))
		return fmt.Errorf("register: %w", err)
	}

	f.state = Complete
	f.input = models.RegistrationInput{}
	f.logger.WithField("email", input.Email).Info("registration submitted")
	n.Notify(toast.Success("Registration successful", "Account created successfully. Awaiting approval."))
	return nil
}

const genericFailure = "There was an error creating your account. Please try again."

// publicMessage is the text LastError reports for a registrar error. Only
// errors the user can act on are shown as is.
func publicMessage(err error) string {
	if errors.Is(err, auth.ErrEmailTaken) {
		return auth.ErrEmailTaken.Error()
	}
	return genericFailure
}

func (f *Form) editableLocked() error {
	switch f.state {
	case Complete:
		return ErrFormComplete
	case Submitting:
		return ErrSubmitInProgress
	}
	return nil
}
